package dimensions

import "time"

// Type classifies what a dimension segments by.
type Type string

const (
	TypeDepartment Type = "DEPARTMENT"
	TypeProject    Type = "PROJECT"
	TypeLocation   Type = "LOCATION"
	TypeEntity     Type = "ENTITY"
	TypeCustomer   Type = "CUSTOMER"
	TypeVendor     Type = "VENDOR"
)

// Definition describes a dimension an org tags journal lines with.
type Definition struct {
	ID           int64     `db:"id" json:"id"`
	OrgID        int64     `db:"org_id" json:"orgId"`
	Code         string    `db:"code" json:"code"`
	Name         string    `db:"name" json:"name"`
	Type         Type      `db:"type" json:"type"`
	Description  string    `db:"description" json:"description"`
	IsRequired   bool      `db:"is_required" json:"isRequired"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	AccountTypes []string  `db:"account_types" json:"accountTypes"`
	SortOrder    int       `db:"sort_order" json:"sortOrder"`
	ValueCount   int       `db:"value_count" json:"valueCount"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Value is one selectable member of a dimension.
type Value struct {
	ID          int64     `db:"id" json:"id"`
	DimensionID int64     `db:"dimension_id" json:"dimensionId"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	SortOrder   int       `db:"sort_order" json:"sortOrder"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// DefinitionInput carries editable definition fields.
type DefinitionInput struct {
	Code         string   `json:"code" validate:"required,max=32"`
	Name         string   `json:"name" validate:"required,max=100"`
	Type         Type     `json:"type" validate:"required,oneof=DEPARTMENT PROJECT LOCATION ENTITY CUSTOMER VENDOR"`
	Description  string   `json:"description"`
	IsRequired   bool     `json:"isRequired"`
	IsActive     bool     `json:"isActive"`
	AccountTypes []string `json:"accountTypes" validate:"dive,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	SortOrder    int      `json:"sortOrder"`
}

// ValueInput carries editable value fields.
type ValueInput struct {
	Code      string `json:"code" validate:"required,max=32"`
	Name      string `json:"name" validate:"required,max=100"`
	IsActive  bool   `json:"isActive"`
	SortOrder int    `json:"sortOrder"`
}
