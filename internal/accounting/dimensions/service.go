package dimensions

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/shared"
)

var (
	ErrNotFound       = shared.NotFound("Dimension")
	ErrValueNotFound  = shared.NotFound("Dimension value")
	ErrDuplicateCode  = shared.Validation("Dimension code already exists")
	ErrDuplicateValue = shared.Validation("Value code already exists for this dimension")
)

// AuditPort records dimension changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages dimension definitions and values.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

func (s *Service) ListDefinitions(ctx context.Context, orgID int64) ([]Definition, error) {
	return s.repo.ListDefinitions(ctx, orgID)
}

func (s *Service) GetDefinition(ctx context.Context, orgID, id int64) (Definition, error) {
	return s.repo.GetDefinition(ctx, orgID, id)
}

// CreateDefinition adds a dimension with a code unique within the org.
func (s *Service) CreateDefinition(ctx context.Context, orgID int64, in DefinitionInput) (Definition, error) {
	in = normaliseDefinition(in)
	if err := validateDefinition(in); err != nil {
		return Definition{}, err
	}
	if _, found, err := s.repo.FindDefinitionByCode(ctx, orgID, in.Code); err != nil {
		return Definition{}, err
	} else if found {
		return Definition{}, ErrDuplicateCode
	}
	def, err := s.repo.InsertDefinition(ctx, Definition{
		OrgID:        orgID,
		Code:         in.Code,
		Name:         in.Name,
		Type:         in.Type,
		Description:  in.Description,
		IsRequired:   in.IsRequired,
		IsActive:     true,
		AccountTypes: in.AccountTypes,
		SortOrder:    in.SortOrder,
	})
	if err != nil {
		return Definition{}, err
	}
	s.record(ctx, orgID, "dimension.create", def.ID, map[string]any{"code": def.Code})
	return def, nil
}

func (s *Service) UpdateDefinition(ctx context.Context, orgID, id int64, in DefinitionInput) (Definition, error) {
	in = normaliseDefinition(in)
	if err := validateDefinition(in); err != nil {
		return Definition{}, err
	}
	current, err := s.repo.GetDefinition(ctx, orgID, id)
	if err != nil {
		return Definition{}, err
	}
	if other, found, err := s.repo.FindDefinitionByCode(ctx, orgID, in.Code); err != nil {
		return Definition{}, err
	} else if found && other.ID != id {
		return Definition{}, ErrDuplicateCode
	}
	current.Code = in.Code
	current.Name = in.Name
	current.Type = in.Type
	current.Description = in.Description
	current.IsRequired = in.IsRequired
	current.IsActive = in.IsActive
	current.AccountTypes = in.AccountTypes
	current.SortOrder = in.SortOrder
	updated, err := s.repo.UpdateDefinition(ctx, current)
	if err != nil {
		return Definition{}, err
	}
	s.record(ctx, orgID, "dimension.update", id, map[string]any{"code": updated.Code, "required": updated.IsRequired})
	return updated, nil
}

// DeleteDefinition removes a dimension that has no values left.
func (s *Service) DeleteDefinition(ctx context.Context, orgID, id int64) error {
	def, err := s.repo.GetDefinition(ctx, orgID, id)
	if err != nil {
		return err
	}
	values, err := s.repo.ListValues(ctx, id)
	if err != nil {
		return err
	}
	if len(values) > 0 {
		return shared.Integrity("Cannot delete dimension with %d values", len(values))
	}
	if err := s.repo.DeleteDefinition(ctx, orgID, id); err != nil {
		return err
	}
	s.record(ctx, orgID, "dimension.delete", id, map[string]any{"code": def.Code})
	return nil
}

func (s *Service) ListValues(ctx context.Context, orgID, dimensionID int64) ([]Value, error) {
	if _, err := s.repo.GetDefinition(ctx, orgID, dimensionID); err != nil {
		return nil, err
	}
	return s.repo.ListValues(ctx, dimensionID)
}

// CreateValue adds a value whose code is unique within its dimension.
func (s *Service) CreateValue(ctx context.Context, orgID, dimensionID int64, in ValueInput) (Value, error) {
	in = normaliseValue(in)
	if in.Code == "" || in.Name == "" {
		return Value{}, shared.Validation("Value code and name are required")
	}
	if _, err := s.repo.GetDefinition(ctx, orgID, dimensionID); err != nil {
		return Value{}, err
	}
	if _, found, err := s.repo.FindValueByCode(ctx, dimensionID, in.Code); err != nil {
		return Value{}, err
	} else if found {
		return Value{}, ErrDuplicateValue
	}
	v, err := s.repo.InsertValue(ctx, Value{
		DimensionID: dimensionID,
		Code:        in.Code,
		Name:        in.Name,
		IsActive:    true,
		SortOrder:   in.SortOrder,
	})
	if err != nil {
		return Value{}, err
	}
	s.record(ctx, orgID, "dimension_value.create", v.ID, map[string]any{"dimension_id": dimensionID, "code": v.Code})
	return v, nil
}

func (s *Service) UpdateValue(ctx context.Context, orgID, dimensionID, id int64, in ValueInput) (Value, error) {
	in = normaliseValue(in)
	if in.Code == "" || in.Name == "" {
		return Value{}, shared.Validation("Value code and name are required")
	}
	if _, err := s.repo.GetDefinition(ctx, orgID, dimensionID); err != nil {
		return Value{}, err
	}
	current, err := s.repo.GetValue(ctx, dimensionID, id)
	if err != nil {
		return Value{}, err
	}
	if other, found, err := s.repo.FindValueByCode(ctx, dimensionID, in.Code); err != nil {
		return Value{}, err
	} else if found && other.ID != id {
		return Value{}, ErrDuplicateValue
	}
	current.Code = in.Code
	current.Name = in.Name
	current.IsActive = in.IsActive
	current.SortOrder = in.SortOrder
	updated, err := s.repo.UpdateValue(ctx, current)
	if err != nil {
		return Value{}, err
	}
	s.record(ctx, orgID, "dimension_value.update", id, map[string]any{"dimension_id": dimensionID, "code": updated.Code})
	return updated, nil
}

func (s *Service) DeleteValue(ctx context.Context, orgID, dimensionID, id int64) error {
	if _, err := s.repo.GetDefinition(ctx, orgID, dimensionID); err != nil {
		return err
	}
	if err := s.repo.DeleteValue(ctx, dimensionID, id); err != nil {
		return err
	}
	s.record(ctx, orgID, "dimension_value.delete", id, map[string]any{"dimension_id": dimensionID})
	return nil
}

func (s *Service) record(ctx context.Context, orgID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		OrgID:    orgID,
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "dimension",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	})
}

func normaliseDefinition(in DefinitionInput) DefinitionInput {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	in.Type = Type(strings.ToUpper(string(in.Type)))
	types := make([]string, 0, len(in.AccountTypes))
	for _, t := range in.AccountTypes {
		types = append(types, strings.ToUpper(strings.TrimSpace(t)))
	}
	in.AccountTypes = types
	return in
}

func validateDefinition(in DefinitionInput) error {
	if in.Code == "" {
		return shared.Validation("Dimension code is required")
	}
	if in.Name == "" {
		return shared.Validation("Dimension name is required")
	}
	switch in.Type {
	case TypeDepartment, TypeProject, TypeLocation, TypeEntity, TypeCustomer, TypeVendor:
	default:
		return shared.Validation("Invalid dimension type %q", in.Type)
	}
	for _, t := range in.AccountTypes {
		if !accounts.AccountType(t).Valid() {
			return shared.Validation("Invalid account type %q", t)
		}
	}
	return nil
}

func normaliseValue(in ValueInput) ValueInput {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	return in
}
