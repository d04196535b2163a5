package dimensions

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/ledger/internal/shared"
)

// Repository persists dimension definitions and their values.
type Repository interface {
	ListDefinitions(ctx context.Context, orgID int64) ([]Definition, error)
	GetDefinition(ctx context.Context, orgID, id int64) (Definition, error)
	FindDefinitionByCode(ctx context.Context, orgID int64, code string) (Definition, bool, error)
	InsertDefinition(ctx context.Context, def Definition) (Definition, error)
	UpdateDefinition(ctx context.Context, def Definition) (Definition, error)
	DeleteDefinition(ctx context.Context, orgID, id int64) error

	ListValues(ctx context.Context, dimensionID int64) ([]Value, error)
	GetValue(ctx context.Context, dimensionID, id int64) (Value, error)
	FindValueByCode(ctx context.Context, dimensionID int64, code string) (Value, bool, error)
	InsertValue(ctx context.Context, v Value) (Value, error)
	UpdateValue(ctx context.Context, v Value) (Value, error)
	DeleteValue(ctx context.Context, dimensionID, id int64) error
}

const definitionColumns = `d.id, d.org_id, d.code, d.name, d.type, d.description, d.is_required, d.is_active,
d.account_types, d.sort_order, d.created_at, d.updated_at,
(SELECT COUNT(*) FROM dimension_values v WHERE v.dimension_id = d.id) AS value_count`

const valueColumns = "id, dimension_id, code, name, is_active, sort_order, created_at, updated_at"

var constraintMessages = shared.ConstraintMessages{
	"uq_dimension_definitions_code":      "Dimension code already exists",
	"uq_dimension_values_code":           "Value code already exists for this dimension",
	"dimension_values_dimension_id_fkey": "Cannot delete dimension with existing values",
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListDefinitions(ctx context.Context, orgID int64) ([]Definition, error) {
	var out []Definition
	err := pgxscan.Select(ctx, r.db, &out, `SELECT `+definitionColumns+` FROM dimension_definitions d
WHERE d.org_id = $1 ORDER BY d.sort_order, d.code`, orgID)
	if err != nil {
		return nil, fmt.Errorf("dimensions: list definitions: %w", err)
	}
	return out, nil
}

func (r *repository) GetDefinition(ctx context.Context, orgID, id int64) (Definition, error) {
	var d Definition
	err := pgxscan.Get(ctx, r.db, &d, `SELECT `+definitionColumns+` FROM dimension_definitions d WHERE d.org_id = $1 AND d.id = $2`, orgID, id)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Definition{}, ErrNotFound
		}
		return Definition{}, fmt.Errorf("dimensions: get definition: %w", err)
	}
	return d, nil
}

func (r *repository) FindDefinitionByCode(ctx context.Context, orgID int64, code string) (Definition, bool, error) {
	var d Definition
	err := pgxscan.Get(ctx, r.db, &d, `SELECT `+definitionColumns+` FROM dimension_definitions d WHERE d.org_id = $1 AND d.code = $2`, orgID, code)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Definition{}, false, nil
		}
		return Definition{}, false, fmt.Errorf("dimensions: find definition: %w", err)
	}
	return d, true, nil
}

func (r *repository) InsertDefinition(ctx context.Context, d Definition) (Definition, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO dimension_definitions
(org_id, code, name, type, description, is_required, is_active, account_types, sort_order)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at, updated_at`,
		d.OrgID, d.Code, d.Name, d.Type, d.Description, d.IsRequired, d.IsActive, accountTypesArg(d.AccountTypes), d.SortOrder).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Definition{}, shared.MapConstraint(fmt.Errorf("dimensions: insert definition: %w", err), constraintMessages)
	}
	return d, nil
}

func (r *repository) UpdateDefinition(ctx context.Context, d Definition) (Definition, error) {
	err := r.db.QueryRow(ctx, `UPDATE dimension_definitions SET code = $3, name = $4, type = $5, description = $6,
is_required = $7, is_active = $8, account_types = $9, sort_order = $10, updated_at = NOW()
WHERE org_id = $1 AND id = $2 RETURNING created_at, updated_at`,
		d.OrgID, d.ID, d.Code, d.Name, d.Type, d.Description, d.IsRequired, d.IsActive, accountTypesArg(d.AccountTypes), d.SortOrder).
		Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Definition{}, ErrNotFound
		}
		return Definition{}, shared.MapConstraint(fmt.Errorf("dimensions: update definition: %w", err), constraintMessages)
	}
	return d, nil
}

func (r *repository) DeleteDefinition(ctx context.Context, orgID, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM dimension_definitions WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return shared.MapConstraint(fmt.Errorf("dimensions: delete definition: %w", err), constraintMessages)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListValues(ctx context.Context, dimensionID int64) ([]Value, error) {
	var out []Value
	err := pgxscan.Select(ctx, r.db, &out, `SELECT `+valueColumns+` FROM dimension_values WHERE dimension_id = $1 ORDER BY sort_order, code`, dimensionID)
	if err != nil {
		return nil, fmt.Errorf("dimensions: list values: %w", err)
	}
	return out, nil
}

func (r *repository) GetValue(ctx context.Context, dimensionID, id int64) (Value, error) {
	var v Value
	err := pgxscan.Get(ctx, r.db, &v, `SELECT `+valueColumns+` FROM dimension_values WHERE dimension_id = $1 AND id = $2`, dimensionID, id)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Value{}, ErrValueNotFound
		}
		return Value{}, fmt.Errorf("dimensions: get value: %w", err)
	}
	return v, nil
}

func (r *repository) FindValueByCode(ctx context.Context, dimensionID int64, code string) (Value, bool, error) {
	var v Value
	err := pgxscan.Get(ctx, r.db, &v, `SELECT `+valueColumns+` FROM dimension_values WHERE dimension_id = $1 AND code = $2`, dimensionID, code)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Value{}, false, nil
		}
		return Value{}, false, fmt.Errorf("dimensions: find value: %w", err)
	}
	return v, true, nil
}

func (r *repository) InsertValue(ctx context.Context, v Value) (Value, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO dimension_values (dimension_id, code, name, is_active, sort_order)
VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`,
		v.DimensionID, v.Code, v.Name, v.IsActive, v.SortOrder).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return Value{}, shared.MapConstraint(fmt.Errorf("dimensions: insert value: %w", err), constraintMessages)
	}
	return v, nil
}

func (r *repository) UpdateValue(ctx context.Context, v Value) (Value, error) {
	err := r.db.QueryRow(ctx, `UPDATE dimension_values SET code = $3, name = $4, is_active = $5, sort_order = $6, updated_at = NOW()
WHERE dimension_id = $1 AND id = $2 RETURNING created_at, updated_at`,
		v.DimensionID, v.ID, v.Code, v.Name, v.IsActive, v.SortOrder).
		Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Value{}, ErrValueNotFound
		}
		return Value{}, shared.MapConstraint(fmt.Errorf("dimensions: update value: %w", err), constraintMessages)
	}
	return v, nil
}

func (r *repository) DeleteValue(ctx context.Context, dimensionID, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM dimension_values WHERE dimension_id = $1 AND id = $2`, dimensionID, id)
	if err != nil {
		return fmt.Errorf("dimensions: delete value: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrValueNotFound
	}
	return nil
}

// accountTypesArg keeps NOT NULL TEXT[] columns from receiving a nil slice.
func accountTypesArg(types []string) []string {
	if types == nil {
		return []string{}
	}
	return types
}
