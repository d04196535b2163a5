package dimensions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledger/internal/shared"
)

type memoryRepo struct {
	defs   map[int64]Definition
	values map[int64]Value
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{defs: make(map[int64]Definition), values: make(map[int64]Value)}
}

func (r *memoryRepo) ListDefinitions(ctx context.Context, orgID int64) ([]Definition, error) {
	var out []Definition
	for _, d := range r.defs {
		if d.OrgID == orgID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetDefinition(ctx context.Context, orgID, id int64) (Definition, error) {
	d, ok := r.defs[id]
	if !ok || d.OrgID != orgID {
		return Definition{}, ErrNotFound
	}
	return d, nil
}

func (r *memoryRepo) FindDefinitionByCode(ctx context.Context, orgID int64, code string) (Definition, bool, error) {
	for _, d := range r.defs {
		if d.OrgID == orgID && d.Code == code {
			return d, true, nil
		}
	}
	return Definition{}, false, nil
}

func (r *memoryRepo) InsertDefinition(ctx context.Context, d Definition) (Definition, error) {
	r.nextID++
	d.ID = r.nextID
	r.defs[d.ID] = d
	return d, nil
}

func (r *memoryRepo) UpdateDefinition(ctx context.Context, d Definition) (Definition, error) {
	r.defs[d.ID] = d
	return d, nil
}

func (r *memoryRepo) DeleteDefinition(ctx context.Context, orgID, id int64) error {
	delete(r.defs, id)
	return nil
}

func (r *memoryRepo) ListValues(ctx context.Context, dimensionID int64) ([]Value, error) {
	var out []Value
	for _, v := range r.values {
		if v.DimensionID == dimensionID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetValue(ctx context.Context, dimensionID, id int64) (Value, error) {
	v, ok := r.values[id]
	if !ok || v.DimensionID != dimensionID {
		return Value{}, ErrValueNotFound
	}
	return v, nil
}

func (r *memoryRepo) FindValueByCode(ctx context.Context, dimensionID int64, code string) (Value, bool, error) {
	for _, v := range r.values {
		if v.DimensionID == dimensionID && v.Code == code {
			return v, true, nil
		}
	}
	return Value{}, false, nil
}

func (r *memoryRepo) InsertValue(ctx context.Context, v Value) (Value, error) {
	r.nextID++
	v.ID = r.nextID
	r.values[v.ID] = v
	return v, nil
}

func (r *memoryRepo) UpdateValue(ctx context.Context, v Value) (Value, error) {
	r.values[v.ID] = v
	return v, nil
}

func (r *memoryRepo) DeleteValue(ctx context.Context, dimensionID, id int64) error {
	if _, ok := r.values[id]; !ok {
		return ErrValueNotFound
	}
	delete(r.values, id)
	return nil
}

func TestDefinitionCodesAreUniquePerOrg(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	def, err := svc.CreateDefinition(ctx, 1, DefinitionInput{Code: "dept", Name: "Department", Type: TypeDepartment})
	require.NoError(t, err)
	require.Equal(t, "DEPT", def.Code)
	require.True(t, def.IsActive)

	_, err = svc.CreateDefinition(ctx, 1, DefinitionInput{Code: "DEPT", Name: "Dept", Type: TypeDepartment})
	require.ErrorIs(t, err, ErrDuplicateCode)

	_, err = svc.CreateDefinition(ctx, 2, DefinitionInput{Code: "DEPT", Name: "Department", Type: TypeDepartment})
	require.NoError(t, err)
}

func TestDefinitionRejectsUnknownAccountType(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.CreateDefinition(context.Background(), 1, DefinitionInput{
		Code: "DEPT", Name: "Department", Type: TypeDepartment, AccountTypes: []string{"INCOME"},
	})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestDeleteDefinitionBlockedByValues(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()
	def, err := svc.CreateDefinition(ctx, 1, DefinitionInput{Code: "PROJ", Name: "Project", Type: TypeProject})
	require.NoError(t, err)

	v, err := svc.CreateValue(ctx, 1, def.ID, ValueInput{Code: "p1", Name: "Apollo"})
	require.NoError(t, err)
	_, err = svc.CreateValue(ctx, 1, def.ID, ValueInput{Code: "P1", Name: "Artemis"})
	require.ErrorIs(t, err, ErrDuplicateValue)

	err = svc.DeleteDefinition(ctx, 1, def.ID)
	require.Equal(t, shared.KindIntegrity, shared.KindOf(err))
	require.EqualError(t, err, "Cannot delete dimension with 1 values")

	require.NoError(t, svc.DeleteValue(ctx, 1, def.ID, v.ID))
	require.NoError(t, svc.DeleteDefinition(ctx, 1, def.ID))
	_, err = svc.GetDefinition(ctx, 1, def.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestValuesAreScopedToOrgDefinition(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()
	def, err := svc.CreateDefinition(ctx, 1, DefinitionInput{Code: "LOC", Name: "Location", Type: TypeLocation})
	require.NoError(t, err)

	_, err = svc.CreateValue(ctx, 2, def.ID, ValueInput{Code: "JKT", Name: "Jakarta"})
	require.ErrorIs(t, err, ErrNotFound)
}
