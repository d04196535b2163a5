package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestStateConflictNamesBothStates(t *testing.T) {
	err := StateConflict("Journal entry is already posted", "POSTED", "DRAFT")
	require.Equal(t, "Journal entry is already posted (current: POSTED, required: DRAFT)", err.Error())
	require.Equal(t, KindStateConflict, KindOf(err))
}

func TestKindOfWrappedError(t *testing.T) {
	err := fmt.Errorf("journals: post: %w", NotFound("Journal entry"))
	require.Equal(t, KindNotFound, KindOf(err))
	require.Equal(t, "Journal entry not found", PublicMessage(err))
}

func TestUnexpectedErrorsAreNotLeaked(t *testing.T) {
	raw := errors.New("dial tcp 10.0.0.1:5432: connection refused")
	require.Equal(t, KindUnexpected, KindOf(raw))
	require.Equal(t, UnexpectedMessage, PublicMessage(raw))
	require.Equal(t, UnexpectedMessage, PublicMessage(Unexpected(raw)))
	require.ErrorIs(t, Unexpected(raw), raw)
}

func TestResultFrom(t *testing.T) {
	ok := ResultFrom(42, nil)
	require.True(t, ok.Success)
	require.Equal(t, 42, *ok.Data)

	failed := ResultFrom(0, Validation("Period Y-N already exists"))
	require.False(t, failed.Success)
	require.Nil(t, failed.Data)
	require.Equal(t, "Period Y-N already exists", failed.Error)
	require.Equal(t, KindValidation, failed.Kind)
}

func TestMapConstraint(t *testing.T) {
	messages := ConstraintMessages{"uq_periods_fiscal": "Period 2025-1 already exists"}

	err := MapConstraint(&pgconn.PgError{Code: "23505", ConstraintName: "uq_periods_fiscal"}, messages)
	require.Equal(t, KindValidation, KindOf(err))
	require.Equal(t, "Period 2025-1 already exists", err.Error())

	err = MapConstraint(&pgconn.PgError{Code: "23P01", ConstraintName: "ex_other"}, messages)
	require.Equal(t, KindValidation, KindOf(err))

	err = MapConstraint(&pgconn.PgError{Code: "23503"}, messages)
	require.Equal(t, KindIntegrity, KindOf(err))

	plain := errors.New("boom")
	require.Equal(t, plain, MapConstraint(plain, messages))
	require.NoError(t, MapConstraint(nil, messages))
}

func TestValidatePeriodTransition(t *testing.T) {
	require.NoError(t, ValidatePeriodTransition(PeriodStatusOpen, PeriodStatusClosed))
	require.NoError(t, ValidatePeriodTransition(PeriodStatusClosed, PeriodStatusOpen))
	require.NoError(t, ValidatePeriodTransition(PeriodStatusClosed, PeriodStatusLocked))
	require.ErrorIs(t, ValidatePeriodTransition(PeriodStatusOpen, PeriodStatusLocked), ErrInvalidPeriodTransition)
	require.ErrorIs(t, ValidatePeriodTransition(PeriodStatusLocked, PeriodStatusClosed), ErrInvalidPeriodTransition)
	require.ErrorIs(t, ValidatePeriodTransition(PeriodStatusLocked, PeriodStatusOpen), ErrInvalidPeriodTransition)
}
