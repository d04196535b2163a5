package sequence

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	require.Equal(t, "JE-0001", Format(KeyJournalEntry, 1))
	require.Equal(t, "TO-0042", Format(KeyTransferOrder, 42))
	require.Equal(t, "JE-12345", Format(KeyJournalEntry, 12345))
}

type fakeRow struct {
	val int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.val
	return nil
}

type fakeQuerier struct {
	row fakeRow
}

func (q fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return q.row
}

func TestNextAndPeek(t *testing.T) {
	ctx := context.Background()
	n, err := Next(ctx, fakeQuerier{row: fakeRow{val: 3}}, 1, KeyJournalEntry)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	n, err = Peek(ctx, fakeQuerier{row: fakeRow{val: 3}}, 1, KeyJournalEntry)
	require.NoError(t, err)
	require.EqualValues(t, 4, n)

	n, err = Peek(ctx, fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}, 1, KeyJournalEntry)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = Next(ctx, fakeQuerier{row: fakeRow{err: errors.New("down")}}, 1, KeyJournalEntry)
	require.Error(t, err)
}
