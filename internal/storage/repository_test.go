package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"braces/internal/core"
	"braces/internal/ledger"
	"braces/internal/ledger/ledgertest"
)

func TestSQLiteRepositoryConformance(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T, seeded bool) ledger.Store {
		ctx := context.Background()
		var (
			r   *SQLiteRepository
			err error
		)
		if seeded {
			r, err = NewSQLiteRepositoryWithSample(ctx)
		} else {
			r, err = NewSQLiteRepository(ctx)
		}
		require.NoError(t, err)
		t.Cleanup(func() { _ = r.Close() })
		return r
	})
}

func TestRepositoriesAreIsolated(t *testing.T) {
	ctx := context.Background()
	a, err := NewSQLiteRepository(ctx)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewSQLiteRepository(ctx)
	require.NoError(t, err)
	defer b.Close()

	_, err = a.CreatePatient(ctx, core.NewPatient{Name: "Ama", Contact: "1"})
	require.NoError(t, err)

	listed, err := b.ListPatients(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestSQLiteRepositoryOptions(t *testing.T) {
	ctx := context.Background()
	clock := func() time.Time { return time.Date(2026, 10, 16, 23, 59, 0, 0, time.UTC) }
	r, err := NewSQLiteRepositoryWithSample(ctx, WithClock(clock), WithIDGenerator(core.NewSequenceGenerator(1, 2)))
	require.NoError(t, err)
	defer r.Close()

	p, err := r.CreatePatient(ctx, core.NewPatient{Name: "Ama", Contact: "0551112222", TotalFee: core.Units(1200)})
	require.NoError(t, err)
	assert.Equal(t, "p2", p.ID)
	assert.Equal(t, "2026-10-16", p.StartDate.String())

	pay, err := r.AddPayment(ctx, "p2", core.NewPayment{Amount: core.Units(100), Method: core.MobileMoney, Note: "  first  "})
	require.NoError(t, err)
	assert.Equal(t, "t3", pay.ID)
	assert.Equal(t, "first", pay.Note)

	got, err := r.FindPatient(ctx, "p2")
	require.NoError(t, err)
	require.Len(t, got.Payments, 1)
	assert.Equal(t, core.MobileMoney, got.Payments[0].Method)
	assert.Equal(t, core.Units(1100), got.Balance())
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	r, err := NewSQLiteRepository(context.Background())
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, RunMigrations(memoryDSN(r.name)))
}
