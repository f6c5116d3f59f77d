// Package ledgertest holds the behavioral checks every ledger.Store
// implementation must pass.
package ledgertest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"braces/internal/core"
	"braces/internal/ledger"
)

// Factory builds a fresh store. When seeded is true the store must start with
// core.SamplePatients.
type Factory func(t *testing.T, seeded bool) ledger.Store

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("seeded listing", func(t *testing.T) {
		s := newStore(t, true)
		patients, err := s.ListPatients(ctx)
		require.NoError(t, err)
		require.Len(t, patients, 1)

		jane := patients[0]
		assert.Equal(t, "p1", jane.ID)
		assert.Equal(t, "Jane Doe", jane.Name)
		assert.Equal(t, "2025-08-01", jane.StartDate.String())
		require.Len(t, jane.Payments, 2)
		assert.Equal(t, []string{"t1", "t2"}, paymentIDs(jane))
		assert.Equal(t, core.MobileMoney, jane.Payments[0].Method)
		assert.Equal(t, core.Units(5000), jane.Balance())
		assert.Equal(t, "$5,000", core.FormatMoney(jane.Balance()))
	})

	t.Run("create patient starts with full balance", func(t *testing.T) {
		s := newStore(t, false)
		fee, err := core.ParseMoney("1200")
		require.NoError(t, err)

		p, err := s.CreatePatient(ctx, core.NewPatient{Name: "Ama", Contact: "0551112222", TotalFee: fee})
		require.NoError(t, err)
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, core.Units(1200), p.TotalFee)
		assert.Empty(t, p.Payments)
		assert.Equal(t, p.TotalFee, p.Balance())
		assert.False(t, p.StartDate.IsZero(), "start date defaults to the creation day")
		assert.Equal(t, "", p.Notes)

		assert.NotNil(t, p.Payments)
		found, err := s.FindPatient(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, found.ID)
		assert.NotNil(t, found.Payments, "no payments is an empty list, not nil")
		listed, err := s.ListPatients(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, listed)
		assert.NotNil(t, listed[0].Payments)
		assert.Equal(t, p.StartDate.String(), found.StartDate.String())
	})

	t.Run("create patient keeps explicit fields", func(t *testing.T) {
		s := newStore(t, false)
		p, err := s.CreatePatient(ctx, core.NewPatient{
			Name: "Kofi", Contact: "kofi@example.com", TotalFee: core.Units(800),
			StartDate: core.NewDate(2025, 2, 3), Notes: "ceramic",
		})
		require.NoError(t, err)
		found, err := s.FindPatient(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "2025-02-03", found.StartDate.String())
		assert.Equal(t, "ceramic", found.Notes)
	})

	t.Run("new patients are prepended", func(t *testing.T) {
		s := newStore(t, true)
		a, err := s.CreatePatient(ctx, core.NewPatient{Name: "A", Contact: "1"})
		require.NoError(t, err)
		b, err := s.CreatePatient(ctx, core.NewPatient{Name: "B", Contact: "2"})
		require.NoError(t, err)

		patients, err := s.ListPatients(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{b.ID, a.ID, "p1"}, patientIDs(patients))
	})

	t.Run("invalid patient is rejected", func(t *testing.T) {
		s := newStore(t, false)
		_, err := s.CreatePatient(ctx, core.NewPatient{Name: "", Contact: "x"})
		assert.ErrorIs(t, err, core.ErrEmptyName)
		_, err = s.CreatePatient(ctx, core.NewPatient{Name: "x", Contact: " "})
		assert.ErrorIs(t, err, core.ErrEmptyContact)
		_, err = s.CreatePatient(ctx, core.NewPatient{Name: "x", Contact: "y", TotalFee: core.Money{Cents: -5}})
		assert.ErrorIs(t, err, core.ErrNegativeFee)

		patients, err := s.ListPatients(ctx)
		require.NoError(t, err)
		assert.Empty(t, patients)
	})

	t.Run("add payment appends only to its patient", func(t *testing.T) {
		s := newStore(t, true)
		other, err := s.CreatePatient(ctx, core.NewPatient{Name: "Ama", Contact: "0551112222", TotalFee: core.Units(1200)})
		require.NoError(t, err)
		before, err := s.FindPatient(ctx, "p1")
		require.NoError(t, err)

		amounts := []int64{100, 250, 75}
		var ownIDs []string
		for _, a := range amounts {
			pay, err := s.AddPayment(ctx, "p1", core.NewPayment{
				Date: core.NewDate(2025, 10, 1), Amount: core.Units(a), Method: core.Card, Note: "n",
			})
			require.NoError(t, err)
			ownIDs = append(ownIDs, pay.ID)
			_, err = s.AddPayment(ctx, other.ID, core.NewPayment{
				Date: core.NewDate(2025, 10, 1), Amount: core.Units(1), Method: core.Cash,
			})
			require.NoError(t, err)
		}

		after, err := s.FindPatient(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, after.Payments, len(before.Payments)+len(amounts))
		assert.Equal(t, before.Payments, after.Payments[:len(before.Payments)], "prior payments unchanged")
		assert.Equal(t, ownIDs, paymentIDs(after)[len(before.Payments):])
		assert.Equal(t, before.PaidTotal().Add(core.Units(425)), after.PaidTotal())

		o, err := s.FindPatient(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, core.Units(3), o.PaidTotal())
		assert.Equal(t, core.Units(1197), o.Balance())

		assertUnique(t, paymentIDs(after))
	})

	t.Run("add payment defaults", func(t *testing.T) {
		s := newStore(t, true)
		pay, err := s.AddPayment(ctx, "p1", core.NewPayment{Amount: core.Units(10)})
		require.NoError(t, err)
		assert.Equal(t, core.Cash, pay.Method)
		assert.False(t, pay.Date.IsZero())
	})

	t.Run("overpayment yields negative balance", func(t *testing.T) {
		s := newStore(t, true)
		_, err := s.AddPayment(ctx, "p1", core.NewPayment{Date: core.NewDate(2025, 10, 1), Amount: core.Units(6000), Method: core.Cash})
		require.NoError(t, err)
		p, err := s.FindPatient(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, core.Units(-1000), p.Balance())
	})

	t.Run("unknown patient leaves store unchanged", func(t *testing.T) {
		s := newStore(t, true)
		before, err := s.ListPatients(ctx)
		require.NoError(t, err)

		_, err = s.AddPayment(ctx, "nope", core.NewPayment{Date: core.NewDate(2025, 10, 1), Amount: core.Units(500), Method: core.Cash})
		assert.True(t, errors.Is(err, core.ErrPatientNotFound), "got %v", err)

		after, err := s.ListPatients(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)

		_, err = s.FindPatient(ctx, "nope")
		assert.ErrorIs(t, err, core.ErrPatientNotFound)
	})

	t.Run("invalid payment is rejected", func(t *testing.T) {
		s := newStore(t, true)
		_, err := s.AddPayment(ctx, "p1", core.NewPayment{Date: core.NewDate(2025, 10, 1), Amount: core.Money{}, Method: core.Cash})
		assert.ErrorIs(t, err, core.ErrInvalidAmount)
		_, err = s.AddPayment(ctx, "p1", core.NewPayment{Date: core.NewDate(2025, 10, 1), Amount: core.Units(1), Method: "Cheque"})
		assert.ErrorIs(t, err, core.ErrInvalidMethod)

		p, err := s.FindPatient(ctx, "p1")
		require.NoError(t, err)
		assert.Len(t, p.Payments, 2)
	})

	t.Run("snapshots are detached", func(t *testing.T) {
		s := newStore(t, true)
		patients, err := s.ListPatients(ctx)
		require.NoError(t, err)
		patients[0].Name = "changed"
		patients[0].Payments[0].Amount = core.Units(1)

		again, err := s.ListPatients(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", again[0].Name)
		assert.Equal(t, core.Units(2000), again[0].Payments[0].Amount)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		s := newStore(t, true)
		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := s.AddPayment(ctx, "p1", core.NewPayment{Date: core.NewDate(2025, 10, 1), Amount: core.Units(1), Method: core.Cash})
				assert.NoError(t, err)
			}()
			go func() {
				defer wg.Done()
				_, err := s.CreatePatient(ctx, core.NewPatient{Name: "x", Contact: "y"})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		patients, err := s.ListPatients(ctx)
		require.NoError(t, err)
		require.Len(t, patients, n+1)
		assert.Equal(t, "p1", patients[n].ID, "seed stays last")
		assertUnique(t, patientIDs(patients))
		assert.Len(t, patients[n].Payments, 2+n)
		assert.Equal(t, core.Units(5000+n), patients[n].PaidTotal())
	})
}

func patientIDs(ps []core.Patient) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func paymentIDs(p core.Patient) []string {
	out := make([]string, len(p.Payments))
	for i, pay := range p.Payments {
		out[i] = pay.ID
	}
	return out
}

func assertUnique(t *testing.T, ids []string) {
	t.Helper()
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %q", id)
		seen[id] = struct{}{}
	}
}
