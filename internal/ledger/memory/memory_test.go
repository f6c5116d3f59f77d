package memory

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

func TestStoreConformance(t *testing.T) {
	ledgertest.Run(t, func(t *testing.T, seeded bool) ledger.Store {
		if seeded {
			return NewWithSample()
		}
		return New()
	})
}

func TestCreatePatientUsesInjectedClockAndIDs(t *testing.T) {
	clock := func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) }
	s := NewWithSample(WithClock(clock), WithIDGenerator(core.NewSequenceGenerator(1, 2)))

	p, err := s.CreatePatient(context.Background(), core.NewPatient{Name: "Ama", Contact: "0551112222", TotalFee: core.Units(1200)})
	require.NoError(t, err)
	assert.Equal(t, "p2", p.ID)
	assert.Equal(t, "2026-10-16", p.StartDate.String())

	pay, err := s.AddPayment(context.Background(), p.ID, core.NewPayment{Amount: core.Units(200)})
	require.NoError(t, err)
	assert.Equal(t, "t3", pay.ID)
	assert.Equal(t, "2026-10-16", pay.Date.String())
	assert.Equal(t, 2, s.Len())
}

func TestSeedIsCopied(t *testing.T) {
	seed := core.SamplePatients()
	s := New(WithSeed(seed))
	seed[0].Payments[0].Amount = core.Units(1)

	p, err := s.FindPatient(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, core.Units(2000), p.Payments[0].Amount)
}
