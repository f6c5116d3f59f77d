package services

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"braces/internal/core"
	"braces/internal/ledger/memory"
)

type recordingPublisher struct {
	mu       sync.Mutex
	patients []string
	payments []string
	balances []core.Money
	fail     error
	closed   bool
}

func (p *recordingPublisher) PublishPatientCreated(_ context.Context, pt core.Patient) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.patients = append(p.patients, pt.ID)
	return p.fail
}

func (p *recordingPublisher) PublishPaymentRecorded(_ context.Context, patientID string, pay core.Payment, balance core.Money) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payments = append(p.payments, patientID+"/"+pay.ID)
	p.balances = append(p.balances, balance)
	return p.fail
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func newService(pub EventPublisher) *LedgerService {
	store := memory.NewWithSample(memory.WithIDGenerator(core.NewSequenceGenerator(1, 2)))
	return NewLedgerService(store, pub, nil)
}

func TestLedgerService_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newService(pub)

	p, err := svc.CreatePatient(ctx, core.NewPatient{Name: "Ama", Contact: "055", TotalFee: core.Units(1200)})
	require.NoError(t, err)
	assert.Equal(t, "p2", p.ID)

	pay, err := svc.AddPayment(ctx, "p1", core.NewPayment{Amount: core.Units(500)})
	require.NoError(t, err)
	assert.Equal(t, "t3", pay.ID)

	assert.Equal(t, []string{"p2"}, pub.patients)
	assert.Equal(t, []string{"p1/t3"}, pub.payments)
	assert.Equal(t, []core.Money{core.Units(4500)}, pub.balances)
	assert.Equal(t, Stats{PatientsCreated: 1, PaymentsRecorded: 1}, svc.Stats())
}

func TestLedgerService_ConcurrentPaymentsPublishOwnBalance(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newService(pub)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddPayment(ctx, "p1", core.NewPayment{Amount: core.Units(10)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	want := make([]int64, 0, n)
	for k := 1; k <= n; k++ {
		want = append(want, core.Units(5000-10*int64(k)).Cents)
	}
	got := make([]int64, 0, n)
	for _, b := range pub.balances {
		got = append(got, b.Cents)
	}
	slices.Sort(got)
	slices.Sort(want)
	assert.Equal(t, want, got, "every payment reports the balance right after it")
}

func TestLedgerService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{fail: errors.New("broker down")}
	svc := newService(pub)

	_, err := svc.AddPayment(ctx, "p1", core.NewPayment{Amount: core.Units(1)})
	require.NoError(t, err)

	p, err := svc.FindPatient(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, p.Payments, 3)
	assert.Equal(t, int64(1), svc.Stats().PublishFailures)
}

func TestLedgerService_StoreErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newService(pub)

	_, err := svc.AddPayment(ctx, "nope", core.NewPayment{Amount: core.Units(1)})
	assert.ErrorIs(t, err, core.ErrPatientNotFound)

	_, err = svc.CreatePatient(ctx, core.NewPatient{Contact: "x"})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	assert.Empty(t, pub.patients)
	assert.Empty(t, pub.payments)
	assert.Equal(t, Stats{}, svc.Stats())
}

func TestLedgerService_NilPublisher(t *testing.T) {
	svc := newService(nil)
	_, err := svc.CreatePatient(context.Background(), core.NewPatient{Name: "A", Contact: "B"})
	require.NoError(t, err)
	assert.NoError(t, svc.Close())
}

func TestLedgerService_Close(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newService(pub)
	require.NoError(t, svc.Close())
	assert.True(t, pub.closed)
}
