package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"braces/internal/core"
	"braces/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

// Store keeps the patient collection in process memory, newest patient first.
type Store struct {
	mu       sync.RWMutex
	patients []core.Patient
	ids      core.IDGenerator
	now      func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(g core.IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithClock replaces time.Now for creation-day defaults.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSeed starts the store with the given patients, in the given order.
func WithSeed(patients []core.Patient) Option {
	return func(s *Store) {
		s.patients = make([]core.Patient, 0, len(patients))
		for _, p := range patients {
			s.patients = append(s.patients, p.Clone())
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		ids: core.UUIDGenerator{},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewWithSample returns a store seeded with core.SamplePatients.
func NewWithSample(opts ...Option) *Store {
	return New(append([]Option{WithSeed(core.SamplePatients())}, opts...)...)
}

func (s *Store) CreatePatient(_ context.Context, in core.NewPatient) (core.Patient, error) {
	in = in.WithDefaults(s.now())
	if err := in.Validate(); err != nil {
		return core.Patient{}, err
	}
	p := in.Build(s.ids.NewPatientID())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients = append([]core.Patient{p}, s.patients...)
	return p.Clone(), nil
}

func (s *Store) AddPayment(_ context.Context, patientID string, in core.NewPayment) (core.Payment, error) {
	in = in.WithDefaults(s.now())
	if err := in.Validate(); err != nil {
		return core.Payment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(patientID)
	if i < 0 {
		return core.Payment{}, fmt.Errorf("add payment to %q: %w", patientID, core.ErrPatientNotFound)
	}
	pay := in.Build(s.ids.NewPaymentID())
	s.patients[i].Payments = append(s.patients[i].Payments, pay)
	return pay, nil
}

func (s *Store) ListPatients(_ context.Context) ([]core.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Patient, len(s.patients))
	for i, p := range s.patients {
		out[i] = p.Clone()
	}
	return out, nil
}

func (s *Store) FindPatient(_ context.Context, id string) (core.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return core.Patient{}, fmt.Errorf("find %q: %w", id, core.ErrPatientNotFound)
	}
	return s.patients[i].Clone(), nil
}

// Len returns the number of patients.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patients)
}

func (s *Store) indexOf(id string) int {
	for i := range s.patients {
		if s.patients[i].ID == id {
			return i
		}
	}
	return -1
}
