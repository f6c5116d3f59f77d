package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"braces/internal/core"
	"braces/internal/ledger"
	"braces/internal/log"
)

// EventPublisher announces ledger changes to other systems.
type EventPublisher interface {
	PublishPatientCreated(ctx context.Context, p core.Patient) error
	PublishPaymentRecorded(ctx context.Context, patientID string, pay core.Payment, balance core.Money) error
}

var _ ledger.Store = (*LedgerService)(nil)

// LedgerService orchestrates ledger writes across the store and the optional
// event publisher. It is itself a ledger.Store so handlers do not care
// whether events are enabled.
type LedgerService struct {
	store     ledger.Store
	publisher EventPublisher
	logger    *log.Logger
	slog      *log.StructuredLogger

	// writeMu pairs each write with the read that follows it, so a
	// published balance is the one right after that payment.
	writeMu sync.Mutex

	patientsCreated  atomic.Int64
	paymentsRecorded atomic.Int64
	publishFailures  atomic.Int64
}

// Stats is a snapshot of the service counters.
type Stats struct {
	PatientsCreated  int64
	PaymentsRecorded int64
	PublishFailures  int64
}

// NewLedgerService wraps store. publisher and logger may be nil.
func NewLedgerService(store ledger.Store, publisher EventPublisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentLedger)
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		slog:      log.NewStructuredLogger(logger),
	}
}

// CreatePatient saves the patient and publishes patient.created
func (s *LedgerService) CreatePatient(ctx context.Context, in core.NewPatient) (core.Patient, error) {
	s.writeMu.Lock()
	p, err := s.store.CreatePatient(ctx, in)
	s.writeMu.Unlock()
	if err != nil {
		return core.Patient{}, fmt.Errorf("create patient: %w", err)
	}
	s.patientsCreated.Add(1)
	s.slog.LogPatientCreated(ctx, p.ID, p.TotalFee.Cents)

	if s.publisher != nil {
		if err := s.publisher.PublishPatientCreated(ctx, p); err != nil {
			// The patient is stored; a lost event must not fail the request.
			s.publishFailures.Add(1)
			s.logger.ErrorContext(ctx, "Failed to publish patient event", log.FieldPatientID, p.ID, log.FieldError, err)
		}
	}
	return p, nil
}

// AddPayment appends the payment and publishes payment.recorded with the
// balance that follows it. Concurrent payments through the service each
// report their own balance.
func (s *LedgerService) AddPayment(ctx context.Context, patientID string, in core.NewPayment) (core.Payment, error) {
	s.writeMu.Lock()
	pay, err := s.store.AddPayment(ctx, patientID, in)
	if err != nil {
		s.writeMu.Unlock()
		return core.Payment{}, fmt.Errorf("add payment: %w", err)
	}
	s.paymentsRecorded.Add(1)

	var balance core.Money
	p, err := s.store.FindPatient(ctx, patientID)
	s.writeMu.Unlock()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not reload patient after payment", log.FieldPatientID, patientID, log.FieldError, err)
	} else {
		balance = p.Balance()
	}
	s.slog.LogPaymentRecorded(ctx, patientID, pay.ID, pay.Amount.Cents, string(pay.Method), balance.Cents)

	if s.publisher != nil && err == nil {
		if err := s.publisher.PublishPaymentRecorded(ctx, patientID, pay, balance); err != nil {
			s.publishFailures.Add(1)
			s.logger.ErrorContext(ctx, "Failed to publish payment event", log.FieldPaymentID, pay.ID, log.FieldError, err)
		}
	}
	return pay, nil
}

// ListPatients implements ledger.PatientReader
func (s *LedgerService) ListPatients(ctx context.Context) ([]core.Patient, error) {
	return s.store.ListPatients(ctx)
}

// FindPatient implements ledger.PatientReader
func (s *LedgerService) FindPatient(ctx context.Context, id string) (core.Patient, error) {
	return s.store.FindPatient(ctx, id)
}

// Stats returns the current counters.
func (s *LedgerService) Stats() Stats {
	return Stats{
		PatientsCreated:  s.patientsCreated.Load(),
		PaymentsRecorded: s.paymentsRecorded.Load(),
		PublishFailures:  s.publishFailures.Load(),
	}
}

// Close closes the store and the publisher when they hold resources.
func (s *LedgerService) Close() error {
	var errs []error
	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}
