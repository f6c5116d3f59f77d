// Package ledger declares the ports the views and services use to reach the
// patient collection.
package ledger

import (
	"context"

	"braces/internal/core"
)

type (
	// PatientWriter registers new patients. New patients go first in the listing.
	PatientWriter interface {
		CreatePatient(ctx context.Context, in core.NewPatient) (core.Patient, error)
	}

	// PaymentWriter appends payments to a patient's history. Unknown ids fail
	// with core.ErrPatientNotFound and leave the store untouched.
	PaymentWriter interface {
		AddPayment(ctx context.Context, patientID string, in core.NewPayment) (core.Payment, error)
	}

	// PatientReader returns snapshots; callers cannot mutate the store through them.
	PatientReader interface {
		ListPatients(ctx context.Context) ([]core.Patient, error)
		FindPatient(ctx context.Context, id string) (core.Patient, error)
	}

	// Store is the full patient ledger.
	Store interface {
		PatientWriter
		PaymentWriter
		PatientReader
	}
)
