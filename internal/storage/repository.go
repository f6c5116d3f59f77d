package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"braces/internal/core"
	"braces/internal/ledger"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

// SQLiteRepository keeps the ledger in an in-memory SQLite database. The
// database is private to the repository and disappears with it.
type SQLiteRepository struct {
	db   *sql.DB
	name string
	ids  core.IDGenerator
	now  func() time.Time
}

// Option customizes a SQLiteRepository.
type Option func(*SQLiteRepository)

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(g core.IDGenerator) Option {
	return func(r *SQLiteRepository) { r.ids = g }
}

// WithClock replaces time.Now for creation-day defaults.
func WithClock(now func() time.Time) Option {
	return func(r *SQLiteRepository) { r.now = now }
}

// memoryDSN names a shared-cache in-memory database so the migration handle
// and the repository handle see the same data.
func memoryDSN(name string) string {
	return "file:" + name + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
}

func NewSQLiteRepository(ctx context.Context, opts ...Option) (*SQLiteRepository, error) {
	r := &SQLiteRepository{
		name: "braces-" + uuid.NewString(),
		ids:  core.UUIDGenerator{},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	db, err := sql.Open("sqlite", memoryDSN(r.name))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps the memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(memoryDSN(r.name)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	r.db = db
	return r, nil
}

// NewSQLiteRepositoryWithSample returns a repository seeded with core.SamplePatients.
func NewSQLiteRepositoryWithSample(ctx context.Context, opts ...Option) (*SQLiteRepository, error) {
	r, err := NewSQLiteRepository(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := r.Seed(ctx, core.SamplePatients()); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Seed inserts patients so that ListPatients returns them in the given order
// ahead of nothing else; it is meant for an empty repository.
func (r *SQLiteRepository) Seed(ctx context.Context, patients []core.Patient) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for i := len(patients) - 1; i >= 0; i-- {
		p := patients[i]
		if err := insertPatient(ctx, tx, p); err != nil {
			return err
		}
		for _, pay := range p.Payments {
			if err := insertPayment(ctx, tx, p.ID, pay); err != nil {
				return err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	return nil
}

// CreatePatient implements ledger.PatientWriter
func (r *SQLiteRepository) CreatePatient(ctx context.Context, in core.NewPatient) (core.Patient, error) {
	in = in.WithDefaults(r.now())
	if err := in.Validate(); err != nil {
		return core.Patient{}, err
	}
	p := in.Build(r.ids.NewPatientID())
	if err := insertPatient(ctx, r.db, p); err != nil {
		return core.Patient{}, err
	}

	slog.DebugContext(ctx, "Patient saved to SQLite", "id", p.ID, "total_fee_cents", p.TotalFee.Cents)
	return p, nil
}

// AddPayment implements ledger.PaymentWriter
func (r *SQLiteRepository) AddPayment(ctx context.Context, patientID string, in core.NewPayment) (core.Payment, error) {
	in = in.WithDefaults(r.now())
	if err := in.Validate(); err != nil {
		return core.Payment{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Payment{}, fmt.Errorf("begin add payment: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM patients WHERE id = ?`, patientID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, fmt.Errorf("add payment to %q: %w", patientID, core.ErrPatientNotFound)
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("lookup patient: %w", err)
	}

	pay := in.Build(r.ids.NewPaymentID())
	if err := insertPayment(ctx, tx, patientID, pay); err != nil {
		return core.Payment{}, err
	}
	if err := tx.Commit(); err != nil {
		return core.Payment{}, fmt.Errorf("commit add payment: %w", err)
	}

	slog.DebugContext(ctx, "Payment saved to SQLite", "id", pay.ID, "patient_id", patientID, "amount_cents", pay.Amount.Cents)
	return pay, nil
}

// ListPatients implements ledger.PatientReader
func (r *SQLiteRepository) ListPatients(ctx context.Context) ([]core.Patient, error) {
	patients, err := r.queryPatients(ctx, `SELECT id, name, contact, start_date, total_fee_cents, notes
		FROM patients ORDER BY seq DESC`)
	if err != nil {
		return nil, err
	}

	payments, err := r.queryPayments(ctx, `SELECT patient_id, id, paid_on, amount_cents, method, note
		FROM payments ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	for i := range patients {
		patients[i].Payments = paymentsOf(payments, patients[i].ID)
	}
	return patients, nil
}

// FindPatient implements ledger.PatientReader
func (r *SQLiteRepository) FindPatient(ctx context.Context, id string) (core.Patient, error) {
	patients, err := r.queryPatients(ctx, `SELECT id, name, contact, start_date, total_fee_cents, notes
		FROM patients WHERE id = ?`, id)
	if err != nil {
		return core.Patient{}, err
	}
	if len(patients) == 0 {
		return core.Patient{}, fmt.Errorf("find %q: %w", id, core.ErrPatientNotFound)
	}

	payments, err := r.queryPayments(ctx, `SELECT patient_id, id, paid_on, amount_cents, method, note
		FROM payments WHERE patient_id = ? ORDER BY seq`, id)
	if err != nil {
		return core.Patient{}, err
	}
	p := patients[0]
	p.Payments = paymentsOf(payments, id)
	return p, nil
}

// paymentsOf never returns nil, matching a freshly created patient.
func paymentsOf(byPatient map[string][]core.Payment, id string) []core.Payment {
	if ps, ok := byPatient[id]; ok {
		return ps
	}
	return make([]core.Payment, 0)
}

func (r *SQLiteRepository) queryPatients(ctx context.Context, query string, args ...any) ([]core.Patient, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()

	var out []core.Patient
	for rows.Next() {
		var (
			p         core.Patient
			startDate string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Contact, &startDate, &p.TotalFee.Cents, &p.Notes); err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		if p.StartDate, err = core.ParseDate(startDate); err != nil {
			return nil, fmt.Errorf("patient %q: %w", p.ID, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) queryPayments(ctx context.Context, query string, args ...any) (map[string][]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]core.Payment)
	for rows.Next() {
		var (
			patientID, paidOn, method string
			pay                       core.Payment
		)
		if err := rows.Scan(&patientID, &pay.ID, &paidOn, &pay.Amount.Cents, &method, &pay.Note); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		if pay.Date, err = core.ParseDate(paidOn); err != nil {
			return nil, fmt.Errorf("payment %q: %w", pay.ID, err)
		}
		pay.Method = core.PaymentMethod(method)
		out[patientID] = append(out[patientID], pay)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertPatient(ctx context.Context, db execer, p core.Patient) error {
	_, err := db.ExecContext(ctx, `INSERT INTO patients (id, name, contact, start_date, total_fee_cents, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Contact, p.StartDate.String(), p.TotalFee.Cents, p.Notes)
	if err != nil {
		return fmt.Errorf("insert patient %q: %w", p.ID, err)
	}
	return nil
}

func insertPayment(ctx context.Context, db execer, patientID string, pay core.Payment) error {
	_, err := db.ExecContext(ctx, `INSERT INTO payments (id, patient_id, paid_on, amount_cents, method, note)
		VALUES (?, ?, ?, ?, ?, ?)`,
		pay.ID, patientID, pay.Date.String(), pay.Amount.Cents, string(pay.Method), pay.Note)
	if err != nil {
		return fmt.Errorf("insert payment %q: %w", pay.ID, err)
	}
	return nil
}
