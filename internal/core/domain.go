package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Cash        PaymentMethod = "Cash"
	MobileMoney PaymentMethod = "Mobile Money"
	Card        PaymentMethod = "Card"
)

const dateLayout = "2006-01-02"

type (
	PaymentMethod string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Payment struct {
		ID     string
		Date   Date
		Amount Money
		Method PaymentMethod
		Note   string
	}

	Patient struct {
		ID        string
		Name      string
		Contact   string
		StartDate Date
		TotalFee  Money
		Notes     string
		Payments  []Payment
	}

	// NewPatient is the input accepted when registering a patient.
	NewPatient struct {
		Name      string
		Contact   string
		TotalFee  Money
		StartDate Date // optional, defaults to the creation day
		Notes     string
	}

	// NewPayment is the input accepted when recording a payment.
	NewPayment struct {
		Date   Date
		Amount Money
		Method PaymentMethod
		Note   string
	}
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeFee     = errors.New("total fee cannot be negative")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyContact    = errors.New("empty contact")
	ErrNameTooLong     = errors.New("name too long (max 200 characters)")
	ErrInvalidMethod   = errors.New("invalid payment method")
	ErrInvalidDate     = errors.New("invalid date")
)

// PaymentMethods lists the accepted methods in display order.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{Cash, MobileMoney, Card}
}

// ParsePaymentMethod matches s against the known methods, ignoring case and
// surrounding whitespace.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	s = strings.TrimSpace(s)
	for _, m := range PaymentMethods() {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMethod, s)
}

func (m PaymentMethod) Validate() error {
	switch m {
	case Cash, MobileMoney, Card:
		return nil
	default:
		return ErrInvalidMethod
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO 8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// PaidTotal is the sum of every recorded payment.
func (p Patient) PaidTotal() Money {
	return SumAmounts(p.Payments)
}

// Balance is the outstanding amount; negative when overpaid.
func (p Patient) Balance() Money {
	return Balance(p)
}

// Clone returns a copy that shares no payment storage with p.
func (p Patient) Clone() Patient {
	c := p
	c.Payments = make([]Payment, len(p.Payments))
	copy(c.Payments, p.Payments)
	return c
}

// WithDefaults fills the optional fields that have a creation-time default.
func (in NewPatient) WithDefaults(now time.Time) NewPatient {
	if in.StartDate.IsZero() {
		in.StartDate = DateOf(now)
	}
	return in
}

func (in NewPatient) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	if len(in.Name) > 200 {
		return ErrNameTooLong
	}
	if strings.TrimSpace(in.Contact) == "" {
		return ErrEmptyContact
	}
	if in.TotalFee.Cents < 0 {
		return ErrNegativeFee
	}
	if err := in.StartDate.Validate(); err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	return nil
}

// WithDefaults fills the payment date with today when absent.
func (in NewPayment) WithDefaults(now time.Time) NewPayment {
	if in.Date.IsZero() {
		in.Date = DateOf(now)
	}
	if in.Method == "" {
		in.Method = Cash
	}
	return in
}

func (in NewPayment) Validate() error {
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if err := in.Date.Validate(); err != nil {
		return err
	}
	return in.Method.Validate()
}

// Build materializes the input into a patient with the given id.
func (in NewPatient) Build(id string) Patient {
	return Patient{
		ID:        id,
		Name:      strings.TrimSpace(in.Name),
		Contact:   strings.TrimSpace(in.Contact),
		StartDate: in.StartDate,
		TotalFee:  in.TotalFee,
		Notes:     in.Notes,
		Payments:  []Payment{},
	}
}

// Build materializes the input into a payment with the given id.
func (in NewPayment) Build(id string) Payment {
	return Payment{
		ID:     id,
		Date:   in.Date,
		Amount: in.Amount,
		Method: in.Method,
		Note:   strings.TrimSpace(in.Note),
	}
}
