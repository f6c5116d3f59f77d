package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-08-01")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2025-08-01" {
		t.Fatalf("round trip = %q", d.String())
	}
	for _, bad := range []string{"", "01/08/2025", "2025-13-01"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", bad, err)
		}
	}
	if (Date{}).String() != "" {
		t.Fatalf("zero date should render empty")
	}
}

func TestParsePaymentMethod(t *testing.T) {
	for in, want := range map[string]PaymentMethod{"Cash": Cash, " mobile money ": MobileMoney, "CARD": Card} {
		got, err := ParsePaymentMethod(in)
		if err != nil || got != want {
			t.Fatalf("%q -> %q (err=%v), want %q", in, got, err, want)
		}
	}
	if _, err := ParsePaymentMethod("Cheque"); !errors.Is(err, ErrInvalidMethod) {
		t.Fatalf("expected ErrInvalidMethod, got %v", err)
	}
}

func TestNewPatientValidate(t *testing.T) {
	now := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)
	good := NewPatient{Name: "Ama", Contact: "0551112222", TotalFee: Units(1200)}.WithDefaults(now)
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.StartDate != NewDate(2026, 3, 4) {
		t.Fatalf("start date default = %v", good.StartDate)
	}

	explicit := NewPatient{StartDate: NewDate(2025, 1, 2)}.WithDefaults(now)
	if explicit.StartDate != NewDate(2025, 1, 2) {
		t.Fatalf("explicit start date overwritten: %v", explicit.StartDate)
	}

	bads := []struct {
		in   NewPatient
		want error
	}{
		{NewPatient{Name: " ", Contact: "c", StartDate: NewDate(2025, 1, 1)}, ErrEmptyName},
		{NewPatient{Name: "n", Contact: "", StartDate: NewDate(2025, 1, 1)}, ErrEmptyContact},
		{NewPatient{Name: "n", Contact: "c", TotalFee: Money{Cents: -1}, StartDate: NewDate(2025, 1, 1)}, ErrNegativeFee},
		{NewPatient{Name: "n", Contact: "c"}, ErrInvalidDate},
	}
	for i, tc := range bads {
		if err := tc.in.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestNewPaymentValidate(t *testing.T) {
	now := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	in := NewPayment{Amount: Units(500)}.WithDefaults(now)
	if err := in.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if in.Method != Cash || in.Date != NewDate(2026, 3, 4) {
		t.Fatalf("defaults not applied: %+v", in)
	}

	bads := []NewPayment{
		{Amount: Money{}, Date: NewDate(2025, 1, 1), Method: Cash},
		{Amount: Money{Cents: -100}, Date: NewDate(2025, 1, 1), Method: Cash},
		{Amount: Units(1), Method: Cash},
		{Amount: Units(1), Date: NewDate(2025, 1, 1), Method: "Cheque"},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestPatientClone(t *testing.T) {
	p := SamplePatients()[0]
	c := p.Clone()
	c.Payments[0].Amount = Units(1)
	c.Payments = append(c.Payments, Payment{ID: "x"})
	if p.Payments[0].Amount != Units(2000) || len(p.Payments) != 2 {
		t.Fatalf("clone shares storage with original")
	}
}

func TestSequenceGenerator(t *testing.T) {
	g := NewSequenceGenerator(1, 2)
	if id := g.NewPatientID(); id != "p2" {
		t.Fatalf("patient id = %q", id)
	}
	if id := g.NewPaymentID(); id != "t3" {
		t.Fatalf("payment id = %q", id)
	}
	var u UUIDGenerator
	if u.NewPatientID() == u.NewPatientID() {
		t.Fatalf("uuid ids collide")
	}
}
