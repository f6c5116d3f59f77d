package core

import (
	"math"
	"testing"
)

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1200", 120000, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{".5", 50, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1,000.00", 0, false},
		{".", 0, false},
		{"", 0, false},
		{"1.٣", 0, false},
		{"12.５", 0, false},
		{"0.٥٥", 0, false},
		{"٣", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestSumAmountsAndBalance(t *testing.T) {
	if got := SumAmounts(nil); got.Cents != 0 {
		t.Fatalf("empty sum = %d", got.Cents)
	}

	p := Patient{
		TotalFee: Units(10000),
		Payments: []Payment{{Amount: Units(2000)}, {Amount: Units(3000)}},
	}
	if got := p.PaidTotal(); got != Units(5000) {
		t.Fatalf("paid = %v", got)
	}
	if got := Balance(p); got != Units(5000) {
		t.Fatalf("balance = %v", got)
	}
	if got := FormatMoney(Balance(p)); got != "$5,000" {
		t.Fatalf("formatted balance = %q", got)
	}

	p.Payments = append(p.Payments, Payment{Amount: Units(6000)})
	if got := p.Balance(); got != Units(-1000) {
		t.Fatalf("overpaid balance = %v", got)
	}
}

func TestSumAmounts_Saturates(t *testing.T) {
	big := Money{Cents: math.MaxInt64 / 3}
	payments := make([]Payment, 300)
	for i := range payments {
		payments[i] = Payment{Amount: big}
	}
	if got := SumAmounts(payments); got.Cents != math.MaxInt64 {
		t.Fatalf("sum = %d, want saturation at MaxInt64", got.Cents)
	}
	if got := (Money{Cents: math.MinInt64}).Sub(Units(1)); got.Cents != math.MinInt64 {
		t.Fatalf("sub = %d, want saturation at MinInt64", got.Cents)
	}
	if got := Units(1).Sub(SumAmounts(payments)); got.Cents != 100-math.MaxInt64 {
		t.Fatalf("balance = %d", got.Cents)
	}
	if got := FormatMoney(Money{Cents: math.MaxInt64}); got != "$92,233,720,368,547,758" {
		t.Fatalf("formatted max = %q", got)
	}
}

func TestFormatter(t *testing.T) {
	cases := []struct {
		symbol string
		cents  int64
		want   string
	}{
		{"", 0, "$0"},
		{"", 500000, "$5,000"},
		{"", 123456789, "$1,234,568"},
		{"", 149, "$1"},
		{"", 150, "$2"},
		{"", -25049, "-$250"},
		{"", -25050, "-$251"},
		{"", -49, "$0"},
		{"GH₵", 120000, "GH₵1,200"},
	}
	for _, tc := range cases {
		if got := NewFormatter(tc.symbol).Format(Money{Cents: tc.cents}); got != tc.want {
			t.Fatalf("Format(%d, %q) = %q, want %q", tc.cents, tc.symbol, got, tc.want)
		}
	}
}

func TestMoneyDecimal(t *testing.T) {
	cases := map[int64]string{0: "0.00", 5: "0.05", 120000: "1200.00", -250: "-2.50"}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).Decimal(); got != want {
			t.Fatalf("Decimal(%d) = %q, want %q", cents, got, want)
		}
	}
}
