package core

// Summary totals the whole ledger for the dashboard header.
type Summary struct {
	Patients    int
	TotalFees   Money
	Paid        Money
	Outstanding Money // sum of positive balances only
	Settled     int   // patients with a zero balance
}

func Summarize(patients []Patient) Summary {
	s := Summary{Patients: len(patients)}
	for _, p := range patients {
		s.TotalFees = s.TotalFees.Add(p.TotalFee)
		s.Paid = s.Paid.Add(p.PaidTotal())
		b := p.Balance()
		switch {
		case b.Cents > 0:
			s.Outstanding = s.Outstanding.Add(b)
		case b.IsZero():
			s.Settled++
		}
	}
	return s
}
