package http

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"braces/internal/core"
	"braces/internal/ui"
)

type navLink struct {
	Label  string
	URL    string
	Active bool
}

type hiddenField struct {
	Name  string
	Value string
}

type paymentRow struct {
	ID     string
	Date   string
	Amount string
	Method string
	Note   string
}

type patientRow struct {
	ID       string
	Name     string
	Contact  string
	TotalFee string
	Paid     string
	Balance  string
	Settled  bool
	ViewURL  string
	PayURL   string
}

type patientView struct {
	patientRow
	StartDate string
	Notes     string
	Payments  []paymentRow
}

type summaryView struct {
	Patients    int
	TotalFees   string
	Paid        string
	Outstanding string
	Settled     int
}

type addPatientForm struct {
	Error  string
	Values url.Values
	Return []hiddenField
	Cancel string
}

type addPaymentForm struct {
	Patient patientView
	Error   string
	Values  url.Values
	Return  []hiddenField
	Action  string
	Cancel  string
	Today   string
	Methods []string
}

// pageData feeds index.html.
type pageData struct {
	Nav     ui.Navigator
	Title   string
	Sidebar []navLink
	Error   string

	Search     string
	Rows       []patientRow
	Summary    summaryView
	AddPatient string

	Selected        *patientView
	SelectedMissing bool
	BackURL         string

	AddPatientForm *addPatientForm
	AddPaymentForm *addPaymentForm
}

// formState carries a failed submission back into the page.
type formState struct {
	Error  string
	Values url.Values
}

func (s *Server) row(nav ui.Navigator, p core.Patient) patientRow {
	balance := p.Balance()
	return patientRow{
		ID:       p.ID,
		Name:     p.Name,
		Contact:  p.Contact,
		TotalFee: s.money.Format(p.TotalFee),
		Paid:     s.money.Format(p.PaidTotal()),
		Balance:  s.money.Format(balance),
		Settled:  balance.IsZero(),
		ViewURL:  nav.CloseModals().ViewPatient(p.ID).URL(),
		PayURL:   nav.OpenAddPayment(p.ID).URL(),
	}
}

func (s *Server) rows(nav ui.Navigator, patients []core.Patient) []patientRow {
	out := make([]patientRow, 0, len(patients))
	for _, p := range patients {
		out = append(out, s.row(nav, p))
	}
	return out
}

func (s *Server) detail(nav ui.Navigator, p core.Patient) patientView {
	v := patientView{
		patientRow: s.row(nav, p),
		StartDate:  p.StartDate.String(),
		Notes:      p.Notes,
		Payments:   make([]paymentRow, 0, len(p.Payments)),
	}
	for _, pay := range p.Payments {
		v.Payments = append(v.Payments, paymentRow{
			ID:     pay.ID,
			Date:   pay.Date.String(),
			Amount: s.money.Format(pay.Amount),
			Method: string(pay.Method),
			Note:   pay.Note,
		})
	}
	return v
}

func hiddenState(nav ui.Navigator) []hiddenField {
	q := nav.CloseModals().Query()
	out := make([]hiddenField, 0, len(q))
	for _, k := range []string{ui.ParamView, ui.ParamPatient, ui.ParamSearch} {
		if v := q.Get(k); v != "" {
			out = append(out, hiddenField{Name: k, Value: v})
		}
	}
	return out
}

func findPatient(patients []core.Patient, id string) (core.Patient, bool) {
	for _, p := range patients {
		if p.ID == id {
			return p, true
		}
	}
	return core.Patient{}, false
}

// buildPage renders nav against a fresh store snapshot. form, when set,
// belongs to whichever modal nav has open.
func (s *Server) buildPage(ctx context.Context, nav ui.Navigator, form *formState) (pageData, error) {
	patients, err := s.store.ListPatients(ctx)
	if err != nil {
		return pageData{}, fmt.Errorf("list patients: %w", err)
	}

	data := pageData{
		Nav:        nav,
		Title:      nav.View.Title(),
		Search:     nav.Search,
		Rows:       s.rows(nav, core.FilterPatients(patients, nav.Search)),
		Summary:    s.summary(patients),
		AddPatient: nav.OpenAddPatient().URL(),
		BackURL:    nav.CloseModals().Back().URL(),
	}
	for _, v := range ui.Views() {
		data.Sidebar = append(data.Sidebar, navLink{
			Label:  v.Label(),
			URL:    nav.CloseModals().Show(v).URL(),
			Active: v == nav.View,
		})
	}

	if nav.SelectedID != "" {
		if p, ok := findPatient(patients, nav.SelectedID); ok {
			v := s.detail(nav, p)
			data.Selected = &v
		} else {
			data.SelectedMissing = true
		}
	}

	switch {
	case nav.AddPatientOpen:
		f := &addPatientForm{Return: hiddenState(nav), Cancel: nav.CloseModals().URL(), Values: url.Values{}}
		if form != nil {
			f.Error, f.Values = form.Error, form.Values
		}
		data.AddPatientForm = f
	case nav.AddPaymentFor != "":
		p, ok := findPatient(patients, nav.AddPaymentFor)
		if !ok {
			break
		}
		f := &addPaymentForm{
			Patient: s.detail(nav, p),
			Return:  hiddenState(nav),
			Action:  "/patients/" + url.PathEscape(p.ID) + "/payments",
			Cancel:  nav.CloseModals().URL(),
			Today:   core.DateOf(s.now()).String(),
			Methods: methodNames(),
			Values:  url.Values{},
		}
		if form != nil {
			f.Error, f.Values = form.Error, form.Values
		}
		data.AddPaymentForm = f
	}
	return data, nil
}

func (s *Server) summary(patients []core.Patient) summaryView {
	sum := core.Summarize(patients)
	return summaryView{
		Patients:    sum.Patients,
		TotalFees:   s.money.Format(sum.TotalFees),
		Paid:        s.money.Format(sum.Paid),
		Outstanding: s.money.Format(sum.Outstanding),
		Settled:     sum.Settled,
	}
}

func methodNames() []string {
	methods := core.PaymentMethods()
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = string(m)
	}
	return out
}

// JSON shapes for API clients.

type paymentJSON struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amountCents"`
	Method      string `json:"method"`
	Note        string `json:"note,omitempty"`
}

type patientJSON struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Contact        string        `json:"contact"`
	StartDate      string        `json:"startDate"`
	TotalFee       string        `json:"totalFee"`
	Paid           string        `json:"paid"`
	Balance        string        `json:"balance"`
	BalanceDisplay string        `json:"balanceDisplay"`
	Notes          string        `json:"notes"`
	Payments       []paymentJSON `json:"payments"`
}

func toPaymentJSON(pay core.Payment) paymentJSON {
	return paymentJSON{
		ID:          pay.ID,
		Date:        pay.Date.String(),
		Amount:      pay.Amount.Decimal(),
		AmountCents: pay.Amount.Cents,
		Method:      string(pay.Method),
		Note:        pay.Note,
	}
}

func (s *Server) toPatientJSON(p core.Patient) patientJSON {
	out := patientJSON{
		ID:             p.ID,
		Name:           p.Name,
		Contact:        p.Contact,
		StartDate:      p.StartDate.String(),
		TotalFee:       p.TotalFee.Decimal(),
		Paid:           p.PaidTotal().Decimal(),
		Balance:        p.Balance().Decimal(),
		BalanceDisplay: s.money.Format(p.Balance()),
		Notes:          p.Notes,
		Payments:       make([]paymentJSON, 0, len(p.Payments)),
	}
	for _, pay := range p.Payments {
		out.Payments = append(out.Payments, toPaymentJSON(pay))
	}
	return out
}

var errTemplatesMissing = errors.New("templates not loaded")
