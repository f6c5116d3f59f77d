// Package ui holds the page navigation state. The state lives in the URL
// query so every link is a transition and every page load renders a state.
package ui

import (
	"net/url"
	"strings"
)

// View is one of the top-level screens.
type View string

const (
	ViewDashboard View = "dashboard"
	ViewPatient   View = "patient"
	ViewReports   View = "reports"
)

// Query parameter names.
const (
	ParamView    = "view"
	ParamPatient = "patient"
	ParamModal   = "modal"
	ParamFor     = "for"
	ParamSearch  = "q"

	modalAddPatient = "add-patient"
	modalAddPayment = "add-payment"
)

// Views lists the sidebar entries in display order.
func Views() []View {
	return []View{ViewDashboard, ViewPatient, ViewReports}
}

// Label is the sidebar caption.
func (v View) Label() string {
	switch v {
	case ViewPatient:
		return "Patients"
	case ViewReports:
		return "Reports"
	default:
		return "Dashboard"
	}
}

// Title is the page header caption.
func (v View) Title() string {
	switch v {
	case ViewPatient:
		return "Patient Profile"
	case ViewReports:
		return "Reports"
	default:
		return "Dashboard"
	}
}

func parseView(s string) View {
	switch View(s) {
	case ViewPatient, ViewReports:
		return View(s)
	default:
		return ViewDashboard
	}
}

// Navigator is the view, selection and modal state.
type Navigator struct {
	View           View
	SelectedID     string
	AddPatientOpen bool
	AddPaymentFor  string
	Search         string
}

// New returns the initial state: dashboard, nothing selected, no modal.
func New() Navigator {
	return Navigator{View: ViewDashboard}
}

// FromQuery restores a state from URL query values. Unknown views fall back
// to the dashboard and at most one modal is open, add-payment winning only
// when it names a patient.
func FromQuery(q url.Values) Navigator {
	n := Navigator{
		View:       parseView(q.Get(ParamView)),
		SelectedID: strings.TrimSpace(q.Get(ParamPatient)),
		Search:     q.Get(ParamSearch),
	}
	switch q.Get(ParamModal) {
	case modalAddPatient:
		n.AddPatientOpen = true
	case modalAddPayment:
		n = n.OpenAddPayment(strings.TrimSpace(q.Get(ParamFor)))
	}
	return n
}

// Query encodes the state; FromQuery(n.Query()) == n.
func (n Navigator) Query() url.Values {
	q := url.Values{}
	if n.View != "" && n.View != ViewDashboard {
		q.Set(ParamView, string(n.View))
	}
	if n.SelectedID != "" {
		q.Set(ParamPatient, n.SelectedID)
	}
	if n.Search != "" {
		q.Set(ParamSearch, n.Search)
	}
	switch {
	case n.AddPaymentFor != "":
		q.Set(ParamModal, modalAddPayment)
		q.Set(ParamFor, n.AddPaymentFor)
	case n.AddPatientOpen:
		q.Set(ParamModal, modalAddPatient)
	}
	return q
}

// URL renders the state as a link to the root page.
func (n Navigator) URL() string {
	q := n.Query()
	if len(q) == 0 {
		return "/"
	}
	return "/?" + q.Encode()
}

// ViewPatient selects id and shows its profile.
func (n Navigator) ViewPatient(id string) Navigator {
	n.SelectedID = id
	n.View = ViewPatient
	return n
}

// Back returns to the dashboard. The selection is kept so the Patients
// entry still shows the last profile.
func (n Navigator) Back() Navigator {
	n.View = ViewDashboard
	return n
}

// Show switches view and keeps the selection.
func (n Navigator) Show(v View) Navigator {
	n.View = parseView(string(v))
	return n
}

// OpenAddPatient opens the add-patient form.
func (n Navigator) OpenAddPatient() Navigator {
	n.AddPatientOpen = true
	n.AddPaymentFor = ""
	return n
}

// OpenAddPayment opens the add-payment form for id. An empty id leaves the
// state unchanged.
func (n Navigator) OpenAddPayment(id string) Navigator {
	if id == "" {
		return n
	}
	n.AddPaymentFor = id
	n.AddPatientOpen = false
	return n
}

// CloseModals closes whichever form is open.
func (n Navigator) CloseModals() Navigator {
	n.AddPatientOpen = false
	n.AddPaymentFor = ""
	return n
}

// ModalOpen reports whether any form is showing.
func (n Navigator) ModalOpen() bool {
	return n.AddPatientOpen || n.AddPaymentFor != ""
}
