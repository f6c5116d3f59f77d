package amqp

import (
	"encoding/json"
	"time"

	"braces/internal/core"
)

// Routing keys on the ledger exchange.
const (
	RoutingPatientCreated  = "patient.created"
	RoutingPaymentRecorded = "payment.recorded"
)

// PatientCreatedMessage announces a newly registered patient.
type PatientCreatedMessage struct {
	PatientID     string    `json:"patient_id"`
	Name          string    `json:"name"`
	StartDate     string    `json:"start_date"`
	TotalFeeCents int64     `json:"total_fee_cents"`
	Timestamp     time.Time `json:"timestamp"`
}

// PaymentRecordedMessage announces a payment and the balance it leaves.
type PaymentRecordedMessage struct {
	PatientID    string    `json:"patient_id"`
	PaymentID    string    `json:"payment_id"`
	PaidOn       string    `json:"paid_on"`
	AmountCents  int64     `json:"amount_cents"`
	Method       string    `json:"method"`
	BalanceCents int64     `json:"balance_cents"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewPatientCreatedMessage(p core.Patient) *PatientCreatedMessage {
	return &PatientCreatedMessage{
		PatientID:     p.ID,
		Name:          p.Name,
		StartDate:     p.StartDate.String(),
		TotalFeeCents: p.TotalFee.Cents,
		Timestamp:     time.Now(),
	}
}

func NewPaymentRecordedMessage(patientID string, pay core.Payment, balance core.Money) *PaymentRecordedMessage {
	return &PaymentRecordedMessage{
		PatientID:    patientID,
		PaymentID:    pay.ID,
		PaidOn:       pay.Date.String(),
		AmountCents:  pay.Amount.Cents,
		Method:       string(pay.Method),
		BalanceCents: balance.Cents,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PatientCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ToJSON converts the message to JSON bytes
func (m *PaymentRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PaymentRecordedMessageFromJSON decodes a payment.recorded body.
func PaymentRecordedMessageFromJSON(data []byte) (*PaymentRecordedMessage, error) {
	var msg PaymentRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
