package core

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out identifiers for new records.
type IDGenerator interface {
	NewPatientID() string
	NewPaymentID() string
}

// UUIDGenerator issues random UUIDs prefixed by record kind.
type UUIDGenerator struct{}

func (UUIDGenerator) NewPatientID() string { return "p-" + uuid.NewString() }
func (UUIDGenerator) NewPaymentID() string { return "t-" + uuid.NewString() }

// SequenceGenerator issues counter-based ids ("p1", "t1", ...). Start lets a
// seeded store continue after its sample ids.
type SequenceGenerator struct {
	patients atomic.Int64
	payments atomic.Int64
}

// NewSequenceGenerator starts the counters after the given values.
func NewSequenceGenerator(patientStart, paymentStart int64) *SequenceGenerator {
	g := &SequenceGenerator{}
	g.patients.Store(patientStart)
	g.payments.Store(paymentStart)
	return g
}

func (g *SequenceGenerator) NewPatientID() string {
	return "p" + strconv.FormatInt(g.patients.Add(1), 10)
}

func (g *SequenceGenerator) NewPaymentID() string {
	return "t" + strconv.FormatInt(g.payments.Add(1), 10)
}
