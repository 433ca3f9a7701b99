package domain

import "time"

// EventType classifies an accounting ledger event.
type EventType string

const (
	EventCompleted EventType = "completed"
	EventReturned  EventType = "returned"
	EventRefunded  EventType = "refunded"
	EventCancelled EventType = "cancelled"
	EventDamaged   EventType = "damaged"
	EventExpense   EventType = "expense"
)

// ParseEventType validates and normalizes a ledger event type.
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventCompleted, EventReturned, EventRefunded, EventCancelled, EventDamaged, EventExpense:
		return EventType(s), nil
	}
	return "", ErrInvalidEventType
}

// DayKeyLayout is the calendar-day key format used for ledger rollups.
const DayKeyLayout = "2006-01-02"

// DayKey returns the rollup key for t in the given location.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayKeyLayout)
}

// DayWindow returns the [start, end) bounds of the calendar day containing
// t in the given location.
func DayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// LedgerEntry is the daily rollup for one event type at one store. There
// is exactly one entry per (companyId, storeId, eventType, day); repeated
// events of the same type on the same day accumulate into the running
// balances in place.
type LedgerEntry struct {
	ID                     string    `bson:"_id"`
	CompanyID              string    `bson:"companyId"`
	StoreID                string    `bson:"storeId"`
	EventType              EventType `bson:"eventType"`
	Day                    string    `bson:"day"`
	Amount                 float64   `bson:"amount"`
	Quantity               float64   `bson:"quantity"`
	RunningBalanceAmount   float64   `bson:"runningBalanceAmount"`
	RunningBalanceQty      float64   `bson:"runningBalanceQty"`
	RunningBalanceOrderQty int64     `bson:"runningBalanceOrderQty"`
	LastReference          string    `bson:"lastReference,omitempty"`
	CreatedAt              time.Time `bson:"createdAt"`
	CreatedBy              string    `bson:"createdBy,omitempty"`
	UpdatedAt              time.Time `bson:"updatedAt"`
	UpdatedBy              string    `bson:"updatedBy,omitempty"`
}

// LedgerEvent is a single accounting event to be folded into the day
// rollup for its (company, store, eventType, day) key.
type LedgerEvent struct {
	CompanyID   string
	StoreID     string
	EventType   EventType
	ReferenceID string
	Day         string
	Amount      float64
	Quantity    float64
	Orders      int64
	Actor       string
	OccurredAt  time.Time
}

// Validate checks the event is well-formed before it touches the store.
func (e *LedgerEvent) Validate() error {
	if e.CompanyID == "" || e.StoreID == "" {
		return ErrMissingScope
	}
	if _, err := ParseEventType(string(e.EventType)); err != nil {
		return err
	}
	if e.Day == "" {
		return ErrInvalidDay
	}
	if e.Amount < 0 || e.Quantity < 0 {
		return ErrInvalidLedgerAmount
	}
	return nil
}

// CountsOrders reports whether events of this type contribute to the
// per-day order count.
func (t EventType) CountsOrders() bool {
	return t == EventCompleted
}

// EventTotals aggregates amount, quantity and order count for one event
// type, used by the day repair pass when re-deriving ledger totals from
// the order tracking records.
type EventTotals struct {
	Amount   float64
	Quantity float64
	Orders   int64
}
