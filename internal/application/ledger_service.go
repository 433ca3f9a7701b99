package application

import (
	"context"
	"fmt"
	"time"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
	"github.com/jaspervborcena/tovrika-sub001/pkg/errors"
	"github.com/jaspervborcena/tovrika-sub001/pkg/logging"
	"github.com/jaspervborcena/tovrika-sub001/pkg/metrics"
)

// LedgerService maintains the per-day accounting rollups. Each store day
// holds at most one entry per event type; events of the same type
// accumulate into the running balances atomically.
type LedgerService struct {
	ledger  domain.LedgerRepository
	orders  domain.OrderRepository
	logger  *logging.Logger
	metrics *metrics.Metrics
	loc     *time.Location
	now     func() time.Time
}

// NewLedgerService creates a new LedgerService. Day boundaries are
// computed in loc, the store's local time zone.
func NewLedgerService(
	ledger domain.LedgerRepository,
	orders domain.OrderRepository,
	loc *time.Location,
	logger *logging.Logger,
	m *metrics.Metrics,
) *LedgerService {
	if loc == nil {
		loc = time.Local
	}
	return &LedgerService{
		ledger:  ledger,
		orders:  orders,
		logger:  logger.WithComponent("ledger-service"),
		metrics: m,
		loc:     loc,
		now:     time.Now,
	}
}

// RecordEvent folds one accounting event into today's rollup for its
// event type and returns the entry after the increment.
func (s *LedgerService) RecordEvent(ctx context.Context, cmd RecordEventCommand) (*domain.LedgerEntry, error) {
	eventType, err := domain.ParseEventType(cmd.EventType)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	now := s.now()
	event := &domain.LedgerEvent{
		CompanyID:   cmd.CompanyID,
		StoreID:     cmd.StoreID,
		EventType:   eventType,
		ReferenceID: cmd.ReferenceID,
		Day:         domain.DayKey(now, s.loc),
		Amount:      cmd.Amount,
		Quantity:    cmd.Quantity,
		Actor:       cmd.Actor,
		OccurredAt:  now,
	}
	if eventType.CountsOrders() {
		event.Orders = 1
	}
	if err := event.Validate(); err != nil {
		return nil, errors.ErrValidation(err.Error())
	}

	entry, err := s.ledger.UpsertDayEntry(ctx, event)
	if err != nil {
		s.metrics.RecordLedgerUpsert(string(eventType), false)
		return nil, fmt.Errorf("failed to record %s event: %w", eventType, err)
	}
	s.metrics.RecordLedgerUpsert(string(eventType), true)

	return entry, nil
}

// RecordEventBestEffort records an event on behalf of an order status
// change. The order record is the source of truth; a failed ledger write
// is logged and repaired later rather than failing the status change.
func (s *LedgerService) RecordEventBestEffort(ctx context.Context, cmd RecordEventCommand) {
	if _, err := s.RecordEvent(ctx, cmd); err != nil {
		s.logger.WithError(err).Warn("Ledger write failed, totals can be re-derived via day repair",
			"companyId", cmd.CompanyID,
			"storeId", cmd.StoreID,
			"eventType", cmd.EventType,
			"referenceId", cmd.ReferenceID)
	}
}

// DayBalances aggregates one day's rollup entries.
type DayBalances struct {
	Day      string            `json:"day"`
	Amount   float64           `json:"amount"`
	Quantity float64           `json:"quantity"`
	Orders   int64             `json:"orders"`
	Entries  []*LedgerEntryDTO `json:"entries,omitempty"`
}

// GetDayBalances sums the rollup entries whose day matches the given
// date, optionally narrowed to one event type. Normally there is exactly
// one entry per type due to the upsert.
func (s *LedgerService) GetDayBalances(ctx context.Context, companyID, storeID string, date time.Time, eventType string) (*DayBalances, error) {
	var et domain.EventType
	if eventType != "" {
		parsed, err := domain.ParseEventType(eventType)
		if err != nil {
			return nil, errors.ErrValidation(err.Error())
		}
		et = parsed
	}

	day := domain.DayKey(date, s.loc)
	entries, err := s.ledger.FindByDay(ctx, companyID, storeID, day, et)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries for %s: %w", day, err)
	}

	balances := &DayBalances{Day: day}
	for _, entry := range entries {
		balances.Amount += entry.RunningBalanceAmount
		balances.Quantity += entry.RunningBalanceQty
		balances.Orders += entry.RunningBalanceOrderQty
		balances.Entries = append(balances.Entries, ToLedgerEntryDTO(entry))
	}
	return balances, nil
}

// RangeBalances aggregates rollups over an inclusive day range.
type RangeBalances struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Amount   float64        `json:"amount"`
	Quantity float64        `json:"quantity"`
	Orders   int64          `json:"orders"`
	Days     []*DayBalances `json:"days"`
}

// GetRangeBalances iterates day by day over [from, to] and sums the
// per-day balances.
func (s *LedgerService) GetRangeBalances(ctx context.Context, companyID, storeID string, from, to time.Time, eventType string) (*RangeBalances, error) {
	start, _ := domain.DayWindow(from, s.loc)
	end, _ := domain.DayWindow(to, s.loc)
	if end.Before(start) {
		return nil, errors.ErrValidation("range end precedes range start")
	}

	result := &RangeBalances{
		From: domain.DayKey(start, s.loc),
		To:   domain.DayKey(end, s.loc),
	}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		balances, err := s.GetDayBalances(ctx, companyID, storeID, day, eventType)
		if err != nil {
			return nil, err
		}
		result.Amount += balances.Amount
		result.Quantity += balances.Quantity
		result.Orders += balances.Orders
		result.Days = append(result.Days, balances)
	}
	return result, nil
}

// RepairDay re-derives one day's rollups from the order tracking records.
// Existing entries for the day are dropped and rebuilt, so the repair is
// safe to run repeatedly.
func (s *LedgerService) RepairDay(ctx context.Context, companyID, storeID string, date time.Time, actor string) (*DayBalances, error) {
	dayStart, dayEnd := domain.DayWindow(date, s.loc)
	day := domain.DayKey(date, s.loc)

	totals, err := s.orders.SumStatusEventsByDay(ctx, companyID, storeID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate order events for %s: %w", day, err)
	}

	if err := s.ledger.DeleteDay(ctx, companyID, storeID, day); err != nil {
		return nil, fmt.Errorf("failed to clear ledger day %s: %w", day, err)
	}

	for eventType, total := range totals {
		event := &domain.LedgerEvent{
			CompanyID:   companyID,
			StoreID:     storeID,
			EventType:   eventType,
			ReferenceID: "repair",
			Day:         day,
			Amount:      total.Amount,
			Quantity:    total.Quantity,
			Orders:      total.Orders,
			Actor:       actor,
			OccurredAt:  s.now(),
		}
		if _, err := s.ledger.UpsertDayEntry(ctx, event); err != nil {
			return nil, fmt.Errorf("failed to rebuild %s rollup for %s: %w", eventType, day, err)
		}
	}

	s.logger.Info("Ledger day repaired",
		"companyId", companyID,
		"storeId", storeID,
		"day", day,
		"eventTypes", len(totals))

	return s.GetDayBalances(ctx, companyID, storeID, date, "")
}
