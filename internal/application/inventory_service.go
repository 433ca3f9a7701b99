package application

import (
	"context"
	"fmt"

	"github.com/jaspervborcena/tovrika-sub001/internal/domain"
	"github.com/jaspervborcena/tovrika-sub001/pkg/errors"
	"github.com/jaspervborcena/tovrika-sub001/pkg/identity"
	"github.com/jaspervborcena/tovrika-sub001/pkg/logging"
	"github.com/jaspervborcena/tovrika-sub001/pkg/metrics"
)

// InventoryService owns the batch mutation use cases. Every committed
// mutation schedules an asynchronous summary recompute carrying the
// just-written batches as an overlay.
type InventoryService struct {
	batches      domain.BatchRepository
	trigger      RecomputeTrigger
	connectivity ConnectivitySignal
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(
	batches domain.BatchRepository,
	trigger RecomputeTrigger,
	connectivity ConnectivitySignal,
	logger *logging.Logger,
	m *metrics.Metrics,
) *InventoryService {
	return &InventoryService{
		batches:      batches,
		trigger:      trigger,
		connectivity: connectivity,
		logger:       logger.WithComponent("inventory-service"),
		metrics:      m,
	}
}

// AddBatch validates and writes a new batch. The batch insert and the
// incremental product stock adjustment commit in one atomic unit; the
// authoritative summary values are restored by the recompute that
// follows.
func (s *InventoryService) AddBatch(ctx context.Context, cmd AddBatchCommand) (string, error) {
	ident, err := identity.FromContext(ctx)
	if err != nil {
		return "", errors.ErrUnauthorized(err.Error())
	}

	batch, err := domain.NewInventoryBatch(cmd.ProductID, ident.CompanyID, ident.StoreID, ident.UserID, domain.NewBatchInput{
		Quantity:      cmd.Quantity,
		UnitPrice:     cmd.UnitPrice,
		CostPrice:     cmd.CostPrice,
		SellingPrice:  cmd.SellingPrice,
		ReceivedAt:    cmd.ReceivedAt,
		ExpiryDate:    cmd.ExpiryDate,
		VATRate:       cmd.VATRate,
		HasDiscount:   cmd.HasDiscount,
		DiscountType:  cmd.DiscountType,
		DiscountValue: cmd.DiscountValue,
	})
	if err != nil {
		return "", errors.ErrValidation(err.Error())
	}

	if err := s.batches.Create(ctx, batch); err != nil {
		s.metrics.RecordBatchMutation("create", false)
		s.logger.WithError(err).Error("Failed to commit batch", "productId", cmd.ProductID)
		return "", errors.ErrCommitFailed("add batch").Wrap(err)
	}
	s.metrics.RecordBatchMutation("create", true)

	s.logger.Info("Inventory batch added",
		"productId", batch.ProductID,
		"batchId", batch.BatchID,
		"quantity", batch.Quantity)

	s.trigger.TriggerRecompute(batch.ProductID, []*domain.InventoryBatch{batch})
	return batch.BatchID, nil
}

// UpdateBatch applies a partial update to an existing batch. Query
// identifiers are preserved even when the caller's update names them.
func (s *InventoryService) UpdateBatch(ctx context.Context, cmd UpdateBatchCommand) error {
	if _, err := identity.FromContext(ctx); err != nil {
		return errors.ErrUnauthorized(err.Error())
	}

	batch, err := s.batches.FindByID(ctx, cmd.ProductID, cmd.BatchID)
	if err != nil {
		return fmt.Errorf("failed to load batch %s: %w", cmd.BatchID, err)
	}
	if batch == nil {
		return errors.ErrNotFoundWithID("batch", cmd.BatchID)
	}

	if err := batch.Apply(cmd.Updates); err != nil {
		return errors.ErrValidation(err.Error())
	}

	if err := s.batches.Update(ctx, batch); err != nil {
		s.metrics.RecordBatchMutation("update", false)
		return errors.ErrCommitFailed("update batch").Wrap(err)
	}
	s.metrics.RecordBatchMutation("update", true)

	s.trigger.TriggerRecompute(batch.ProductID, []*domain.InventoryBatch{batch})
	return nil
}

// RemoveBatch soft-deletes a batch. Removed batches are excluded from all
// stock and price calculations.
func (s *InventoryService) RemoveBatch(ctx context.Context, productID, batchID string) error {
	removed := domain.BatchStatusRemoved
	err := s.UpdateBatch(ctx, UpdateBatchCommand{
		ProductID: productID,
		BatchID:   batchID,
		Updates:   domain.BatchUpdate{Status: &removed},
	})
	if err != nil {
		return err
	}
	s.metrics.RecordBatchMutation("remove", true)
	return nil
}

// DeductStock removes quantity from the product's active batches oldest
// first. All touched batches are written before the recompute is
// scheduled with the full set as overlay.
func (s *InventoryService) DeductStock(ctx context.Context, cmd DeductStockCommand) error {
	if _, err := identity.FromContext(ctx); err != nil {
		return errors.ErrUnauthorized(err.Error())
	}
	if cmd.Quantity <= 0 {
		return errors.ErrValidation("deduction quantity must be positive")
	}

	batches, err := s.batches.FindActiveByProduct(ctx, cmd.ProductID)
	if err != nil {
		return fmt.Errorf("failed to load batches for %s: %w", cmd.ProductID, err)
	}

	var available float64
	for _, b := range batches {
		available += b.Quantity
	}
	if available < cmd.Quantity {
		return errors.ErrValidation(fmt.Sprintf("insufficient stock: need %.2f, have %.2f", cmd.Quantity, available))
	}

	domain.SortBatchesOldestFirst(batches)

	remaining := cmd.Quantity
	touched := make([]*domain.InventoryBatch, 0, len(batches))
	for _, batch := range batches {
		if remaining <= 0 {
			break
		}
		take := remaining
		if take > batch.Quantity {
			take = batch.Quantity
		}
		if err := batch.Deduct(take); err != nil {
			return errors.ErrValidation(err.Error())
		}
		touched = append(touched, batch)
		remaining -= take
	}

	for _, batch := range touched {
		if err := s.batches.Update(ctx, batch); err != nil {
			s.metrics.RecordBatchMutation("deduct", false)
			return errors.ErrCommitFailed("deduct stock").Wrap(err)
		}
	}
	s.metrics.RecordBatchMutation("deduct", true)

	s.logger.Info("Stock deducted",
		"productId", cmd.ProductID,
		"quantity", cmd.Quantity,
		"batches", len(touched),
		"reference", cmd.Reference)

	s.trigger.TriggerRecompute(cmd.ProductID, touched)
	return nil
}

// ListBatches returns the active batches for a product, newest received
// first. When the authoritative store is unreachable an empty list is a
// valid planning input, so offline failures degrade to that instead of
// erroring.
func (s *InventoryService) ListBatches(ctx context.Context, productID string) ([]*domain.InventoryBatch, error) {
	if productID == "" {
		return nil, errors.ErrValidation("product id is required")
	}

	batches, err := s.batches.FindActiveByProduct(ctx, productID)
	if err != nil {
		if s.connectivity != nil && !s.connectivity.Online() {
			s.logger.WithError(err).Warn("Batch query failed offline, treating as empty",
				"productId", productID)
			return []*domain.InventoryBatch{}, nil
		}
		return nil, fmt.Errorf("failed to list batches for %s: %w", productID, err)
	}

	domain.SortBatchesNewestFirst(batches)
	return batches, nil
}

// GetLatestBatch returns the active batch with the newest receivedAt, or
// nil when the product has no active batches.
func (s *InventoryService) GetLatestBatch(ctx context.Context, productID string) (*domain.InventoryBatch, error) {
	batches, err := s.ListBatches(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, nil
	}
	return batches[0], nil
}
