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

// SummaryReconciler derives the product summary from the active batches.
// The recompute is idempotent and safe to re-run after partial failures;
// a validation sweep repairs any drift the async path leaves behind.
type SummaryReconciler struct {
	batches  domain.BatchRepository
	products domain.ProductRepository
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

// NewSummaryReconciler creates a new SummaryReconciler.
func NewSummaryReconciler(
	batches domain.BatchRepository,
	products domain.ProductRepository,
	logger *logging.Logger,
	m *metrics.Metrics,
) *SummaryReconciler {
	return &SummaryReconciler{
		batches:  batches,
		products: products,
		logger:   logger.WithComponent("summary-reconciler"),
		metrics:  m,
	}
}

// Recompute re-derives the summary for a product. The overlay carries
// just-committed batches that a fresh query may not return yet; overlay
// entries replace queried batches with the same batch id.
func (r *SummaryReconciler) Recompute(ctx context.Context, productID string, overlay []*domain.InventoryBatch) (*domain.ProductSummary, error) {
	product, err := r.products.FindByID(ctx, productID)
	if err != nil {
		r.metrics.RecordRecompute("error")
		return nil, fmt.Errorf("failed to load product %s: %w", productID, err)
	}
	if product == nil {
		r.metrics.RecordRecompute("missing")
		return nil, errors.ErrNotFoundWithID("product", productID)
	}

	batches, err := r.batches.FindActiveByProduct(ctx, productID)
	if err != nil {
		r.metrics.RecordRecompute("error")
		return nil, fmt.Errorf("failed to load batches for %s: %w", productID, err)
	}
	batches = mergeOverlay(batches, overlay)

	derived, hasActive := domain.ComputeDerivedSummary(batches)

	if !product.IsStockTracked {
		// Manual-stock products are authoritative over their own stock
		// and prices; only discount metadata follows the latest batch.
		if hasActive && (product.HasDiscount != derived.HasDiscount ||
			product.DiscountType != derived.DiscountType ||
			product.DiscountValue != derived.DiscountValue) {
			now := time.Now().UTC()
			if err := r.products.UpdateDiscount(ctx, productID, derived.HasDiscount, derived.DiscountType, derived.DiscountValue, now); err != nil {
				r.metrics.RecordRecompute("error")
				return nil, fmt.Errorf("failed to sync discount for %s: %w", productID, err)
			}
			product.HasDiscount = derived.HasDiscount
			product.DiscountType = derived.DiscountType
			product.DiscountValue = derived.DiscountValue
			product.LastUpdated = now
		}
		r.metrics.RecordRecompute("manual")
		return product, nil
	}

	if !hasActive {
		// A batch write may not be visible to the query yet. Zeroing the
		// summary here would briefly publish an empty product, so the
		// stored values stand until a batch is observed.
		r.metrics.RecordRecompute("noop")
		return product, nil
	}

	if product.MatchesDerived(derived) {
		r.metrics.RecordRecompute("unchanged")
		return product, nil
	}

	product.ApplyDerived(derived)
	if err := r.products.UpdateDerived(ctx, productID, derived, product.LastUpdated); err != nil {
		r.metrics.RecordRecompute("error")
		return nil, fmt.Errorf("failed to write summary for %s: %w", productID, err)
	}

	r.metrics.RecordRecompute("updated")
	r.logger.Info("Product summary recomputed",
		"productId", productID,
		"totalStock", derived.TotalStock,
		"sellingPrice", derived.SellingPrice)

	return product, nil
}

// Discrepancy is one field where the stored summary disagrees with the
// batch-derived value.
type Discrepancy struct {
	Field    string  `json:"field"`
	Expected float64 `json:"expected"`
	Actual   float64 `json:"actual"`
}

// ValidationReport is the outcome of comparing a stored summary against a
// freshly derived one.
type ValidationReport struct {
	ProductID     string        `json:"productId"`
	IsValid       bool          `json:"isValid"`
	Discrepancies []Discrepancy `json:"discrepancies,omitempty"`
}

// Validate compares the live summary with a freshly computed one without
// writing anything.
func (r *SummaryReconciler) Validate(ctx context.Context, productID string) (*ValidationReport, error) {
	product, err := r.products.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", productID, err)
	}
	if product == nil {
		return nil, errors.ErrNotFoundWithID("product", productID)
	}

	report := &ValidationReport{ProductID: productID, IsValid: true}

	if !product.IsStockTracked {
		return report, nil
	}

	batches, err := r.batches.FindActiveByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load batches for %s: %w", productID, err)
	}

	derived, hasActive := domain.ComputeDerivedSummary(batches)
	if !hasActive {
		return report, nil
	}

	if product.TotalStock != derived.TotalStock {
		report.Discrepancies = append(report.Discrepancies, Discrepancy{
			Field: "totalStock", Expected: derived.TotalStock, Actual: product.TotalStock,
		})
	}
	if product.SellingPrice != derived.SellingPrice {
		report.Discrepancies = append(report.Discrepancies, Discrepancy{
			Field: "sellingPrice", Expected: derived.SellingPrice, Actual: product.SellingPrice,
		})
	}
	if product.OriginalPrice != derived.OriginalPrice {
		report.Discrepancies = append(report.Discrepancies, Discrepancy{
			Field: "originalPrice", Expected: derived.OriginalPrice, Actual: product.OriginalPrice,
		})
	}

	report.IsValid = len(report.Discrepancies) == 0
	return report, nil
}

// FixDiscrepancies re-runs the recompute when validation finds drift.
func (r *SummaryReconciler) FixDiscrepancies(ctx context.Context, productID string) (*ValidationReport, error) {
	report, err := r.Validate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if report.IsValid {
		return report, nil
	}

	if _, err := r.Recompute(ctx, productID, nil); err != nil {
		return nil, err
	}

	r.logger.Info("Summary drift repaired",
		"productId", productID,
		"discrepancies", len(report.Discrepancies))
	return report, nil
}

// SweepResult summarizes a bulk validation run over a company's products.
type SweepResult struct {
	CompanyID string `json:"companyId"`
	Checked   int    `json:"checked"`
	Invalid   int    `json:"invalid"`
	Fixed     int    `json:"fixed"`
	Errors    int    `json:"errors"`
}

// ValidateCompany sweeps all products for a company in fixed-size pages,
// validating each and optionally repairing drift. Page size bounds both
// memory and request rate against the store.
func (r *SummaryReconciler) ValidateCompany(ctx context.Context, cmd ValidateCompanyCommand) (*SweepResult, error) {
	pageSize := cmd.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	result := &SweepResult{CompanyID: cmd.CompanyID}
	after := ""

	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		products, err := r.products.ListByCompany(ctx, cmd.CompanyID, after, pageSize)
		if err != nil {
			return result, fmt.Errorf("failed to page products for %s: %w", cmd.CompanyID, err)
		}
		if len(products) == 0 {
			break
		}

		for _, product := range products {
			result.Checked++

			report, err := r.Validate(ctx, product.ProductID)
			if err != nil {
				result.Errors++
				r.logger.WithError(err).Warn("Validation failed during sweep", "productId", product.ProductID)
				continue
			}
			if report.IsValid {
				continue
			}

			result.Invalid++
			if !cmd.Fix {
				continue
			}
			if _, err := r.Recompute(ctx, product.ProductID, nil); err != nil {
				result.Errors++
				r.logger.WithError(err).Warn("Repair failed during sweep", "productId", product.ProductID)
				continue
			}
			result.Fixed++
		}

		after = products[len(products)-1].ProductID
		if len(products) < pageSize {
			break
		}
	}

	r.logger.Info("Company summary sweep finished",
		"companyId", cmd.CompanyID,
		"checked", result.Checked,
		"invalid", result.Invalid,
		"fixed", result.Fixed)
	return result, nil
}

func mergeOverlay(queried, overlay []*domain.InventoryBatch) []*domain.InventoryBatch {
	if len(overlay) == 0 {
		return queried
	}

	byID := make(map[string]int, len(queried))
	merged := make([]*domain.InventoryBatch, len(queried))
	copy(merged, queried)
	for i, b := range merged {
		byID[b.BatchID] = i
	}

	for _, b := range overlay {
		if i, ok := byID[b.BatchID]; ok {
			// A queried batch can be fresher than the overlay when a
			// later mutation committed before this recompute acquired
			// the product lock. Keep whichever write is newer; the
			// overlay wins ties since the query may trail the commit.
			if merged[i].UpdatedAt.After(b.UpdatedAt) {
				continue
			}
			merged[i] = b
			continue
		}
		byID[b.BatchID] = len(merged)
		merged = append(merged, b)
	}
	return merged
}
