package services

import (
	"context"
	"fmt"
	"time"

	"github.com/IANDYI/nutrition-service/internal/core/domain"
	"github.com/IANDYI/nutrition-service/internal/core/ports"
	"go.uber.org/zap"
)

const searchPageSize = 1

// BarcodeResolver resolves barcodes through the food lookup service.
// It holds no state between calls; concurrent resolutions are independent.
type BarcodeResolver struct {
	lookup ports.FoodLookupClient
	log    *zap.Logger
}

// NewBarcodeResolver creates a new barcode resolver
func NewBarcodeResolver(lookup ports.FoodLookupClient, log *zap.Logger) *BarcodeResolver {
	return &BarcodeResolver{
		lookup: lookup,
		log:    log,
	}
}

// Resolve normalizes the barcode, searches branded foods for it (retrying
// once with two leading zeros), fetches the details of the first candidate
// and scales its nutrients to one serving. Nothing is returned until every
// call has completed, so a cancelled context never yields a partial summary.
func (r *BarcodeResolver) Resolve(ctx context.Context, rawBarcode string) (*domain.NutritionSummary, error) {
	startTime := time.Now()

	code := domain.NormalizeBarcode(rawBarcode)
	if code == "" {
		return nil, domain.NewLookupError(domain.InvalidBarcode, rawBarcode, nil)
	}

	candidate, err := r.findCandidate(ctx, code)
	if err != nil {
		r.logFailure(code, err, startTime)
		return nil, err
	}

	details, err := r.lookup.GetDetails(ctx, candidate.ID)
	if err != nil {
		err = domain.NewLookupError(domain.NetworkError, code, fmt.Errorf("failed to fetch food %d: %w", candidate.ID, err))
		r.logFailure(code, err, startTime)
		return nil, err
	}

	summary := domain.BuildSummary(details)

	r.log.Info("barcode_resolved",
		zap.String("barcode", code),
		zap.Int("fdc_id", details.ID),
		zap.String("description", summary.Description),
		zap.Duration("duration", time.Since(startTime)))

	return &summary, nil
}

// findCandidate searches the code, then its leading-zero variant
func (r *BarcodeResolver) findCandidate(ctx context.Context, code string) (*domain.FoodCandidate, error) {
	for _, query := range []string{code, domain.LeadingZeroVariant(code)} {
		candidates, err := r.lookup.SearchByCode(ctx, query, domain.BrandedDataType, searchPageSize)
		if err != nil {
			return nil, domain.NewLookupError(domain.NetworkError, code, fmt.Errorf("failed to search %s: %w", query, err))
		}
		if len(candidates) > 0 {
			return &candidates[0], nil
		}
	}
	return nil, domain.NewLookupError(domain.NotFound, code, nil)
}

func (r *BarcodeResolver) logFailure(code string, err error, startTime time.Time) {
	kind, _ := domain.LookupErrorKindOf(err)
	r.log.Warn("barcode_lookup_failed",
		zap.String("barcode", code),
		zap.String("kind", string(kind)),
		zap.Duration("duration", time.Since(startTime)),
		zap.Error(err))
}

var _ ports.BarcodeResolver = (*BarcodeResolver)(nil)
