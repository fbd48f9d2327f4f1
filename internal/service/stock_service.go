package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/domain"
	"github.com/sebastianpd1/next-ecommerce-backend/internal/repository"
)

type stockService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewStockService creates a new stock service
func NewStockService(repos *repository.Repositories, logger *zap.Logger) *stockService {
	return &stockService{
		repos:  repos,
		logger: logger,
	}
}

// Deduct applies a clamped stock deduction for every order line. It is
// best-effort: an unknown SKU or a per-line failure is logged and skipped,
// never failing the batch. Returns the number of lines applied.
func (s *stockService) Deduct(ctx context.Context, items []domain.OrderItem) int {
	applied := 0
	for _, item := range items {
		if item.SKU == "" || item.Quantity <= 0 {
			continue
		}

		ok, err := s.repos.Product.DeductStock(ctx, item.SKU, item.Quantity)
		if err != nil {
			s.logger.Error("Stock deduction failed",
				zap.String("sku", item.SKU),
				zap.Int("qty", item.Quantity),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			// catalog/order desynchronization: reconciled out of band
			s.logger.Warn("Stock deduction skipped, sku not in catalog",
				zap.String("sku", item.SKU),
				zap.Int("qty", item.Quantity),
			)
			continue
		}
		applied++
	}
	return applied
}
