package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/travel-booking/internal/model"
)

// CatalogService serves the public product catalog.
type CatalogService struct {
	catalog CatalogStore
}

// NewCatalogService returns a CatalogService reading from catalog.
func NewCatalogService(catalog CatalogStore) *CatalogService {
	return &CatalogService{catalog: catalog}
}

// Search returns one page of active products.
func (s *CatalogService) Search(ctx context.Context, q model.ProductSearchQuery) (model.ProductPage, error) {
	return s.catalog.SearchProducts(ctx, q.Normalize())
}

// Get returns an active product.  Inactive products are hidden from the
// public catalog and reported as not found.
func (s *CatalogService) Get(ctx context.Context, id string) (model.Product, error) {
	p, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return model.Product{}, err
	}
	if !p.Active {
		return model.Product{}, fmt.Errorf("%w: %s", model.ErrProductNotFound, id)
	}
	return p, nil
}
