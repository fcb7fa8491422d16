package adapter

import (
	"context"

	catalogapp "github.com/ishopping/marketplace/internal/catalog/app"
	catalogdomain "github.com/ishopping/marketplace/internal/catalog/domain"
)

// CatalogReader adapts the catalog service to the cart's product lookup.
type CatalogReader struct {
	catalog *catalogapp.Service
}

func NewCatalogReader(catalog *catalogapp.Service) *CatalogReader {
	return &CatalogReader{catalog: catalog}
}

func (a *CatalogReader) GetProduct(ctx context.Context, productID string) (catalogdomain.Product, error) {
	return a.catalog.GetProduct(ctx, productID)
}
