package entity

import (
	"context"

	"github.com/aras-services/goframe/internal/repository"
)

// ProductRepository takes its standard operations from the embedded Base
// and declares one custom query method: FindByPriceLessThan, a
// single-predicate synthesized method used by ProductController's
// overridden findAll.
type ProductRepository struct {
	repository.Base[Product, int64]

	FindByPriceLessThan func(ctx context.Context, price int64) ([]*Product, error)
}
