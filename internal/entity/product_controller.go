package entity

import (
	"github.com/aras-services/goframe/internal/router"
)

// ProductController overrides FindAll to support an optional maxPrice
// query parameter, suppressing the CRUD generator's own GET /products
// route while leaving every other generated operation (findById, create,
// update, delete, search, count, exists, the batch routes) in place.
type ProductController struct {
	repo *ProductRepository
}

// NewProductController is the DI constructor.
func NewProductController(repo *ProductRepository) *ProductController {
	return &ProductController{repo: repo}
}

func (c *ProductController) FindAll(req *router.Request) (router.Result, error) {
	if maxPrice := req.QueryAsInt("maxPrice", 0); maxPrice > 0 {
		products, err := c.repo.FindByPriceLessThan(req.Raw.Context(), int64(maxPrice))
		if err != nil {
			return router.Result{}, err
		}
		return router.OK(products), nil
	}

	products, err := c.repo.FindAll(req.Raw.Context())
	if err != nil {
		return router.Result{}, err
	}
	return router.OK(products), nil
}
