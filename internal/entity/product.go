package entity

// Product is a second demonstration entity, existing purely to exercise
// the CRUD generator's route-override invariant (spec.md §4.7 point 3,
// §8) on a plain findAll rather than the password-hashing create path
// User's controller demonstrates.
type Product struct {
	ID    int64  `json:"id" db:"id" pk:"true"`
	SKU   string `json:"sku" db:"sku"`
	Name  string `json:"name" db:"name"`
	Price int64  `json:"price" db:"price_cents"`
}
