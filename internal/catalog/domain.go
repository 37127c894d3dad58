package catalog

import "time"

// Product is a catalog entry. Quantity is the available (unreserved) stock;
// layaway reservations decrement it and cancellations restore it.
type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Reference   string    `json:"reference"`
	Description string    `json:"description"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	Cost        float64   `json:"cost"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductInput carries the writable fields for create and update.
type ProductInput struct {
	Name        string
	Reference   string
	Description string
	Quantity    int
	Price       float64
	Cost        float64
	ActorID     int64
	ActorName   string
}

// ListFilter narrows the product listing.
type ListFilter struct {
	Search          string
	IncludeInactive bool
}
