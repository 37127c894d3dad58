package layaway

import (
	"errors"
	"time"
)

// PlanStatus enumerates layaway plan statuses.
type PlanStatus string

const (
	StatusActive    PlanStatus = "active"
	StatusCompleted PlanStatus = "completed"
	StatusOverdue   PlanStatus = "overdue"
)

// KnownStatus reports whether s is one of the recognised plan statuses.
func KnownStatus(s PlanStatus) bool {
	switch s {
	case StatusActive, StatusCompleted, StatusOverdue:
		return true
	}
	return false
}

// Plan is an installment-purchase agreement reserving products for a customer
// against partial payments over time.
type Plan struct {
	ID              int64      `json:"id"`
	CustomerName    string     `json:"customer_name"`
	CustomerIDDoc   string     `json:"customer_id_doc"`
	CustomerContact string     `json:"customer_contact"`
	TotalValue      float64    `json:"total_value"`
	DownPayment     float64    `json:"down_payment"`
	BalanceDue      float64    `json:"balance_due"`
	Deadline        time.Time  `json:"deadline"`
	Status          PlanStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
}

// PlanDetail is one line item (product + quantity) belonging to a plan. The
// detail rows are the only record of how much stock a plan consumes; they are
// read back to restore stock on cancellation.
type PlanDetail struct {
	PlanID    int64
	ProductID int64
	Quantity  int
}

// PlanLine is a detail row resolved against the catalog. UnitPrice is the
// product's current price, not the price at the time the plan was created:
// historical plans re-price themselves when the catalog changes.
type PlanLine struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"price_at_sale"`
}

// PlanWithLines is the detail view of a plan.
type PlanWithLines struct {
	Plan
	Products []PlanLine `json:"products"`
}

// ListFilter narrows the plan listing.
type ListFilter struct {
	// Search matches customer name and ID document, case-insensitive.
	Search string
	// Status filters by plan status; "all" or empty disables the filter.
	Status string
}

// ItemInput is one requested (product, quantity) pair on plan creation.
type ItemInput struct {
	ProductID int64
	Quantity  int
}

// CreateInput carries everything needed to open a plan.
type CreateInput struct {
	CustomerName    string
	CustomerIDDoc   string
	CustomerContact string
	TotalValue      float64
	DownPayment     float64
	Deadline        time.Time
	Items           []ItemInput
	// IdempotencyKey guards against duplicate submissions; optional.
	IdempotencyKey string
	ActorID        int64
	ActorName      string
}

// UpdateInput applies a payment and/or an explicit status override.
type UpdateInput struct {
	// PaymentAmount, when set, is added to the down payment.
	PaymentAmount *float64
	// Status, when set and no payment completes the plan, is applied
	// verbatim. Operators may move a plan between any known statuses.
	Status    *PlanStatus
	ActorID   int64
	ActorName string
}

// ProductStock is the catalog row the create protocol locks and checks.
type ProductStock struct {
	ID       int64
	Name     string
	Quantity int
}

var (
	// ErrPlanNotFound indicates no plan exists with the given id.
	ErrPlanNotFound = errors.New("layaway: plan not found")
	// ErrProductNotFound indicates a requested product does not exist.
	ErrProductNotFound = errors.New("layaway: product not found")
)
