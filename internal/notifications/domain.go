package notifications

import "time"

// AlertType enumerates alert categories in the feed.
type AlertType string

const (
	TypeStockAlert  AlertType = "stock_alert"
	TypePaymentDue  AlertType = "payment_due"
	TypePaymentSoon AlertType = "payment_soon"
)

// Alert is one entry in the notification feed. IDs are synthetic but stable,
// so the frontend can de-duplicate across polls.
type Alert struct {
	ID      string    `json:"id"`
	Type    AlertType `json:"type"`
	Message string    `json:"message"`
}

// PlanDue is a layaway plan surfaced by a deadline query.
type PlanDue struct {
	ID           int64
	CustomerName string
	Deadline     time.Time
}

// ProductLow is a product short on stock.
type ProductLow struct {
	ID       int64
	Name     string
	Quantity int
}
