package insights

// StatusBreakdown aggregates plans grouped by status.
type StatusBreakdown struct {
	Status      string  `json:"status"`
	Plans       int     `json:"plans"`
	Outstanding float64 `json:"outstanding"`
	Collected   float64 `json:"collected"`
}

// DailyCollected is the amount of down payments taken per calendar day.
type DailyCollected struct {
	Day       string  `json:"day"`
	Collected float64 `json:"collected"`
}

// ReservedProduct ranks products by units held under non-completed plans.
type ReservedProduct struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Units     int    `json:"units"`
}

// InventoryValue sums active stock at cost and at sale price.
type InventoryValue struct {
	Units    int     `json:"units"`
	AtCost   float64 `json:"at_cost"`
	AtPrice  float64 `json:"at_price"`
	Products int     `json:"products"`
}

// Overview is the full insights payload for a date window.
type Overview struct {
	ByStatus       []StatusBreakdown `json:"by_status"`
	CollectedDaily []DailyCollected  `json:"collected_daily"`
	TopReserved    []ReservedProduct `json:"top_reserved"`
	Inventory      InventoryValue    `json:"inventory"`
}

// Window bounds the date-filtered aggregations. Zero values mean unbounded.
type Window struct {
	From string
	To   string
}
