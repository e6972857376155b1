package core

import "time"

// StockLevel is the on-hand quantity of one product at one location.
type StockLevel struct {
	LocationID  int       `json:"locationId"`
	ProductID   int       `json:"productId"`
	SKU         string    `json:"sku"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StockLine is a quantity of one product requested by a given line.
type StockLine struct {
	Line      int
	ProductID int
	Quantity  int
}
