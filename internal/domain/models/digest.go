package models

import "time"

// ItemQuantity pairs an item with a quantity for ordered listings.
type ItemQuantity struct {
	Item     string `json:"item" bson:"item"`
	Quantity int    `json:"quantity" bson:"quantity"`
}

// StockDigest is the periodic summary produced by the reporting service.
type StockDigest struct {
	GeneratedAt time.Time      `json:"generated_at" bson:"generated_at"`
	Items       int            `json:"items" bson:"items"`
	Units       int            `json:"units" bson:"units"`
	LowStock    []ItemQuantity `json:"low_stock" bson:"low_stock"`
	HighStock   []ItemQuantity `json:"high_stock" bson:"high_stock"`
	TopRemoved  []ItemQuantity `json:"top_removed" bson:"top_removed"`
	Stock       StockTable     `json:"stock" bson:"stock"`
	Totals      TotalTaken     `json:"totals" bson:"totals"`
}
