package models

// StockTable maps an item name to the quantity currently on hand.
// An item missing from the table has a quantity of zero.
type StockTable map[string]int

// Clone returns an independent copy of the table.
func (t StockTable) Clone() StockTable {
	out := make(StockTable, len(t))
	for item, qty := range t {
		out[item] = qty
	}
	return out
}

// Units returns the sum of all quantities in the table.
func (t StockTable) Units() int {
	var total int
	for _, qty := range t {
		total += qty
	}
	return total
}

// RemovalEvent is one timestamped withdrawal of stock for a single item.
type RemovalEvent struct {
	Date            string `json:"date" bson:"date"`
	QuantityRemoved int    `json:"quantity_removed" bson:"quantity_removed"`
}

// RemovalReport holds the chronological removal history per item.
type RemovalReport map[string][]RemovalEvent

// Clone returns a copy of the report whose event slices are not shared.
func (r RemovalReport) Clone() RemovalReport {
	out := make(RemovalReport, len(r))
	for item, events := range r {
		out[item] = append([]RemovalEvent(nil), events...)
	}
	return out
}

// TotalTaken maps an item to the cumulative quantity ever removed.
type TotalTaken map[string]int

// Clone returns an independent copy of the totals.
func (t TotalTaken) Clone() TotalTaken {
	out := make(TotalTaken, len(t))
	for item, qty := range t {
		out[item] = qty
	}
	return out
}
