package models

// FilterMode selects a threshold subset of the stock table.
type FilterMode string

const (
	FilterNone FilterMode = ""
	FilterLow  FilterMode = "low"
	FilterHigh FilterMode = "high"
)

// ParseFilterMode maps a query value to a FilterMode. Matching is exact; any
// other value means no filter.
func ParseFilterMode(value string) FilterMode {
	switch FilterMode(value) {
	case FilterLow:
		return FilterLow
	case FilterHigh:
		return FilterHigh
	default:
		return FilterNone
	}
}

// ReportKind selects which history table accompanies the stock table.
type ReportKind string

const (
	ReportNone    ReportKind = ""
	ReportMonthly ReportKind = "monthly"
	ReportTotal   ReportKind = "total"
)

// ParseReportKind maps a query value to a ReportKind. Matching is exact; any
// other value means no report.
func ParseReportKind(value string) ReportKind {
	switch ReportKind(value) {
	case ReportMonthly:
		return ReportMonthly
	case ReportTotal:
		return ReportTotal
	default:
		return ReportNone
	}
}

// TableKind names one of the three persisted ledger tables.
type TableKind string

const (
	TableStock  TableKind = "stock"
	TableReport TableKind = "report"
	TableTotal  TableKind = "total"
)

// FilterView is the result of a threshold filter. Subset is nil when no
// filter was applied.
type FilterView struct {
	Mode   FilterMode
	Stock  StockTable
	Subset StockTable
}

// ReportView carries the stock table plus at most one history table.
type ReportView struct {
	Kind     ReportKind
	Stock    StockTable
	Removals RemovalReport
	Totals   TotalTaken
}
