package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/warehouse/internal/domain/models"
)

const (
	// LowStockThreshold is the exclusive upper bound of the low-stock filter.
	LowStockThreshold = 50
	// HighStockThreshold is the exclusive lower bound of the high-stock filter.
	HighStockThreshold = 500

	timestampLayout = "2006-01-02 15:04:05"
)

// ErrUnknownTable is returned by Snapshot for an unrecognised table name.
var ErrUnknownTable = errors.New("unknown ledger table")

// Store persists the three ledger tables. Each Save call replaces the
// whole table.
type Store interface {
	LoadStock() (models.StockTable, error)
	LoadRemovals() (models.RemovalReport, error)
	LoadTotals() (models.TotalTaken, error)
	SaveStock(models.StockTable) error
	SaveRemovals(models.RemovalReport) error
	SaveTotals(models.TotalTaken) error
}

// RemovalRecorder receives every removal after it has been persisted.
type RemovalRecorder interface {
	RecordRemoval(ctx context.Context, item string, event models.RemovalEvent) error
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithRecorder attaches a RemovalRecorder.
func WithRecorder(recorder RemovalRecorder) Option {
	return func(l *Ledger) { l.recorder = recorder }
}

// WithClock overrides the clock used to timestamp removals.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Ledger owns the current stock, the removal history and the cumulative
// removal totals. Mutations are serialised; reads return copies.
type Ledger struct {
	mu       sync.RWMutex
	store    Store
	recorder RemovalRecorder
	logger   *zap.Logger
	now      func() time.Time

	stock    models.StockTable
	removals models.RemovalReport
	totals   models.TotalTaken
}

// Open loads all three tables from the store and returns a ready ledger.
func Open(store Store, logger *zap.Logger, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stock, err := store.LoadStock()
	if err != nil {
		return nil, fmt.Errorf("load stock: %w", err)
	}
	removals, err := store.LoadRemovals()
	if err != nil {
		return nil, fmt.Errorf("load removal report: %w", err)
	}
	totals, err := store.LoadTotals()
	if err != nil {
		return nil, fmt.Errorf("load total taken: %w", err)
	}

	l := &Ledger{
		store:    store,
		logger:   logger,
		now:      time.Now,
		stock:    nonNilStock(stock),
		removals: nonNilRemovals(removals),
		totals:   nonNilTotals(totals),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.logger.Info("ledger loaded",
		zap.Int("items", len(l.stock)),
		zap.Int("items_with_removals", len(l.removals)))

	return l, nil
}

// AddStock increases the quantity of item and returns the updated table.
func (l *Ledger) AddStock(ctx context.Context, item string, quantity int) (models.StockTable, error) {
	if item == "" {
		return nil, &ValidationError{Err: ErrInvalidItem}
	}
	if quantity <= 0 {
		return nil, &ValidationError{Item: item, Err: ErrInvalidQuantity}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev, existed := l.stock[item]
	if quantity > math.MaxInt-prev {
		return nil, &ValidationError{Item: item, Available: prev, Err: ErrInvalidQuantity}
	}

	l.stock[item] = prev + quantity
	if err := l.store.SaveStock(l.stock); err != nil {
		restoreInt(l.stock, item, prev, existed)
		l.logger.Error("failed to persist stock", zap.String("item", item), zap.Error(err))
		return nil, fmt.Errorf("persist stock: %w", err)
	}

	l.logger.Info("stock added",
		zap.String("item", item),
		zap.Int("quantity", quantity),
		zap.Int("on_hand", l.stock[item]))

	return l.stock.Clone(), nil
}

// RemoveStock takes quantity of item out of stock, records the removal and
// returns the updated table. A request larger than the quantity on hand
// fails with ErrInsufficientStock and changes nothing. A zero quantity is
// accepted and recorded as a zero removal.
func (l *Ledger) RemoveStock(ctx context.Context, item string, quantity int) (models.StockTable, error) {
	if item == "" {
		return nil, &ValidationError{Err: ErrInvalidItem}
	}
	if quantity < 0 {
		return nil, &ValidationError{Item: item, Err: ErrInvalidQuantity}
	}

	event, stock, err := l.remove(item, quantity)
	if err != nil {
		return nil, err
	}

	if l.recorder != nil {
		if err := l.recorder.RecordRemoval(ctx, item, event); err != nil {
			l.logger.Warn("failed to archive removal", zap.String("item", item), zap.Error(err))
		}
	}

	return stock, nil
}

func (l *Ledger) remove(item string, quantity int) (models.RemovalEvent, models.StockTable, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	old, hadStock := l.stock[item]
	if quantity > old {
		return models.RemovalEvent{}, nil, &ValidationError{Item: item, Available: old, Err: ErrInsufficientStock}
	}

	prevEvents, hadEvents := l.removals[item]
	prevTotal, hadTotal := l.totals[item]

	event := models.RemovalEvent{
		Date:            l.now().Format(timestampLayout),
		QuantityRemoved: quantity,
	}

	l.stock[item] = old - quantity
	l.removals[item] = append(prevEvents[:len(prevEvents):len(prevEvents)], event)
	l.totals[item] = prevTotal + quantity

	rollback := func() {
		restoreInt(l.stock, item, old, hadStock)
		if hadEvents {
			l.removals[item] = prevEvents
		} else {
			delete(l.removals, item)
		}
		restoreInt(l.totals, item, prevTotal, hadTotal)
	}

	if err := l.store.SaveStock(l.stock); err != nil {
		rollback()
		l.logger.Error("failed to persist stock", zap.String("item", item), zap.Error(err))
		return models.RemovalEvent{}, nil, fmt.Errorf("persist stock: %w", err)
	}

	if err := l.store.SaveRemovals(l.removals); err != nil {
		rollback()
		l.logger.Error("failed to persist removal report", zap.String("item", item), zap.Error(err))
		l.logRestore(l.store.SaveStock(l.stock), "stock")
		return models.RemovalEvent{}, nil, fmt.Errorf("persist removal report: %w", err)
	}

	if err := l.store.SaveTotals(l.totals); err != nil {
		rollback()
		l.logger.Error("failed to persist total taken", zap.String("item", item), zap.Error(err))
		l.logRestore(l.store.SaveStock(l.stock), "stock")
		l.logRestore(l.store.SaveRemovals(l.removals), "removal report")
		return models.RemovalEvent{}, nil, fmt.Errorf("persist total taken: %w", err)
	}

	l.logger.Info("stock removed",
		zap.String("item", item),
		zap.Int("quantity", quantity),
		zap.Int("on_hand", l.stock[item]),
		zap.Int("total_taken", l.totals[item]))

	return event, l.stock.Clone(), nil
}

// logRestore logs the outcome of restoring an already-written table after a
// later write in the same removal failed.
func (l *Ledger) logRestore(err error, table string) {
	if err != nil {
		l.logger.Error("failed to restore table after partial write",
			zap.String("table", table), zap.Error(err))
	}
}

// Quantity returns the quantity on hand for item, zero when unknown.
func (l *Ledger) Quantity(item string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stock[item]
}

// Filter returns the stock table and, for the low and high modes, the
// subset of items beyond the fixed thresholds.
func (l *Ledger) Filter(mode models.FilterMode) models.FilterView {
	l.mu.RLock()
	defer l.mu.RUnlock()

	view := models.FilterView{Mode: mode, Stock: l.stock.Clone()}

	switch mode {
	case models.FilterLow:
		view.Subset = subset(l.stock, IsLow)
	case models.FilterHigh:
		view.Subset = subset(l.stock, IsHigh)
	}

	return view
}

// Report returns the stock table together with the removal history
// (monthly), the cumulative totals (total), or nothing else.
func (l *Ledger) Report(kind models.ReportKind) models.ReportView {
	l.mu.RLock()
	defer l.mu.RUnlock()

	view := models.ReportView{Kind: kind, Stock: l.stock.Clone()}

	switch kind {
	case models.ReportMonthly:
		view.Removals = l.removals.Clone()
	case models.ReportTotal:
		view.Totals = l.totals.Clone()
	}

	return view
}

// Stock returns a copy of the current stock table.
func (l *Ledger) Stock() models.StockTable {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stock.Clone()
}

// Removals returns a copy of the removal history.
func (l *Ledger) Removals() models.RemovalReport {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.removals.Clone()
}

// Totals returns a copy of the cumulative removal totals.
func (l *Ledger) Totals() models.TotalTaken {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totals.Clone()
}

// Snapshot returns a copy of the named table for programmatic consumers.
func (l *Ledger) Snapshot(table models.TableKind) (any, error) {
	switch table {
	case models.TableStock:
		return l.Stock(), nil
	case models.TableReport:
		return l.Removals(), nil
	case models.TableTotal:
		return l.Totals(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
}

// IsLow reports whether quantity falls in the low-stock band.
func IsLow(quantity int) bool {
	return quantity < LowStockThreshold
}

// IsHigh reports whether quantity falls in the high-stock band.
func IsHigh(quantity int) bool {
	return quantity > HighStockThreshold
}

func subset(stock models.StockTable, keep func(int) bool) models.StockTable {
	out := models.StockTable{}
	for item, qty := range stock {
		if keep(qty) {
			out[item] = qty
		}
	}
	return out
}

func restoreInt[M ~map[string]int](m M, key string, prev int, existed bool) {
	if existed {
		m[key] = prev
		return
	}
	delete(m, key)
}

func nonNilStock(t models.StockTable) models.StockTable {
	if t == nil {
		return models.StockTable{}
	}
	return t
}

func nonNilRemovals(r models.RemovalReport) models.RemovalReport {
	if r == nil {
		return models.RemovalReport{}
	}
	return r
}

func nonNilTotals(t models.TotalTaken) models.TotalTaken {
	if t == nil {
		return models.TotalTaken{}
	}
	return t
}
