package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/warehouse/internal/config"
	"github.com/mamadbah2/warehouse/internal/domain/models"
	"github.com/mamadbah2/warehouse/internal/repository/jsonfile"
)

type fakeStore struct {
	mu       sync.Mutex
	stock    models.StockTable
	removals models.RemovalReport
	totals   models.TotalTaken

	failStock    error
	failRemovals error
	failTotals   error
	writes       []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (f *fakeStore) LoadStock() (models.StockTable, error) { return f.stock.Clone(), nil }
func (f *fakeStore) LoadRemovals() (models.RemovalReport, error) { return f.removals.Clone(), nil }
func (f *fakeStore) LoadTotals() (models.TotalTaken, error) { return f.totals.Clone(), nil }

func (f *fakeStore) SaveStock(t models.StockTable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, "stock")
	if f.failStock != nil {
		return f.failStock
	}
	f.stock = t.Clone()
	return nil
}

func (f *fakeStore) SaveRemovals(r models.RemovalReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, "removals")
	if f.failRemovals != nil {
		return f.failRemovals
	}
	f.removals = r.Clone()
	return nil
}

func (f *fakeStore) SaveTotals(t models.TotalTaken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, "totals")
	if f.failTotals != nil {
		return f.failTotals
	}
	f.totals = t.Clone()
	return nil
}

type fakeRecorder struct {
	items  []string
	events []models.RemovalEvent
	err    error
}

func (f *fakeRecorder) RecordRemoval(_ context.Context, item string, event models.RemovalEvent) error {
	f.items = append(f.items, item)
	f.events = append(f.events, event)
	return f.err
}

var fixedNow = time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC)

func openTestLedger(t *testing.T, store Store, opts ...Option) *Ledger {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	l, err := Open(store, nil, opts...)
	require.NoError(t, err)
	return l
}

func requireTotalsMatchHistory(t *testing.T, l *Ledger) {
	t.Helper()
	removals := l.Removals()
	totals := l.Totals()
	require.Len(t, totals, len(removals))
	for item, events := range removals {
		var sum int
		for _, e := range events {
			sum += e.QuantityRemoved
		}
		require.Equal(t, sum, totals[item], "totals drifted for %s", item)
	}
}

func TestAddStock_AccumulatesPerItem(t *testing.T) {
	store := newFakeStore()
	l := openTestLedger(t, store)
	ctx := context.Background()

	adds := []struct {
		item string
		qty  int
	}{{"bolt", 10}, {"nail", 5}, {"bolt", 7}, {"Bolt", 1}, {"bolt", 83}}

	for _, a := range adds {
		_, err := l.AddStock(ctx, a.item, a.qty)
		require.NoError(t, err)
	}

	require.Equal(t, models.StockTable{"bolt": 100, "nail": 5, "Bolt": 1}, l.Stock())
	require.Equal(t, l.Stock(), store.stock)
}

func TestAddStock_RejectsInvalidInput(t *testing.T) {
	l := openTestLedger(t, newFakeStore())
	ctx := context.Background()

	_, err := l.AddStock(ctx, "", 5)
	require.ErrorIs(t, err, ErrInvalidItem)

	_, err = l.AddStock(ctx, "bolt", 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = l.AddStock(ctx, "bolt", -3)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	require.True(t, IsValidation(err))
	require.Empty(t, l.Stock())
}

func TestAddStock_PersistFailureRestoresMemory(t *testing.T) {
	store := newFakeStore()
	l := openTestLedger(t, store)
	ctx := context.Background()

	_, err := l.AddStock(ctx, "bolt", 10)
	require.NoError(t, err)

	store.failStock = errors.New("disk full")
	_, err = l.AddStock(ctx, "bolt", 5)
	require.Error(t, err)
	require.False(t, IsValidation(err))

	_, err = l.AddStock(ctx, "nail", 5)
	require.Error(t, err)

	require.Equal(t, models.StockTable{"bolt": 10}, l.Stock())
}

func TestRemoveStock_Scenario(t *testing.T) {
	store := newFakeStore()
	l := openTestLedger(t, store)
	ctx := context.Background()

	stock, err := l.AddStock(ctx, "bolt", 100)
	require.NoError(t, err)
	require.Equal(t, models.StockTable{"bolt": 100}, stock)

	stock, err = l.RemoveStock(ctx, "bolt", 30)
	require.NoError(t, err)
	require.Equal(t, models.StockTable{"bolt": 70}, stock)

	report := l.Removals()
	require.Len(t, report["bolt"], 1)
	require.Equal(t, 30, report["bolt"][0].QuantityRemoved)
	require.Equal(t, "2026-10-15 09:30:00", report["bolt"][0].Date)
	require.Equal(t, 30, l.Totals()["bolt"])

	_, err = l.RemoveStock(ctx, "bolt", 1000)
	require.ErrorIs(t, err, ErrInsufficientStock)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, 70, vErr.Available)
	require.Equal(t, "bolt", vErr.Item)

	require.Equal(t, models.StockTable{"bolt": 70}, l.Stock())
	require.Len(t, l.Removals()["bolt"], 1)
	require.Equal(t, 30, l.Totals()["bolt"])
	requireTotalsMatchHistory(t, l)
}

func TestRemoveStock_PersistsTablesInOrder(t *testing.T) {
	store := newFakeStore()
	l := openTestLedger(t, store)
	ctx := context.Background()

	_, err := l.AddStock(ctx, "bolt", 10)
	require.NoError(t, err)
	store.writes = nil

	_, err = l.RemoveStock(ctx, "bolt", 4)
	require.NoError(t, err)
	require.Equal(t, []string{"stock", "removals", "totals"}, store.writes)
	require.Equal(t, 6, store.stock["bolt"])
	require.Len(t, store.removals["bolt"], 1)
	require.Equal(t, 4, store.totals["bolt"])
}

func TestRemoveStock_ExactAndZeroQuantities(t *testing.T) {
	l := openTestLedger(t, newFakeStore())
	ctx := context.Background()

	_, err := l.AddStock(ctx, "washer", 12)
	require.NoError(t, err)

	stock, err := l.RemoveStock(ctx, "washer", 12)
	require.NoError(t, err)
	require.Equal(t, 0, stock["washer"])

	stock, err = l.RemoveStock(ctx, "washer", 0)
	require.NoError(t, err)
	require.Equal(t, 0, stock["washer"])

	events := l.Removals()["washer"]
	require.Len(t, events, 2)
	require.Equal(t, 0, events[1].QuantityRemoved)
	require.Equal(t, 12, l.Totals()["washer"])
	requireTotalsMatchHistory(t, l)
}

func TestRemoveStock_UnknownItem(t *testing.T) {
	l := openTestLedger(t, newFakeStore())

	_, err := l.RemoveStock(context.Background(), "ghost", 1)
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Empty(t, l.Stock())
	require.Empty(t, l.Removals())
	require.Empty(t, l.Totals())
}

func TestRemoveStock_RejectsNegativeQuantity(t *testing.T) {
	l := openTestLedger(t, newFakeStore())

	_, err := l.RemoveStock(context.Background(), "bolt", -1)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestRemoveStock_PartialWriteRollsBack(t *testing.T) {
	cases := []struct {
		name       string
		breakStore func(*fakeStore)
	}{
		{name: "stock", breakStore: func(s *fakeStore) { s.failStock = errors.New("boom") }},
		{name: "removals", breakStore: func(s *fakeStore) { s.failRemovals = errors.New("boom") }},
		{name: "totals", breakStore: func(s *fakeStore) { s.failTotals = errors.New("boom") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			recorder := &fakeRecorder{}
			l := openTestLedger(t, store, WithRecorder(recorder))
			ctx := context.Background()

			_, err := l.AddStock(ctx, "bolt", 50)
			require.NoError(t, err)
			_, err = l.RemoveStock(ctx, "bolt", 10)
			require.NoError(t, err)

			tc.breakStore(store)
			_, err = l.RemoveStock(ctx, "bolt", 5)
			require.Error(t, err)
			require.False(t, IsValidation(err))

			require.Equal(t, models.StockTable{"bolt": 40}, l.Stock())
			require.Len(t, l.Removals()["bolt"], 1)
			require.Equal(t, 10, l.Totals()["bolt"])
			require.Len(t, recorder.items, 1)
			requireTotalsMatchHistory(t, l)
		})
	}
}

func TestRemoveStock_NotifiesRecorder(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("archive offline")}
	l := openTestLedger(t, newFakeStore(), WithRecorder(recorder))
	ctx := context.Background()

	_, err := l.AddStock(ctx, "bolt", 5)
	require.NoError(t, err)

	_, err = l.RemoveStock(ctx, "bolt", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"bolt"}, recorder.items)
	require.Equal(t, 2, recorder.events[0].QuantityRemoved)
}

func TestFilter_Thresholds(t *testing.T) {
	l := openTestLedger(t, newFakeStore())
	ctx := context.Background()

	for item, qty := range map[string]int{"a": 49, "b": 50, "c": 500, "d": 501, "e": 1} {
		_, err := l.AddStock(ctx, item, qty)
		require.NoError(t, err)
	}

	low := l.Filter(models.FilterLow)
	require.Equal(t, models.StockTable{"a": 49, "e": 1}, low.Subset)
	require.Len(t, low.Stock, 5)

	high := l.Filter(models.FilterHigh)
	require.Equal(t, models.StockTable{"d": 501}, high.Subset)

	none := l.Filter(models.FilterNone)
	require.Nil(t, none.Subset)
	require.Len(t, none.Stock, 5)
}

func TestFilter_NailScenario(t *testing.T) {
	l := openTestLedger(t, newFakeStore())

	_, err := l.AddStock(context.Background(), "nail", 40)
	require.NoError(t, err)

	require.Equal(t, models.StockTable{"nail": 40}, l.Filter(models.FilterLow).Subset)
	require.Equal(t, models.StockTable{}, l.Filter(models.FilterHigh).Subset)
}

func TestReport_Kinds(t *testing.T) {
	l := openTestLedger(t, newFakeStore())
	ctx := context.Background()

	_, err := l.AddStock(ctx, "bolt", 10)
	require.NoError(t, err)
	_, err = l.RemoveStock(ctx, "bolt", 3)
	require.NoError(t, err)

	monthly := l.Report(models.ReportMonthly)
	require.Len(t, monthly.Removals["bolt"], 1)
	require.Nil(t, monthly.Totals)

	total := l.Report(models.ReportTotal)
	require.Equal(t, models.TotalTaken{"bolt": 3}, total.Totals)
	require.Nil(t, total.Removals)

	plain := l.Report(models.ReportNone)
	require.Equal(t, models.StockTable{"bolt": 7}, plain.Stock)
	require.Nil(t, plain.Removals)
	require.Nil(t, plain.Totals)
}

func TestSnapshot_ReturnsIndependentCopies(t *testing.T) {
	l := openTestLedger(t, newFakeStore())
	ctx := context.Background()

	_, err := l.AddStock(ctx, "bolt", 10)
	require.NoError(t, err)
	_, err = l.RemoveStock(ctx, "bolt", 1)
	require.NoError(t, err)

	raw, err := l.Snapshot(models.TableStock)
	require.NoError(t, err)
	stock := raw.(models.StockTable)
	stock["bolt"] = 999
	require.Equal(t, 9, l.Quantity("bolt"))

	raw, err = l.Snapshot(models.TableReport)
	require.NoError(t, err)
	require.Len(t, raw.(models.RemovalReport)["bolt"], 1)

	raw, err = l.Snapshot(models.TableTotal)
	require.NoError(t, err)
	require.Equal(t, models.TotalTaken{"bolt": 1}, raw)

	_, err = l.Snapshot("inventory")
	require.ErrorIs(t, err, ErrUnknownTable)
}

func TestConcurrentMutations_AreSerialised(t *testing.T) {
	l := openTestLedger(t, newFakeStore())
	ctx := context.Background()

	_, err := l.AddStock(ctx, "bolt", 1000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = l.AddStock(ctx, "bolt", 2)
		}()
		go func() {
			defer wg.Done()
			_, _ = l.RemoveStock(ctx, "bolt", 3)
		}()
	}
	wg.Wait()

	require.Equal(t, 1000+50*2-50*3, l.Quantity("bolt"))
	require.Equal(t, 150, l.Totals()["bolt"])
	require.Len(t, l.Removals()["bolt"], 50)
	requireTotalsMatchHistory(t, l)
}

func TestOpen_ReloadsFromFiles(t *testing.T) {
	store, err := jsonfile.NewStore(config.StorageConfig{
		DataDir:        t.TempDir(),
		WarehouseFile:  "warehouse.json",
		ReportFile:     "monthly_report.json",
		TotalTakenFile: "total_taken.json",
	}, nil)
	require.NoError(t, err)

	first := openTestLedger(t, store)
	ctx := context.Background()
	_, err = first.AddStock(ctx, "bolt", 100)
	require.NoError(t, err)
	_, err = first.RemoveStock(ctx, "bolt", 30)
	require.NoError(t, err)

	second := openTestLedger(t, store)
	require.Equal(t, models.StockTable{"bolt": 70}, second.Stock())
	require.Equal(t, models.TotalTaken{"bolt": 30}, second.Totals())
	require.Equal(t, first.Removals(), second.Removals())
}
