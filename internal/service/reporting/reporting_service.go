package reporting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/warehouse/internal/domain/models"
	"github.com/mamadbah2/warehouse/internal/service/ledger"
	client "github.com/mamadbah2/warehouse/pkg/clients/whatsapp"
)

const (
	stockMirrorRange = "Stock!A:D"
	dateTimeLayout   = "2006-01-02 15:04"
	topRemovedLimit  = 5
)

// StockSource is the read side of the ledger the digest is built from.
type StockSource interface {
	Report(kind models.ReportKind) models.ReportView
}

// SnapshotSink stores digests, e.g. the Mongo archive.
type SnapshotSink interface {
	SaveSnapshot(ctx context.Context, digest models.StockDigest) error
}

// SheetWriter appends rows to a spreadsheet range.
type SheetWriter interface {
	WriteRows(ctx context.Context, sheetRange string, rows [][]interface{}) error
}

// Option configures optional digest sinks.
type Option func(*Service)

// WithSnapshotSink stores every published digest.
func WithSnapshotSink(sink SnapshotSink) Option {
	return func(s *Service) { s.snapshots = sink }
}

// WithSheetMirror appends one row per item to the stock sheet.
func WithSheetMirror(writer SheetWriter) Option {
	return func(s *Service) { s.sheet = writer }
}

// WithMessenger sends the formatted digest to recipient.
func WithMessenger(messenger client.Client, recipient string) Option {
	return func(s *Service) {
		s.messenger = messenger
		s.recipient = recipient
	}
}

// Service builds stock digests and fans them out to the configured sinks.
type Service struct {
	source    StockSource
	snapshots SnapshotSink
	sheet     SheetWriter
	messenger client.Client
	recipient string
	logger    *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(source StockSource, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{source: source, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildDigest summarises the current stock and removal totals.
func (s *Service) BuildDigest(now time.Time) models.StockDigest {
	view := s.source.Report(models.ReportTotal)

	digest := models.StockDigest{
		GeneratedAt: now,
		Items:       len(view.Stock),
		Units:       view.Stock.Units(),
		LowStock:    []models.ItemQuantity{},
		HighStock:   []models.ItemQuantity{},
		TopRemoved:  []models.ItemQuantity{},
		Stock:       view.Stock,
		Totals:      view.Totals,
	}

	for item, qty := range view.Stock {
		switch {
		case ledger.IsLow(qty):
			digest.LowStock = append(digest.LowStock, models.ItemQuantity{Item: item, Quantity: qty})
		case ledger.IsHigh(qty):
			digest.HighStock = append(digest.HighStock, models.ItemQuantity{Item: item, Quantity: qty})
		}
	}
	sortAscending(digest.LowStock)
	sortDescending(digest.HighStock)

	for item, qty := range view.Totals {
		if qty > 0 {
			digest.TopRemoved = append(digest.TopRemoved, models.ItemQuantity{Item: item, Quantity: qty})
		}
	}
	sortDescending(digest.TopRemoved)
	if len(digest.TopRemoved) > topRemovedLimit {
		digest.TopRemoved = digest.TopRemoved[:topRemovedLimit]
	}

	return digest
}

// FormatDigest renders a digest as a short plain-text message.
func FormatDigest(d models.StockDigest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stock digest %s\n", d.GeneratedAt.Format(dateTimeLayout))
	fmt.Fprintf(&b, "Items: %d, units on hand: %d\n", d.Items, d.Units)
	fmt.Fprintf(&b, "Low stock (<%d): %s\n", ledger.LowStockThreshold, joinQuantities(d.LowStock))
	fmt.Fprintf(&b, "High stock (>%d): %s\n", ledger.HighStockThreshold, joinQuantities(d.HighStock))
	fmt.Fprintf(&b, "Most removed: %s", joinQuantities(d.TopRemoved))
	return b.String()
}

// Publish builds a digest and hands it to every configured sink. A failing
// sink does not stop the others; the first error is returned.
func (s *Service) Publish(ctx context.Context, now time.Time) (models.StockDigest, error) {
	digest := s.BuildDigest(now)
	var firstErr error

	record := func(sink string, err error) {
		if err == nil {
			s.logger.Debug("digest delivered", zap.String("sink", sink))
			return
		}
		s.logger.Error("digest delivery failed", zap.String("sink", sink), zap.Error(err))
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", sink, err)
		}
	}

	if s.snapshots != nil {
		record("mongodb", s.snapshots.SaveSnapshot(ctx, digest))
	}

	if s.sheet != nil {
		record("sheets", s.sheet.WriteRows(ctx, stockMirrorRange, mirrorRows(digest)))
	}

	if s.messenger != nil {
		_, err := s.messenger.SendTextMessage(ctx, client.SendTextMessageRequest{
			To:   s.recipient,
			Body: FormatDigest(digest),
		})
		record("whatsapp", err)
	}

	s.logger.Info("stock digest published",
		zap.Int("items", digest.Items),
		zap.Int("low_stock", len(digest.LowStock)),
		zap.Int("high_stock", len(digest.HighStock)))

	return digest, firstErr
}

func mirrorRows(d models.StockDigest) [][]interface{} {
	items := make([]string, 0, len(d.Stock))
	for item := range d.Stock {
		items = append(items, item)
	}
	sort.Strings(items)

	date := d.GeneratedAt.Format(dateTimeLayout)
	rows := make([][]interface{}, 0, len(items))
	for _, item := range items {
		rows = append(rows, []interface{}{date, item, d.Stock[item], d.Totals[item]})
	}
	return rows
}

func joinQuantities(list []models.ItemQuantity) string {
	if len(list) == 0 {
		return "none"
	}
	parts := make([]string, len(list))
	for i, iq := range list {
		parts[i] = fmt.Sprintf("%s %d", iq.Item, iq.Quantity)
	}
	return strings.Join(parts, ", ")
}

func sortAscending(list []models.ItemQuantity) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Quantity != list[j].Quantity {
			return list[i].Quantity < list[j].Quantity
		}
		return list[i].Item < list[j].Item
	})
}

func sortDescending(list []models.ItemQuantity) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Quantity != list[j].Quantity {
			return list[i].Quantity > list[j].Quantity
		}
		return list[i].Item < list[j].Item
	})
}
