package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/warehouse/internal/domain/models"
	"github.com/mamadbah2/warehouse/internal/server/views"
	"github.com/mamadbah2/warehouse/internal/service/ledger"
)

// Inventory describes the ledger operations the HTTP layer can perform.
type Inventory interface {
	AddStock(ctx context.Context, item string, quantity int) (models.StockTable, error)
	RemoveStock(ctx context.Context, item string, quantity int) (models.StockTable, error)
	Quantity(item string) int
	Stock() models.StockTable
	Filter(mode models.FilterMode) models.FilterView
	Report(kind models.ReportKind) models.ReportView
	Snapshot(table models.TableKind) (any, error)
}

// indexPage is the data handed to the index template.
type indexPage struct {
	Stock         models.StockTable
	Message       string
	Error         string
	LowThreshold  int
	HighThreshold int

	ShowLow    bool
	LowStock   models.StockTable
	ShowHigh   bool
	HighStock  models.StockTable
	ShowReport bool
	Report     models.RemovalReport
	ShowTotals bool
	TotalTaken models.TotalTaken
}

type editPage struct {
	Item     string
	Quantity int
	Error    string
}

// InventoryHandler serves the warehouse pages and the JSON snapshot endpoints.
type InventoryHandler struct {
	inventory Inventory
	logger    *zap.Logger
}

// NewInventoryHandler constructs the HTTP handler adapter.
func NewInventoryHandler(inventory Inventory, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{inventory: inventory, logger: logger}
}

// Home shows the current stock table.
func (h *InventoryHandler) Home(c *gin.Context) {
	h.renderIndex(c, http.StatusOK, newIndexPage(h.inventory.Stock()))
}

// Add adds stock from the item/quantity form.
func (h *InventoryHandler) Add(c *gin.Context) {
	item := strings.TrimSpace(c.PostForm("item"))

	quantity, err := ledger.ParseAddQuantity(c.PostForm("quantity"))
	if err != nil {
		h.logger.Warn("rejected add request", zap.String("item", item), zap.String("quantity", c.PostForm("quantity")))
		page := newIndexPage(h.inventory.Stock())
		page.Error = "Enter a whole number greater than zero."
		h.renderIndex(c, http.StatusBadRequest, page)
		return
	}

	stock, err := h.inventory.AddStock(c.Request.Context(), item, quantity)
	if err != nil {
		var status int
		var message string
		switch {
		case errors.Is(err, ledger.ErrInvalidItem):
			status, message = http.StatusBadRequest, "Enter an item name."
		case ledger.IsValidation(err):
			status, message = http.StatusBadRequest, "Quantity is too large."
		default:
			h.logger.Error("failed adding stock", zap.String("item", item), zap.Error(err))
			status, message = http.StatusInternalServerError, "Stock could not be saved, try again."
		}
		page := newIndexPage(h.inventory.Stock())
		page.Error = message
		h.renderIndex(c, status, page)
		return
	}

	page := newIndexPage(stock)
	page.Message = fmt.Sprintf("'%s' added with quantity %d.", item, quantity)
	h.renderIndex(c, http.StatusOK, page)
}

// Filter shows the stock table with the low or high subset.
func (h *InventoryHandler) Filter(c *gin.Context) {
	mode := models.ParseFilterMode(c.Query("filter"))
	view := h.inventory.Filter(mode)

	page := newIndexPage(view.Stock)
	switch mode {
	case models.FilterLow:
		page.ShowLow, page.LowStock = true, view.Subset
	case models.FilterHigh:
		page.ShowHigh, page.HighStock = true, view.Subset
	}

	h.renderIndex(c, http.StatusOK, page)
}

// EditForm shows the take-stock form with the quantity on hand.
func (h *InventoryHandler) EditForm(c *gin.Context) {
	item := itemParam(c)
	h.renderEdit(c, http.StatusOK, editPage{Item: item, Quantity: h.inventory.Quantity(item)})
}

// Take removes stock for the item in the path. On success it redirects to
// the index; on failure it redisplays the form with the quantity on hand.
func (h *InventoryHandler) Take(c *gin.Context) {
	item := itemParam(c)

	quantity, err := ledger.ParseRemovalQuantity(c.PostForm("quantity"))
	if err != nil {
		h.renderEdit(c, http.StatusBadRequest, editPage{
			Item:     item,
			Quantity: h.inventory.Quantity(item),
			Error:    "Enter a valid quantity.",
		})
		return
	}

	if _, err := h.inventory.RemoveStock(c.Request.Context(), item, quantity); err != nil {
		var vErr *ledger.ValidationError
		switch {
		case errors.Is(err, ledger.ErrInsufficientStock) && errors.As(err, &vErr):
			h.renderEdit(c, http.StatusUnprocessableEntity, editPage{
				Item:     item,
				Quantity: vErr.Available,
				Error:    fmt.Sprintf("Not enough %s in stock.", item),
			})
		case ledger.IsValidation(err):
			h.renderEdit(c, http.StatusBadRequest, editPage{
				Item:     item,
				Quantity: h.inventory.Quantity(item),
				Error:    "Enter a valid quantity.",
			})
		default:
			h.logger.Error("failed removing stock", zap.String("item", item), zap.Error(err))
			h.renderEdit(c, http.StatusInternalServerError, editPage{
				Item:     item,
				Quantity: h.inventory.Quantity(item),
				Error:    "Stock could not be saved, try again.",
			})
		}
		return
	}

	c.Redirect(http.StatusFound, "/")
}

// itemParam returns the item name from the last path segment. The segment is
// decoded with path rules so '+' stays a plus sign and %2F becomes '/'.
func itemParam(c *gin.Context) string {
	escaped := c.Request.URL.EscapedPath()
	item, err := url.PathUnescape(escaped[strings.LastIndex(escaped, "/")+1:])
	if err != nil {
		return c.Param("item")
	}
	return item
}

// Reports shows the stock table with the removal history or the totals.
func (h *InventoryHandler) Reports(c *gin.Context) {
	view := h.inventory.Report(models.ParseReportKind(c.Query("type")))

	page := newIndexPage(view.Stock)
	switch view.Kind {
	case models.ReportMonthly:
		page.ShowReport, page.Report = true, view.Removals
	case models.ReportTotal:
		page.ShowTotals, page.TotalTaken = true, view.Totals
	}

	h.renderIndex(c, http.StatusOK, page)
}

// Snapshot serves one ledger table as JSON.
func (h *InventoryHandler) Snapshot(table models.TableKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := h.inventory.Snapshot(table)
		if err != nil {
			h.logger.Error("failed reading snapshot", zap.String("table", string(table)), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "snapshot unavailable"})
			return
		}
		c.JSON(http.StatusOK, data)
	}
}

func newIndexPage(stock models.StockTable) indexPage {
	return indexPage{
		Stock:         stock,
		LowThreshold:  ledger.LowStockThreshold,
		HighThreshold: ledger.HighStockThreshold,
	}
}

func (h *InventoryHandler) renderIndex(c *gin.Context, status int, page indexPage) {
	c.HTML(status, views.Index, page)
}

func (h *InventoryHandler) renderEdit(c *gin.Context, status int, page editPage) {
	c.HTML(status, views.Edit, page)
}
