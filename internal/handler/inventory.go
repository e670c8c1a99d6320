package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/service"
)

// InventoryHandler exposes the stock ledger, read only.
type InventoryHandler struct {
	Ledger *service.InventoryService
}

func NewInventoryHandler(ledger *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{Ledger: ledger}
}

func (h *InventoryHandler) List(c echo.Context) error {
	q := querySet{c: c}
	var f model.InventoryLogFilter
	f.ProductID = q.uint("product_id")
	f.UserID = q.uint("user_id")
	if s := q.str("change_type"); s != nil {
		ct := model.ChangeType(*s)
		f.ChangeType = &ct
	}
	f.DateFrom, f.DateTo = q.dateRange()
	f.Limit = q.limit()
	if q.err != nil {
		return q.err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	entries, err := h.Ledger.List(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *InventoryHandler) Get(c echo.Context) error {
	id, err := pathID(c, "log")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.Ledger.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}
