package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/service"
)

// OrderHandler serves orders and their deliveries.
type OrderHandler struct {
	Orders   *service.OrderService
	Delivery *service.DeliveryService
}

func NewOrderHandler(orders *service.OrderService, deliveries *service.DeliveryService) *OrderHandler {
	return &OrderHandler{Orders: orders, Delivery: deliveries}
}

type createOrderReq struct {
	Items []model.OrderLine `json:"items"`
}

type statusReq struct {
	Status string `json:"status"`
}

func orderFilter(c echo.Context) (model.OrderFilter, error) {
	q := querySet{c: c}
	var f model.OrderFilter
	if s := q.str("status"); s != nil {
		st := model.OrderStatus(*s)
		f.Status = &st
	}
	f.UserID = q.uint("user_id")
	f.DateFrom, f.DateTo = q.dateRange()
	f.Limit = q.limit()
	return f, q.err
}

// Create places an order on behalf of the caller.
func (h *OrderHandler) Create(c echo.Context) error {
	var req createOrderReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	o, err := h.Orders.Create(ctx, actor(c), req.Items)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *OrderHandler) List(c echo.Context) error {
	f, err := orderFilter(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	orders, err := h.Orders.List(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) Get(c echo.Context) error {
	id, err := pathID(c, "order")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	o, err := h.Orders.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) Statistics(c echo.Context) error {
	f, err := orderFilter(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	st, err := h.Orders.Statistics(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c, "order")
	if err != nil {
		return err
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	o, err := h.Orders.UpdateStatus(ctx, id, model.OrderStatus(req.Status), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "order")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	o, err := h.Orders.Cancel(ctx, id, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, o)
}

// Deliveries lists the deliveries of one order.
func (h *OrderHandler) Deliveries(c echo.Context) error {
	id, err := pathID(c, "order")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	ds, err := h.Delivery.ListByOrder(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ds)
}
