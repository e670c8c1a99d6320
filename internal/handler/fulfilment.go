package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/service"
)

// ReturnHandler serves return requests.
type ReturnHandler struct {
	Returns *service.ReturnService
}

func NewReturnHandler(returns *service.ReturnService) *ReturnHandler {
	return &ReturnHandler{Returns: returns}
}

func returnFilter(c echo.Context) (model.ReturnFilter, error) {
	q := querySet{c: c}
	var f model.ReturnFilter
	if s := q.str("status"); s != nil {
		st := model.ReturnStatus(*s)
		f.Status = &st
	}
	f.ProductID = q.uint("product_id")
	f.DateFrom, f.DateTo = q.dateRange()
	f.Limit = q.limit()
	return f, q.err
}

func (h *ReturnHandler) Create(c echo.Context) error {
	var in model.NewReturn
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Returns.Create(ctx, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *ReturnHandler) List(c echo.Context) error {
	f, err := returnFilter(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rs, err := h.Returns.List(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rs)
}

func (h *ReturnHandler) Get(c echo.Context) error {
	id, err := pathID(c, "return")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Returns.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (h *ReturnHandler) Statistics(c echo.Context) error {
	f, err := returnFilter(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	st, err := h.Returns.Statistics(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

// Process approves or rejects a return request.
func (h *ReturnHandler) Process(c echo.Context) error {
	id, err := pathID(c, "return")
	if err != nil {
		return err
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Returns.Process(ctx, id, model.ReturnStatus(req.Status), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (h *ReturnHandler) Refund(c echo.Context) error {
	id, err := pathID(c, "return")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Returns.Refund(ctx, id, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

// DeliveryHandler serves deliveries.
type DeliveryHandler struct {
	Deliveries *service.DeliveryService
}

func NewDeliveryHandler(deliveries *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{Deliveries: deliveries}
}

type createDeliveryReq struct {
	OrderID uint64 `json:"order_id"`
}

func (h *DeliveryHandler) Create(c echo.Context) error {
	var req createDeliveryReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Deliveries.Create(ctx, req.OrderID, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *DeliveryHandler) List(c echo.Context) error {
	q := querySet{c: c}
	var f model.DeliveryFilter
	if s := q.str("status"); s != nil {
		st := model.DeliveryStatus(*s)
		f.Status = &st
	}
	f.OrderID = q.uint("order_id")
	f.DateFrom, f.DateTo = q.dateRange()
	f.Limit = q.limit()
	if q.err != nil {
		return q.err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	ds, err := h.Deliveries.List(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ds)
}

func (h *DeliveryHandler) Get(c echo.Context) error {
	id, err := pathID(c, "delivery")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Deliveries.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DeliveryHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c, "delivery")
	if err != nil {
		return err
	}
	var req statusReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Deliveries.UpdateStatus(ctx, id, model.DeliveryStatus(req.Status), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}
