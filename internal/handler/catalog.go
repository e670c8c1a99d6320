package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/backoffice-api/internal/model"
	"github.com/iliyamo/backoffice-api/internal/service"
)

// CatalogHandler serves categories and products.
type CatalogHandler struct {
	Catalog *service.CatalogService
	Returns *service.ReturnService
	Ledger  *service.InventoryService
}

func NewCatalogHandler(catalog *service.CatalogService, returns *service.ReturnService, ledger *service.InventoryService) *CatalogHandler {
	return &CatalogHandler{Catalog: catalog, Returns: returns, Ledger: ledger}
}

type categoryReq struct {
	Name string `json:"name"`
}

type stockReq struct {
	QuantityChange int              `json:"quantity_change"`
	ChangeType     model.ChangeType `json:"change_type"`
}

// ----- categories -----

func (h *CatalogHandler) ListCategories(c echo.Context) error {
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cs, err := h.Catalog.ListCategories(ctx, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *CatalogHandler) GetCategory(c echo.Context) error {
	id, err := pathID(c, "category")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cat, err := h.Catalog.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	var req categoryReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cat, err := h.Catalog.CreateCategory(ctx, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHandler) UpdateCategory(c echo.Context) error {
	id, err := pathID(c, "category")
	if err != nil {
		return err
	}
	var req categoryReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cat, err := h.Catalog.UpdateCategory(ctx, id, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHandler) DeleteCategory(c echo.Context) error {
	id, err := pathID(c, "category")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.DeleteCategory(ctx, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Category deleted successfully"})
}

// ----- products -----

func (h *CatalogHandler) ListProducts(c echo.Context) error {
	q := querySet{c: c}
	f := model.ProductFilter{
		CategoryID: q.uint("category_id"),
		PriceMin:   q.decimal("price_min"),
		PriceMax:   q.decimal("price_max"),
		Limit:      q.limit(),
	}
	if q.err != nil {
		return q.err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	ps, err := h.Catalog.ListProducts(ctx, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ps)
}

func (h *CatalogHandler) GetProduct(c echo.Context) error {
	id, err := pathID(c, "product")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Catalog.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) CreateProduct(c echo.Context) error {
	var in model.NewProduct
	if err := bind(c, &in); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Catalog.CreateProduct(ctx, actor(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *CatalogHandler) UpdateProduct(c echo.Context) error {
	id, err := pathID(c, "product")
	if err != nil {
		return err
	}
	var upd model.ProductUpdate
	if err := bind(c, &upd); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Catalog.UpdateProduct(ctx, actor(c), id, upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// AdjustStock applies a manual adjustment or a supplier restock.
func (h *CatalogHandler) AdjustStock(c echo.Context) error {
	id, err := pathID(c, "product")
	if err != nil {
		return err
	}
	var req stockReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.ChangeType == "" {
		req.ChangeType = model.ChangeAdjustment
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Catalog.AdjustStock(ctx, actor(c), id, req.QuantityChange, req.ChangeType)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHandler) DeleteProduct(c echo.Context) error {
	id, err := pathID(c, "product")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.DeleteProduct(ctx, actor(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Product deleted successfully"})
}

// ProductReturns lists the return requests of a product.
func (h *CatalogHandler) ProductReturns(c echo.Context) error {
	id, err := pathID(c, "product")
	if err != nil {
		return err
	}
	limit, err := queryLimit(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rs, err := h.Returns.ListByProduct(ctx, id, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rs)
}

// LastInventoryLog returns the latest ledger entry of a product.
func (h *CatalogHandler) LastInventoryLog(c echo.Context) error {
	id, err := pathID(c, "product")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.Ledger.Last(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}
