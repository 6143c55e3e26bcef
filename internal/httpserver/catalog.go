package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mimercado/marketplace/internal/auth"
	"github.com/mimercado/marketplace/internal/catalog"
	"github.com/mimercado/marketplace/internal/events"
	"github.com/mimercado/marketplace/internal/logging"
	"github.com/mimercado/marketplace/internal/util"
)

type CatalogHTTP struct {
	Svc       *catalog.Service
	Producer  *events.Producer
	JWTSecret []byte
}

func (h *CatalogHTTP) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicProduct, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func catalogError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, catalog.ErrValidation):
		return c.JSON(http.StatusBadRequest, "solicitud inválida")
	case errors.Is(err, catalog.ErrNotFound):
		return c.JSON(http.StatusNotFound, "producto no encontrado")
	case errors.Is(err, catalog.ErrForbidden):
		return c.JSON(http.StatusForbidden, "solo el vendedor puede modificar este producto")
	default:
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
}

func (h *CatalogHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	filter := catalog.ListFilter{
		Query:    c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Brand:    c.QueryParam("brand"),
	}

	total, items, err := h.Svc.ListActive(ctx, filter, offset, limit)
	if err != nil {
		l.Error("list_products_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *CatalogHTTP) MyProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.mine")

	userID, err := auth.GetID(c, h.JWTSecret)
	if err != nil {
		l.Warn("my_products_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	items, err := h.Svc.ListBySeller(ctx, userID)
	if err != nil {
		l.Error("my_products_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, "invalid id")
	}

	p, err := h.Svc.GetProduct(ctx, uint(id))
	if err != nil {
		l.Warn("get_product_error", "error", err)
		return catalogError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create")

	userID, err := auth.GetID(c, h.JWTSecret)
	if err != nil {
		l.Warn("create_product_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	var req catalog.CreateRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_product_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Svc.CreateProduct(ctx, userID, req)
	if err != nil {
		l.Warn("create_product_error", "error", err)
		return catalogError(c, err)
	}

	h.publish(c, strconv.FormatUint(uint64(userID), 10), map[string]any{
		"type":      "product_created",
		"productID": p.ID,
		"sellerID":  userID,
		"title":     p.Title,
	})

	l.Info("product created", "product_id", p.ID)
	return c.JSON(http.StatusCreated, p)
}

func (h *CatalogHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.patch")

	userID, err := auth.GetID(c, h.JWTSecret)
	if err != nil {
		l.Warn("patch_product_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, "invalid id")
	}

	var req catalog.PatchRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("patch_product_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Svc.PatchProduct(ctx, userID, uint(id), req)
	if err != nil {
		l.Warn("patch_product_error", "error", err)
		return catalogError(c, err)
	}

	h.publish(c, strconv.FormatUint(uint64(userID), 10), map[string]any{
		"type":      "product_updated",
		"productID": p.ID,
		"title":     p.Title,
	})

	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete")

	userID, err := auth.GetID(c, h.JWTSecret)
	if err != nil {
		l.Warn("delete_product_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, "invalid id")
	}

	if err := h.Svc.DeactivateProduct(ctx, userID, uint(id)); err != nil {
		l.Warn("delete_product_error", "error", err)
		return catalogError(c, err)
	}

	h.publish(c, strconv.FormatUint(uint64(userID), 10), map[string]any{
		"type":      "product_deactivated",
		"productID": id,
	})

	return c.NoContent(http.StatusNoContent)
}
