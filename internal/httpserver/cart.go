package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mimercado/marketplace/internal/auth"
	"github.com/mimercado/marketplace/internal/cartops"
	"github.com/mimercado/marketplace/internal/events"
	"github.com/mimercado/marketplace/internal/logging"
	"github.com/mimercado/marketplace/internal/models"
	"github.com/mimercado/marketplace/internal/payments"
	"github.com/mimercado/marketplace/internal/receipts"
)

type CartHTTP struct {
	Svc       *cartops.CartService
	Users     *auth.Service
	Producer  *events.Producer
	JWTSecret []byte

	CheckoutURLs payments.CallbackURLs
}

func (h *CartHTTP) publish(c echo.Context, topic string, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

func cartError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, cartops.ErrValidation):
		return c.JSON(http.StatusBadRequest, "solicitud inválida")
	case errors.Is(err, cartops.ErrNotFound):
		return c.JSON(http.StatusNotFound, "producto o artículo no encontrado")
	case errors.Is(err, cartops.ErrInsufficientStock):
		return c.JSON(http.StatusConflict, "no hay stock suficiente")
	case errors.Is(err, cartops.ErrMinimumQuantity):
		return c.JSON(http.StatusConflict, "la cantidad mínima es 1; usa eliminar para quitar el artículo")
	case errors.Is(err, cartops.ErrEmptyCart):
		return c.JSON(http.StatusBadRequest, "tu carrito está vacío")
	case errors.Is(err, payments.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, "el servicio de pagos no está disponible, intenta más tarde")
	default:
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
}

func (h *CartHTTP) ViewCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.view")

	userID, err := auth.GetID(c, h.JWTSecret)
	if err != nil {
		l.Warn("view_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	cart, items, err := h.Svc.ViewCart(ctx, userID)
	if err != nil {
		l.Error("view_cart_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"cart_id": cart.ID,
		"items":   items,
	})
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	userID, err := auth.GetID(c, h.JWTSecret)
	if err != nil {
		l.Warn("add_to_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.AddToCart(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		l.Warn("add_to_cart_error", "error", err)
		return cartError(c, err)
	}

	h.publish(c, events.TopicCart, strconv.FormatUint(uint64(userID), 10), map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": req.ProductID,
		"quantity":  item.Quantity,
	})

	l.Info("item added to cart", "product_id", req.ProductID, "quantity", item.Quantity)
	return c.JSON(http.StatusCreated, item)
}

func (h *CartHTTP) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	userID, err := auth.GetID(c, h.JWTSecret)
	if err != nil {
		l.Warn("remove_from_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	productID, err := strconv.Atoi(c.Param("product_id"))
	if err != nil || productID <= 0 {
		l.Warn("remove_from_cart_error", "status", 400)
		return c.JSON(http.StatusBadRequest, "invalid product id")
	}

	item, err := h.Svc.RemoveFromCart(ctx, userID, uint(productID))
	if err != nil {
		l.Warn("remove_from_cart_error", "error", err)
		return cartError(c, err)
	}

	h.publish(c, events.TopicCart, strconv.FormatUint(uint64(userID), 10), map[string]any{
		"type":      "cart_item_removed",
		"userID":    userID,
		"productID": productID,
		"restored":  item.Quantity,
	})

	l.Info("item removed from cart", "product_id", productID, "restored", item.Quantity)
	return c.JSON(http.StatusOK, map[string]any{"deleted_item": productID, "restored_stock": item.Quantity})
}

func (h *CartHTTP) UpdateQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_quantity")

	userID, err := auth.GetID(c, h.JWTSecret)
	if err != nil {
		l.Warn("update_quantity_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	productID, err := strconv.Atoi(c.Param("product_id"))
	if err != nil || productID <= 0 {
		l.Warn("update_quantity_error", "status", 400)
		return c.JSON(http.StatusBadRequest, "invalid product id")
	}

	var req struct {
		Direction string `json:"direction"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("update_quantity_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.UpdateQuantity(ctx, userID, uint(productID), cartops.Direction(req.Direction))
	if err != nil {
		l.Warn("update_quantity_error", "error", err)
		return cartError(c, err)
	}

	h.publish(c, events.TopicCart, strconv.FormatUint(uint64(userID), 10), map[string]any{
		"type":         "cart_quantity_updated",
		"userID":       userID,
		"productID":    productID,
		"direction":    req.Direction,
		"new_quantity": item.Quantity,
	})

	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")

	userID, err := auth.GetID(c, h.JWTSecret)
	if err != nil {
		l.Warn("checkout_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	result, err := h.Svc.Checkout(ctx, userID, h.CheckoutURLs)
	if err != nil {
		l.Error("checkout_error", "error", err)
		return cartError(c, err)
	}

	h.publish(c, events.TopicOrder, strconv.FormatUint(uint64(userID), 10), map[string]any{
		"type":      "order_created",
		"userID":    userID,
		"orderID":   result.Order.ID,
		"reference": result.Order.Reference,
		"total":     result.Order.Total,
	})

	l.Info("checkout started", "order_id", result.Order.ID, "total", result.Order.Total)
	return c.JSON(http.StatusOK, map[string]any{
		"order_id":  result.Order.ID,
		"reference": result.Order.Reference,
		"total":     result.Order.Total,
		"init_url":  result.InitURL,
	})
}

func (h *CartHTTP) Receipt(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.receipt")

	userID, err := auth.GetID(c, h.JWTSecret)
	if err != nil {
		l.Warn("receipt_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	user, err := h.Users.GetUser(ctx, userID)
	if err != nil {
		l.Error("receipt_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	_, items, err := h.Svc.ViewCart(ctx, userID)
	if err != nil {
		l.Error("receipt_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	products := make(map[uint]models.Product, len(items))
	for _, it := range items {
		p, err := h.Svc.Repo.Product(ctx, it.ProductID)
		if err != nil {
			continue
		}
		products[it.ProductID] = *p
	}

	return c.JSON(http.StatusOK, receipts.Build(user, items, products))
}
