package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mimercado/marketplace/internal/auth"
	"github.com/mimercado/marketplace/internal/favorites"
	"github.com/mimercado/marketplace/internal/logging"
)

type FavoritesHTTP struct {
	Repo      *favorites.GormRepo
	JWTSecret []byte
}

func (h *FavoritesHTTP) Toggle(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "favorites.toggle")

	userID, err := auth.GetID(c, h.JWTSecret)
	if err != nil {
		l.Warn("toggle_favorite_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, "invalid id")
	}

	favorited, err := h.Repo.Toggle(ctx, userID, uint(id))
	if err != nil {
		if errors.Is(err, favorites.ErrNotFound) {
			return c.JSON(http.StatusNotFound, "producto no encontrado")
		}
		l.Error("toggle_favorite_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]any{"product_id": id, "favorited": favorited})
}

func (h *FavoritesHTTP) Wishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "favorites.wishlist")

	userID, err := auth.GetID(c, h.JWTSecret)
	if err != nil {
		l.Warn("wishlist_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	items, err := h.Repo.Wishlist(ctx, userID)
	if err != nil {
		l.Error("wishlist_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, items)
}
