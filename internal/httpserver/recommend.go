package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mimercado/marketplace/internal/logging"
	"github.com/mimercado/marketplace/internal/recommend"
)

type RecommendHTTP struct {
	Svc *recommend.Service
}

func (h *RecommendHTTP) Similar(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "recommend.similar")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, "invalid id")
	}

	items, err := h.Svc.Similar(ctx, uint(id))
	if err != nil {
		if errors.Is(err, recommend.ErrNotFound) {
			return c.JSON(http.StatusNotFound, "producto no encontrado")
		}
		l.Error("similar_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, items)
}
