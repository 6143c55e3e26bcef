package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mimercado/marketplace/internal/assistant"
	"github.com/mimercado/marketplace/internal/auth"
	"github.com/mimercado/marketplace/internal/logging"
)

type AssistantHTTP struct {
	Svc       *assistant.Service
	JWTSecret []byte
}

func (h *AssistantHTTP) Chat(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "ai.chat")

	userID, err := auth.GetID(c, h.JWTSecret)
	if err != nil {
		l.Warn("chat_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	var req struct {
		Message      string `json:"message"`
		ClearHistory bool   `json:"clear_history"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("chat_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}

	if req.ClearHistory {
		h.Svc.ClearHistory(userID)
		return c.JSON(http.StatusOK, map[string]any{"history": []assistant.Turn{}})
	}

	reply, err := h.Svc.Chat(ctx, userID, req.Message)
	if err != nil {
		if errors.Is(err, assistant.ErrValidation) {
			return c.JSON(http.StatusBadRequest, "por favor escribe un mensaje válido")
		}
		l.Error("chat_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"reply":   reply,
		"history": h.Svc.History(userID),
	})
}

func (h *AssistantHTTP) SuggestPrice(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "ai.price_suggest")

	if _, err := auth.GetID(c, h.JWTSecret); err != nil {
		l.Warn("price_suggest_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, "unauthorized")
	}

	var req assistant.PriceSuggestRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("price_suggest_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}

	suggestion, err := h.Svc.SuggestPrice(ctx, req)
	if err != nil {
		if errors.Is(err, assistant.ErrValidation) {
			return c.JSON(http.StatusBadRequest, "el título es obligatorio")
		}
		l.Error("price_suggest_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, map[string]any{"suggestion": suggestion})
}
