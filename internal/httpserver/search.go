package httpserver

import (
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/mimercado/marketplace/internal/catalog"
	"github.com/mimercado/marketplace/internal/logging"
	"github.com/mimercado/marketplace/internal/search"
	"github.com/mimercado/marketplace/internal/util"
)

type SearchHTTP struct {
	ES      *elasticsearch.Client
	Index   string
	Catalog *catalog.Service
}

// Search uses the full-text index when one is configured and falls
// back to a database scan of the active catalog otherwise.
func (h *SearchHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search")

	q := c.QueryParam("q")
	if q == "" {
		return c.JSON(http.StatusBadRequest, "q required")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	if h.ES != nil {
		total, items, err := search.Search(ctx, h.ES, h.Index, q, offset, limit)
		if err == nil {
			return c.JSON(http.StatusOK, map[string]any{
				"data": items,
				"meta": map[string]any{"page": page, "size": limit, "total": total},
			})
		}
		l.Warn("elasticsearch failed, falling back to db", "error", err)
	}

	total, items, err := h.Catalog.ListActive(ctx, catalog.ListFilter{Query: q}, offset, limit)
	if err != nil {
		l.Error("search_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{"page": page, "size": limit, "total": total},
	})
}
