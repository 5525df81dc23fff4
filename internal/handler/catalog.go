package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/service"
)

// CatalogHandler serves the public product catalog.  No authentication is
// required; inactive products are never returned.
type CatalogHandler struct {
	Catalog *service.CatalogService
}

// NewCatalogHandler returns a CatalogHandler backed by svc.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	if svc == nil {
		panic("nil catalog service passed to NewCatalogHandler")
	}
	return &CatalogHandler{Catalog: svc}
}

// SearchProducts handles GET /v1/products.  Optional query parameters:
// category, location, keyword, page and page_size.
func (h *CatalogHandler) SearchProducts(c echo.Context) error {
	q := model.ProductSearchQuery{
		Location: c.QueryParam("location"),
		Keyword:  c.QueryParam("keyword"),
	}
	if raw := c.QueryParam("category"); raw != "" {
		cat, err := model.ParseCategory(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category"})
		}
		q.Category = cat
	}
	var ok bool
	if q.Page, ok = queryInt(c, "page"); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid page"})
	}
	if q.PageSize, ok = queryInt(c, "page_size"); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid page_size"})
	}

	page, err := h.Catalog.Search(c.Request().Context(), q)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]ProductResponse, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, toProductResponse(p))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items":     items,
		"total":     page.Total,
		"page":      page.Page,
		"page_size": page.PageSize,
		"pages":     page.Pages(),
	})
}

// GetProduct handles GET /v1/products/:id.
func (h *CatalogHandler) GetProduct(c echo.Context) error {
	p, err := h.Catalog.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toProductResponse(p))
}

// queryInt parses an optional positive integer query parameter.  Missing
// parameters yield 0 so that paging defaults apply.
func queryInt(c echo.Context, name string) (int, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
