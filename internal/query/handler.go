package query

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/marketlens-lab/marketlens/internal/aggregation"
	"github.com/marketlens-lab/marketlens/internal/core/catalog"
	httperr "github.com/marketlens-lab/marketlens/internal/core/errors"
	"github.com/marketlens-lab/marketlens/internal/refresh"
)

// RegisterRoutes registers the dashboard query API on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter, refresher *refresh.Refresher) {
	dashboard := r.Group("/dashboard")
	dashboard.GET("/kpi", s.handleKPI)
	dashboard.GET("/distribution", s.handleDistribution)
	dashboard.GET("/scatter", s.handleScatter)
	dashboard.GET("/brand", s.handleBrandPerformance)
	dashboard.GET("/product-type", s.handleProductTypePerformance)
	dashboard.GET("/heatmap", s.handleHeatmap)

	r.GET("/products", s.handleProducts)

	if refresher != nil {
		r.POST("/admin/refresh", handleRefresh(refresher))
	}
}

func (s *Service) handleKPI(c *gin.Context) {
	s.serveView(c, aggregation.Request{Kind: aggregation.ViewKPI})
}

func (s *Service) handleDistribution(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		// Malformed limits fall back to the default, like every other
		// numeric parameter.
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	s.serveView(c, aggregation.Request{
		Kind:      aggregation.ViewDistribution,
		Dimension: c.Query("type"),
		Limit:     limit,
	})
}

func (s *Service) handleScatter(c *gin.Context) {
	s.serveView(c, aggregation.Request{
		Kind:   aggregation.ViewScatter,
		Series: c.Query("type"),
	})
}

func (s *Service) handleBrandPerformance(c *gin.Context) {
	s.serveView(c, aggregation.Request{Kind: aggregation.ViewBrandPerformance})
}

func (s *Service) handleProductTypePerformance(c *gin.Context) {
	s.serveView(c, aggregation.Request{Kind: aggregation.ViewProductTypePerformance})
}

func (s *Service) handleHeatmap(c *gin.Context) {
	s.serveView(c, aggregation.Request{
		Kind:   aggregation.ViewHeatmap,
		Metric: c.Query("metric"),
	})
}

func (s *Service) serveView(c *gin.Context, req aggregation.Request) {
	view, err := s.View(req, c.Request.URL.Query())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view.Payload())
}

func (s *Service) handleProducts(c *gin.Context) {
	products, err := s.Products(c.Request.URL.Query())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func handleRefresh(refresher *refresh.Refresher) gin.HandlerFunc {
	return func(c *gin.Context) {
		generation, rows, err := refresher.RefreshNow(c.Request.Context())
		if err != nil {
			if errors.Is(err, refresh.ErrRefreshInFlight) {
				c.JSON(http.StatusConflict, httperr.ErrorResponse{
					ErrorType: httperr.HttpInternalError,
					Message:   "A refresh is already in progress",
				})
				return
			}
			slog.Error("Manual refresh failed", "error", err)
			c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Catalog refresh failed",
				Details:   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"generation": generation, "rows": rows})
	}
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnavailable):
		// Distinct from "zero matching records", which is a normal empty
		// result. Retryable: the first generation is still loading.
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpCatalogUnavailableError,
			Message:   "Catalog is still loading, retry shortly",
		})
	case errors.Is(err, aggregation.ErrUnknownView):
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpUnknownViewError,
			Message:   "Unsupported view kind or type parameter",
			Details:   err.Error(),
		})
	default:
		slog.Error("View computation failed", "error", err)
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   "Failed to compute view",
			Details:   err.Error(),
		})
	}
}
