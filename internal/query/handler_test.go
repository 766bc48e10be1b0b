package query

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/marketlens-lab/marketlens/internal/aggregation"
	"github.com/marketlens-lab/marketlens/internal/core/catalog"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, records []catalog.Record) (*gin.Engine, *catalog.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := catalog.NewStore()
	if records != nil {
		_, dropped := store.Load(records)
		require.Zero(t, dropped)
	}

	svc := NewService(store, aggregation.NewEngine(2), aggregation.NewViewCache(16))
	r := gin.New()
	svc.RegisterRoutes(r, nil)
	return r, store
}

func catalogFixture() []catalog.Record {
	return []catalog.Record{
		{ID: "p1", Brand: "Aurel", ProductType: "serum", Platform: catalog.PlatformShopee, PriceMinor: 10000, UnitsSold: 2, Rating: 4.5, Discount: 0.10},
		{ID: "p2", Brand: "Aurel", ProductType: "toner", Platform: catalog.PlatformTikTok, PriceMinor: 5000, UnitsSold: 1, Rating: 4.0, Discount: 0.20},
		{ID: "p3", Brand: "Belle", ProductType: "serum", Platform: catalog.PlatformLazada, PriceMinor: 20000, UnitsSold: 5, Rating: 3.0, Discount: 0.00},
	}
}

func doGET(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHandlers_CatalogStillLoadingReturns503(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	for _, path := range []string{
		"/dashboard/kpi",
		"/dashboard/distribution",
		"/dashboard/scatter",
		"/dashboard/brand",
		"/dashboard/product-type",
		"/dashboard/heatmap",
		"/products",
	} {
		w := doGET(r, path)
		require.Equal(t, http.StatusServiceUnavailable, w.Code, path)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, "catalog_unavailable", body["error_type"], path)
	}
}

func TestHandlers_KPI(t *testing.T) {
	r, _ := newTestRouter(t, catalogFixture())

	w := doGET(r, "/dashboard/kpi?brand=Aurel")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		TotalProducts  int     `json:"total_products"`
		TotalUnitsSold int64   `json:"total_units_sold"`
		RevenueProxy   float64 `json:"revenue_proxy"`
		AvgPrice       float64 `json:"avg_price"`
		AvgRating      float64 `json:"avg_rating"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 2, body.TotalProducts)
	require.Equal(t, int64(3), body.TotalUnitsSold)
	require.Equal(t, float64(25000), body.RevenueProxy)
	require.Equal(t, float64(7500), body.AvgPrice)
	require.InDelta(t, 4.25, body.AvgRating, 1e-9)

	// Money fields are JSON numbers, not quoted strings.
	require.Contains(t, w.Body.String(), `"revenue_proxy":25000`)
	require.Contains(t, w.Body.String(), `"avg_price":7500`)
}

func TestHandlers_KPI_NoMatchesIsZeroedNotError(t *testing.T) {
	r, _ := newTestRouter(t, catalogFixture())

	w := doGET(r, "/dashboard/kpi?brand=NoSuchBrand")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.EqualValues(t, 0, body["total_products"])
}

func TestHandlers_DistributionKnobs(t *testing.T) {
	r, _ := newTestRouter(t, catalogFixture())

	w := doGET(r, "/dashboard/distribution?type=brand&limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	var entries []struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Equal(t, 1, len(entries))
	require.Equal(t, "Aurel", entries[0].Name)
	require.Equal(t, 2, entries[0].Count)

	// Unknown dimension is a client error, not a silent default.
	w = doGET(r, "/dashboard/distribution?type=platform")
	require.Equal(t, http.StatusBadRequest, w.Code)

	var errBody map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errBody))
	require.Equal(t, "unknown_view", errBody["error_type"])

	// A malformed limit falls back to the default limit.
	w = doGET(r, "/dashboard/distribution?limit=lots")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandlers_EmptyViewsSerializeAsEmptyArray(t *testing.T) {
	r, _ := newTestRouter(t, catalogFixture())

	for _, path := range []string{
		"/dashboard/distribution?brand=NoSuchBrand",
		"/dashboard/brand?brand=NoSuchBrand",
		"/dashboard/product-type?brand=NoSuchBrand",
		"/dashboard/heatmap?brand=NoSuchBrand",
		"/dashboard/scatter?brand=NoSuchBrand",
		"/products?brand=NoSuchBrand",
	} {
		w := doGET(r, path)
		require.Equal(t, http.StatusOK, w.Code, path)
		require.Equal(t, "[]", w.Body.String(), path)
	}
}

func TestHandlers_ScatterSeriesParameter(t *testing.T) {
	r, _ := newTestRouter(t, catalogFixture())

	w := doGET(r, "/dashboard/scatter?type=discount_rating")
	require.Equal(t, http.StatusOK, w.Code)

	var points []struct {
		ID   string  `json:"id"`
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
		Name string  `json:"name"`
		Fill string  `json:"fill"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &points))
	require.Len(t, points, 3)
	require.Equal(t, "p1", points[0].ID)
	require.InDelta(t, 10, points[0].X, 1e-9)
	require.Equal(t, 4.5, points[0].Y)
	require.Equal(t, "Aurel", points[0].Name)
	require.NotEmpty(t, points[0].Fill)

	w = doGET(r, "/dashboard/scatter?type=bogus")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlers_HeatmapMetricParameter(t *testing.T) {
	r, _ := newTestRouter(t, catalogFixture())

	w := doGET(r, "/dashboard/heatmap?metric=rating")
	require.Equal(t, http.StatusOK, w.Code)

	var cells []struct {
		Brand       string  `json:"brand"`
		ProductType string  `json:"product_type"`
		Value       float64 `json:"value"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cells))
	require.Len(t, cells, 3)

	w = doGET(r, "/dashboard/heatmap?metric=revenue")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlers_ProductsListing(t *testing.T) {
	r, _ := newTestRouter(t, catalogFixture())

	w := doGET(r, "/products?platform=shopee")
	require.Equal(t, http.StatusOK, w.Code)

	var rows []ProductRow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "p1", rows[0].ID)
	require.Equal(t, "shopee", rows[0].SourcePlatform)
	require.Equal(t, int64(10000), rows[0].PriceEffective)
}

func TestHandlers_FilterParamsAffectCacheKey(t *testing.T) {
	r, _ := newTestRouter(t, catalogFixture())

	all := doGET(r, "/dashboard/kpi")
	aurel := doGET(r, "/dashboard/kpi?brand=Aurel")
	require.Equal(t, http.StatusOK, all.Code)
	require.Equal(t, http.StatusOK, aurel.Code)
	require.NotEqual(t, all.Body.String(), aurel.Body.String())

	// Identical filters in a different parameter order hit the same entry.
	again := doGET(r, "/dashboard/kpi?max_price=20000&brand=Aurel")
	reordered := doGET(r, "/dashboard/kpi?brand=Aurel&max_price=20000")
	require.Equal(t, again.Body.String(), reordered.Body.String())
}

func TestHandlers_GenerationAdvanceServesFreshData(t *testing.T) {
	r, store := newTestRouter(t, catalogFixture())

	w := doGET(r, "/dashboard/kpi")
	require.Equal(t, http.StatusOK, w.Code)

	var before map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &before))
	require.EqualValues(t, 3, before["total_products"])

	store.Load(catalogFixture()[:1])

	w = doGET(r, "/dashboard/kpi")
	require.Equal(t, http.StatusOK, w.Code)

	var after map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &after))
	require.EqualValues(t, 1, after["total_products"])
}
