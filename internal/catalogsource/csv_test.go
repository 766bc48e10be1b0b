package catalogsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/marketlens-lab/marketlens/internal/core/catalog"
	"github.com/stretchr/testify/require"
)

func writeCatalogFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestCSVSource_Fetch(t *testing.T) {
	path := writeCatalogFile(t, `id,brand,product_type,source_platform,price_effective,quantity_sold,rating,discount
p1,Aurel,serum,Shopee,10000,2,4.5,0.10
p2,Aurel,toner,TikTok,5000,1,4.0,0.20
`)

	records, err := NewCSVSource(path).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, catalog.Record{
		ID:          "p1",
		Brand:       "Aurel",
		ProductType: "serum",
		Platform:    catalog.PlatformShopee,
		PriceMinor:  10000,
		UnitsSold:   2,
		Rating:      4.5,
		Discount:    0.10,
	}, records[0])
}

func TestCSVSource_HeaderAliasesAndColumnOrder(t *testing.T) {
	path := writeCatalogFile(t, `platform,units_sold,price,brand,product_type,id
Lazada,3,2500,Belle,mask,p9
`)

	records, err := NewCSVSource(path).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "p9", records[0].ID)
	require.Equal(t, catalog.PlatformLazada, records[0].Platform)
	require.Equal(t, int64(2500), records[0].PriceMinor)
	require.Equal(t, int64(3), records[0].UnitsSold)
}

func TestCSVSource_SkipsMalformedRows(t *testing.T) {
	path := writeCatalogFile(t, `id,brand,product_type,price,quantity_sold
p1,Aurel,serum,10000,2
p2,Aurel,toner,not-a-price,1
p3,Belle,serum,20000,not-a-count
p4,Citra,mask,2000,0
`)

	records, err := NewCSVSource(path).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "p1", records[0].ID)
	require.Equal(t, "p4", records[1].ID)
}

func TestCSVSource_MintsMissingIDs(t *testing.T) {
	path := writeCatalogFile(t, `id,brand,product_type,price
,Aurel,serum,10000
`)

	records, err := NewCSVSource(path).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotEmpty(t, records[0].ID)
}

func TestCSVSource_MissingRequiredColumn(t *testing.T) {
	path := writeCatalogFile(t, `id,brand,price
p1,Aurel,10000
`)

	_, err := NewCSVSource(path).Fetch(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "product_type")
}

func TestCSVSource_MissingFile(t *testing.T) {
	_, err := NewCSVSource(filepath.Join(t.TempDir(), "missing.csv")).Fetch(context.Background())
	require.Error(t, err)
}

func TestCSVSource_CancelledContext(t *testing.T) {
	path := writeCatalogFile(t, `id,brand,product_type,price
p1,Aurel,serum,10000
`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCSVSource(path).Fetch(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
