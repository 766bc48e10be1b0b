package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testRecords() []Record {
	return []Record{
		{ID: "p1", Brand: "Aurel", ProductType: "serum", Platform: PlatformShopee, PriceMinor: 10000, UnitsSold: 2, Rating: 4.5, Discount: 0.1},
		{ID: "p2", Brand: "Aurel", ProductType: "toner", Platform: PlatformTikTok, PriceMinor: 5000, UnitsSold: 1, Rating: 4.0, Discount: 0.2},
		{ID: "p3", Brand: "Belle", ProductType: "serum", Platform: PlatformLazada, PriceMinor: 20000, UnitsSold: 5, Rating: 3.5, Discount: 0.0},
	}
}

func TestStore_SnapshotUnavailableBeforeFirstLoad(t *testing.T) {
	st := NewStore()

	_, err := st.Snapshot()
	require.ErrorIs(t, err, ErrUnavailable)
	require.Equal(t, uint64(0), st.Generation())
}

func TestStore_LoadPublishesNewGeneration(t *testing.T) {
	st := NewStore()

	gen, dropped := st.Load(testRecords())
	require.Equal(t, uint64(1), gen)
	require.Zero(t, dropped)

	snap, err := st.Snapshot()
	require.NoError(t, err)
	require.Equal(t, uint64(1), snap.Generation())
	require.Equal(t, 3, snap.Len())

	// Snapshots are replaced wholesale: the old one stays intact for
	// readers still holding it.
	gen2, _ := st.Load(testRecords()[:1])
	require.Equal(t, uint64(2), gen2)
	require.Equal(t, 3, snap.Len())

	snap2, err := st.Snapshot()
	require.NoError(t, err)
	require.Equal(t, uint64(2), snap2.Generation())
	require.Equal(t, 1, snap2.Len())
}

func TestStore_LoadDropsInvalidRecords(t *testing.T) {
	records := append(testRecords(),
		Record{ID: "bad-rating", Brand: "X", ProductType: "serum", PriceMinor: 100, Rating: 7},
		Record{ID: "bad-discount", Brand: "X", ProductType: "serum", PriceMinor: 100, Discount: 1.5},
		Record{ID: "", Brand: "X", ProductType: "serum", PriceMinor: 100},
		Record{ID: "bad-price", Brand: "X", ProductType: "serum", PriceMinor: -1},
	)

	st := NewStore()
	_, dropped := st.Load(records)
	require.Equal(t, 4, dropped)

	snap, err := st.Snapshot()
	require.NoError(t, err)
	require.Equal(t, 3, snap.Len())
}

func TestSnapshot_DictionaryEncoding(t *testing.T) {
	st := NewStore()
	st.Load(testRecords())
	snap, err := st.Snapshot()
	require.NoError(t, err)

	require.ElementsMatch(t, []string{"Aurel", "Belle"}, snap.Brands())
	require.ElementsMatch(t, []string{"serum", "toner"}, snap.ProductTypes())

	// Record round-trips through the columnar layout.
	rec := snap.Record(0)
	require.Equal(t, "p1", rec.ID)
	require.Equal(t, "Aurel", rec.Brand)
	require.Equal(t, "serum", rec.ProductType)
	require.Equal(t, PlatformShopee, rec.Platform)
	require.Equal(t, int64(10000), rec.PriceMinor)
	require.Equal(t, int64(2), rec.UnitsSold)
}

func TestParsePlatform(t *testing.T) {
	for _, name := range []string{"tiktok", "shopee", "tokopedia", "lazada", "blibli"} {
		p, ok := ParsePlatform(name)
		require.True(t, ok, name)
		require.Equal(t, name, p.String())
	}

	p, ok := ParsePlatform("Shopee ")
	require.True(t, ok)
	require.Equal(t, PlatformShopee, p)

	_, ok = ParsePlatform("amazon")
	require.False(t, ok)
}
