package catalog

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrUnavailable is returned by Snapshot before the first generation has
// been published. Callers should surface it as a retryable condition, not
// confuse it with an empty catalog (which is a valid snapshot).
var ErrUnavailable = errors.New("catalog: no generation loaded")

// Snapshot is one immutable generation of the catalog in columnar layout.
// Parallel arrays per field keep range/set filters off unrelated columns;
// brand, product type and platform columns are dictionary encoded so the
// aggregation engine can index partial arrays instead of hashing strings.
type Snapshot struct {
	generation uint64

	ids        []string
	priceMinor []int64
	units      []int64
	ratings    []float64
	discounts  []float64

	brandIDs  []int32
	typeIDs   []int32
	platforms []Platform

	brandDict []string
	typeDict  []string

	brandIndex map[string]int32
	typeIndex  map[string]int32
}

// Generation returns the monotonically increasing version tag of this snapshot.
func (s *Snapshot) Generation() uint64 { return s.generation }

// Len returns the number of rows in the snapshot.
func (s *Snapshot) Len() int { return len(s.priceMinor) }

// Brands returns the dictionary of distinct brand names.
func (s *Snapshot) Brands() []string { return s.brandDict }

// ProductTypes returns the dictionary of distinct product type names.
func (s *Snapshot) ProductTypes() []string { return s.typeDict }

// Record materializes row i back into a Record. Used by the listing
// endpoint; aggregation reads the columns directly.
func (s *Snapshot) Record(i int) Record {
	return Record{
		ID:          s.ids[i],
		Brand:       s.brandDict[s.brandIDs[i]],
		ProductType: s.typeDict[s.typeIDs[i]],
		Platform:    s.platforms[i],
		PriceMinor:  s.priceMinor[i],
		UnitsSold:   s.units[i],
		Rating:      s.ratings[i],
		Discount:    s.discounts[i],
	}
}

// Columns exposes the raw column slices of a snapshot for read-only scans.
// Callers must not mutate the slices.
type Columns struct {
	IDs        []string
	PriceMinor []int64
	Units      []int64
	Ratings    []float64
	Discounts  []float64
	BrandIDs   []int32
	TypeIDs    []int32
	Platforms  []Platform
}

func (s *Snapshot) Columns() Columns {
	return Columns{
		IDs:        s.ids,
		PriceMinor: s.priceMinor,
		Units:      s.units,
		Ratings:    s.ratings,
		Discounts:  s.discounts,
		BrandIDs:   s.brandIDs,
		TypeIDs:    s.typeIDs,
		Platforms:  s.platforms,
	}
}

// Store holds the current catalog snapshot and publishes replacements
// atomically. Readers always observe either the whole previous generation
// or the whole new one; refreshes are serialized against each other.
type Store struct {
	mu      sync.Mutex // serializes Load
	current atomic.Pointer[Snapshot]
	gen     atomic.Uint64
}

func NewStore() *Store {
	return &Store{}
}

// Load builds a new snapshot from records and publishes it as the next
// generation. Records failing validation are dropped; the dropped count is
// returned alongside the new generation.
func (st *Store) Load(records []Record) (generation uint64, dropped int) {
	st.mu.Lock()
	defer st.mu.Unlock()

	generation = st.gen.Add(1)
	snap, dropped := buildSnapshot(generation, records)
	st.current.Store(snap)
	return generation, dropped
}

// Snapshot returns the current generation, or ErrUnavailable if no
// generation has been loaded yet.
func (st *Store) Snapshot() (*Snapshot, error) {
	snap := st.current.Load()
	if snap == nil {
		return nil, ErrUnavailable
	}
	return snap, nil
}

// Generation returns the current generation number, 0 before the first load.
func (st *Store) Generation() uint64 {
	return st.gen.Load()
}

func buildSnapshot(generation uint64, records []Record) (*Snapshot, int) {
	n := len(records)
	snap := &Snapshot{
		generation: generation,
		ids:        make([]string, 0, n),
		priceMinor: make([]int64, 0, n),
		units:      make([]int64, 0, n),
		ratings:    make([]float64, 0, n),
		discounts:  make([]float64, 0, n),
		brandIDs:   make([]int32, 0, n),
		typeIDs:    make([]int32, 0, n),
		platforms:  make([]Platform, 0, n),
		brandIndex: make(map[string]int32),
		typeIndex:  make(map[string]int32),
	}

	dropped := 0
	for i := range records {
		r := &records[i]
		if err := r.Validate(); err != nil {
			dropped++
			continue
		}

		bid, ok := snap.brandIndex[r.Brand]
		if !ok {
			bid = int32(len(snap.brandDict))
			snap.brandDict = append(snap.brandDict, r.Brand)
			snap.brandIndex[r.Brand] = bid
		}
		tid, ok := snap.typeIndex[r.ProductType]
		if !ok {
			tid = int32(len(snap.typeDict))
			snap.typeDict = append(snap.typeDict, r.ProductType)
			snap.typeIndex[r.ProductType] = tid
		}

		snap.ids = append(snap.ids, r.ID)
		snap.priceMinor = append(snap.priceMinor, r.PriceMinor)
		snap.units = append(snap.units, r.UnitsSold)
		snap.ratings = append(snap.ratings, r.Rating)
		snap.discounts = append(snap.discounts, r.Discount)
		snap.brandIDs = append(snap.brandIDs, bid)
		snap.typeIDs = append(snap.typeIDs, tid)
		snap.platforms = append(snap.platforms, r.Platform)
	}

	return snap, dropped
}
