package catalogsource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/marketlens-lab/marketlens/internal/core/catalog"
)

// csv column names accepted by the loader. quantity_sold is what the
// analytics export uses; units_sold is accepted as an alias.
var csvAliases = map[string]string{
	"id":              "id",
	"brand":           "brand",
	"product_type":    "product_type",
	"source_platform": "source_platform",
	"platform":        "source_platform",
	"price":           "price",
	"price_effective": "price",
	"quantity_sold":   "units_sold",
	"units_sold":      "units_sold",
	"rating":          "rating",
	"discount":        "discount",
}

// CSVSource loads the catalog from a CSV export file. The header row drives
// column mapping, so extra columns and arbitrary column order are fine.
type CSVSource struct {
	path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Fetch reads and parses the whole file. Rows with malformed numeric fields
// are skipped (counted, logged), matching the forgiving contract of the
// query layer: bad data degrades, it does not fail the refresh. Rows
// without an id get one minted so every record stays addressable.
func (s *CSVSource) Fetch(ctx context.Context) ([]catalog.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	fields := make(map[string]int, len(header))
	for i, name := range header {
		canon, ok := csvAliases[strings.ToLower(strings.TrimSpace(name))]
		if ok {
			fields[canon] = i
		}
	}
	for _, required := range []string{"brand", "product_type", "price"} {
		if _, ok := fields[required]; !ok {
			return nil, fmt.Errorf("catalog file %s: missing column %q", s.path, required)
		}
	}

	var records []catalog.Record
	skipped := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog row: %w", err)
		}

		rec, ok := parseRow(fields, row)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		slog.Warn("[CSVSource] Skipped malformed rows", "path", s.path, "skipped", skipped)
	}
	slog.Info("[CSVSource] Catalog file loaded", "path", s.path, "rows", len(records))
	return records, nil
}

func parseRow(fields map[string]int, row []string) (catalog.Record, bool) {
	get := func(name string) string {
		i, ok := fields[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	price, err := strconv.ParseFloat(get("price"), 64)
	if err != nil {
		return catalog.Record{}, false
	}

	rec := catalog.Record{
		ID:          get("id"),
		Brand:       get("brand"),
		ProductType: get("product_type"),
		PriceMinor:  int64(math.Round(price)),
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	if v := get("units_sold"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return catalog.Record{}, false
		}
		rec.UnitsSold = n
	}
	if v := get("rating"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return catalog.Record{}, false
		}
		rec.Rating = f
	}
	if v := get("discount"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return catalog.Record{}, false
		}
		rec.Discount = f
	}
	if v := get("source_platform"); v != "" {
		p, _ := catalog.ParsePlatform(v)
		rec.Platform = p
	}

	return rec, true
}
