package catalogsource

import (
	"context"

	"github.com/marketlens-lab/marketlens/internal/core/catalog"
)

// Source fetches the full catalog for one refresh cycle. Implementations
// return the complete record set; the store swaps it in wholesale.
type Source interface {
	Fetch(ctx context.Context) ([]catalog.Record, error)
}
