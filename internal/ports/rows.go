package ports

import (
	"context"

	"github.com/outflow-sh/outflow/internal/domain"
)

// RowSource produces the ordered recipient rows for one dispatch run.
// The CSV reader is the standard implementation; tests use literal slices.
type RowSource interface {
	Rows(ctx context.Context) ([]domain.Row, error)
}
