package persistence

import (
	"context"

	"github.com/coinsift/coinsift/internal/model"
)

// ResultsRepo stores the latest completed scan. Each write replaces the
// previous one; scan history is deliberately not kept.
type ResultsRepo interface {
	Replace(ctx context.Context, result *model.ScanResult) error
	Latest(ctx context.Context) (*model.ScanResult, error)
	Close() error
}
