// Registration of the SQLite backend with the storage factory. Callers never
// import this package directly; a blank import (see storage/all) runs init.
package sqlite

import (
	"context"

	"github.com/NiranjGaurav/AutomationReader/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// wrappedRepo adapts *sqlite.Repository to the storage.Repository interface,
// adding a Close method that calls the cleanup function returned by
// NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

var _ storage.Repository = (*wrappedRepo)(nil)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:     cfg.DSN,
			Table:   cfg.Table,
			Columns: cfg.Columns,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
}
