// Registration of the Postgres backend with the storage factory.
package postgres

import (
	"context"

	"github.com/NiranjGaurav/AutomationReader/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

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
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
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
