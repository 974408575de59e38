// internal/sink/multi.go
package sink

import (
	"context"
	"errors"
)

// Multi stores each document in every backend.
// A failing backend does not stop the others; errors are joined.
type Multi []Backend

func (m Multi) Insert(ctx context.Context, doc Document) error {
	var errs []error
	for _, b := range m {
		if err := b.Insert(ctx, doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
