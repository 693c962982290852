package store

import (
	"context"
	"errors"

	"github.com/jacksonchui/Social-Media-Intervention/internal/session"
)

// MultiSink saves to every sink and joins their errors; one failing sink
// does not keep the others from saving.
type MultiSink []session.Sink

var _ session.Sink = MultiSink(nil)

func (ms MultiSink) Save(ctx context.Context, m session.Model) error {
	var errs []error
	for _, s := range ms {
		if err := s.Save(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Lister reads saved sessions back, newest first.
type Lister interface {
	List(ctx context.Context, limit int) ([]session.Model, error)
	Get(ctx context.Context, id string) (session.Model, error)
}

var (
	_ Lister = (*SQLStore)(nil)
	_ Lister = (*YAMLStore)(nil)
)
