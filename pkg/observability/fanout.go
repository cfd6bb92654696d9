package observability

import (
	"context"
	"fmt"

	"github.com/aretw0/forge/pkg/domain"
	"go.uber.org/multierr"
)

// Fanout delivers one event to several listeners in order.
// Every listener is called; errors and panics are combined.
type Fanout []domain.StateChangeListener

func (f Fanout) OnStateChanged(ctx context.Context, e domain.StateChangeEvent) error {
	var errs error
	for i, l := range f {
		if l == nil {
			continue
		}
		errs = multierr.Append(errs, deliver(ctx, i, l, e))
	}
	return errs
}

func deliver(ctx context.Context, i int, l domain.StateChangeListener, e domain.StateChangeEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fanout listener %d panicked: %v", i, r)
		}
	}()
	return l.OnStateChanged(ctx, e)
}
