// Package dispatch fans inbound events out to the filter lists subscribed to
// their event kind.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/haukened/rr-filter/internal/filter/common/log"
	"github.com/haukened/rr-filter/internal/filter/domain"
)

var (
	// ErrAlreadySubscribed is returned when a handler name is registered twice.
	ErrAlreadySubscribed = errors.New("handler already subscribed")
	// ErrNoEventKinds is returned when Subscribe is called without event kinds.
	ErrNoEventKinds = errors.New("no event kinds given")
)

// Handler is a filter list able to judge a message event.
type Handler interface {
	Name() string
	Handle(ctx *domain.FilterContext) (domain.Verdict, error)
}

// Result is the outcome of one handler for one event.
type Result struct {
	List               string
	Verdict            domain.Verdict
	NotificationDomain string
}

type subscription struct {
	handler Handler
	kinds   []domain.EventKind
}

// Bus keeps the subscription registry. It is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	logger log.Logger
}

// New returns an empty Bus.
func New(logger log.Logger) *Bus {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Bus{logger: logger}
}

// Subscribe registers h for the given event kinds. A handler name can only be
// subscribed once.
func (b *Bus) Subscribe(h Handler, kinds ...domain.EventKind) error {
	if len(kinds) == 0 {
		return fmt.Errorf("subscribe %q: %w", h.Name(), ErrNoEventKinds)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s.handler.Name() == h.Name() {
			return fmt.Errorf("subscribe %q: %w", h.Name(), ErrAlreadySubscribed)
		}
	}
	b.subs = append(b.subs, subscription{handler: h, kinds: slices.Clone(kinds)})
	b.logger.Info(map[string]any{"list": h.Name(), "kinds": kindNames(kinds)}, "list_subscribed")
	return nil
}

// Subscribed returns the handler names subscribed to kind, in subscription order.
func (b *Bus) Subscribed(kind domain.EventKind) []string {
	var names []string
	for _, s := range b.handlersFor(kind) {
		names = append(names, s.Name())
	}
	return names
}

// Dispatch runs every handler subscribed to fctx.Event concurrently. Each
// handler works on its own copy of fctx. Results are returned in subscription
// order. The first handler error, or cancellation of ctx, fails handlers that
// have not started yet; once every handler has run the results are returned.
func (b *Bus) Dispatch(ctx context.Context, fctx *domain.FilterContext) ([]Result, error) {
	handlers := b.handlersFor(fctx.Event)
	if len(handlers) == 0 {
		return nil, nil
	}

	results := make([]Result, len(handlers))
	g, gctx := errgroup.WithContext(ctx)
	for i, h := range handlers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			local := *fctx
			verdict, err := h.Handle(&local)
			if err != nil {
				return fmt.Errorf("list %q: %w", h.Name(), err)
			}
			results[i] = Result{
				List:               h.Name(),
				Verdict:            verdict,
				NotificationDomain: local.NotificationDomain,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *Bus) handlersFor(kind domain.EventKind) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Handler
	for _, s := range b.subs {
		if slices.Contains(s.kinds, kind) {
			out = append(out, s.handler)
		}
	}
	return out
}

func kindNames(kinds []domain.EventKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.String()
	}
	return out
}
