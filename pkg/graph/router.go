package graph

import (
	"context"

	"github.com/aretw0/sieve/pkg/domain"
)

// Router classifies the state into one of a closed set of labels.
type Router[S any] interface {
	// Labels lists every label Route may return.
	Labels() []domain.Label

	// Route picks the label for the state. It must not modify the state.
	Route(ctx context.Context, state S) (domain.Label, error)
}

// RouterFunc is the function form of Router.Route.
type RouterFunc[S any] func(ctx context.Context, state S) (domain.Label, error)

type funcRouter[S any] struct {
	fn     RouterFunc[S]
	labels []domain.Label
}

// NewRouter adapts a function and its declared labels into a Router.
func NewRouter[S any](fn RouterFunc[S], labels ...domain.Label) Router[S] {
	return &funcRouter[S]{fn: fn, labels: labels}
}

func (r *funcRouter[S]) Labels() []domain.Label {
	out := make([]domain.Label, len(r.labels))
	copy(out, r.labels)
	return out
}

func (r *funcRouter[S]) Route(ctx context.Context, state S) (domain.Label, error) {
	return r.fn(ctx, state)
}
