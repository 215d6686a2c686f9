package weather

import (
	"context"
	"fmt"

	"github.com/i474232898/forecast-cache/internal/route"
)

// Reader dispatches route-addressed reads to the store.
// It is the single read path used by the HTTP API, the CLI and the notification builder.
type Reader struct {
	matcher route.Matcher
	store   Store
}

// NewReader creates a Reader.
func NewReader(matcher route.Matcher, store Store) *Reader {
	return &Reader{matcher: matcher, store: store}
}

// Matcher returns the matcher used to resolve paths.
func (r *Reader) Matcher() route.Matcher {
	return r.matcher
}

// Resolve classifies a path.
func (r *Reader) Resolve(path string) route.Route {
	return r.matcher.Resolve(path)
}

// Query runs the store query for a resolved route.
func (r *Reader) Query(ctx context.Context, rt route.Route, cols []Column) ([]ForecastRecord, error) {
	switch rt.Kind {
	case route.Collection:
		return r.store.Query(ctx, Query{Columns: cols})
	case route.CollectionWithDay:
		day := rt.Day
		return r.store.Query(ctx, Query{Day: &day, Columns: cols})
	default:
		return nil, route.ErrUnrecognized
	}
}

// QueryPath resolves path and runs the matching query.
func (r *Reader) QueryPath(ctx context.Context, path string, cols []Column) ([]ForecastRecord, error) {
	rt := r.matcher.Resolve(path)
	if rt.Kind == route.Unrecognized {
		return nil, fmt.Errorf("%w: %s", route.ErrUnrecognized, path)
	}
	return r.Query(ctx, rt, cols)
}

// Day returns the single stored record for day, or ErrNotFound.
func (r *Reader) Day(ctx context.Context, day int64, cols []Column) (ForecastRecord, error) {
	rows, err := r.Query(ctx, route.Route{Kind: route.CollectionWithDay, Day: day}, cols)
	if err != nil {
		return ForecastRecord{}, err
	}
	if len(rows) == 0 {
		return ForecastRecord{}, ErrNotFound
	}
	return rows[0], nil
}
