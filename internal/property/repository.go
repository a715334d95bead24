package property

import (
	"context"
	"errors"

	"github.com/suPer8Hu/estate-chat/internal/platform/logger"
	"github.com/suPer8Hu/estate-chat/internal/query"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Repository struct {
	store        Store
	finder       Finder
	log          *logger.Logger
	defaultLimit int
	maxLimit     int
}

type Option func(*Repository)

// WithFinder routes searches through f (usually a CachedFinder) instead of
// the store directly.
func WithFinder(f Finder) Option {
	return func(r *Repository) { r.finder = f }
}

func WithLimits(def, max int) Option {
	return func(r *Repository) {
		if def > 0 {
			r.defaultLimit = def
		}
		if max > 0 {
			r.maxLimit = max
		}
	}
}

func NewRepository(store Store, log *logger.Logger, opts ...Option) *Repository {
	if log == nil {
		log = logger.Nop()
	}
	r := &Repository{
		store:        store,
		finder:       store,
		log:          log,
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
	}
	for _, o := range opts {
		o(r)
	}
	if r.defaultLimit > r.maxLimit {
		r.defaultLimit = r.maxLimit
	}
	return r
}

// Search interprets free text and returns matching listings. Amenities in
// the text never narrow the result.
func (r *Repository) Search(ctx context.Context, text string, limit, offset int) ([]Property, error) {
	c := query.Interpret(text)
	if len(c.Amenities) > 0 {
		r.log.Debug("advisory amenities ignored by filter", "amenities", c.Amenities)
	}
	return r.FindCriteria(ctx, c, limit, offset)
}

func (r *Repository) FindCriteria(ctx context.Context, c query.Criteria, limit, offset int) ([]Property, error) {
	if limit <= 0 {
		limit = r.defaultLimit
	}
	if limit > r.maxLimit {
		limit = r.maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	list, err := r.finder.Find(ctx, c, limit, offset)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &FetchError{Op: "search", Err: err}
	}
	return list, nil
}

func (r *Repository) Get(ctx context.Context, id uint64) (*Property, error) {
	p, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &FetchError{Op: "get", Err: err}
	}
	return p, nil
}

// invalidator is implemented by finders that cache results.
type invalidator interface {
	Invalidate(ctx context.Context) error
}

func (r *Repository) PatchOverview(ctx context.Context, id uint64, overview string) error {
	err := r.store.PatchOverview(ctx, id, overview)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return &FetchError{Op: "patch overview", Err: err}
	}
	if inv, ok := r.finder.(invalidator); ok {
		// the overview is saved; a stale cache only lasts until its ttl
		if err := inv.Invalidate(ctx); err != nil {
			r.log.Warn("search cache invalidation failed", "property_id", id, "err", err)
		}
	}
	return nil
}
