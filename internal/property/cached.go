package property

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/suPer8Hu/estate-chat/internal/common"
	"github.com/suPer8Hu/estate-chat/internal/kv"
	"github.com/suPer8Hu/estate-chat/internal/platform/logger"
	"github.com/suPer8Hu/estate-chat/internal/query"
	"golang.org/x/sync/singleflight"
)

const (
	cachePrefix = "propsearch"
	// genKey holds the current cache generation; bumping it orphans every
	// cached page, which then ages out on its ttl.
	genKey = cachePrefix + ":gen"
)

// CachedFinder memoizes Find results for a short ttl. Identical concurrent
// lookups share one store query. Cache failures fall through to the store.
type CachedFinder struct {
	inner Finder
	cache kv.Store
	ttl   time.Duration
	log   *logger.Logger
	group singleflight.Group
}

func NewCachedFinder(inner Finder, cache kv.Store, ttl time.Duration, log *logger.Logger) *CachedFinder {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedFinder{inner: inner, cache: cache, ttl: ttl, log: log}
}

func (f *CachedFinder) Find(ctx context.Context, c query.Criteria, limit, offset int) ([]Property, error) {
	key := CacheKey(c, limit, offset) + ":" + f.generation(ctx)

	if raw, ok, err := f.cache.Get(ctx, key); err != nil {
		f.log.Warn("search cache read failed", "key", key, "err", err)
	} else if ok {
		var list []Property
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return list, nil
		}
		f.log.Warn("search cache entry corrupt", "key", key)
	}

	v, err, _ := f.group.Do(key, func() (any, error) {
		list, err := f.inner.Find(ctx, c, limit, offset)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(list); err == nil {
			if err := f.cache.Set(ctx, key, string(b), f.ttl); err != nil {
				f.log.Warn("search cache write failed", "key", key, "err", err)
			}
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Property), nil
}

func (f *CachedFinder) generation(ctx context.Context) string {
	gen, ok, err := f.cache.Get(ctx, genKey)
	if err != nil {
		f.log.Warn("search cache generation read failed", "err", err)
	}
	if !ok || gen == "" {
		return "0"
	}
	return gen
}

// Invalidate drops every cached result. Listings patched after a search are
// visible on the next lookup.
func (f *CachedFinder) Invalidate(ctx context.Context) error {
	gen, err := common.NewULID()
	if err != nil {
		return err
	}
	return f.cache.Set(ctx, genKey, gen, 0)
}

// CacheKey hashes the filtering part of c. Amenities are advisory and do not
// contribute.
func CacheKey(c query.Criteria, limit, offset int) string {
	params := map[string]string{
		"limit":  strconv.Itoa(limit),
		"offset": strconv.Itoa(offset),
		"terms":  strings.Join(c.Terms, ","),
	}
	if c.Bedrooms != nil {
		params["bedrooms"] = strconv.Itoa(*c.Bedrooms)
	}
	if c.PriceMax != nil {
		params["price_max"] = strconv.FormatInt(*c.PriceMax, 10)
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(":")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	sum := md5.Sum([]byte(b.String()))
	return cachePrefix + ":" + hex.EncodeToString(sum[:])
}
