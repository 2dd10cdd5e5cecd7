package timezone

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const dstSuffix = " DST"

// Context annotates dashboard times for display in a local zone. Series
// timestamps stay UTC; this only tells the display layer how to shift them.
type Context struct {
	Name string `json:"tzName"`
	// OffsetMinutes is the number of minutes west of UTC in effect at the
	// resolved instant, the same sign as JavaScript's getTimezoneOffset.
	OffsetMinutes int  `json:"tzOffsetMins"`
	DST           bool `json:"dst"`
}

type Resolver struct {
	cache *lru.Cache
}

func NewResolver(size int) (*Resolver, error) {
	if size < 1 {
		size = 1
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Resolver{cache: cache}, nil
}

// Location looks name up in the time zone database. Profile display names
// such as "Eastern Time (US & Canada)" are accepted as well as IANA ids.
func (r *Resolver) Location(name string) (*time.Location, error) {
	if v, ok := r.cache.Get(name); ok {
		return v.(*time.Location), nil
	}
	loc, err := time.LoadLocation(ianaName(name))
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", name, err)
	}
	r.cache.Add(name, loc)
	return loc, nil
}

// Resolve returns the display context of zone name at now.
func (r *Resolver) Resolve(name string, now time.Time) (Context, error) {
	if name == "" {
		name = "UTC"
	}
	loc, err := r.Location(name)
	if err != nil {
		return Context{}, err
	}

	local := now.In(loc)
	_, offset := local.Zone()

	ctx := Context{
		Name:          name,
		OffsetMinutes: -offset / 60,
		DST:           local.IsDST(),
	}
	if ctx.DST {
		ctx.Name += dstSuffix
	}
	return ctx, nil
}
