package forecast

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const latestKey = "latest"

// Registry holds trained bundles for a limited time so clients can refer to
// them by id across requests. Bundles are immutable; the registry only maps
// ids to them.
type Registry struct {
	cache *cache.Cache
}

// NewRegistry expires bundles after ttl. A zero cleanup interval disables
// the background sweep and expired entries are dropped on access instead.
func NewRegistry(ttl, cleanup time.Duration) *Registry {
	return &Registry{cache: cache.New(ttl, cleanup)}
}

// Put assigns the bundle an id and makes it the latest. The reserved id
// "latest" is replaced with a fresh one.
func (r *Registry) Put(b *ModelBundle) string {
	if b.ID == "" || b.ID == latestKey {
		b.ID = uuid.NewString()
	}
	r.cache.SetDefault(b.ID, b)
	r.cache.SetDefault(latestKey, b.ID)
	return b.ID
}

// Get resolves an id; "" and "latest" return the most recently stored bundle.
func (r *Registry) Get(id string) (*ModelBundle, bool) {
	if id == "" || id == latestKey {
		v, ok := r.cache.Get(latestKey)
		if !ok {
			return nil, false
		}
		if id, ok = v.(string); !ok {
			return nil, false
		}
	}
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	b, ok := v.(*ModelBundle)
	return b, ok
}

func (r *Registry) Delete(id string) {
	r.cache.Delete(id)
}

func (r *Registry) Count() int {
	n := r.cache.ItemCount()
	if _, ok := r.cache.Get(latestKey); ok {
		n--
	}
	return n
}
