package s3stream

import "sync"

// defaultRegion is returned for bucket-less calls (bucket listing, bucket
// creation).
const defaultRegion = "us-east-1"

// regionCache maps bucket name to region code. Any unexpected-status
// response for a bucket evicts its entry, not just a region-mismatch
// error, so that the caller's next attempt re-discovers the region.
type regionCache struct {
	mu    sync.RWMutex
	items map[string]string
}

func newRegionCache() *regionCache {
	return &regionCache{items: make(map[string]string)}
}

func (r *regionCache) get(bucket string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[bucket]
	return v, ok
}

func (r *regionCache) set(bucket, region string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[bucket] = region
}

func (r *regionCache) delete(bucket string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, bucket)
}
