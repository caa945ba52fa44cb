package eddn

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/ringscout/internal/datastore"
)

const seenTTL = 10 * time.Minute

// seenCache suppresses duplicate feed records within a session. The relay
// redistributes every upload, so the same scan arrives many times in a short
// window. The cache is advisory only: a false negative just means one extra
// trip through the reconciler, which is idempotent. Discarded on restart.
type seenCache struct {
	entries *cache.Cache
	cap     int
}

func newSeenCache(capacity int) *seenCache {
	if capacity <= 0 {
		capacity = 4096
	}
	return &seenCache{
		entries: cache.New(seenTTL, 2*time.Minute),
		cap:     capacity,
	}
}

// firstSighting records the identity+scan-time key and reports whether this
// is the first time it was seen. When the cache reaches capacity it is
// cleared wholesale rather than evicted piecemeal; correctness does not
// depend on retention.
func (s *seenCache) firstSighting(rec *datastore.Hotspot) bool {
	key := fmt.Sprintf("%s|%s|%s|%s|%d|%d",
		rec.SystemName, rec.BodyName, rec.RingName, rec.Material,
		rec.Count, rec.ScannedAt.Unix())

	if _, dup := s.entries.Get(key); dup {
		return false
	}
	if s.entries.ItemCount() >= s.cap {
		s.entries.Flush()
	}
	s.entries.Set(key, struct{}{}, cache.DefaultExpiration)
	return true
}
