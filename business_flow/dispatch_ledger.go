package businessflow

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DispatchLedger remembers the last dispatched URL per scope so that every dispatcher
// sharing a ledger debounces together.
type DispatchLedger interface {
	// Claim records url as dispatched for scope unless the same url was the last
	// dispatch within window. It reports whether the dispatch may proceed.
	Claim(ctx context.Context, scope, url string, window time.Duration) (bool, error)
}

type dispatchRecord struct {
	url string
	at  time.Time
}

// MemoryDispatchLedger keeps the last dispatch per scope in process memory
type MemoryDispatchLedger struct {
	mu   sync.Mutex
	now  func() time.Time
	last map[string]dispatchRecord
}

// NewMemoryDispatchLedger creates an empty in-memory ledger
func NewMemoryDispatchLedger() *MemoryDispatchLedger {
	return &MemoryDispatchLedger{
		now:  time.Now,
		last: make(map[string]dispatchRecord),
	}
}

// WithClock replaces the ledger's time source
func (l *MemoryDispatchLedger) WithClock(now func() time.Time) *MemoryDispatchLedger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	return l
}

func (l *MemoryDispatchLedger) Claim(ctx context.Context, scope, url string, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if prev, ok := l.last[scope]; ok && prev.url == url && now.Sub(prev.at) < window {
		return false, nil
	}
	l.last[scope] = dispatchRecord{url: url, at: now}
	return true, nil
}

// Sweep drops records older than maxAge
func (l *MemoryDispatchLedger) Sweep(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	removed := 0
	for scope, rec := range l.last {
		if now.Sub(rec.at) >= maxAge {
			delete(l.last, scope)
			removed++
		}
	}
	return removed
}

// Reset forgets every recorded dispatch
func (l *MemoryDispatchLedger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = make(map[string]dispatchRecord)
}

// claimScript stores the url with a TTL of the window unless the key already holds the same url
var claimScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current == ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

// RedisDispatchLedger shares the last dispatch across replicas. Keys expire after the debounce window.
type RedisDispatchLedger struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisDispatchLedger creates a ledger storing keys under prefix
func NewRedisDispatchLedger(client redis.UniversalClient, prefix string) *RedisDispatchLedger {
	return &RedisDispatchLedger{client: client, prefix: prefix}
}

func (l *RedisDispatchLedger) key(scope string) string {
	return l.prefix + "whatsapp:dispatch:" + scope
}

func (l *RedisDispatchLedger) Claim(ctx context.Context, scope, url string, window time.Duration) (bool, error) {
	ms := window.Milliseconds()
	if ms <= 0 {
		return true, nil
	}
	res, err := claimScript.Run(ctx, l.client, []string{l.key(scope)}, url, ms).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
