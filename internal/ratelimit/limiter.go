package ratelimit

import (
	"strings"
	"sync"
	"time"

	"github.com/inventairecocody-sys/gescard-backend-vps-sub001/internal/auth"
)

// RouteClass groups routes that share a quota. Classification happens once
// per request from the method and path.
type RouteClass string

const (
	ClassBulkImport RouteClass = "bulk-import"
	ClassExport     RouteClass = "export"
	ClassStream     RouteClass = "stream"
	ClassAdmin      RouteClass = "admin"
	ClassSync       RouteClass = "sync"
	ClassOther      RouteClass = "other"
)

type routePattern struct {
	method   string // empty matches any method
	fragment string
	class    RouteClass
}

// routePatterns is evaluated in order; the first match decides the class.
// Order matters: an export of the journal must classify as admin, so admin
// fragments come first.
var routePatterns = []routePattern{
	{method: "", fragment: "/comptes", class: ClassAdmin},
	{method: "", fragment: "/journal", class: ClassAdmin},
	{method: "POST", fragment: "/import", class: ClassBulkImport},
	{method: "", fragment: "/export", class: ClassExport},
	{method: "", fragment: "/stream", class: ClassStream},
	{method: "", fragment: "/events", class: ClassStream},
	{method: "", fragment: "/sync", class: ClassSync},
}

// ClassifyRoute maps a request to its route class.
func ClassifyRoute(method, path string) RouteClass {
	for _, p := range routePatterns {
		if p.method != "" && p.method != method {
			continue
		}
		if strings.Contains(path, p.fragment) {
			return p.class
		}
	}
	return ClassOther
}

// defaultQuotas is the per-window request budget for regular interactive
// roles. Heavier roles get wider budgets on the expensive classes.
var defaultQuotas = map[RouteClass]int{
	ClassBulkImport: 5,
	ClassExport:     20,
	ClassStream:     60,
	ClassAdmin:      60,
	ClassSync:       0, // interactive roles have no business on sync routes
	ClassOther:      300,
}

// roleQuotas overrides defaultQuotas for specific (role, class) pairs.
var roleQuotas = map[auth.Role]map[RouteClass]int{
	auth.RoleAdministrateur: {
		ClassBulkImport: 20,
		ClassExport:     60,
	},
	auth.RoleGestionnaire: {
		ClassBulkImport: 10,
		ClassExport:     40,
	},
	auth.RoleAPIClient: {
		ClassSync:  120,
		ClassOther: 60,
	},
}

// QuotaFor resolves the request budget for a role on a route class. A zero
// budget means the class is closed to that role's traffic profile but the
// limiter does not enforce access control; the evaluator already did.
func QuotaFor(role auth.Role, class RouteClass) int {
	if overrides, ok := roleQuotas[role]; ok {
		if quota, ok := overrides[class]; ok {
			return quota
		}
	}
	return defaultQuotas[class]
}

type key struct {
	subject string
	class   RouteClass
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter enforces sliding-window quotas keyed by (subject, route class).
// Unlike a token bucket it keeps the raw timestamps, which lets it answer
// exactly when the oldest request leaves the window.
type Limiter struct {
	mu     sync.Mutex
	window time.Duration
	hits   map[key][]time.Time
	now    func() time.Time
	done   chan struct{}
}

// NewLimiter creates a sliding-window limiter. sweepInterval controls the
// background cleanup of idle keys; zero disables the sweeper, which suits
// tests that call Sweep directly.
func NewLimiter(window, sweepInterval time.Duration) *Limiter {
	l := &Limiter{
		window: window,
		hits:   make(map[key][]time.Time),
		now:    time.Now,
		done:   make(chan struct{}),
	}
	if sweepInterval > 0 {
		go l.sweepLoop(sweepInterval)
	}
	return l
}

// Admit records one request attempt and reports whether it fits the quota.
// Administrators are exempt on admin-class routes so that incident response
// is never throttled out of its own tooling.
func (l *Limiter) Admit(subject string, role auth.Role, class RouteClass) Decision {
	if role == auth.RoleAdministrateur && class == ClassAdmin {
		return Decision{Allowed: true, Limit: 0, Remaining: -1}
	}

	limit := QuotaFor(role, class)
	if limit <= 0 {
		if class == ClassSync && role != auth.RoleAPIClient {
			return Decision{Allowed: false, Limit: 0, RetryAfter: l.window}
		}
		return Decision{Allowed: true, Limit: 0, Remaining: -1}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := key{subject: subject, class: class}
	fresh := pruneBefore(l.hits[k], now.Add(-l.window))

	if len(fresh) >= limit {
		l.hits[k] = fresh
		oldest := fresh[0]
		wait := oldest.Add(l.window).Sub(now)
		return Decision{
			Allowed:    false,
			Limit:      limit,
			RetryAfter: ceilSeconds(wait),
		}
	}

	fresh = append(fresh, now)
	l.hits[k] = fresh
	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(fresh),
	}
}

// Sweep drops keys whose every timestamp has left the window. Admit prunes
// lazily per key, so the sweep only reclaims memory for idle subjects.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	for k, stamps := range l.hits {
		fresh := pruneBefore(stamps, cutoff)
		if len(fresh) == 0 {
			delete(l.hits, k)
		} else {
			l.hits[k] = fresh
		}
	}
}

// Close stops the background sweeper.
func (l *Limiter) Close() {
	close(l.done)
}

func (l *Limiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-l.done:
			return
		}
	}
}

func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && !stamps[idx].After(cutoff) {
		idx++
	}
	return stamps[idx:]
}

// ceilSeconds rounds a wait up to whole seconds so the Retry-After hint
// never tells a client to come back too early.
func ceilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Second
	}
	secs := d / time.Second
	if d%time.Second != 0 {
		secs++
	}
	return secs * time.Second
}
