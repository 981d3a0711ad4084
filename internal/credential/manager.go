package credential

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PoolSpec describes one service's credential sources and cooldown window.
type PoolSpec struct {
	Service   string
	Override  string
	Primary   []string
	Secondary []string
	Cooldown  time.Duration
}

// Manager owns one pool per service. Pools are created once at startup from
// the merged configuration snapshot; there is no runtime registration.
type Manager struct {
	pools map[string]*Pool
}

// NewManager builds pools for every spec that yields at least one credential.
func NewManager(specs []PoolSpec) *Manager {
	m := &Manager{pools: make(map[string]*Pool, len(specs))}
	for _, spec := range specs {
		pool := NewPool(spec.Service, spec.Override, spec.Primary, spec.Secondary, spec.Cooldown)
		if pool.Size() == 0 {
			continue
		}
		m.pools[spec.Service] = pool
		zap.L().Info("credential pool loaded",
			zap.String("service", spec.Service),
			zap.Int("credentials", pool.Size()),
		)
	}
	return m
}

// Acquire selects a usable credential for the service.
func (m *Manager) Acquire(service string) (*Credential, error) {
	pool, ok := m.pools[service]
	if !ok {
		return nil, eris.Wrapf(ErrUnavailable, "service %s has no pool", service)
	}
	return pool.Acquire()
}

// Report routes an outcome back to the owning pool. Unknown credentials are
// ignored.
func (m *Manager) Report(c *Credential, outcome Outcome) {
	if c == nil {
		return
	}
	if pool, ok := m.pools[c.Service]; ok {
		pool.Report(c, outcome)
	}
}

// Pool returns the pool for a service, or nil.
func (m *Manager) Pool(service string) *Pool {
	return m.pools[service]
}

// Status returns per-service pool status, sorted by service name.
func (m *Manager) Status() []PoolStatus {
	out := make([]PoolStatus, 0, len(m.pools))
	for _, pool := range m.pools {
		out = append(out, pool.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out
}
