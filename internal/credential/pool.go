// Package credential manages rotating API credentials per external service.
package credential

import (
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Origin records where a credential was loaded from. Priority is strict:
// override > primary > secondary. Origins only order the pool at load time;
// selection at runtime is purely least-used.
type Origin string

const (
	OriginOverride  Origin = "override"
	OriginPrimary   Origin = "primary"
	OriginSecondary Origin = "secondary"
)

// Outcome is the result of using a credential, reported back to the pool.
type Outcome int

const (
	Success Outcome = iota
	RateLimited
	QuotaExceeded
	TransientError
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case RateLimited:
		return "rate_limited"
	case QuotaExceeded:
		return "quota_exceeded"
	case TransientError:
		return "transient_error"
	default:
		return "unknown"
	}
}

// ErrUnavailable is returned when no credential in a pool is eligible.
var ErrUnavailable = eris.New("credential: no usable credential available")

const (
	// quotaCooldown parks a credential for a full day after a daily quota hit.
	quotaCooldown = 24 * time.Hour
	// transientBackoff disables a credential briefly after repeated transient
	// failures without assuming a hard quota.
	transientBackoff = 5 * time.Minute
	// transientTrip is the consecutive-failure count that triggers the backoff.
	transientTrip = 3
)

// Credential is one rotating API key. Mutated only under its pool's lock.
type Credential struct {
	ID                  string
	Secret              string
	Service             string
	Origin              Origin
	ConsecutiveFailures int
	CooldownUntil       time.Time
	TotalUses           int
	Disabled            bool
}

// Preview returns a loggable tail of the secret.
func (c *Credential) Preview() string {
	if len(c.Secret) <= 4 {
		return "..." + c.Secret
	}
	return "..." + c.Secret[len(c.Secret)-4:]
}

// Pool owns the credentials for one service. Selection is serialized through
// the pool mutex; usage of the selected credential is not.
type Pool struct {
	mu       sync.Mutex
	service  string
	cooldown time.Duration
	creds    []*Credential

	// now is injectable for testing.
	now func() time.Time
}

// NewPool builds a pool from the merged, priority-ordered credential values.
// Duplicate secrets are dropped so a key listed in two config origins is
// never counted twice.
func NewPool(service string, override string, primary, secondary []string, cooldown time.Duration) *Pool {
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	p := &Pool{
		service:  service,
		cooldown: cooldown,
		now:      time.Now,
	}

	seen := make(map[string]bool)
	add := func(secret string, origin Origin) {
		if secret == "" || seen[secret] {
			return
		}
		seen[secret] = true
		p.creds = append(p.creds, &Credential{
			ID:      fmt.Sprintf("%s-%d", service, len(p.creds)+1),
			Secret:  secret,
			Service: service,
			Origin:  origin,
		})
	}

	add(override, OriginOverride)
	for _, k := range primary {
		add(k, OriginPrimary)
	}
	for _, k := range secondary {
		add(k, OriginSecondary)
	}

	return p
}

// WithNow sets a fixed clock for testing.
func (p *Pool) WithNow(now func() time.Time) *Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
	return p
}

// Size returns the number of credentials loaded into the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creds)
}

// Acquire selects the least-used credential whose cooldown has expired.
// Ties break by pool order, which keeps selection deterministic. The use
// counter is incremented at acquire time so concurrent holders spread load.
func (p *Pool) Acquire() (*Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	var best *Credential
	for _, c := range p.creds {
		if c.Disabled || c.CooldownUntil.After(now) {
			continue
		}
		if best == nil || c.TotalUses < best.TotalUses {
			best = c
		}
	}
	if best == nil {
		return nil, eris.Wrapf(ErrUnavailable, "service %s", p.service)
	}

	best.TotalUses++
	return best, nil
}

// Report adjusts credential health after a use. Cooldowns always expire, so
// no credential is ever permanently lost.
func (p *Pool) Report(c *Credential, outcome Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch outcome {
	case Success:
		c.ConsecutiveFailures = 0
		c.CooldownUntil = time.Time{}
	case RateLimited:
		c.ConsecutiveFailures++
		c.CooldownUntil = p.now().Add(p.cooldown)
		zap.L().Warn("credential rate limited",
			zap.String("service", p.service),
			zap.String("credential", c.Preview()),
			zap.Time("cooldown_until", c.CooldownUntil),
		)
	case QuotaExceeded:
		c.ConsecutiveFailures++
		c.CooldownUntil = p.now().Add(quotaCooldown)
		zap.L().Warn("credential quota exhausted",
			zap.String("service", p.service),
			zap.String("credential", c.Preview()),
			zap.Time("cooldown_until", c.CooldownUntil),
		)
	case TransientError:
		c.ConsecutiveFailures++
		if c.ConsecutiveFailures >= transientTrip {
			c.CooldownUntil = p.now().Add(transientBackoff)
			zap.L().Warn("credential backing off after repeated errors",
				zap.String("service", p.service),
				zap.String("credential", c.Preview()),
				zap.Int("consecutive_failures", c.ConsecutiveFailures),
			)
		}
	}
}

// CredentialStatus is a point-in-time view of one credential.
type CredentialStatus struct {
	ID                  string    `json:"id"`
	Preview             string    `json:"preview"`
	Origin              Origin    `json:"origin"`
	Available           bool      `json:"available"`
	TotalUses           int       `json:"total_uses"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	CooldownUntil       time.Time `json:"cooldown_until,omitzero"`
}

// PoolStatus is a point-in-time view of one pool.
type PoolStatus struct {
	Service     string             `json:"service"`
	Total       int                `json:"total"`
	Available   int                `json:"available"`
	Credentials []CredentialStatus `json:"credentials"`
}

// Status reports the pool state for observability.
func (p *Pool) Status() PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	st := PoolStatus{Service: p.service, Total: len(p.creds)}
	for _, c := range p.creds {
		available := !c.Disabled && !c.CooldownUntil.After(now)
		if available {
			st.Available++
		}
		st.Credentials = append(st.Credentials, CredentialStatus{
			ID:                  c.ID,
			Preview:             c.Preview(),
			Origin:              c.Origin,
			Available:           available,
			TotalUses:           c.TotalUses,
			ConsecutiveFailures: c.ConsecutiveFailures,
			CooldownUntil:       c.CooldownUntil,
		})
	}
	return st
}
