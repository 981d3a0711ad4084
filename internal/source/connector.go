// Package source defines the connector contract over external search services
// and the adapters that implement it.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-scout/internal/credential"
	"github.com/sells-group/market-scout/internal/model"
)

// Connector turns a search term into raw snippets from one external service.
type Connector interface {
	// Service returns the service name used for credentials, weights and
	// rate budgets.
	Service() string
	// Query fetches up to limit snippets for the term. Failures are always
	// *SourceError so the orchestrator can apply a uniform policy.
	Query(ctx context.Context, term string, limit int) ([]model.RawSnippet, error)
}

// Kind classifies a source failure.
type Kind int

const (
	Unauthenticated Kind = iota
	RateLimited
	QuotaExceeded
	Network
	Malformed
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case RateLimited:
		return "rate_limited"
	case QuotaExceeded:
		return "quota_exceeded"
	case Network:
		return "network"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// SourceError is the uniform failure type returned by every connector.
type SourceError struct {
	Kind    Kind
	Service string
	Err     error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %s: %v", e.Service, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError wraps err with a kind and service.
func NewSourceError(kind Kind, service string, err error) *SourceError {
	return &SourceError{Kind: kind, Service: service, Err: err}
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// Retryable reports whether a failed query is worth another attempt within
// the same request. Credential-level failures are not: the pool has already
// cooled the credential, and retrying immediately would burn another one.
func Retryable(err error) bool {
	kind, ok := KindOf(err)
	if !ok {
		return false
	}
	return kind == Network || kind == Malformed
}

// classify maps a non-status error to a SourceError: broken response bodies
// are Malformed, everything else (timeouts, resets, DNS) is Network.
func classify(service string, err error) *SourceError {
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	if errors.As(err, &syn) || errors.As(err, &typ) {
		return NewSourceError(Malformed, service, err)
	}
	return NewSourceError(Network, service, err)
}

// kindFromStatus is the default HTTP status mapping shared by adapters.
// Adapters with service-specific semantics (e.g. YouTube's 403 quota reason)
// override individual codes before calling this.
func kindFromStatus(service string, status int, body string) *SourceError {
	err := eris.Errorf("status %d: %s", status, body)
	switch {
	case status == 401 || status == 403:
		return NewSourceError(Unauthenticated, service, err)
	case status == 429:
		return NewSourceError(RateLimited, service, err)
	case status >= 500:
		return NewSourceError(Network, service, err)
	default:
		return NewSourceError(Malformed, service, err)
	}
}

// outcomeFor translates a query result into a credential report.
func outcomeFor(err error) credential.Outcome {
	if err == nil {
		return credential.Success
	}
	switch kind, _ := KindOf(err); kind {
	case RateLimited:
		return credential.RateLimited
	case QuotaExceeded:
		return credential.QuotaExceeded
	default:
		return credential.TransientError
	}
}
