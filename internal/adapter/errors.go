package adapter

import "fmt"

// Kind is the closed taxonomy of adapter failure modes (spec.md §4.1,
// §7). Grounded on Toolkit/Commons/errors/errors.go's ProviderError/
// RateLimitError/AuthenticationError family, collapsed into one typed
// error with a Kind tag so the pipeline branches on Kind, never on a
// message string.
type Kind string

const (
	KindUnauthorized     Kind = "Unauthorized"
	KindRateLimited      Kind = "RateLimited"
	KindBadRequest       Kind = "BadRequest"
	KindTimeout          Kind = "Timeout"
	KindSchemaViolation  Kind = "SchemaViolation"
	KindUpstream         Kind = "Upstream"
	KindTransport        Kind = "Transport"
)

// Error is the typed error every ModelAdapter.Complete returns on
// failure.
type Error struct {
	Kind       Kind
	Provider   string
	Message    string
	RetryAfter int // seconds; only meaningful when Kind == KindRateLimited
	Cause      error
}

func (e *Error) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("[%s] %s: %s (retry after %ds)", e.Provider, e.Kind, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an adapter error of the given kind.
func NewError(provider string, kind Kind, message string, cause error) *Error {
	return &Error{Provider: provider, Kind: kind, Message: message, Cause: cause}
}

// NewRateLimited builds a RateLimited error with a retry-after hint.
func NewRateLimited(provider string, retryAfter int, message string) *Error {
	return &Error{Provider: provider, Kind: KindRateLimited, Message: message, RetryAfter: retryAfter}
}
