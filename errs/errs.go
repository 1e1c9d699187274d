// Package errs provides structured error types shared across the connector.
package errs

import (
	"errors"
	"strconv"
	"strings"
)

// Code identifies a connector error category.
type Code string

const (
	// CodeConfiguration indicates invalid or missing credentials/settings. Fatal, pre-flight.
	CodeConfiguration Code = "configuration"
	// CodeAuth indicates an authentication or signature rejection.
	CodeAuth Code = "auth"
	// CodeTimestampSkew indicates the venue rejected a request timestamp.
	CodeTimestampSkew Code = "timestamp_skew"
	// CodeOrderNotFound indicates the referenced order does not exist on the venue.
	CodeOrderNotFound Code = "order_not_found"
	// CodeSymbolNotFound indicates a symbol or trading pair absent from the symbol map.
	CodeSymbolNotFound Code = "symbol_not_found"
	// CodeInsufficientLiquidity indicates the order book depth cannot cover the requested amount.
	CodeInsufficientLiquidity Code = "insufficient_liquidity"
	// CodeTransport indicates a network or venue-side transport failure.
	CodeTransport Code = "transport"
	// CodeParse indicates a single malformed record. Never fatal.
	CodeParse Code = "parse"
	// CodeExchange indicates an uncategorized venue-side failure.
	CodeExchange Code = "exchange_error"
)

// E captures structured error information produced across the connector.
type E struct {
	Venue   string
	Code    Code
	HTTP    int
	RawCode string
	RawMsg  string
	Message string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the venue and error code.
func New(venue string, code Code, opts ...Option) *E {
	e := &E{
		Venue:   strings.TrimSpace(venue),
		Code:    code,
		HTTP:    0,
		RawCode: "",
		RawMsg:  "",
		Message: "",
		cause:   nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithHTTP records the associated HTTP status code.
func WithHTTP(status int) Option {
	return func(e *E) {
		e.HTTP = status
	}
}

// WithRawCode captures the raw venue error code.
func WithRawCode(code string) Option {
	trimmed := strings.TrimSpace(code)
	return func(e *E) {
		e.RawCode = trimmed
	}
}

// WithRawMessage captures the raw venue error message.
func WithRawMessage(msg string) Option {
	return func(e *E) {
		e.RawMsg = msg
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	venue := strings.TrimSpace(e.Venue)
	if venue == "" {
		venue = "unknown"
	}
	parts = append(parts, "venue="+venue)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.HTTP > 0 {
		parts = append(parts, "http="+strconv.Itoa(e.HTTP))
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.RawCode != "" {
		parts = append(parts, "raw_code="+strconv.Quote(e.RawCode))
	}
	if e.RawMsg != "" {
		parts = append(parts, "raw_msg="+strconv.Quote(e.RawMsg))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// HasCode reports whether err carries the given connector error code.
func HasCode(err error, code Code) bool {
	var envelope *E
	if errors.As(err, &envelope) {
		return envelope.Code == code
	}
	return false
}

// IsFatal reports whether err is a systemic failure that should bring the connector down.
// Only configuration and authentication failures are fatal; single bad records never are.
func IsFatal(err error) bool {
	var envelope *E
	if !errors.As(err, &envelope) {
		return false
	}
	switch envelope.Code {
	case CodeConfiguration, CodeAuth:
		return true
	default:
		return false
	}
}
