package h2

import (
	"fmt"

	"golang.org/x/net/http2"
)

// Reason identifies the structured cause of an HTTP2Error, mirroring the
// reason atoms spec'd for the core: callers switch on Reason() instead of
// parsing Error() strings.
type Reason int

const (
	ReasonClosed Reason = iota
	ReasonClosedForWriting
	ReasonUnprocessed
	ReasonTooManyConcurrentRequests
	ReasonServerClosedRequest
	ReasonServerClosedConnection
	ReasonProtocolError
	ReasonCompressionError
	ReasonFrameSizeError
	ReasonFlowControlError
	ReasonMaxHeaderListSizeExceeded
	ReasonExceedsWindowSize
	ReasonMissingStatusHeader
	ReasonRequestIsNotStreaming
	ReasonUnknownRequestToStream
	ReasonUnallowedTrailingHeader
)

func (r Reason) String() string {
	switch r {
	case ReasonClosed:
		return "closed"
	case ReasonClosedForWriting:
		return "closed_for_writing"
	case ReasonUnprocessed:
		return "unprocessed"
	case ReasonTooManyConcurrentRequests:
		return "too_many_concurrent_requests"
	case ReasonServerClosedRequest:
		return "server_closed_request"
	case ReasonServerClosedConnection:
		return "server_closed_connection"
	case ReasonProtocolError:
		return "protocol_error"
	case ReasonCompressionError:
		return "compression_error"
	case ReasonFrameSizeError:
		return "frame_size_error"
	case ReasonFlowControlError:
		return "flow_control_error"
	case ReasonMaxHeaderListSizeExceeded:
		return "max_header_list_size_exceeded"
	case ReasonExceedsWindowSize:
		return "exceeds_window_size"
	case ReasonMissingStatusHeader:
		return "missing_status_header"
	case ReasonRequestIsNotStreaming:
		return "request_is_not_streaming"
	case ReasonUnknownRequestToStream:
		return "unknown_request_to_stream"
	case ReasonUnallowedTrailingHeader:
		return "unallowed_trailing_header"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// HTTP2Error is a protocol-level fault, per spec.md §7. It carries enough
// structured detail (Code, Debug, Scope, Window, Size/Limit, Header) for a
// caller to act without parsing Error().
type HTTP2Error struct {
	reason  Reason
	message string

	Code   http2.ErrCode
	Debug  string
	Scope  string // "connection" or "request", for ReasonExceedsWindowSize
	Window int32
	Size   uint32
	Limit  uint32
	Header [2]string // name, value for ReasonUnallowedTrailingHeader
}

func (e *HTTP2Error) Error() string { return e.message }

// Reason returns the structured cause, for callers that want to switch
// instead of string-match.
func (e *HTTP2Error) Reason() Reason { return e.reason }

// IsConnectionError reports whether this error taints the whole connection
// (→ GOAWAY, closed) as opposed to being scoped to one stream (→ RST_STREAM).
func (e *HTTP2Error) IsConnectionError() bool {
	switch e.reason {
	case ReasonProtocolError, ReasonCompressionError, ReasonFrameSizeError, ReasonServerClosedConnection:
		return true
	case ReasonFlowControlError:
		return e.Scope != "request"
	case ReasonExceedsWindowSize:
		return e.Scope == "connection"
	default:
		return false
	}
}

func newErr(reason Reason, message string) *HTTP2Error {
	return &HTTP2Error{reason: reason, message: message}
}

func ErrClosed() *HTTP2Error {
	return newErr(ReasonClosed, "the connection is closed")
}

func ErrClosedForWriting() *HTTP2Error {
	return newErr(ReasonClosedForWriting, "the connection is closed for writing (GOAWAY was received or sent)")
}

func ErrUnprocessed() *HTTP2Error {
	return newErr(ReasonUnprocessed, "the request was not processed by the server before it sent GOAWAY and may be retried on a new connection")
}

func ErrTooManyConcurrentRequests() *HTTP2Error {
	return newErr(ReasonTooManyConcurrentRequests, "the number of in-flight requests exceeds the server's SETTINGS_MAX_CONCURRENT_STREAMS")
}

func ErrServerClosedRequest(code http2.ErrCode) *HTTP2Error {
	e := newErr(ReasonServerClosedRequest, fmt.Sprintf("the server closed the request with error: %s", errCodeName(code)))
	e.Code = code
	return e
}

func ErrServerClosedConnection(code http2.ErrCode, debug string) *HTTP2Error {
	e := newErr(ReasonServerClosedConnection, fmt.Sprintf("the server closed the connection with error: %s (%s)", errCodeName(code), debug))
	e.Code = code
	e.Debug = debug
	return e
}

func ErrProtocol(debug string) *HTTP2Error {
	e := newErr(ReasonProtocolError, "protocol error: "+debug)
	e.Code = http2.ErrCodeProtocol
	e.Debug = debug
	return e
}

func ErrCompression(debug string) *HTTP2Error {
	e := newErr(ReasonCompressionError, "unable to decode headers: "+debug)
	e.Code = http2.ErrCodeCompression
	e.Debug = debug
	return e
}

func ErrFrameSize(debug string) *HTTP2Error {
	e := newErr(ReasonFrameSizeError, "frame size error: "+debug)
	e.Code = http2.ErrCodeFrameSize
	e.Debug = debug
	return e
}

func ErrFlowControl(scope, debug string) *HTTP2Error {
	e := newErr(ReasonFlowControlError, "flow control error: "+debug)
	e.Code = http2.ErrCodeFlowControl
	e.Debug = debug
	e.Scope = scope
	return e
}

func ErrMaxHeaderListSizeExceeded(size, limit uint32) *HTTP2Error {
	e := newErr(ReasonMaxHeaderListSizeExceeded, fmt.Sprintf("header list of %d bytes exceeds the limit of %d bytes", size, limit))
	e.Size = size
	e.Limit = limit
	return e
}

func ErrExceedsWindowSize(scope string, window int32) *HTTP2Error {
	e := newErr(ReasonExceedsWindowSize, fmt.Sprintf("request body exceeds the %s flow control window of %d bytes", scope, window))
	e.Scope = scope
	e.Window = window
	return e
}

func ErrMissingStatusHeader() *HTTP2Error {
	return newErr(ReasonMissingStatusHeader, "the final HEADERS frame did not carry a :status pseudo-header")
}

func ErrRequestIsNotStreaming() *HTTP2Error {
	return newErr(ReasonRequestIsNotStreaming, "the request body was not opened in streaming mode")
}

func ErrUnknownRequestToStream() *HTTP2Error {
	return newErr(ReasonUnknownRequestToStream, "the request reference is unknown or its stream has already been closed and drained")
}

func ErrUnallowedTrailingHeader(name, value string) *HTTP2Error {
	e := newErr(ReasonUnallowedTrailingHeader, fmt.Sprintf("trailing header %q is not allowed", name))
	e.Header = [2]string{name, value}
	return e
}

func errCodeName(code http2.ErrCode) string {
	if s := code.String(); s != "" {
		return s
	}
	return fmt.Sprintf("error code %d", uint32(code))
}

// TransportError is an I/O fault from the Transport, per spec.md §7.
type TransportError struct {
	Reason string // "closed", "timeout", "etimeout", "nxdomain", "econnrefused", "ssl_error", ...
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport error (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transport error: %s", e.Reason)
}

func (e *TransportError) Unwrap() error { return e.Err }

func NewTransportError(reason string, err error) *TransportError {
	return &TransportError{Reason: reason, Err: err}
}

// ArgumentError signals a programmer mistake (bad setting name/type, recv
// in active mode, a window query for an unknown request). It is never a
// protocol or I/O fault and is not meant to be recovered from.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string { return e.Message }

func NewArgumentError(format string, args ...interface{}) *ArgumentError {
	return &ArgumentError{Message: fmt.Sprintf(format, args...)}
}
