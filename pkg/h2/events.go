package h2

// EventKind tags an Event's variant. Modeled as a tagged sum type per
// spec.md §4.8/§9 rather than one interface-per-variant: callers get a
// single flat struct to switch on, matching how the teacher's commands.go
// matches on a plain string "field" rather than a type hierarchy.
type EventKind int

const (
	EventStatus EventKind = iota
	EventHeaders
	EventData
	EventDone
	EventError
	EventPushPromise
	EventSettingsAck
	EventSettingsChanged
	EventPong
)

func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventHeaders:
		return "headers"
	case EventData:
		return "data"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	case EventPushPromise:
		return "push_promise"
	case EventSettingsAck:
		return "settings_ack"
	case EventSettingsChanged:
		return "settings_changed"
	case EventPong:
		return "pong"
	default:
		return "unknown"
	}
}

// Event is one item in the per-stream (or connection-wide, for
// EventSettingsAck/EventSettingsChanged/EventPong) ordered response
// stream a caller drains after Stream()/Recv(). Per spec.md's ordering
// invariant, a given Ref's events always appear in the order:
// [status] [headers]* [data]* (done | error), with push_promise
// interleaved freely and carrying its own new Ref.
type Event struct {
	Kind EventKind
	Ref  RequestRef

	StatusCode int
	Headers    []HeaderField
	Data       []byte
	Err        error // *HTTP2Error, *TransportError, or *ArgumentError

	// PushPromise fields: Ref is the promised stream's new ref, ParentRef
	// the request that triggered it.
	ParentRef RequestRef

	PingRef PingRef
}

func evStatus(ref RequestRef, code int) Event {
	return Event{Kind: EventStatus, Ref: ref, StatusCode: code}
}

func evHeaders(ref RequestRef, headers []HeaderField) Event {
	return Event{Kind: EventHeaders, Ref: ref, Headers: headers}
}

func evData(ref RequestRef, data []byte) Event {
	return Event{Kind: EventData, Ref: ref, Data: data}
}

func evDone(ref RequestRef) Event {
	return Event{Kind: EventDone, Ref: ref}
}

func evError(ref RequestRef, err error) Event {
	return Event{Kind: EventError, Ref: ref, Err: err}
}

func evPushPromise(parent, promised RequestRef, headers []HeaderField) Event {
	return Event{Kind: EventPushPromise, Ref: promised, ParentRef: parent, Headers: headers}
}

func evSettingsAck() Event {
	return Event{Kind: EventSettingsAck}
}

func evSettingsChanged() Event {
	return Event{Kind: EventSettingsChanged}
}

func evPong(ref PingRef) Event {
	return Event{Kind: EventPong, PingRef: ref}
}
