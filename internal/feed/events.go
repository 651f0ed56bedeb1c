package feed

import (
	"encoding/json"
	"time"

	"github.com/ldrmon/ldrmon/internal/reading"
)

// EventType identifies the kind of feed event delivered to listeners.
type EventType string

const (
	EventData         EventType = "data"
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventReconnecting EventType = "reconnecting"
	EventError        EventType = "error"
	EventStatus       EventType = "status"
)

// ErrorKind classifies errors surfaced through Error events.
type ErrorKind string

const (
	KindTimeout       ErrorKind = "timeout"
	KindTransport     ErrorKind = "transport"
	KindParse         ErrorKind = "parse"
	KindMaxReconnects ErrorKind = "max_reconnects"
)

// Event is the tagged union delivered to listeners. Payloads are immutable
// once emitted; listeners must not retain and mutate them.
type Event interface {
	Type() EventType
}

// DataUpdate carries a decoded sensor reading.
type DataUpdate struct {
	Reading reading.Reading
}

// Connected reports a successful connection.
type Connected struct {
	ConnectionID string
	ConnectedAt  time.Time
}

// Disconnected reports a closed connection. Clean is true for an explicit
// normal closure; an abnormal drop triggers the automatic reconnect path.
type Disconnected struct {
	Code   int
	Reason string
	Clean  bool
}

// Reconnecting announces a scheduled reconnect attempt.
type Reconnecting struct {
	Attempt     int
	MaxAttempts int
	Delay       time.Duration
}

// Error reports a mid-session failure. Feed errors are always delivered as
// events, never panics.
type Error struct {
	Kind ErrorKind
	Err  error
}

// Status is a passthrough of a system_status frame.
type Status struct {
	Raw json.RawMessage
}

func (DataUpdate) Type() EventType   { return EventData }
func (Connected) Type() EventType    { return EventConnected }
func (Disconnected) Type() EventType { return EventDisconnected }
func (Reconnecting) Type() EventType { return EventReconnecting }
func (Error) Type() EventType        { return EventError }
func (Status) Type() EventType       { return EventStatus }
