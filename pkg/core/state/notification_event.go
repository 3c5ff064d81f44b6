package state

import (
	"fmt"

	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/io"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
)

// Event names.
const (
	// LogEventName is emitted once per registered query.
	LogEventName = "Log"
	// LogResultEventName is emitted once per fulfilled query.
	LogResultEventName = "LogResult"
)

// MaxParamsSize is the maximum size of encoded parameters and options
// carried by a Log event.
const MaxParamsSize = 0x10000

// NotificationEvent is an event emitted by the bridge. Exactly one of Log
// and Result is set depending on Name.
type NotificationEvent struct {
	Name   string          `json:"name"`
	Log    *LogEvent       `json:"log,omitempty"`
	Result *LogResultEvent `json:"result,omitempty"`
}

// LogEvent describes a registered query. PathParams and QueryParams are
// encoded with the params codec.
type LogEvent struct {
	ID          util.Uint256   `json:"id"`
	Requester   util.Uint160   `json:"requester"`
	Operation   operation.Code `json:"operation"`
	PathParams  []byte         `json:"pathparams"`
	QueryParams []byte         `json:"queryparams"`
	Options     string         `json:"options"`
}

// LogResultEvent describes a fulfilled query.
type LogResultEvent struct {
	ID         util.Uint256   `json:"id"`
	Operation  operation.Code `json:"operation"`
	StatusCode uint32         `json:"status"`
	Response   []byte         `json:"response"`
}

// ContainedNotificationEvent is a NotificationEvent as it's persisted: with
// its global index and the sequence number of the transaction that produced
// it.
type ContainedNotificationEvent struct {
	Index     uint64 `json:"index"`
	Container uint64 `json:"container"`
	NotificationEvent
}

// NewLogEvent creates a Log notification.
func NewLogEvent(ev *LogEvent) NotificationEvent {
	return NotificationEvent{Name: LogEventName, Log: ev}
}

// NewLogResultEvent creates a LogResult notification.
func NewLogResultEvent(ev *LogResultEvent) NotificationEvent {
	return NotificationEvent{Name: LogResultEventName, Result: ev}
}

// ID returns the query ID the event refers to.
func (ne *NotificationEvent) ID() util.Uint256 {
	switch {
	case ne.Log != nil:
		return ne.Log.ID
	case ne.Result != nil:
		return ne.Result.ID
	}
	return util.Uint256{}
}

// EncodeBinary implements the io.Serializable interface.
func (ne *NotificationEvent) EncodeBinary(w *io.BinWriter) {
	w.WriteString(ne.Name)
	switch ne.Name {
	case LogEventName:
		if ne.Log == nil {
			w.Err = fmt.Errorf("%s event without body", ne.Name)
			return
		}
		ne.Log.EncodeBinary(w)
	case LogResultEventName:
		if ne.Result == nil {
			w.Err = fmt.Errorf("%s event without body", ne.Name)
			return
		}
		ne.Result.EncodeBinary(w)
	default:
		w.Err = fmt.Errorf("unknown event %q", ne.Name)
	}
}

// DecodeBinary implements the io.Serializable interface.
func (ne *NotificationEvent) DecodeBinary(r *io.BinReader) {
	ne.Name = r.ReadString(32)
	if r.Err != nil {
		return
	}
	ne.Log, ne.Result = nil, nil
	switch ne.Name {
	case LogEventName:
		ne.Log = new(LogEvent)
		ne.Log.DecodeBinary(r)
	case LogResultEventName:
		ne.Result = new(LogResultEvent)
		ne.Result.DecodeBinary(r)
	default:
		r.Err = fmt.Errorf("unknown event %q", ne.Name)
	}
}

// EncodeBinary implements the io.Serializable interface.
func (e *LogEvent) EncodeBinary(w *io.BinWriter) {
	e.ID.EncodeBinary(w)
	e.Requester.EncodeBinary(w)
	w.WriteB(byte(e.Operation))
	w.WriteVarBytes(e.PathParams)
	w.WriteVarBytes(e.QueryParams)
	w.WriteString(e.Options)
}

// DecodeBinary implements the io.Serializable interface.
func (e *LogEvent) DecodeBinary(r *io.BinReader) {
	e.ID.DecodeBinary(r)
	e.Requester.DecodeBinary(r)
	e.Operation = operation.Code(r.ReadB())
	e.PathParams = r.ReadVarBytes(MaxParamsSize)
	e.QueryParams = r.ReadVarBytes(MaxParamsSize)
	e.Options = r.ReadString(MaxParamsSize)
}

// EncodeBinary implements the io.Serializable interface.
func (e *LogResultEvent) EncodeBinary(w *io.BinWriter) {
	e.ID.EncodeBinary(w)
	w.WriteB(byte(e.Operation))
	w.WriteU32LE(e.StatusCode)
	w.WriteVarBytes(e.Response)
}

// DecodeBinary implements the io.Serializable interface.
func (e *LogResultEvent) DecodeBinary(r *io.BinReader) {
	e.ID.DecodeBinary(r)
	e.Operation = operation.Code(r.ReadB())
	e.StatusCode = r.ReadU32LE()
	e.Response = r.ReadVarBytes(MaxResponseSize)
}

// EncodeBinary implements the io.Serializable interface.
func (e *ContainedNotificationEvent) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(e.Index)
	w.WriteU64LE(e.Container)
	e.NotificationEvent.EncodeBinary(w)
}

// DecodeBinary implements the io.Serializable interface.
func (e *ContainedNotificationEvent) DecodeBinary(r *io.BinReader) {
	e.Index = r.ReadU64LE()
	e.Container = r.ReadU64LE()
	e.NotificationEvent.DecodeBinary(r)
}
