package neorpc

import (
	"encoding/json"
	"errors"
)

// EventID represents an event type happening in the bridge.
type EventID byte

const (
	// InvalidEventID is an invalid event id that is the default value of
	// EventID. It's only used as an initial value similar to nil.
	InvalidEventID EventID = iota
	// NotificationEventID represents `notification_from_execution` events.
	NotificationEventID
	// MissedEventID notifies user of missed events.
	MissedEventID EventID = 255
)

// String is a good old Stringer implementation.
func (e EventID) String() string {
	switch e {
	case NotificationEventID:
		return "notification_from_execution"
	case MissedEventID:
		return "event_missed"
	default:
		return "unknown"
	}
}

// GetEventIDFromString converts an input string into an EventID if it's possible.
func GetEventIDFromString(s string) (EventID, error) {
	switch s {
	case "notification_from_execution":
		return NotificationEventID, nil
	case "event_missed":
		return MissedEventID, nil
	default:
		return 255, errors.New("invalid stream name")
	}
}

// MarshalJSON implements the json.Marshaler interface.
func (e EventID) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (e *EventID) UnmarshalJSON(b []byte) error {
	var s string

	err := json.Unmarshal(b, &s)
	if err != nil {
		return err
	}
	id, err := GetEventIDFromString(s)
	if err != nil {
		return err
	}
	*e = id
	return nil
}
