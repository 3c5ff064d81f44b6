/*
Package neorpc holds the JSON-RPC 2.0 wire types shared by the bridge RPC
server and client: requests, responses, errors, event notifications and the
signed invocation envelope.
*/
package neorpc

import (
	"encoding/json"
)

// JSONRPCVersion is the only supported protocol version.
const JSONRPCVersion = "2.0"

type (
	// Request is a client request. Params are always positional, IDs are
	// numeric.
	Request struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  []any  `json:"params"`
		ID      uint64 `json:"id"`
	}

	// Header is the part common for all responses. ID is kept raw since
	// servers echo whatever the request had.
	Header struct {
		ID      json.RawMessage `json:"id"`
		JSONRPC string          `json:"jsonrpc"`
	}

	// HeaderAndError is a Header with an optional error.
	HeaderAndError struct {
		Header
		Error *Error `json:"error,omitempty"`
	}

	// Response is a response with the result left undecoded.
	Response struct {
		HeaderAndError
		Result json.RawMessage `json:"result,omitempty"`
	}

	// Notification is an event pushed over websocket. It has no ID, the event
	// name goes into "method".
	Notification struct {
		JSONRPC string  `json:"jsonrpc"`
		Event   EventID `json:"method"`
		Payload []any   `json:"params"`
	}

	// NotificationFilter selects events by name (Log or LogResult), nil
	// matches everything.
	NotificationFilter struct {
		Name *string `json:"name,omitempty"`
	}
)
