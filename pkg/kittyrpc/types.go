/*
Package kittyrpc contains a set of types used for JSON-RPC communication with
kittychain nodes. It defines basic request/response types as well as a set of
errors and event filters used for specific requests/responses.
*/
package kittyrpc

import (
	"encoding/json"
)

const (
	// JSONRPCVersion is the only JSON-RPC protocol version supported.
	JSONRPCVersion = "2.0"
)

type (
	// Request represents JSON-RPC request. It's generic enough to be used in
	// many generic JSON-RPC communication scenarios, yet at the same time
	// it's tailored for the kittychain RPC client needs.
	Request struct {
		// JSONRPC is the protocol version, only valid when it contains
		// JSONRPCVersion.
		JSONRPC string `json:"jsonrpc"`
		// Method is the method being called.
		Method string `json:"method"`
		// Params is a set of method-specific parameters passed to the call.
		// All kittychain calls expect params to be an array.
		Params []any `json:"params"`
		// ID is an identifier associated with this request. The RPC client
		// uses numeric identifiers.
		ID uint64 `json:"id"`
	}

	// Header is a generic JSON-RPC 2.0 response header (ID and JSON-RPC
	// version).
	Header struct {
		ID      json.RawMessage `json:"id"`
		JSONRPC string          `json:"jsonrpc"`
	}

	// HeaderAndError adds an Error (that can be empty) to the Header, it's
	// used to construct type-specific responses.
	HeaderAndError struct {
		Header
		Error *Error `json:"error,omitempty"`
	}

	// Response represents a standard raw JSON-RPC 2.0
	// response: http://www.jsonrpc.org/specification#response_object.
	Response struct {
		HeaderAndError
		Result json.RawMessage `json:"result,omitempty"`
	}

	// Notification is a type used to represent wire format of events, they're
	// special in that they look like requests but they don't have IDs and
	// their "method" is actually an event name.
	Notification struct {
		JSONRPC string  `json:"jsonrpc"`
		Event   EventID `json:"method"`
		Payload []any   `json:"params"`
	}
)

// EventID implements the EventContainer interface and returns notification
// ID.
func (n *Notification) EventID() EventID {
	return n.Event
}

// EventPayload implements the EventContainer interface and returns
// notification object.
func (n *Notification) EventPayload() any {
	return n.Payload[0]
}
