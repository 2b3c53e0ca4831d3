package commsutil

import (
	"encoding/json"
	"fmt"
)

// EncodePayload serializes a value to JSON bytes for a COMMS message.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes COMMS message bytes into the given target.
// An empty message is reported separately so callers can tell a missing reply body from malformed JSON.
func DecodePayload(data []byte, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("commsutil:codec - empty message body")
	}
	return json.Unmarshal(data, v)
}
