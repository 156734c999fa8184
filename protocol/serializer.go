package protocol

import "encoding/json"

// Serializer defines the contract for encoding event logs leaving the engine.
// Downstream consumers pick the format (JSON, Protobuf, SBE, etc.); the engine
// only needs bytes.
type Serializer interface {
	// Marshal serializes a Go struct (e.g. a trade log) into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes bytes into a Go struct.
	// v must be a pointer to the target struct.
	Unmarshal(data []byte, v any) error
}

// DefaultJSONSerializer encodes with encoding/json.
type DefaultJSONSerializer struct{}

func (DefaultJSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (DefaultJSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
