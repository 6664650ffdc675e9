package rpcserver

import (
	"encoding/json"
	"fmt"
)

// codecName replaces connect's built-in protojson codec, which only
// accepts proto.Message values.
const codecName = "json"

// Codec is a connect.Codec for plain Go structs.
type Codec struct{}

// Name implements connect.Codec.
func (Codec) Name() string { return codecName }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("json marshal %T: %w", msg, err)
	}
	return b, nil
}

// Unmarshal implements connect.Codec. An empty body leaves msg at its zero value.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("json unmarshal %T: %w", msg, err)
	}
	return nil
}
