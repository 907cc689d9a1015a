package client

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// decodePayload maps a decoded JSON-RPC result (a map[string]interface{})
// onto a typed struct, matching field names by their json tags.
func decodePayload(payload interface{}, target interface{}) error {
	if payload == nil {
		return fmt.Errorf("payload is nil")
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  target,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(payload); err != nil {
		return fmt.Errorf("failed to decode payload into %T: %w", target, err)
	}
	return nil
}
