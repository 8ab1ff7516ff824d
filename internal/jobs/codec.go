package jobs

import (
	"encoding/json"
	"fmt"
)

// EncodePayload checks that payload matches t before marshalling it.
func EncodePayload(t JobType, payload any) ([]byte, error) {
	if err := ValidatePayload(t, payload); err != nil {
		return nil, err
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals raw into the typed payload struct for t.
func DecodePayload(t JobType, raw []byte) (any, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(raw) == 0 {
		return nil, ErrInvalidJobPayload
	}

	var out any
	switch t {
	case JobRegistrationConfirmation:
		var p RegistrationConfirmationPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		out = p

	case JobGeocodeEvent:
		var p GeocodeEventPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		out = p

	default:
		return nil, ErrInvalidJobType
	}

	if err := ValidatePayload(t, out); err != nil {
		return nil, err
	}

	return out, nil
}
