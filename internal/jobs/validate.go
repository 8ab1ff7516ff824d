package jobs

import "strings"

// ValidatePayload checks the payload type and its required IDs.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	switch t {
	case JobRegistrationConfirmation:
		var p RegistrationConfirmationPayload
		switch v := payload.(type) {
		case RegistrationConfirmationPayload:
			p = v
		case *RegistrationConfirmationPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if blank(p.RegistrationID) || blank(p.UserID) || blank(p.EventID) {
			return ErrInvalidJobPayload
		}
		return nil

	case JobGeocodeEvent:
		var p GeocodeEventPayload
		switch v := payload.(type) {
		case GeocodeEventPayload:
			p = v
		case *GeocodeEventPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if blank(p.EventID) {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
