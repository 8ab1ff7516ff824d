package jobs

// Payloads stay minimal and ID-based; the worker loads details from the DB.

// RegistrationConfirmationPayload is enqueued in the same transaction as the registration.
type RegistrationConfirmationPayload struct {
	RegistrationID string `json:"registrationId"`
	UserID         string `json:"userId"`
	EventID        string `json:"eventId"`
	RequestID      string `json:"requestId,omitempty"`
}

type GeocodeEventPayload struct {
	EventID string `json:"eventId"`
}
