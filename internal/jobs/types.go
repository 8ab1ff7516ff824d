package jobs

type JobType string

const (
	JobRegistrationConfirmation JobType = "registration.confirmation"
	// retries geocoding for events saved while the geocoder was unavailable
	JobGeocodeEvent JobType = "event.geocode"
)

// check to see if the job type is a known constant
func (t JobType) IsValid() bool {
	switch t {
	case JobRegistrationConfirmation, JobGeocodeEvent:
		return true
	default:
		return false
	}
}

// MaxAttempts bounds retries per type. Geocoding is best effort.
func (t JobType) MaxAttempts() int {
	if t == JobGeocodeEvent {
		return 5
	}
	return 10
}
