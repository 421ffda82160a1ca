package gateway

// Outcome is the classification of a submission response
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeRejected  Outcome = "rejected"
	OutcomeTransient Outcome = "transient"
)

// Classify maps an HTTP status code, or a transport failure, to an Outcome. Every 2xx
// is accepted (gateways answer 208 for a transaction they already hold); 4xx is
// rejected; 5xx and transport failures are transient. Other codes are unexpected and
// treated as rejected.
func Classify(statusCode int, transportErr error) Outcome {
	if transportErr != nil {
		return OutcomeTransient
	}
	switch {
	case statusCode >= 200 && statusCode < 300:
		return OutcomeAccepted
	case statusCode >= 400 && statusCode < 500:
		return OutcomeRejected
	case statusCode >= 500 && statusCode < 600:
		return OutcomeTransient
	default:
		return OutcomeRejected
	}
}
