package domain

// Field constants for mapstructure and JSON standardization.
const (
	// KeyIdempotency is the metadata key carrying the deterministic idempotency key
	// of a step submission. It is also the JSON field name in SubmitRequest.
	KeyIdempotency = "idempotency_key"

	// HeaderIdempotency is the HTTP header used by the REST submitter.
	HeaderIdempotency = "Idempotency-Key"
)
