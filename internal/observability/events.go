package observability

// EventEnvelope is the wire envelope for service events published to the
// topic exchange (ws lifecycle, audit).
type EventEnvelope struct {
	EventType string `json:"event_type"`
	EventName string `json:"event_name"`
	Payload   any    `json:"payload"`
}

// BuildHeaders assembles correlation headers for a published message. Empty
// values are omitted.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
