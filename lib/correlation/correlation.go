package correlation

import (
	"strings"

	"github.com/google/uuid"
)

// RequestID returns a fresh random identifier for the x-request-id header.
func RequestID() string {
	return uuid.NewString()
}

func hexOf(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}

// TraceParent returns a token of the form 00-<trace id>-<span id>-01.
//
// the trace id is the 32 hex characters of one random uuid, the span id
// is the first 16 hex characters of a second, independent one.
func TraceParent() string {
	traceId := hexOf(uuid.New())
	spanId := hexOf(uuid.New())[:16]

	var out strings.Builder
	out.Grow(55)
	out.WriteString("00-")
	out.WriteString(traceId)
	out.WriteString("-")
	out.WriteString(spanId)
	out.WriteString("-01")
	return out.String()
}
