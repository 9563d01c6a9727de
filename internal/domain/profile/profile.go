// Package profile defines the hydrated person record returned by the
// engine after a full-record fetch and parse.
package profile

import "github.com/connecthq/connect-core/internal/domain/query"

// Profile is one structured person record recovered from a raw fetch
// response. ParseStrategy records which deserializer strategy produced
// it (1 = strict, 2 = sanitized, 3 = quote-normalized).
type Profile struct {
	EntityID      query.EntityID `json:"entity_id"`
	Fields        map[string]any `json:"fields"`
	ParseStrategy int            `json:"parse_strategy"`
}

// Name returns the person's display name when present.
func (p *Profile) Name() string {
	if p == nil || p.Fields == nil {
		return ""
	}
	if v, ok := p.Fields["name"].(string); ok {
		return v
	}
	return ""
}

// FetchStats counts a batch hydration for observability. Failures are
// recorded here, never raised.
type FetchStats struct {
	Requested   int `json:"requested"`
	Fetched     int `json:"fetched"`
	ParseFailed int `json:"parse_failed"`
}
