package scoring

import (
	"encoding/json"
	"strings"

	"feastbench/domain/core"
)

// schemaResponse is the declared output schema every prompt template asks
// for: a JSON object with a "holidays" array, empty when the date carries
// none.
type schemaResponse struct {
	Holidays []string `json:"holidays"`
}

// ParseHolidays extracts the holiday label list from a raw response per the
// declared schema. It first tries the whole body, then the outermost brace
// span — models habitually wrap the object in prose or a code fence.
func ParseHolidays(raw string) ([]string, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return nil, core.NewParseError("empty response body", nil)
	}

	if labels, ok := tryUnmarshal(body); ok {
		return labels, nil
	}

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start >= 0 && end > start {
		if labels, ok := tryUnmarshal(body[start : end+1]); ok {
			return labels, nil
		}
	}

	return nil, core.NewParseError("no holidays object found", nil)
}

func tryUnmarshal(s string) ([]string, bool) {
	var resp schemaResponse
	dec := json.NewDecoder(strings.NewReader(s))
	if err := dec.Decode(&resp); err != nil {
		return nil, false
	}
	if resp.Holidays == nil {
		// Object decoded but the required key is absent.
		if !strings.Contains(s, `"holidays"`) {
			return nil, false
		}
		resp.Holidays = []string{}
	}
	out := make([]string, 0, len(resp.Holidays))
	for _, h := range resp.Holidays {
		if n := Normalize(h); n != "" {
			out = append(out, n)
		}
	}
	return out, true
}

// KeywordScan is the audit fallback for schema-invalid responses: a plain
// substring scan of the normalized body against the accepted synonym set.
// It can only ever find accepted labels, so it is usable for recognition
// but not for detecting spurious extra labels.
func KeywordScan(raw string, accepted []string) []string {
	body := Normalize(raw)
	var hits []string
	for _, a := range accepted {
		if a != "" && strings.Contains(body, a) {
			hits = append(hits, a)
		}
	}
	return hits
}
