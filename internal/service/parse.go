package service

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/connecthq/connect-core/internal/domain/profile"
	"github.com/connecthq/connect-core/internal/domain/query"
)

// The graph service renders fetch responses through a driver layer that
// sometimes leaks non-JSON artifacts: HTML-escaped entities, bare nan,
// Python-style literals with single quotes, and constructor renderings
// like neo4j.time.DateTime(2025, 10, 9, 12, 8, 29). The deserializer
// recovers a profile from such text with three ordered strategies;
// first success wins, all-fail is non-fatal to the batch.

var (
	driverCtorPattern = regexp.MustCompile(`neo4j\.[a-zA-Z.]+\([^)]+\)`)
	nanPattern        = regexp.MustCompile(`\bnan\b`)
	nonePattern       = regexp.MustCompile(`\bNone\b`)
	truePattern       = regexp.MustCompile(`\bTrue\b`)
	falsePattern      = regexp.MustCompile(`\bFalse\b`)
)

// ParseProfile recovers a profile from one raw fetch response. Returns
// nil when no strategy can parse the text.
func ParseProfile(id query.EntityID, raw string) *profile.Profile {
	fields, strategy := parseFields(raw)
	if fields == nil {
		return nil
	}
	return &profile.Profile{
		EntityID:      id,
		Fields:        fields,
		ParseStrategy: strategy,
	}
}

// parseFields tries the three parse strategies in order and reports
// which one succeeded.
func parseFields(raw string) (map[string]any, int) {
	// Strategy 1: the text is valid JSON as-is.
	if fields, err := decodeFields(raw); err == nil {
		return fields, 1
	}

	// Strategy 2: sanitize driver artifacts, convert Python-style
	// single-quoted strings, then parse leniently.
	cleaned := pythonLiterals(quoteAware(sanitize(raw)))
	if fields, err := decodeFields(cleaned); err == nil {
		return fields, 2
	}

	// Strategy 3: blunt quote normalization, then strict parse.
	blunt := pythonLiterals(strings.ReplaceAll(sanitize(raw), "'", `"`))
	if fields, err := decodeFields(blunt); err == nil {
		return fields, 3
	}

	return nil, 0
}

// decodeFields parses text as a JSON object, or takes the first element
// of a JSON array of objects.
func decodeFields(text string) (map[string]any, error) {
	var root any
	if err := json.Unmarshal([]byte(text), &root); err != nil {
		return nil, err
	}
	switch v := root.(type) {
	case map[string]any:
		return v, nil
	case []any:
		if len(v) > 0 {
			if obj, ok := v[0].(map[string]any); ok {
				return obj, nil
			}
		}
	}
	return nil, fmt.Errorf("response is not a profile object")
}

// sanitize decodes HTML entities and replaces driver constructor
// renderings and bare nan with null.
func sanitize(text string) string {
	s := html.UnescapeString(text)
	s = driverCtorPattern.ReplaceAllString(s, "null")
	s = nanPattern.ReplaceAllString(s, "null")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}

// pythonLiterals maps Python keyword literals onto their JSON forms.
func pythonLiterals(text string) string {
	s := nonePattern.ReplaceAllString(text, "null")
	s = truePattern.ReplaceAllString(s, "true")
	s = falsePattern.ReplaceAllString(s, "false")
	return s
}

// quoteAware converts single-quoted strings to double-quoted ones while
// leaving the contents of existing double-quoted strings alone.
func quoteAware(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))

	inSingle, inDouble, escaped := false, false, false
	for i := 0; i < len(text); i++ {
		ch := text[i]

		if escaped {
			// \' inside a single-quoted string becomes a plain quote.
			if inSingle && ch == '\'' {
				sb.WriteByte('\'')
			} else {
				sb.WriteByte('\\')
				sb.WriteByte(ch)
			}
			escaped = false
			continue
		}

		switch {
		case ch == '\\' && (inSingle || inDouble):
			escaped = true
		case ch == '\'' && !inDouble:
			sb.WriteByte('"')
			inSingle = !inSingle
		case ch == '"' && inSingle:
			sb.WriteString(`\"`)
		case ch == '"' && !inSingle:
			sb.WriteByte('"')
			inDouble = !inDouble
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}
