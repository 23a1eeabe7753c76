package summary

import (
	"encoding/json"
	"fmt"
	"strings"

	"spacebio/internal/models"
)

// ParseSummary turns raw backend output into a validated Summary. It
// tries a strict parse first, then a bounded-effort extraction of the
// first balanced JSON object, since backends like to wrap JSON in
// prose.
func ParseSummary(raw string) (models.Summary, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Summary{}, fmt.Errorf("empty backend output")
	}
	var s models.Summary
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return s, validate(s)
	}
	obj, ok := extractJSONObject(raw)
	if !ok {
		return models.Summary{}, fmt.Errorf("no JSON object found in backend output")
	}
	if err := json.Unmarshal([]byte(obj), &s); err != nil {
		return models.Summary{}, fmt.Errorf("extracted object does not parse: %w", err)
	}
	return s, validate(s)
}

func validate(s models.Summary) error {
	var missing []string
	if strings.TrimSpace(s.Intro) == "" {
		missing = append(missing, "intro")
	}
	if strings.TrimSpace(s.Outro) == "" {
		missing = append(missing, "outro")
	}
	if strings.TrimSpace(s.PlainText) == "" {
		missing = append(missing, "plain_text")
	}
	if len(missing) > 0 {
		return fmt.Errorf("summary missing fields: %s", strings.Join(missing, ", "))
	}
	if len(s.KeyPoints) != models.SummaryKeyPoints {
		return fmt.Errorf("summary has %d key points, want exactly %d", len(s.KeyPoints), models.SummaryKeyPoints)
	}
	for i, kp := range s.KeyPoints {
		if strings.TrimSpace(kp) == "" {
			return fmt.Errorf("summary key point %d is empty", i+1)
		}
	}
	return nil
}

// extractJSONObject returns the first balanced {...} substring,
// tracking string and escape state so braces inside values do not
// confuse the depth count.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
