package store

import (
	"fmt"
	"strconv"
	"strings"
)

// formatVector renders a float slice as a pgvector literal, e.g. "[1,2,3]".
// Passing the literal with an explicit ::vector cast keeps the wire format
// independent of registered pgx types.
func formatVector(v []float64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	}
	sb.WriteByte(']')
	return sb.String()
}

func parseVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("malformed vector literal %q", s)
	}
	body := s[1 : len(s)-1]
	if body == "" {
		return []float64{}, nil
	}

	parts := strings.Split(body, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed vector element %q: %w", p, err)
		}
		out[i] = f
	}
	return out, nil
}
