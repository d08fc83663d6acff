package service

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// encodePayload serializes structured data for a text column. Any JSON value
// is accepted; nil is stored as NULL.
func encodePayload(data any) (*string, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	s := string(raw)
	return &s, nil
}

// decodePayload parses a stored payload of any JSON shape. It returns
// fallback when the column is empty, holds JSON null or is not valid JSON.
func decodePayload(raw *string, fallback any) (any, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return fallback, nil
	}
	var out any
	if err := json.Unmarshal([]byte(*raw), &out); err != nil {
		return fallback, err
	}
	if out == nil {
		return fallback, nil
	}
	return out, nil
}

// validateTarget accepts absolute URLs. Hierarchical targets need a host;
// opaque ones such as mailto:someone@example.com need a non-empty body.
func validateTarget(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", ErrInvalidTarget
	}
	parsed, err := url.Parse(target)
	if err != nil || !parsed.IsAbs() {
		return "", ErrInvalidTarget
	}
	if parsed.Host == "" && parsed.Opaque == "" && parsed.Path == "" {
		return "", ErrInvalidTarget
	}
	return target, nil
}
