package adapter

import (
	"strconv"
	"strings"
)

// Config is the provider-specific configuration map an adapter is constructed
// with. Recognized keys differ per provider.
type Config map[string]any

func (c Config) String(key string) string {
	if c == nil {
		return ""
	}
	switch v := c[key].(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		return ""
	}
}

func (c Config) Bool(key string) bool {
	if c == nil {
		return false
	}
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && parsed
	default:
		return false
	}
}

func (c Config) Int(key string, fallback int) int {
	if c == nil {
		return fallback
	}
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil {
			return parsed
		}
	}
	return fallback
}

// Headers is a flat lowercase-key view of the incoming HTTP headers. Adapters
// look up their provider-specific header names themselves.
type Headers map[string]string

func (h Headers) Get(key string) string {
	if h == nil {
		return ""
	}
	return h[strings.ToLower(key)]
}

// NormalizeHeaders flattens multi-value HTTP headers into the lowercase-key
// map adapters consume. The first value wins.
func NormalizeHeaders(src map[string][]string) Headers {
	out := make(Headers, len(src))
	for key, values := range src {
		if len(values) == 0 {
			continue
		}
		out[strings.ToLower(key)] = values[0]
	}
	return out
}
