package pi42

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"pi42dash/internal/domain"
)

// Target selects which upstream base URL a proxied request goes to.
type Target string

const (
	TargetPublic  Target = "public"
	TargetPrivate Target = "private"
)

var allowedMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
	"PATCH":  true,
}

// ProxyRequest is the client-issued description of an upstream call.
// Body may be a JSON string (forwarded verbatim) or an object (re-encoded
// as compact JSON).
type ProxyRequest struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Target  Target            `json:"target,omitempty"`
	Query   map[string]any    `json:"query,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

// ProxyResponse mirrors the upstream reply. Data holds the decoded JSON
// body, or the raw text when the body is not valid JSON.
type ProxyResponse struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
	Data       any    `json:"data"`
}

// Validate returns the field-level issues of a malformed request. An
// empty slice means the request is forwardable.
func (r *ProxyRequest) Validate() []domain.Issue {
	var issues []domain.Issue

	if !allowedMethods[r.Method] {
		issues = append(issues, domain.Issue{
			Field:   "method",
			Message: fmt.Sprintf("must be one of GET, POST, PUT, DELETE, PATCH; got %q", r.Method),
		})
	}
	if !strings.HasPrefix(r.Path, "/") {
		issues = append(issues, domain.Issue{
			Field:   "path",
			Message: "must start with \"/\"",
		})
	}
	switch r.Target {
	case "", TargetPublic, TargetPrivate:
	default:
		issues = append(issues, domain.Issue{
			Field:   "target",
			Message: fmt.Sprintf("must be \"public\" or \"private\"; got %q", r.Target),
		})
	}
	if len(r.Body) > 0 && !json.Valid(r.Body) {
		issues = append(issues, domain.Issue{
			Field:   "body",
			Message: "must be a JSON string or object",
		})
	}

	return issues
}

// encodeQuery coerces query values to strings and drops empty/null ones.
// Keys are sorted so the produced URL is deterministic.
func encodeQuery(query map[string]any) string {
	if len(query) == 0 {
		return ""
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := url.Values{}
	for _, k := range keys {
		s := coerceQueryValue(query[k])
		if s == "" {
			continue
		}
		values.Set(k, s)
	}
	return values.Encode()
}

func coerceQueryValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		// encoding/json decodes all numbers to float64; keep integers clean
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// encodeBody prepares the forwarded request body. A JSON string is sent
// verbatim; any other JSON value is re-encoded compactly.
func encodeBody(body json.RawMessage) ([]byte, error) {
	if len(body) == 0 {
		return nil, nil
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return []byte(s), nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
