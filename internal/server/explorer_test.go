package server

import (
	"net/http"
	"testing"
)

func TestBuildRequest(t *testing.T) {
	t.Run("Empty Fields Become Empty Objects", func(t *testing.T) {
		req, err := BuildRequest(ExplorerForm{Method: "post", Path: " /v1/order "})
		if err != nil {
			t.Fatalf("BuildRequest failed: %v", err)
		}
		if req.Method != "POST" || req.Path != "/v1/order" {
			t.Errorf("Expected trimmed/uppercased fields, got %s %s", req.Method, req.Path)
		}
		if string(req.Body) != "{}" {
			t.Errorf("Empty body should default to {}, got %q", req.Body)
		}
	})

	t.Run("GET Omits Body", func(t *testing.T) {
		req, err := BuildRequest(ExplorerForm{Method: "GET", Path: "/x", Body: `{"a":1}`})
		if err != nil {
			t.Fatalf("BuildRequest failed: %v", err)
		}
		if req.Body != nil {
			t.Errorf("GET requests must not carry a body, got %q", req.Body)
		}
	})

	t.Run("Query And Headers Parsed", func(t *testing.T) {
		req, err := BuildRequest(ExplorerForm{
			Method:  "GET",
			Path:    "/x",
			Query:   `{"symbol":"BTCINR","limit":5}`,
			Headers: `{"X-Custom":"1"}`,
		})
		if err != nil {
			t.Fatalf("BuildRequest failed: %v", err)
		}
		if req.Query["symbol"] != "BTCINR" {
			t.Errorf("Unexpected query: %v", req.Query)
		}
		if req.Headers["X-Custom"] != "1" {
			t.Errorf("Unexpected headers: %v", req.Headers)
		}
	})

	t.Run("Invalid Query JSON Rejected", func(t *testing.T) {
		_, err := BuildRequest(ExplorerForm{Method: "GET", Path: "/x", Query: "{broken"})
		if err == nil {
			t.Error("Expected a parse error for invalid query JSON")
		}
	})

	t.Run("Invalid Body JSON Rejected", func(t *testing.T) {
		_, err := BuildRequest(ExplorerForm{Method: http.MethodPost, Path: "/x", Body: "not json"})
		if err == nil {
			t.Error("Expected a parse error for invalid body JSON")
		}
	})
}

func TestHandleExplorer(t *testing.T) {
	fx := newTestServer(t, nil)

	rec := doJSON(t, fx.server, http.MethodPost, "/api/explorer", ExplorerForm{
		Method: "GET",
		Path:   "/v1/market/ticker24Hr",
		Query:  `{"symbol":"BTCINR"}`,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fx.forwarder.last.Query["symbol"] != "BTCINR" {
		t.Errorf("Form query should reach the forwarder, got %v", fx.forwarder.last.Query)
	}
}
