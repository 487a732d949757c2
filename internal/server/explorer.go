package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pi42dash/internal/domain"
	"pi42dash/internal/infra/pi42"
)

// ExplorerForm is the free-text request builder submission. Query,
// Headers and Body are JSON source text typed by the user; they are only
// parsed on submit.
type ExplorerForm struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Target  string `json:"target"`
	Query   string `json:"query"`
	Headers string `json:"headers"`
	Body    string `json:"body"`
}

// BuildRequest parses the form into a forwardable proxy request. An empty
// text field is treated as {}. The body is omitted for GET requests.
func BuildRequest(form ExplorerForm) (pi42.ProxyRequest, error) {
	req := pi42.ProxyRequest{
		Method: strings.ToUpper(strings.TrimSpace(form.Method)),
		Path:   strings.TrimSpace(form.Path),
		Target: pi42.Target(form.Target),
	}

	if err := json.Unmarshal([]byte(orEmptyObject(form.Query)), &req.Query); err != nil {
		return pi42.ProxyRequest{}, fmt.Errorf("query: %w", err)
	}
	if err := json.Unmarshal([]byte(orEmptyObject(form.Headers)), &req.Headers); err != nil {
		return pi42.ProxyRequest{}, fmt.Errorf("headers: %w", err)
	}

	if req.Method != http.MethodGet {
		body := orEmptyObject(form.Body)
		if !json.Valid([]byte(body)) {
			return pi42.ProxyRequest{}, fmt.Errorf("body: invalid JSON")
		}
		req.Body = json.RawMessage(body)
	}

	return req, nil
}

func orEmptyObject(s string) string {
	if strings.TrimSpace(s) == "" {
		return "{}"
	}
	return s
}

// handleExplorer submits an explorer form through the proxy and returns
// the pretty-printed response for display.
func (s *Server) handleExplorer(c *gin.Context) {
	var form ExplorerForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := BuildRequest(form)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.forwarder.Forward(c.Request.Context(), req)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "issues": vErr.Issues})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	pretty, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   resp.Status,
		"response": string(pretty),
	})
}
