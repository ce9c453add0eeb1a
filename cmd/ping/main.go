// Container HEALTHCHECK probe for the Buzzaar API server:
//
//	HEALTHCHECK CMD ["/ping"]
//
// Hits /healthz on localhost and maps the response to an exit code so
// orchestrators can restart an unhealthy container.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

const (
	defaultPort    = 8080
	healthEndpoint = "/healthz"
	statusHealthy  = "ok"
	probeTimeout   = 1 * time.Second

	// exit codes
	codeRequestFailed = 2
	codeBadHTTPStatus = 3
	codeDecodeError   = 4
	codeUnhealthy     = 5
)

// healthResp mirrors the /healthz body: { "status": "ok" } when healthy,
// { "status": "down", "error": "..." } otherwise.
type healthResp struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func main() {
	port := detectPort()
	url := fmt.Sprintf("http://localhost:%d%s", port, healthEndpoint)

	client := &http.Client{Timeout: probeTimeout}

	resp, err := client.Get(url)
	if err != nil {
		fail(codeRequestFailed, "request failed: %v", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("failed to close response body: %v", err)
		}
	}()

	var h healthResp
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil && !errors.Is(err, io.EOF) {
		fail(codeDecodeError, "decode error: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		if h.Error != "" {
			fail(codeUnhealthy, "service reported unhealthy: %s", h.Error)
		}
		fail(codeBadHTTPStatus, "unexpected HTTP status %d", resp.StatusCode)
	}
	if h.Status != "" && h.Status != statusHealthy {
		fail(codeUnhealthy, "service reported unhealthy: %q", h.Status)
	}

	log.Printf("service healthy on port %d", port)
}

// detectPort parses APP_PORT and falls back to defaultPort.
func detectPort() int {
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p <= 65535 {
			return p
		}
	}
	return defaultPort
}

// fail logs a message and exits with the given code.
func fail(code int, format string, args ...any) {
	log.Printf(format, args...)
	os.Exit(code)
}
