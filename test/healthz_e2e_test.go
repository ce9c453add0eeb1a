//go:build e2e

package test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthzE2E(t *testing.T) {
	env := SetupTestEnvironment(t)

	payload := ExecuteHTTPJSONStep(t, HTTPJSONStep{
		Name:           "healthz reports ok",
		Method:         http.MethodGet,
		URL:            "/healthz",
		ExpectedStatus: http.StatusOK,
	}, env.BaseURL)

	require.Contains(t, payload, "status")
	assert.Equal(t, "ok", payload["status"])
}
