package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	for name, cfg := range map[string]*HTTPClientConfig{
		"lipana":      LipanaClientConfig(),
		"local_agent": LocalAgentClientConfig(),
	} {
		t.Run(name, func(t *testing.T) {
			client := NewHTTPClient(cfg, 2*time.Second)

			resp, err := client.Get(server.URL)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, http.StatusNoContent, resp.StatusCode)
			assert.Equal(t, 2*time.Second, client.Timeout)

			transport, ok := client.Transport.(*http.Transport)
			require.True(t, ok)
			assert.Equal(t, cfg.MaxConnsPerHost, transport.MaxConnsPerHost)
		})
	}
}

func TestLipanaClientConfig_AllowsSlowPush(t *testing.T) {
	assert.GreaterOrEqual(t, LipanaClientConfig().ResponseHeaderTimeout, 30*time.Second)
}
