package httpx

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdh8316/probex/internal/randx"
)

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(ClientConfig{})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, client.Timeout)

	transport := client.Transport.(*http.Transport)
	assert.NotNil(t, transport.Proxy)
}

func TestNewClient_Tor(t *testing.T) {
	client, err := NewClient(ClientConfig{Timeout: time.Second, WithTor: true})
	require.NoError(t, err)
	transport := client.Transport.(*http.Transport)
	assert.Nil(t, transport.Proxy)
	assert.NotNil(t, transport.DialContext)
}

func TestNewClient_BadTorURL(t *testing.T) {
	_, err := NewClient(ClientConfig{WithTor: true, TorProxyURL: "ftp://%zz"})
	assert.Error(t, err)
}

func TestNewRequest_SetsUserAgent(t *testing.T) {
	req, err := NewRequest(context.Background(), http.MethodGet, "https://example.com/a", nil, "ua/1")
	require.NoError(t, err)
	assert.Equal(t, "ua/1", req.Header.Get("User-Agent"))
}

func TestPickUserAgent(t *testing.T) {
	src := randx.New(3)
	for i := 0; i < 20; i++ {
		assert.Contains(t, DefaultUserAgents, PickUserAgent(src, nil))
	}
	assert.Equal(t, "only", PickUserAgent(src, []string{"only"}))

	a, b := randx.New(9), randx.New(9)
	assert.Equal(t, PickUserAgent(a, DefaultUserAgents), PickUserAgent(b, DefaultUserAgents))
}
