package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherbot/pkg/logx"
)

func testGeocoder(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, logx.Nop())
}

func TestResolveBestMatch(t *testing.T) {
	c := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Berlin", r.URL.Query().Get("name"))
		assert.Equal(t, "1", r.URL.Query().Get("count"))
		w.Write([]byte(`{"results":[{"latitude":52.52437,"longitude":13.41053,"name":"Berlin","country":"Germany"}]}`))
	})

	coord, err := c.Resolve(context.Background(), "Berlin")
	require.NoError(t, err)
	assert.InDelta(t, 52.52437, coord.Latitude, 1e-9)
	assert.InDelta(t, 13.41053, coord.Longitude, 1e-9)
}

func TestResolveNotFound(t *testing.T) {
	c := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	_, err := c.Resolve(context.Background(), "Atlantis")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestResolveHyphenVariant(t *testing.T) {
	var queries []string
	c := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		queries = append(queries, name)
		if name == "Rostov on Don" {
			w.Write([]byte(`{"results":[{"latitude":47.23,"longitude":39.72,"name":"Rostov-on-Don"}]}`))
			return
		}
		w.Write([]byte(`{}`))
	})

	coord, err := c.Resolve(context.Background(), "Rostov-on-Don")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rostov-on-Don", "Rostov on Don"}, queries)
	assert.InDelta(t, 47.23, coord.Latitude, 1e-9)
}

func TestResolveCachesByLowercaseName(t *testing.T) {
	var calls int
	c := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"results":[{"latitude":48.85,"longitude":2.35,"name":"Paris"}]}`))
	})

	ctx := context.Background()
	_, err := c.Resolve(ctx, "Paris")
	require.NoError(t, err)
	_, err = c.Resolve(ctx, "paris")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestResolveFailureNotCached(t *testing.T) {
	var calls int
	c := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"results":[{"latitude":52.52,"longitude":13.4,"name":"Berlin"}]}`))
	})

	ctx := context.Background()
	_, err := c.Resolve(ctx, "Berlin")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound))

	_, err = c.Resolve(ctx, "Berlin")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestResolveEmptyName(t *testing.T) {
	c := testGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty name")
	})
	_, err := c.Resolve(context.Background(), "   ")
	require.ErrorIs(t, err, ErrNotFound)
}
