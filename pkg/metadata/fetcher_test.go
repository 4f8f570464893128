package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ssoonwee/bonafide/pkg/market"
	"github.com/ssoonwee/bonafide/pkg/storage"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"name":"Gold bar","description":"999.9","image":"https://img/gold.png"}`))
	})
	mux.HandleFunc("/ipfs/QmCID/meta.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"name":"Pinned","description":"","image":""}`))
	})
	mux.HandleFunc("/noname.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"description":"anonymous"}`))
	})
	mux.HandleFunc("/broken.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":`))
	})
	mux.HandleFunc("/big.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"` + strings.Repeat("x", 2048) + `"}`))
	})
	mux.HandleFunc("/empty.json", func(w http.ResponseWriter, r *http.Request) {})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveURI(t *testing.T) {
	for in, expected := range map[string]string{
		"https://example.com/a.json":  "https://example.com/a.json",
		"http://example.com/a.json":   "http://example.com/a.json",
		"ipfs://QmCID/meta.json":      "https://gw.test/ipfs/QmCID/meta.json",
		"ipfs://ipfs/QmCID/meta.json": "https://gw.test/ipfs/QmCID/meta.json",
	} {
		actual, err := ResolveURI(in, "https://gw.test/ipfs/")
		require.NoError(t, err, in)
		require.Equal(t, expected, actual)
	}
	for _, bad := range []string{"ftp://example.com/a", "http:///a.json", "ipfs://", "::bad"} {
		_, err := ResolveURI(bad, DefaultIPFSGateway)
		require.Error(t, err, bad)
	}
	_, err := ResolveURI("file:///etc/passwd", DefaultIPFSGateway)
	require.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestFetch(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits)
	f := NewFetcher(Config{IPFSGateway: srv.URL + "/ipfs", MaxSize: 1024}, nil, nil)

	m, err := f.Fetch(context.Background(), srv.URL+"/ok.json")
	require.NoError(t, err)
	require.Equal(t, market.Metadata{Name: "Gold bar", Description: "999.9", Image: "https://img/gold.png"}, m)

	// Cached.
	m, err = f.Fetch(context.Background(), srv.URL+"/ok.json")
	require.NoError(t, err)
	require.Equal(t, "Gold bar", m.Name)
	require.Equal(t, int32(1), hits.Load())

	m, err = f.Fetch(context.Background(), "ipfs://QmCID/meta.json")
	require.NoError(t, err)
	require.Equal(t, "Pinned", m.Name)

	for _, path := range []string{"/noname.json", "/broken.json", "/big.json", "/empty.json", "/missing.json"} {
		t.Run(path, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), srv.URL+path)
			require.ErrorIs(t, err, market.ErrData)
		})
	}
	_, err = f.Fetch(context.Background(), srv.URL+"/big.json")
	require.ErrorIs(t, err, ErrResponseTooLarge)

	t.Run("unreachable", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		dead.Close()
		_, err := f.Fetch(context.Background(), dead.URL+"/ok.json")
		require.ErrorIs(t, err, market.ErrData)
	})
	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := f.Fetch(ctx, srv.URL+"/noname.json")
		require.ErrorIs(t, err, market.ErrData)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestFetchPersistentCache(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits)
	store := storage.NewMemoryStore()

	f := NewFetcher(Config{}, store, nil)
	_, err := f.Fetch(context.Background(), srv.URL+"/ok.json")
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())

	// New fetcher with an empty memory cache reuses stored document.
	f = NewFetcher(Config{}, store, nil)
	m, err := f.Fetch(context.Background(), srv.URL+"/ok.json")
	require.NoError(t, err)
	require.Equal(t, "Gold bar", m.Name)
	require.Equal(t, int32(1), hits.Load())

	// Failures are not cached.
	_, err = f.Fetch(context.Background(), srv.URL+"/noname.json")
	require.Error(t, err)
	_, err = store.Get(storage.MetaDocument.Key([]byte(srv.URL + "/noname.json")))
	require.ErrorIs(t, err, storage.ErrKeyNotFound)
}
