/*
Package metadata retrieves off-chain asset metadata documents. Documents are
fetched over HTTP(S), ipfs:// URIs are resolved via the configured gateway.
Successfully decoded documents are cached in memory and (optionally) in a
persistent store.
*/
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/ssoonwee/bonafide/pkg/market"
	"github.com/ssoonwee/bonafide/pkg/storage"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout is default request timeout.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxSize is the default document size limit.
	DefaultMaxSize = 64 * 1024
	// DefaultCacheSize is the default number of documents kept in memory.
	DefaultCacheSize = 1024
	// DefaultIPFSGateway is used to resolve ipfs:// URIs if not configured.
	DefaultIPFSGateway = "https://ipfs.io/ipfs/"
	// IPFSScheme is the URI scheme for IPFS content.
	IPFSScheme = "ipfs"
)

var (
	// ErrResponseTooLarge is returned when a document exceeds the size limit.
	ErrResponseTooLarge = errors.New("too big response")
	// ErrUnsupportedScheme is returned for URIs that can't be fetched.
	ErrUnsupportedScheme = errors.New("unsupported URI scheme")
)

// Config is metadata fetcher configuration.
type Config struct {
	IPFSGateway string        `yaml:"IPFSGateway"`
	Timeout     time.Duration `yaml:"Timeout"`
	MaxSize     int           `yaml:"MaxSize"`
	CacheSize   int           `yaml:"CacheSize"`
}

// HTTPClient is an interface capable of doing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher retrieves and decodes metadata documents. It implements
// market.MetadataFetcher.
type Fetcher struct {
	Client HTTPClient

	cfg   Config
	cache *lru.Cache
	store storage.Store
	log   *zap.Logger
}

// NewFetcher creates a Fetcher. Store is optional, documents are only cached
// in memory if it's nil.
func NewFetcher(cfg Config, store storage.Store, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.IPFSGateway == "" {
		cfg.IPFSGateway = DefaultIPFSGateway
	}
	var client http.Client
	client.Timeout = cfg.Timeout
	f := &Fetcher{
		Client: &client,
		cfg:    cfg,
		store:  store,
		log:    log,
	}
	f.cache, _ = lru.New(cfg.CacheSize) // Never errors for positive size.
	return f
}

// ResolveURI converts metadata URI into an HTTP(S) URL, ipfs://CID/path is
// rewritten to gateway + CID/path.
func ResolveURI(uri string, gateway string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid URI: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return "", fmt.Errorf("invalid URI: no host in %q", uri)
		}
		return uri, nil
	case IPFSScheme:
		path := strings.TrimPrefix(uri[len(u.Scheme)+len("://"):], "ipfs/")
		if path == "" {
			return "", fmt.Errorf("invalid URI: no CID in %q", uri)
		}
		return strings.TrimSuffix(gateway, "/") + "/" + path, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// Fetch implements market.MetadataFetcher interface. Every error wraps
// market.ErrData.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (market.Metadata, error) {
	if v, ok := f.cache.Get(uri); ok {
		countFetch(resultCached)
		return v.(market.Metadata), nil
	}
	if f.store != nil {
		if data, err := f.store.Get(storage.MetaDocument.Key([]byte(uri))); err == nil {
			var m market.Metadata
			if err := json.Unmarshal(data, &m); err == nil {
				f.cache.Add(uri, m)
				countFetch(resultCached)
				return m, nil
			}
		}
	}
	m, err := f.fetch(ctx, uri)
	if err != nil {
		countFetch(resultError)
		f.log.Debug("metadata fetch failed", zap.String("uri", uri), zap.Error(err))
		return market.Metadata{}, fmt.Errorf("%w: metadata %s: %w", market.ErrData, uri, err)
	}
	countFetch(resultFetched)
	f.cache.Add(uri, m)
	if f.store != nil {
		data, _ := json.Marshal(m)
		if err := f.store.Put(storage.MetaDocument.Key([]byte(uri)), data); err != nil {
			f.log.Warn("failed to persist metadata", zap.String("uri", uri), zap.Error(err))
		}
	}
	return m, nil
}

func (f *Fetcher) fetch(ctx context.Context, uri string) (market.Metadata, error) {
	var m market.Metadata
	target, err := ResolveURI(uri, f.cfg.IPFSGateway)
	if err != nil {
		return m, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return m, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.Client.Do(req)
	if err != nil {
		return m, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return m, fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}
	body, err := readResponse(resp.Body, f.cfg.MaxSize)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(body, &m); err != nil {
		return m, fmt.Errorf("malformed document: %w", err)
	}
	if strings.TrimSpace(m.Name) == "" {
		return market.Metadata{}, errors.New("malformed document: no name")
	}
	return m, nil
}

func readResponse(rc io.Reader, limit int) ([]byte, error) {
	buf := make([]byte, limit+1)
	n, err := io.ReadFull(rc, buf)
	if (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)) && n <= limit {
		return buf[:n], nil
	}
	if err == nil || n > limit {
		return nil, ErrResponseTooLarge
	}
	return nil, err
}
