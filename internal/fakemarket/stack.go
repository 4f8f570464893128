package fakemarket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ssoonwee/bonafide/pkg/market"
	"github.com/ssoonwee/bonafide/pkg/rpcclient/gateway"
	"github.com/ssoonwee/bonafide/pkg/rpcclient/waiter"
	"github.com/ssoonwee/bonafide/pkg/storage"
)

// ErrNoDocument is returned by Documents for unknown URIs.
var ErrNoDocument = errors.New("connection refused")

// Documents is an in-memory metadata fetcher.
type Documents struct {
	mtx  sync.RWMutex
	docs map[string]market.Metadata
}

// NewDocuments creates an empty Documents.
func NewDocuments() *Documents {
	return &Documents{docs: make(map[string]market.Metadata)}
}

// Add makes the document available by the given URI.
func (d *Documents) Add(uri string, doc market.Metadata) {
	d.mtx.Lock()
	d.docs[uri] = doc
	d.mtx.Unlock()
}

// Fetch implements market.MetadataFetcher, unknown URIs are unreachable.
func (d *Documents) Fetch(ctx context.Context, uri string) (market.Metadata, error) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	doc, ok := d.docs[uri]
	if !ok {
		return market.Metadata{}, ErrNoDocument
	}
	return doc, nil
}

// TestWaiterConfig is a waiter configuration suitable for the fake chain,
// it polls often and gives up quickly.
var TestWaiterConfig = waiter.Config{PollConfig: waiter.PollConfig{
	PollInterval: time.Millisecond,
	MaxBlocks:    3,
}}

// NewGateway creates a gateway for the connection with an in-memory
// transaction journal.
func NewGateway(c *Conn) *gateway.Gateway {
	return gateway.New(c, gateway.Config{Waiter: TestWaiterConfig}, gateway.NewJournal(storage.NewMemoryStore()), nil)
}
