package market

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ssoonwee/bonafide/pkg/encoding/fixedn"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the default number of metadata documents fetched in
// parallel by NormalizeAll.
const DefaultConcurrency = 8

// MetadataFetcher retrieves metadata documents by their URI.
type MetadataFetcher interface {
	Fetch(ctx context.Context, uri string) (Metadata, error)
}

// Normalizer merges raw contract data with metadata documents into
// AssetRecords.
type Normalizer struct {
	fetcher     MetadataFetcher
	decimals    int
	concurrency int
}

// NewNormalizer creates a Normalizer that uses the given fetcher and converts
// prices using the given number of decimals. Concurrency limits the number
// of parallel metadata fetches done by NormalizeAll, non-positive value means
// DefaultConcurrency.
func NewNormalizer(f MetadataFetcher, decimals int, concurrency int) *Normalizer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Normalizer{
		fetcher:     f,
		decimals:    decimals,
		concurrency: concurrency,
	}
}

// Decimals returns the number of decimals used for price conversion.
func (n *Normalizer) Decimals() int {
	return n.decimals
}

// Concurrency returns the maximum number of parallel fetches.
func (n *Normalizer) Concurrency() int {
	return n.concurrency
}

// Normalize converts a single raw asset into a complete AssetRecord. Any
// problem with the data (unknown status, bad price, missing or broken
// metadata) is an error wrapping ErrData, partial records are never
// returned.
func (n *Normalizer) Normalize(ctx context.Context, raw RawAsset) (AssetRecord, error) {
	if raw.TokenID == nil || raw.TokenID.Sign() <= 0 {
		return AssetRecord{}, fmt.Errorf("%w: invalid token id %v", ErrData, raw.TokenID)
	}
	status, err := StatusFromWire(int64(raw.Status))
	if err != nil {
		return AssetRecord{}, fmt.Errorf("token %s: %w", raw.TokenID, err)
	}
	if raw.Price == nil || raw.Price.Sign() < 0 {
		return AssetRecord{}, fmt.Errorf("%w: token %s: invalid price %v", ErrData, raw.TokenID, raw.Price)
	}
	if raw.MetadataURI == "" {
		return AssetRecord{}, fmt.Errorf("%w: token %s: empty metadata URI", ErrData, raw.TokenID)
	}
	meta, err := n.fetcher.Fetch(ctx, raw.MetadataURI)
	if err != nil {
		if errors.Is(err, ErrData) {
			return AssetRecord{}, fmt.Errorf("token %s: %w", raw.TokenID, err)
		}
		return AssetRecord{}, fmt.Errorf("%w: token %s: metadata: %w", ErrData, raw.TokenID, err)
	}
	return AssetRecord{
		TokenID:      new(big.Int).Set(raw.TokenID),
		Seller:       raw.Seller,
		Owner:        raw.Owner,
		Price:        new(big.Int).Set(raw.Price),
		DisplayPrice: fixedn.ToString(raw.Price, n.decimals),
		Status:       status,
		MetadataURI:  raw.MetadataURI,
		Metadata:     meta,
	}, nil
}

// NormalizeAll normalizes every element independently, fetching metadata in
// parallel. The result has the same length and order as the input, failed
// elements carry their error instead of a record.
func (n *Normalizer) NormalizeAll(ctx context.Context, raws []RawAsset) []Entry {
	var (
		entries = make([]Entry, len(raws))
		g       errgroup.Group
	)
	g.SetLimit(n.concurrency)
	for i := range raws {
		i := i
		g.Go(func() error {
			entries[i].TokenID = raws[i].TokenID
			rec, err := n.Normalize(ctx, raws[i])
			if err != nil {
				entries[i].Err = err
				return nil
			}
			entries[i].Record = &rec
			return nil
		})
	}
	_ = g.Wait()
	return entries
}
