package market

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Metadata is the off-chain document describing an asset.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// RawAsset is an on-chain market item as returned by the contract, joined
// with its token URI.
type RawAsset struct {
	TokenID     *big.Int
	Seller      common.Address
	Owner       common.Address
	Price       *big.Int
	Status      uint8
	MetadataURI string
}

// AssetRecord is the canonical, fully populated representation of an asset.
// Price is kept in the chain's smallest unit, DisplayPrice is its exact
// decimal representation in the native unit.
type AssetRecord struct {
	TokenID      *big.Int       `json:"tokenId"`
	Seller       common.Address `json:"seller"`
	Owner        common.Address `json:"owner"`
	Price        *big.Int       `json:"price"`
	DisplayPrice string         `json:"displayPrice"`
	Status       Status         `json:"status"`
	MetadataURI  string         `json:"metadataURI"`
	Metadata     Metadata       `json:"metadata"`
}

// IsOwnedBy returns true if the given address is the current owner of the
// asset.
func (r *AssetRecord) IsOwnedBy(addr common.Address) bool {
	return r.Owner == addr
}

// IsListedBy returns true if the given address is the seller of the asset.
func (r *AssetRecord) IsListedBy(addr common.Address) bool {
	return r.Seller == addr
}

// Entry is the result of normalizing one element of a list. Exactly one of
// Record and Err is set, failed elements are kept in place so that they're
// never dropped from the list silently.
type Entry struct {
	TokenID *big.Int
	Record  *AssetRecord
	Err     error
}

type entryAux struct {
	TokenID *big.Int     `json:"tokenId"`
	Record  *AssetRecord `json:"record,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// MarshalJSON implements the json.Marshaler interface.
func (e Entry) MarshalJSON() ([]byte, error) {
	aux := entryAux{TokenID: e.TokenID, Record: e.Record}
	if e.Err != nil {
		aux.Error = e.Err.Error()
	}
	return json.Marshal(aux)
}

// Split separates complete records from failed entries preserving the order
// of both.
func Split(entries []Entry) ([]AssetRecord, []Entry) {
	var (
		recs   = make([]AssetRecord, 0, len(entries))
		failed []Entry
	)
	for _, e := range entries {
		if e.Err != nil || e.Record == nil {
			failed = append(failed, e)
			continue
		}
		recs = append(recs, *e.Record)
	}
	return recs, failed
}
