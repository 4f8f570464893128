/*
Package storage provides a simple key-value storage used to persist the
transaction journal and cached metadata documents. LevelDB, BoltDB and
in-memory backends are supported.
*/
package storage

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb/util"
)

// KeyPrefix constants.
const (
	// TXJournal is used for pending/confirmed transaction records.
	TXJournal KeyPrefix = 0x01
	// MetaDocument is used for cached metadata documents keyed by URI.
	MetaDocument KeyPrefix = 0x02
	// SYSVersion stores the storage schema version.
	SYSVersion KeyPrefix = 0xf0
)

// ErrKeyNotFound is an error returned by Store implementations
// when a certain key is not found.
var ErrKeyNotFound = errors.New("key not found")

// SeekRange represents options for Store.Seek operation.
type SeekRange struct {
	// Prefix denotes the Seek's lookup key. Empty Prefix means seeking
	// through all keys in the DB.
	Prefix []byte
	// Start denotes value appended to the Prefix to start Seek from.
	// Seeking starting from some key includes this key to the result;
	// if no matching key was found then next suitable key is picked up.
	Start []byte
	// Backwards denotes whether Seek direction should be reversed.
	Backwards bool
}

type (
	// Store is the underlying KV backend.
	Store interface {
		Get([]byte) ([]byte, error)
		Put(k, v []byte) error
		Delete(k []byte) error
		// Seek calls f for every KV pair matching rng until false is
		// returned. Key and value slices are only valid until the next
		// call to f and should not be modified. Items are sorted by key.
		Seek(rng SeekRange, f func(k, v []byte) bool)
		Close() error
	}

	// KeyPrefix is a constant byte added as a prefix for each key
	// stored.
	KeyPrefix uint8
)

// Bytes returns the bytes representation of KeyPrefix.
func (k KeyPrefix) Bytes() []byte {
	return []byte{byte(k)}
}

// Key returns a new key made of the prefix and the given suffix.
func (k KeyPrefix) Key(suffix []byte) []byte {
	key := make([]byte, 1+len(suffix))
	key[0] = byte(k)
	copy(key[1:], suffix)
	return key
}

func seekRangeToPrefixes(sr SeekRange) *util.Range {
	var (
		rang  *util.Range
		start = make([]byte, len(sr.Prefix)+len(sr.Start))
	)
	copy(start, sr.Prefix)
	copy(start[len(sr.Prefix):], sr.Start)

	if !sr.Backwards {
		rang = util.BytesPrefix(sr.Prefix)
		rang.Start = start
	} else {
		rang = util.BytesPrefix(start)
		rang.Start = sr.Prefix
	}
	return rang
}

// NewStore creates storage with preselected in configuration database type.
func NewStore(cfg DBConfiguration) (Store, error) {
	var store Store
	var err error
	switch cfg.Type {
	case LevelDB:
		store, err = NewLevelDBStore(cfg.LevelDBOptions)
	case InMemoryDB, "":
		store = NewMemoryStore()
	case BoltDB:
		store, err = NewBoltDBStore(cfg.BoltDBOptions)
	default:
		return nil, fmt.Errorf("unknown storage: %s", cfg.Type)
	}
	return store, err
}

// Version returns the schema version stored in s.
func Version(s Store) (string, error) {
	version, err := s.Get(SYSVersion.Bytes())
	return string(version), err
}

// PutVersion stores the given schema version in s.
func PutVersion(s Store, v string) error {
	return s.Put(SYSVersion.Bytes(), []byte(v))
}
