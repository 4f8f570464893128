package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/ssoonwee/bonafide/pkg/storage"
)

// TxState is the last known state of a transaction.
type TxState byte

// Transaction states.
const (
	TxUnknown TxState = iota
	TxSubmitted
	TxConfirmed
	TxReverted
)

var txStateNames = [...]string{
	TxUnknown:   "unknown",
	TxSubmitted: "submitted",
	TxConfirmed: "confirmed",
	TxReverted:  "reverted",
}

// String implements the fmt.Stringer interface.
func (s TxState) String() string {
	if int(s) < len(txStateNames) {
		return txStateNames[s]
	}
	return fmt.Sprintf("TxState(%d)", s)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (s TxState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (s *TxState) UnmarshalText(text []byte) error {
	for i, name := range txStateNames {
		if strings.EqualFold(name, string(text)) {
			*s = TxState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown transaction state %q", text)
}

// JournalEntry is a persisted transaction record.
type JournalEntry struct {
	ID     uuid.UUID      `json:"id"`
	Hash   common.Hash    `json:"hash"`
	Method string         `json:"method"`
	Sender common.Address `json:"sender"`
	SentAt uint64         `json:"sentAt"`
	Block  uint64         `json:"block,omitempty"`
	State  TxState        `json:"state"`
	Time   time.Time      `json:"time"`
}

// Journal keeps track of sent transactions so that the ones not confirmed
// yet are observable (and survive restarts with a persistent store).
type Journal struct {
	store storage.Store
}

// NewJournal creates a Journal on top of the given store.
func NewJournal(s storage.Store) *Journal {
	return &Journal{store: s}
}

func journalKey(h common.Hash) []byte {
	return storage.TXJournal.Key(h.Bytes())
}

// Put stores the entry replacing previous one for the same hash.
func (j *Journal) Put(e JournalEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return j.store.Put(journalKey(e.Hash), data)
}

// Get returns the entry for the given hash, storage.ErrKeyNotFound is
// returned for unknown transactions.
func (j *Journal) Get(h common.Hash) (JournalEntry, error) {
	var e JournalEntry
	data, err := j.store.Get(journalKey(h))
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(data, &e)
	return e, err
}

// All returns all journal entries sorted by hash.
func (j *Journal) All() ([]JournalEntry, error) {
	return j.filter(func(JournalEntry) bool { return true })
}

// Pending returns submitted transactions not confirmed yet.
func (j *Journal) Pending() ([]JournalEntry, error) {
	return j.filter(func(e JournalEntry) bool { return e.State == TxSubmitted })
}

func (j *Journal) filter(f func(JournalEntry) bool) ([]JournalEntry, error) {
	var (
		res  []JournalEntry
		errs []error
	)
	j.store.Seek(storage.SeekRange{Prefix: storage.TXJournal.Bytes()}, func(k, v []byte) bool {
		var e JournalEntry
		if err := json.Unmarshal(v, &e); err != nil {
			errs = append(errs, fmt.Errorf("entry %x: %w", k[1:], err))
			return true
		}
		if f(e) {
			res = append(res, e)
		}
		return true
	})
	return res, errors.Join(errs...)
}
