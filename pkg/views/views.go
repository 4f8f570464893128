/*
Package views contains page controllers driving lifecycle operations. Each
controller loads its data on demand, keeps track of its loading state and
exposes the actions available to the viewer. Results of state-changing
actions are reported only after confirmation, the data is reloaded then.
*/
package views

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ssoonwee/bonafide/pkg/lifecycle"
	"github.com/ssoonwee/bonafide/pkg/market"
)

// Operations is the set of lifecycle operations used by the views, it's
// implemented by lifecycle.Controller.
type Operations interface {
	Sender() common.Address
	Busy(op lifecycle.Operation, target string) bool

	ListingFee(ctx context.Context) (*big.Int, error)
	ListAsset(ctx context.Context, uri string, price *big.Int) (*lifecycle.Outcome, error)
	AuthorizeVerifier(ctx context.Context, addr common.Address) (*lifecycle.Outcome, error)
	DeauthorizeVerifier(ctx context.Context, addr common.Address) (*lifecycle.Outcome, error)
	ApproveVerification(ctx context.Context, id *big.Int) (*lifecycle.Outcome, error)
	RejectVerification(ctx context.Context, id *big.Int) (*lifecycle.Outcome, error)
	Buy(ctx context.Context, id *big.Int, price *big.Int) (*lifecycle.Outcome, error)
	Resell(ctx context.Context, id *big.Int, price *big.Int) (*lifecycle.Outcome, error)
	ToggleAvailability(ctx context.Context, id *big.Int) (*lifecycle.Outcome, error)

	FetchOneWithURI(ctx context.Context, id *big.Int, uri string) (market.AssetRecord, error)
	FetchPendingVerification(ctx context.Context) ([]market.Entry, error)
	FetchListed(ctx context.Context) ([]market.Entry, error)
	FetchMyListings(ctx context.Context) ([]market.Entry, error)
	FetchAll(ctx context.Context) ([]market.Entry, error)
}

// ErrActionNotAvailable is returned when the action isn't available to the
// viewer in the current state of the page.
var ErrActionNotAvailable = fmt.Errorf("%w: action is not available", market.ErrInvalidArgument)

// State is the loading state of a page.
type State byte

// Page states.
const (
	NotLoaded State = iota
	Loading
	Loaded
	Failed
)

var stateNames = [...]string{
	NotLoaded: "not-loaded",
	Loading:   "loading",
	Loaded:    "loaded",
	Failed:    "failed",
}

// String implements the fmt.Stringer interface.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Class defines how an error is presented to the user.
type Class byte

// Error classes.
const (
	// None is the class of nil error.
	None Class = iota
	// Retry means the user can fix the session and try again.
	Retry
	// Verbatim means the error message is to be shown as is.
	Verbatim
	// Degraded means the data is incomplete, but the page is still usable.
	Degraded
)

var classNames = [...]string{
	None:     "none",
	Retry:    "retry",
	Verbatim: "verbatim",
	Degraded: "degraded",
}

// String implements the fmt.Stringer interface.
func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("Class(%d)", c)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Classify returns the presentation class of the error.
func Classify(err error) Class {
	switch {
	case err == nil:
		return None
	case errors.Is(err, market.ErrConnection):
		return Retry
	case errors.Is(err, market.ErrData):
		return Degraded
	default:
		return Verbatim
	}
}

// ErrorView is the presentable form of an error.
type ErrorView struct {
	Class   Class  `json:"class"`
	Message string `json:"message"`
}

// NewErrorView converts the error into ErrorView, nil error gives nil.
func NewErrorView(err error) *ErrorView {
	if err == nil {
		return nil
	}
	return &ErrorView{Class: Classify(err), Message: err.Error()}
}

// page keeps the loading state shared by all controllers.
type page struct {
	mtx   sync.RWMutex
	state State
	err   error
}

// State returns the loading state of the page.
func (p *page) State() State {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return p.state
}

// Err returns the error the last load failed with.
func (p *page) Err() error {
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	return p.err
}

func (p *page) begin() {
	p.mtx.Lock()
	p.state = Loading
	p.err = nil
	p.mtx.Unlock()
}

// finish must be called with the lock held.
func (p *page) finish(err error) {
	if err != nil {
		p.state = Failed
		p.err = err
		return
	}
	p.state = Loaded
}
