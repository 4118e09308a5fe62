package swap

import (
	"time"

	"github.com/LeJamon/goSwapd/internal/core/amount"
)

// Side names one of the two parties of an offer.
type Side int

const (
	SideInitiator Side = iota
	SideCounterparty
)

func (s Side) String() string {
	if s == SideInitiator {
		return "initiator"
	}
	return "counterparty"
}

// Offer is a live two-party swap. A record exists only between creation and
// its single completion or cancellation.
type Offer struct {
	ID           string        `json:"offer_id"`
	Initiator    string        `json:"initiator"`
	Counterparty string        `json:"counterparty"`
	NativeAmount amount.Amount `json:"native_amount"`

	// Expected lists hold what each side promised to contribute; deposited
	// lists what has actually arrived. Deposited is always a subset.
	InitiatorExpected     []AssetRef `json:"initiator_expected"`
	CounterpartyExpected  []AssetRef `json:"counterparty_expected"`
	InitiatorDeposited    []AssetRef `json:"initiator_deposited"`
	CounterpartyDeposited []AssetRef `json:"counterparty_deposited"`

	// Deposit is the native payment attached at creation and Fee the
	// settlement fee fixed at that moment.
	Deposit amount.Amount `json:"deposit"`
	Fee     amount.Amount `json:"fee"`

	CreatedAt  time.Time `json:"created_at"`
	Privileged bool      `json:"privileged"`
}

// SideOf reports which side account is on.
func (o *Offer) SideOf(account string) (Side, bool) {
	switch account {
	case o.Initiator:
		return SideInitiator, true
	case o.Counterparty:
		return SideCounterparty, true
	}
	return 0, false
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideInitiator {
		return SideCounterparty
	}
	return SideInitiator
}

func (o *Offer) Party(s Side) string {
	if s == SideInitiator {
		return o.Initiator
	}
	return o.Counterparty
}

func (o *Offer) Expected(s Side) []AssetRef {
	if s == SideInitiator {
		return o.InitiatorExpected
	}
	return o.CounterpartyExpected
}

func (o *Offer) Deposited(s Side) []AssetRef {
	if s == SideInitiator {
		return o.InitiatorDeposited
	}
	return o.CounterpartyDeposited
}

func (o *Offer) addDeposit(s Side, a AssetRef) {
	if s == SideInitiator {
		o.InitiatorDeposited = append(o.InitiatorDeposited, a)
	} else {
		o.CounterpartyDeposited = append(o.CounterpartyDeposited, a)
	}
}

// Funded reports whether both sides have delivered their whole bundle.
func (o *Offer) Funded() bool {
	return len(o.InitiatorDeposited) == len(o.InitiatorExpected) &&
		len(o.CounterpartyDeposited) == len(o.CounterpartyExpected)
}

// Clone returns a deep copy; callers outside the engine only ever see
// clones.
func (o *Offer) Clone() *Offer {
	c := *o
	c.InitiatorExpected = cloneAssets(o.InitiatorExpected)
	c.CounterpartyExpected = cloneAssets(o.CounterpartyExpected)
	c.InitiatorDeposited = cloneAssets(o.InitiatorDeposited)
	c.CounterpartyDeposited = cloneAssets(o.CounterpartyDeposited)
	return &c
}

func cloneAssets(in []AssetRef) []AssetRef {
	out := make([]AssetRef, len(in))
	copy(out, in)
	return out
}
