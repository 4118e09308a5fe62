package swap

import (
	"context"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/pkg/errors"
)

// PendingState is the phase of a creation awaiting its privilege answer.
type PendingState string

const (
	PendingWaiting   PendingState = "waiting"
	PendingCommitted PendingState = "committed"
	PendingAborted   PendingState = "aborted"
)

// Pending is an offer creation that passed validation and waits for the
// privilege oracle. It is keyed by a correlation id distinct from the offer
// id.
type Pending struct {
	ID        string
	OfferID   string
	Signer    string
	CreatedAt time.Time
	Deadline  time.Time

	req CreateRequest
	fee amount.Amount

	done  chan struct{}
	offer *Offer
	err   error
}

func newPending(id, signer string, req CreateRequest, fee amount.Amount, created, deadline time.Time) *Pending {
	return &Pending{
		ID:        id,
		OfferID:   req.OfferID,
		Signer:    signer,
		CreatedAt: created,
		Deadline:  deadline,
		req:       req,
		fee:       fee,
		done:      make(chan struct{}),
	}
}

// Done is closed once the creation has been committed or aborted.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the creation resolves and returns the created offer or
// the reason it was aborted.
func (p *Pending) Wait(ctx context.Context) (*Offer, error) {
	select {
	case <-p.done:
		if p.err != nil {
			return nil, p.err
		}
		return p.offer.Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pending) resolve(o *Offer, err error) {
	p.offer, p.err = o, err
	close(p.done)
}

func (p *Pending) status() PendingStatus {
	st := PendingStatus{
		ID:        p.ID,
		OfferID:   p.OfferID,
		Signer:    p.Signer,
		State:     PendingWaiting,
		CreatedAt: p.CreatedAt,
		Deadline:  p.Deadline,
	}
	select {
	case <-p.done:
		if p.err != nil {
			st.State = PendingAborted
			st.Result = ResultOf(p.err).String()
			st.Reason = p.err.Error()
		} else {
			st.State = PendingCommitted
			st.Result = TesSUCCESS.String()
		}
	default:
	}
	return st
}

// PendingStatus is the externally visible state of a pending creation.
type PendingStatus struct {
	ID        string       `json:"pending_id"`
	OfferID   string       `json:"offer_id"`
	Signer    string       `json:"signer"`
	State     PendingState `json:"state"`
	Result    string       `json:"result,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	Deadline  time.Time    `json:"deadline"`
}

type pendingRecord struct {
	ID                 string     `codec:"id"`
	Signer             string     `codec:"signer"`
	OfferID            string     `codec:"offer"`
	Counterparty       string     `codec:"counterparty"`
	NativeAmount       string     `codec:"native_amount"`
	InitiatorAssets    []AssetRef `codec:"initiator_assets"`
	CounterpartyAssets []AssetRef `codec:"counterparty_assets"`
	PrivilegedClaim    bool       `codec:"privileged_claim"`
	Attached           string     `codec:"attached"`
	Fee                string     `codec:"fee"`
	CreatedAt          int64      `codec:"created_at"`
	Deadline           int64      `codec:"deadline"`
}

func (p *Pending) record() pendingRecord {
	return pendingRecord{
		ID:                 p.ID,
		Signer:             p.Signer,
		OfferID:            p.req.OfferID,
		Counterparty:       p.req.Counterparty,
		NativeAmount:       p.req.NativeAmount.String(),
		InitiatorAssets:    p.req.InitiatorAssets,
		CounterpartyAssets: p.req.CounterpartyAssets,
		PrivilegedClaim:    p.req.PrivilegedClaim,
		Attached:           p.req.Attached.String(),
		Fee:                p.fee.String(),
		CreatedAt:          p.CreatedAt.UnixNano(),
		Deadline:           p.Deadline.UnixNano(),
	}
}

// pendingFromRecord rebuilds a pending creation persisted before a restart.
// It keeps its recorded deadline; fallback applies to records without one.
func pendingFromRecord(rec pendingRecord, fallback time.Time) (*Pending, error) {
	var amounts [3]amount.Amount
	for i, s := range []string{rec.NativeAmount, rec.Attached, rec.Fee} {
		a, err := amount.Parse(s)
		if err != nil {
			return nil, errors.Wrapf(err, "pending creation %s", rec.ID)
		}
		amounts[i] = a
	}
	req := CreateRequest{
		OfferID:            rec.OfferID,
		Initiator:          rec.Signer,
		NativeAmount:       amounts[0],
		InitiatorAssets:    rec.InitiatorAssets,
		Counterparty:       rec.Counterparty,
		CounterpartyAssets: rec.CounterpartyAssets,
		PrivilegedClaim:    rec.PrivilegedClaim,
		Attached:           amounts[1],
	}
	deadline := fallback
	if rec.Deadline != 0 {
		deadline = time.Unix(0, rec.Deadline)
	}
	return newPending(rec.ID, rec.Signer, req, amounts[2], time.Unix(0, rec.CreatedAt), deadline), nil
}
