package swap

import (
	"context"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/LeJamon/goSwapd/internal/core/outbox"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MaxOfferIDLength bounds caller-chosen offer ids.
const MaxOfferIDLength = 256

// CreateRequest proposes a swap. InitiatorAssets is what the initiator will
// deposit and CounterpartyAssets what the counterparty will deposit.
type CreateRequest struct {
	OfferID            string        `json:"offer_id"`
	Initiator          string        `json:"initiator"`
	NativeAmount       amount.Amount `json:"native_amount"`
	InitiatorAssets    []AssetRef    `json:"initiator_assets"`
	Counterparty       string        `json:"counterparty"`
	CounterpartyAssets []AssetRef    `json:"counterparty_assets"`
	PrivilegedClaim    bool          `json:"privileged"`

	// Attached is the native payment sent along with the request. It is
	// collected from the signer once the request passes validation.
	Attached amount.Amount `json:"attached"`
}

// CreateOffer validates req, collects the attached payment and registers a
// pending creation. The offer is materialized once the privilege oracle
// confirms the claim; use Pending.Wait to observe the outcome. A validation
// or collection failure returns an *Error and leaves no state behind.
func (e *Engine) CreateOffer(ctx context.Context, signer string, req CreateRequest) (*Pending, error) {
	e.mu.Lock()
	p, err := e.createLocked(ctx, signer, req)
	reg := e.cfg.PrivilegeRegistry
	e.mu.Unlock()
	if err != nil {
		if ResultOf(err) != TefINTERNAL {
			e.metrics.CreationAborted(ResultOf(err).String())
		}
		e.log.Info("Offer creation rejected",
			zap.String("offer", req.OfferID),
			zap.String("signer", signer),
			zap.Error(err))
		return nil, err
	}

	e.dispatchQuery(p, reg)
	return p, nil
}

func (e *Engine) createLocked(ctx context.Context, signer string, req CreateRequest) (*Pending, error) {
	fee, err := validateCreate(signer, req, e.cfg.BaseFee)
	if err != nil {
		return nil, err
	}

	live, err := e.store.HasOffer(ctx, req.OfferID)
	if err != nil {
		return nil, err
	}
	if live {
		return nil, failf(TecDUPLICATE, "offer %s already exists", req.OfferID)
	}
	if id, ok := e.pendingByOffer[req.OfferID]; ok {
		return nil, failf(TecDUPLICATE, "offer %s is already being created (%s)", req.OfferID, id)
	}

	if err := e.collect(ctx, signer, req.Attached); err != nil {
		return nil, err
	}

	now := e.now()
	p := newPending(uuid.NewString(), signer, req, fee, now, now.Add(e.timeout))

	t := e.store.begin(ctx)
	t.putPending(p.record())
	if err := t.commit(); err != nil {
		e.giveBack(ctx, req.OfferID, signer, req.Attached)
		return nil, err
	}

	e.pending[p.ID] = p
	e.pendingByOffer[p.OfferID] = p.ID
	e.metrics.SetPending(len(e.pending))

	e.log.Debug("Offer creation pending privilege check",
		zap.String("offer", p.OfferID),
		zap.String("pending", p.ID),
		zap.Bool("privileged_claim", req.PrivilegedClaim))
	return p, nil
}

// validateCreate checks req against the signer and the fee rule and returns
// the settlement fee the offer will carry.
func validateCreate(signer string, req CreateRequest, baseFee amount.Amount) (amount.Amount, error) {
	if req.OfferID == "" {
		return amount.Zero, failf(TemMALFORMED, "offer id is required")
	}
	if len(req.OfferID) > MaxOfferIDLength {
		return amount.Zero, failf(TemMALFORMED, "offer id longer than %d bytes", MaxOfferIDLength)
	}
	if req.Initiator == "" || req.Counterparty == "" {
		return amount.Zero, failf(TemMALFORMED, "initiator and counterparty are required")
	}
	if req.Initiator != signer {
		return amount.Zero, failf(TemBAD_SIGNER, "initiator %s is not the signer %s", req.Initiator, signer)
	}
	if req.Counterparty == signer {
		return amount.Zero, failf(TemDST_IS_SRC, "counterparty must differ from the signer")
	}

	n := len(req.InitiatorAssets) + len(req.CounterpartyAssets)
	if n > MaxBundleSize {
		return amount.Zero, failf(TemBUNDLE_TOO_LARGE, "%d assets, at most %d allowed", n, MaxBundleSize)
	}
	if n == 0 {
		return amount.Zero, failf(TemMALFORMED, "offer has no assets")
	}
	seen := make(map[AssetRef]struct{}, n)
	for _, bundle := range [][]AssetRef{req.InitiatorAssets, req.CounterpartyAssets} {
		for _, a := range bundle {
			if err := a.Validate(); err != nil {
				return amount.Zero, err
			}
			if _, dup := seen[a]; dup {
				return amount.Zero, failf(TemMALFORMED, "asset %s listed twice", a)
			}
			seen[a] = struct{}{}
		}
	}

	required, err := RequiredDeposit(req.NativeAmount, baseFee, req.PrivilegedClaim)
	if err != nil {
		return amount.Zero, err
	}
	if req.Attached.Lt(baseFee) || req.Attached.Lt(required) {
		return amount.Zero, failf(TecINSUFFICIENT_PAYMENT, "attached %s, required %s", req.Attached, required)
	}
	return SettlementFee(req.NativeAmount, baseFee, req.PrivilegedClaim), nil
}

func (e *Engine) dispatchQuery(p *Pending, reg string) {
	e.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.Deadline.Sub(e.now()))
		defer cancel()

		start := time.Now()
		holds, err := e.oracle.HoldsAny(ctx, reg, p.Signer)
		e.metrics.ObserveOracle(time.Since(start))

		if rerr := e.ResolvePrivilege(context.Background(), p.ID, holds, err); rerr != nil {
			e.log.Debug("Privilege resolution", zap.String("pending", p.ID), zap.Error(rerr))
		}
	})
}

// ResolvePrivilege consumes the oracle's answer for a pending creation. The
// offer is created only when the query succeeded and its answer equals the
// claim; otherwise the creation is aborted and the attached payment
// refunded. The returned error is the abort cause.
func (e *Engine) ResolvePrivilege(ctx context.Context, pendingID string, holds bool, queryErr error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.pending[pendingID]
	if !ok {
		return failf(TecNO_ENTRY, "no pending creation %s", pendingID)
	}

	var cause *Error
	switch {
	case errors.Is(queryErr, context.DeadlineExceeded):
		cause = failf(TefORACLE_TIMEOUT, "privilege query: %v", queryErr)
	case queryErr != nil:
		cause = failf(TefORACLE_FAILED, "privilege query: %v", queryErr)
	case holds != p.req.PrivilegedClaim:
		cause = failf(TecPRIVILEGE_MISMATCH, "claimed privileged=%t, registry answered %t", p.req.PrivilegedClaim, holds)
	}

	if cause == nil {
		err := e.commitPendingLocked(ctx, p)
		if err == nil {
			return nil
		}
		if !errors.As(err, &cause) {
			cause = failf(TefINTERNAL, "%v", err)
		}
	}

	if err := e.abortPendingLocked(ctx, p, cause); err != nil {
		e.log.Error("Failed to abort offer creation", zap.String("pending", p.ID), zap.Error(err))
		e.forgetPending(p, nil, cause)
	}
	return cause
}

func (e *Engine) commitPendingLocked(ctx context.Context, p *Pending) error {
	live, err := e.store.HasOffer(ctx, p.OfferID)
	if err != nil {
		return err
	}
	if live {
		return failf(TefALREADY, "offer %s was created meanwhile", p.OfferID)
	}

	req := p.req
	o := &Offer{
		ID:                    p.OfferID,
		Initiator:             p.Signer,
		Counterparty:          req.Counterparty,
		NativeAmount:          req.NativeAmount,
		InitiatorExpected:     cloneAssets(req.InitiatorAssets),
		CounterpartyExpected:  cloneAssets(req.CounterpartyAssets),
		InitiatorDeposited:    []AssetRef{},
		CounterpartyDeposited: []AssetRef{},
		Deposit:               req.Attached,
		Fee:                   p.fee,
		CreatedAt:             e.now(),
		Privileged:            req.PrivilegedClaim,
	}

	t := e.store.begin(ctx)
	t.putOffer(o)
	if err := t.addOfferTo(o.Initiator, o.ID); err != nil {
		return err
	}
	if err := t.addOfferTo(o.Counterparty, o.ID); err != nil {
		return err
	}
	t.deletePending(p.ID)
	if err := t.commit(); err != nil {
		return err
	}

	e.forgetPending(p, o, nil)
	e.metrics.OfferCreated()
	e.log.Info("Added offer",
		zap.String("offer", o.ID),
		zap.String("initiator", o.Initiator),
		zap.String("counterparty", o.Counterparty),
		zap.Stringer("native_amount", o.NativeAmount),
		zap.Stringer("fee", o.Fee),
		zap.Bool("privileged", o.Privileged))
	e.publish(Event{
		Type:     EventOfferCreated,
		OfferID:  o.ID,
		Accounts: []string{o.Initiator, o.Counterparty},
		Actor:    o.Initiator,
		Result:   TesSUCCESS.String(),
	})
	return nil
}

// abortPendingLocked drops a pending creation and refunds its payment.
func (e *Engine) abortPendingLocked(ctx context.Context, p *Pending, cause *Error) error {
	t := e.store.begin(ctx)
	t.deletePending(p.ID)
	if !p.req.Attached.IsZero() {
		refund := outbox.NativeTransfer(p.OfferID, outbox.PurposeRefund, p.Signer, p.req.Attached)
		if err := e.stage(t, []outbox.Task{refund}); err != nil {
			return err
		}
	}
	if err := t.commit(); err != nil {
		return err
	}
	e.transfers.Kick()

	e.forgetPending(p, nil, cause)
	e.metrics.CreationAborted(cause.Result.String())
	e.log.Info("Offer creation aborted",
		zap.String("offer", p.OfferID),
		zap.String("pending", p.ID),
		zap.String("result", cause.Result.String()),
		zap.String("reason", cause.Reason))
	e.publish(Event{
		Type:     EventCreationAborted,
		OfferID:  p.OfferID,
		Accounts: []string{p.Signer, p.req.Counterparty},
		Actor:    p.Signer,
		Result:   cause.Result.String(),
		Reason:   cause.Reason,
	})
	return nil
}

// forgetPending resolves p and moves it to the resolved history.
func (e *Engine) forgetPending(p *Pending, o *Offer, cause *Error) {
	delete(e.pending, p.ID)
	if e.pendingByOffer[p.OfferID] == p.ID {
		delete(e.pendingByOffer, p.OfferID)
	}
	if cause != nil {
		p.resolve(nil, cause)
	} else {
		p.resolve(o.Clone(), nil)
	}
	e.resolved.Add(p.ID, p.status())
	e.metrics.SetPending(len(e.pending))
}
