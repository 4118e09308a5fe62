package swap

import (
	"context"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CancelOffer aborts a live offer and returns whatever was deposited so far.
// A participant must attach exactly CancelProof, which is collected before
// the offer is torn down. The engine admin may cancel any offer without a
// payment.
func (e *Engine) CancelOffer(ctx context.Context, signer, offerID string, attached amount.Amount) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if offerID == "" {
		return failf(TemMALFORMED, "offer id is required")
	}
	admin := signer == e.cfg.Admin
	if !admin && !attached.Eq(CancelProof) {
		return failf(TemBAD_AMOUNT, "exactly %s must be attached to cancel, got %s", CancelProof, attached)
	}

	o, err := e.store.Offer(ctx, offerID)
	if errors.Is(err, ErrOfferNotFound) {
		return failf(TecNO_ENTRY, "offer %s does not exist", offerID)
	}
	if err != nil {
		return err
	}

	t := e.store.begin(ctx)
	if !admin {
		listed, err := t.offerList(signer)
		if err != nil {
			return err
		}
		if _, ok := o.SideOf(signer); !ok || !containsString(listed, o.ID) {
			return failf(TecNO_PERMISSION, "%s does not take part in offer %s", signer, o.ID)
		}
	}

	tasks, err := e.refund(t, o, attached)
	if err != nil {
		return err
	}
	if err := e.stage(t, tasks); err != nil {
		return err
	}
	if err := e.collect(ctx, signer, attached); err != nil {
		return err
	}
	if err := t.commit(); err != nil {
		e.giveBack(ctx, o.ID, signer, attached)
		return err
	}
	e.transfers.Kick()

	e.metrics.OfferCancelled()
	e.log.Info("Cancelled offer",
		zap.String("offer", o.ID),
		zap.String("signer", signer),
		zap.Bool("admin", admin),
		zap.Int("returned_assets", len(o.InitiatorDeposited)+len(o.CounterpartyDeposited)))
	e.publish(Event{
		Type:     EventOfferCancelled,
		OfferID:  o.ID,
		Accounts: []string{o.Initiator, o.Counterparty},
		Actor:    signer,
		Result:   TesSUCCESS.String(),
	})
	return nil
}
