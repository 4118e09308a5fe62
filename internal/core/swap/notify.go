package swap

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// TransferNotice is a registry's report that an item was transferred to the
// engine for an offer. Registry is the calling registry's account and
// becomes the asset's registry id.
type TransferNotice struct {
	Registry      string `json:"registry"`
	Signer        string `json:"signer"`
	Depositor     string `json:"sender_id"`
	PreviousOwner string `json:"previous_owner_id"`
	ItemID        string `json:"token_id"`
	OfferID       string `json:"offer_id"`
}

func (n TransferNotice) Asset() AssetRef {
	return AssetRef{RegistryID: n.Registry, ItemID: n.ItemID}
}

// Outcome is the answer to a transfer notification.
type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeAccepted
	OutcomeCompleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeCompleted:
		return "completed"
	default:
		return "rejected"
	}
}

// Rejected reports whether the registry should treat the deposit as
// orphaned.
func (o Outcome) Rejected() bool { return o == OutcomeRejected }

// NotifyTransfer records a deposit. When the deposit completes both bundles
// the offer is released within the same call. A rejected notification
// changes nothing; the engine never sends the item back on its own.
func (e *Engine) NotifyTransfer(ctx context.Context, n TransferNotice) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out, err := e.notifyLocked(ctx, n)
	if err != nil {
		e.metrics.Notification(OutcomeRejected.String())
		res := ResultOf(err)
		e.log.Info("Transfer notification rejected",
			zap.String("offer", n.OfferID),
			zap.String("registry", n.Registry),
			zap.String("item", n.ItemID),
			zap.String("signer", n.Signer),
			zap.String("result", res.String()),
			zap.Error(err))
		asset := n.Asset()
		e.publish(Event{
			Type:    EventNotificationRejected,
			OfferID: n.OfferID,
			Actor:   n.Signer,
			Asset:   &asset,
			Result:  res.String(),
			Reason:  err.Error(),
		})
		return OutcomeRejected, err
	}
	e.metrics.Notification(out.String())
	return out, nil
}

func (e *Engine) notifyLocked(ctx context.Context, n TransferNotice) (Outcome, error) {
	if n.Registry == "" || n.Signer == "" || n.ItemID == "" || n.OfferID == "" {
		return OutcomeRejected, failf(TemMALFORMED, "registry, signer, item and offer are required")
	}
	if n.Registry == n.Signer {
		return OutcomeRejected, failf(TecNO_PERMISSION, "notification must be relayed by a registry")
	}
	if n.PreviousOwner != n.Signer {
		return OutcomeRejected, failf(TecNO_PERMISSION, "previous owner %s is not the signer %s", n.PreviousOwner, n.Signer)
	}
	asset := n.Asset()
	if err := asset.Validate(); err != nil {
		return OutcomeRejected, err
	}

	o, err := e.store.Offer(ctx, n.OfferID)
	if errors.Is(err, ErrOfferNotFound) {
		return OutcomeRejected, failf(TecNO_ENTRY, "offer %s does not exist", n.OfferID)
	}
	if err != nil {
		return OutcomeRejected, err
	}

	t := e.store.begin(ctx)
	listed, err := t.offerList(n.Signer)
	if err != nil {
		return OutcomeRejected, err
	}
	side, ok := o.SideOf(n.Signer)
	if !ok || !containsString(listed, o.ID) {
		return OutcomeRejected, failf(TecNO_PERMISSION, "%s does not take part in offer %s", n.Signer, o.ID)
	}
	if !containsAsset(o.Expected(side), asset) {
		return OutcomeRejected, failf(TecASSET_NOT_EXPECTED, "%s is not in the %s bundle of offer %s", asset, side, o.ID)
	}
	if containsAsset(o.Deposited(side), asset) {
		return OutcomeRejected, failf(TecASSET_ALREADY_DEPOSITED, "%s already deposited for offer %s", asset, o.ID)
	}
	if c, held, err := e.store.Custody(ctx, asset); err != nil {
		return OutcomeRejected, err
	} else if held {
		return OutcomeRejected, failf(TecASSET_IN_CUSTODY, "%s is held for offer %s", asset, c.OfferID)
	}

	o.addDeposit(side, asset)
	if err := t.addAssetTo(n.Signer, asset); err != nil {
		return OutcomeRejected, err
	}
	t.putCustody(asset, Custody{Owner: n.Signer, OfferID: o.ID})

	funded := o.Funded()
	if funded {
		tasks, err := e.release(t, o)
		if err != nil {
			return OutcomeRejected, err
		}
		if err := e.stage(t, tasks); err != nil {
			return OutcomeRejected, err
		}
	} else {
		t.putOffer(o)
	}
	if err := t.commit(); err != nil {
		return OutcomeRejected, err
	}

	e.log.Debug("Asset deposited",
		zap.String("offer", o.ID),
		zap.String("asset", asset.Key()),
		zap.String("side", side.String()),
		zap.String("depositor", n.Depositor))
	e.publish(Event{
		Type:     EventAssetDeposited,
		OfferID:  o.ID,
		Accounts: []string{o.Initiator, o.Counterparty},
		Actor:    n.Signer,
		Asset:    &asset,
		Result:   TesSUCCESS.String(),
	})

	if !funded {
		for _, s := range []Side{SideInitiator, SideCounterparty} {
			if len(o.Deposited(s)) < len(o.Expected(s)) {
				e.log.Info(s.String()+" has not sent all assets",
					zap.String("offer", o.ID),
					zap.Int("deposited", len(o.Deposited(s))),
					zap.Int("expected", len(o.Expected(s))))
			}
		}
		return OutcomeAccepted, nil
	}

	e.transfers.Kick()
	e.metrics.OfferCompleted()
	e.log.Info("Offer completed", zap.String("offer", o.ID))
	e.publish(Event{
		Type:     EventOfferCompleted,
		OfferID:  o.ID,
		Accounts: []string{o.Initiator, o.Counterparty},
		Actor:    n.Signer,
		Result:   TesSUCCESS.String(),
	})
	return OutcomeCompleted, nil
}
