package swap

import (
	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/LeJamon/goSwapd/internal/core/outbox"
)

// release tears down a fully funded offer in t and returns the transfers
// that settle it: each deposited asset goes to the other side, the fee to
// the collector, the native amount to the counterparty and any surplus of
// the deposit back to the initiator.
func (e *Engine) release(t *txn, o *Offer) ([]outbox.Task, error) {
	var tasks []outbox.Task
	for _, side := range []Side{SideInitiator, SideCounterparty} {
		from, to := o.Party(side), o.Party(side.Other())
		for _, a := range o.Deposited(side) {
			tasks = append(tasks, outbox.AssetTransfer(o.ID, outbox.PurposeRelease, a.RegistryID, a.ItemID, to))
			if err := unescrow(t, from, a); err != nil {
				return nil, err
			}
		}
	}
	if err := teardown(t, o); err != nil {
		return nil, err
	}

	surplus := o.Deposit.SubSat(o.NativeAmount).SubSat(o.Fee)
	tasks = appendNative(tasks, o.ID, outbox.PurposeFee, e.cfg.FeeCollector, o.Fee)
	tasks = appendNative(tasks, o.ID, outbox.PurposeProceed, o.Counterparty, o.NativeAmount)
	tasks = appendNative(tasks, o.ID, outbox.PurposeRefund, o.Initiator, surplus)
	return tasks, nil
}

// refund tears down a cancelled offer in t and returns the transfers that
// give every deposited asset back to its depositor. The fee and the
// cancellation proof go to the collector and the rest of the deposit back
// to the initiator.
func (e *Engine) refund(t *txn, o *Offer, proof amount.Amount) ([]outbox.Task, error) {
	var tasks []outbox.Task
	for _, side := range []Side{SideInitiator, SideCounterparty} {
		owner := o.Party(side)
		for _, a := range o.Deposited(side) {
			tasks = append(tasks, outbox.AssetTransfer(o.ID, outbox.PurposeReturn, a.RegistryID, a.ItemID, owner))
			if err := unescrow(t, owner, a); err != nil {
				return nil, err
			}
		}
	}
	if err := teardown(t, o); err != nil {
		return nil, err
	}

	collected, err := o.Fee.Add(proof)
	if err != nil {
		return nil, failf(TemBAD_AMOUNT, "attached %s overflows", proof)
	}
	tasks = appendNative(tasks, o.ID, outbox.PurposeFee, e.cfg.FeeCollector, collected)
	tasks = appendNative(tasks, o.ID, outbox.PurposeRefund, o.Initiator, o.Deposit.SubSat(o.Fee))
	return tasks, nil
}

func appendNative(tasks []outbox.Task, offerID string, purpose outbox.Purpose, to string, amt amount.Amount) []outbox.Task {
	if amt.IsZero() {
		return tasks
	}
	return append(tasks, outbox.NativeTransfer(offerID, purpose, to, amt))
}

func unescrow(t *txn, owner string, a AssetRef) error {
	if err := t.removeAssetFrom(owner, a); err != nil {
		return err
	}
	t.deleteCustody(a)
	return nil
}

// teardown removes the record and its offer-list entries.
func teardown(t *txn, o *Offer) error {
	if err := t.removeOfferFrom(o.Initiator, o.ID); err != nil {
		return err
	}
	if err := t.removeOfferFrom(o.Counterparty, o.ID); err != nil {
		return err
	}
	t.deleteOffer(o.ID)
	return nil
}
