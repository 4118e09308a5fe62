package swap

import (
	"time"
)

// EventType names a lifecycle transition.
type EventType string

const (
	EventOfferCreated         EventType = "offer_created"
	EventCreationAborted      EventType = "creation_aborted"
	EventAssetDeposited       EventType = "asset_deposited"
	EventNotificationRejected EventType = "notification_rejected"
	EventOfferCompleted       EventType = "offer_completed"
	EventOfferCancelled       EventType = "offer_cancelled"
	EventConfigUpdated        EventType = "config_updated"
)

// Event is published after the state change it describes has been
// committed.
type Event struct {
	Type    EventType `json:"type"`
	OfferID string    `json:"offer_id,omitempty"`

	// Accounts lists the participants the event concerns, for filtering.
	Accounts []string `json:"accounts,omitempty"`
	Actor    string   `json:"actor,omitempty"`

	Asset  *AssetRef `json:"asset,omitempty"`
	Result string    `json:"result,omitempty"`
	Reason string    `json:"reason,omitempty"`
	Time   time.Time `json:"time"`
}

// Concerns reports whether account takes part in the event.
func (e Event) Concerns(account string) bool {
	return e.Actor == account || containsString(e.Accounts, account)
}

// EventSink receives lifecycle events. Publish is called with the engine
// lock held and must not block.
type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Publish(e Event) { f(e) }
