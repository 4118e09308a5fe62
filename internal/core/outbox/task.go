package outbox

import (
	"bytes"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"
)

// Kind distinguishes item transfers from native payments.
type Kind string

const (
	KindAsset  Kind = "asset"
	KindNative Kind = "native"
)

// Purpose records why a transfer was issued.
type Purpose string

const (
	PurposeRelease Purpose = "release"
	PurposeReturn  Purpose = "return"
	PurposeFee     Purpose = "fee"
	PurposeProceed Purpose = "proceeds"
	PurposeRefund  Purpose = "refund"
)

// Task is one pending transfer-out. It stays in the outbox until the
// collaborator confirms it.
type Task struct {
	ID       string        `json:"id"`
	Kind     Kind          `json:"kind"`
	Purpose  Purpose       `json:"purpose"`
	OfferID  string        `json:"offer_id"`
	To       string        `json:"to"`
	Registry string        `json:"registry,omitempty"`
	Item     string        `json:"item,omitempty"`
	Amount   amount.Amount `json:"amount"`

	Attempts    int       `json:"attempts"`
	LastError   string    `json:"last_error,omitempty"`
	NextAttempt time.Time `json:"next_attempt"`
	CreatedAt   time.Time `json:"created_at"`
}

// AssetTransfer builds a task moving registry/item to account to.
func AssetTransfer(offerID string, purpose Purpose, registry, item, to string) Task {
	return Task{Kind: KindAsset, Purpose: purpose, OfferID: offerID, Registry: registry, Item: item, To: to}
}

// NativeTransfer builds a task paying amt to account to.
func NativeTransfer(offerID string, purpose Purpose, to string, amt amount.Amount) Task {
	return Task{Kind: KindNative, Purpose: purpose, OfferID: offerID, To: to, Amount: amt}
}

const keyPrefix = "outbox/"

// Key returns the storage key of a task id. Ids are time-ordered uuids, so
// iteration yields tasks oldest first.
func Key(id string) []byte {
	return []byte(keyPrefix + id)
}

// Prefix is the key prefix under which every task is stored.
func Prefix() []byte {
	return []byte(keyPrefix)
}

func newTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

type taskRecord struct {
	ID          string `codec:"id"`
	Kind        string `codec:"kind"`
	Purpose     string `codec:"purpose"`
	OfferID     string `codec:"offer"`
	To          string `codec:"to"`
	Registry    string `codec:"registry"`
	Item        string `codec:"item"`
	Amount      string `codec:"amount"`
	Attempts    int    `codec:"attempts"`
	LastError   string `codec:"last_error"`
	NextAttempt int64  `codec:"next_attempt"`
	CreatedAt   int64  `codec:"created_at"`
}

var mh codec.MsgpackHandle

func encodeTask(t Task) ([]byte, error) {
	rec := taskRecord{
		ID:          t.ID,
		Kind:        string(t.Kind),
		Purpose:     string(t.Purpose),
		OfferID:     t.OfferID,
		To:          t.To,
		Registry:    t.Registry,
		Item:        t.Item,
		Amount:      t.Amount.String(),
		Attempts:    t.Attempts,
		LastError:   t.LastError,
		NextAttempt: t.NextAttempt.UnixNano(),
		CreatedAt:   t.CreatedAt.UnixNano(),
	}
	var buf bytes.Buffer
	if err := codec.NewEncoder(&buf, &mh).Encode(&rec); err != nil {
		return nil, errors.Wrapf(err, "encoding task %s", t.ID)
	}
	return buf.Bytes(), nil
}

func decodeTask(data []byte) (Task, error) {
	var rec taskRecord
	if err := codec.NewDecoderBytes(data, &mh).Decode(&rec); err != nil {
		return Task{}, errors.Wrap(err, "decoding task")
	}
	amt, err := amount.Parse(rec.Amount)
	if err != nil {
		return Task{}, errors.Wrapf(err, "task %s amount", rec.ID)
	}
	return Task{
		ID:          rec.ID,
		Kind:        Kind(rec.Kind),
		Purpose:     Purpose(rec.Purpose),
		OfferID:     rec.OfferID,
		To:          rec.To,
		Registry:    rec.Registry,
		Item:        rec.Item,
		Amount:      amt,
		Attempts:    rec.Attempts,
		LastError:   rec.LastError,
		NextAttempt: time.Unix(0, rec.NextAttempt),
		CreatedAt:   time.Unix(0, rec.CreatedAt),
	}, nil
}
