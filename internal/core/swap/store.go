package swap

import (
	"bytes"
	"context"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/LeJamon/goSwapd/internal/storage/database"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"
)

// Key layout. Every mutation of one engine operation is committed in a
// single database batch.
const (
	offerPrefix   = "offer/"
	offersOfKey   = "owner/offers/"
	assetsOfKey   = "owner/assets/"
	custodyPrefix = "custody/"
	pendingPrefix = "pending/"
	configKey     = "config/engine"
)

// DefaultCacheSize is the number of offer records kept decoded in memory.
const DefaultCacheSize = 1024

var ErrOfferNotFound = errors.New("offer not found")

func offerKey(id string) []byte          { return []byte(offerPrefix + id) }
func offerListKey(account string) []byte { return []byte(offersOfKey + account) }
func assetListKey(account string) []byte { return []byte(assetsOfKey + account) }
func custodyKey(a AssetRef) []byte       { return []byte(custodyPrefix + a.Key()) }
func pendingKey(id string) []byte        { return []byte(pendingPrefix + id) }

// Custody records which owner and offer an escrowed asset belongs to.
type Custody struct {
	Owner   string `json:"owner" codec:"owner"`
	OfferID string `json:"offer_id" codec:"offer"`
}

// Store persists offer records, the owner indices and the custody index.
type Store struct {
	db    database.DB
	cache *lru.Cache[string, *Offer]
}

func NewStore(db database.DB, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *Offer](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, cache: cache}, nil
}

// Offer returns a copy of the live record id, or ErrOfferNotFound.
func (s *Store) Offer(ctx context.Context, id string) (*Offer, error) {
	if o, ok := s.cache.Get(id); ok {
		return o.Clone(), nil
	}

	data, err := s.db.Read(ctx, offerKey(id))
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil, errors.Wrapf(ErrOfferNotFound, "%q", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading offer %s", id)
	}

	o, err := decodeOffer(id, data)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, o)
	return o.Clone(), nil
}

// HasOffer reports whether id is live.
func (s *Store) HasOffer(ctx context.Context, id string) (bool, error) {
	_, err := s.Offer(ctx, id)
	if errors.Is(err, ErrOfferNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Offers calls fn for every live record in id order until fn returns false.
func (s *Store) Offers(ctx context.Context, fn func(*Offer) bool) error {
	var decErr error
	err := database.ScanPrefix(ctx, s.db, []byte(offerPrefix), func(k, v []byte) bool {
		o, err := decodeOffer(string(k[len(offerPrefix):]), v)
		if err != nil {
			decErr = err
			return false
		}
		return fn(o)
	})
	if err != nil {
		return err
	}
	return decErr
}

// OffersFor returns the ids of the live offers account participates in.
func (s *Store) OffersFor(ctx context.Context, account string) ([]string, error) {
	var ids []string
	if err := s.readValue(ctx, offerListKey(account), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// EscrowedFor returns the assets currently held on account's behalf.
func (s *Store) EscrowedFor(ctx context.Context, account string) ([]AssetRef, error) {
	var assets []AssetRef
	if err := s.readValue(ctx, assetListKey(account), &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// Custody looks up the custody entry of an asset.
func (s *Store) Custody(ctx context.Context, a AssetRef) (Custody, bool, error) {
	var c Custody
	data, err := s.db.Read(ctx, custodyKey(a))
	if errors.Is(err, database.ErrKeyNotFound) {
		return c, false, nil
	}
	if err != nil {
		return c, false, errors.Wrapf(err, "reading custody of %s", a)
	}
	if err := decode(data, &c); err != nil {
		return c, false, err
	}
	return c, true, nil
}

type configRecord struct {
	Admin             string `codec:"admin"`
	FeeCollector      string `codec:"fee_collector"`
	BaseFee           string `codec:"base_fee"`
	PrivilegeRegistry string `codec:"privilege_registry"`
}

// LoadConfig returns the persisted engine configuration, if any.
func (s *Store) LoadConfig(ctx context.Context) (EngineConfig, bool, error) {
	data, err := s.db.Read(ctx, []byte(configKey))
	if errors.Is(err, database.ErrKeyNotFound) {
		return EngineConfig{}, false, nil
	}
	if err != nil {
		return EngineConfig{}, false, errors.Wrap(err, "reading engine config")
	}

	var rec configRecord
	if err := decode(data, &rec); err != nil {
		return EngineConfig{}, false, err
	}
	fee, err := amount.Parse(rec.BaseFee)
	if err != nil {
		return EngineConfig{}, false, errors.Wrap(err, "engine config base fee")
	}
	return EngineConfig{
		Admin:             rec.Admin,
		FeeCollector:      rec.FeeCollector,
		BaseFee:           fee,
		PrivilegeRegistry: rec.PrivilegeRegistry,
	}, true, nil
}

func (s *Store) pendingRecords(ctx context.Context) ([]pendingRecord, error) {
	var (
		out    []pendingRecord
		decErr error
	)
	err := database.ScanPrefix(ctx, s.db, []byte(pendingPrefix), func(_, v []byte) bool {
		var rec pendingRecord
		if err := decode(v, &rec); err != nil {
			decErr = err
			return false
		}
		out = append(out, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, decErr
}

func (s *Store) readValue(ctx context.Context, key []byte, v any) error {
	data, err := s.db.Read(ctx, key)
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "reading %s", key)
	}
	return decode(data, v)
}

// txn stages the changes of one engine operation. Reads see staged writes;
// commit writes everything in one batch.
type txn struct {
	ctx context.Context
	s   *Store

	offers     map[string]*Offer // nil value deletes
	offerLists map[string][]string
	assetLists map[string][]AssetRef
	custody    map[AssetRef]*Custody // nil value deletes
	pending    map[string]*pendingRecord
	config     *EngineConfig
	extra      []database.BatchOperation
}

func (s *Store) begin(ctx context.Context) *txn {
	return &txn{
		ctx:        ctx,
		s:          s,
		offers:     make(map[string]*Offer),
		offerLists: make(map[string][]string),
		assetLists: make(map[string][]AssetRef),
		custody:    make(map[AssetRef]*Custody),
		pending:    make(map[string]*pendingRecord),
	}
}

func (t *txn) putOffer(o *Offer)                { t.offers[o.ID] = o }
func (t *txn) deleteOffer(id string)            { t.offers[id] = nil }
func (t *txn) putCustody(a AssetRef, c Custody) { t.custody[a] = &c }
func (t *txn) deleteCustody(a AssetRef)         { t.custody[a] = nil }

func (t *txn) putPending(rec pendingRecord) { t.pending[rec.ID] = &rec }
func (t *txn) deletePending(id string)      { t.pending[id] = nil }

func (t *txn) putConfig(cfg EngineConfig) { t.config = &cfg }

func (t *txn) offerList(account string) ([]string, error) {
	if l, ok := t.offerLists[account]; ok {
		return l, nil
	}
	l, err := t.s.OffersFor(t.ctx, account)
	if err != nil {
		return nil, err
	}
	t.offerLists[account] = l
	return l, nil
}

func (t *txn) assetList(account string) ([]AssetRef, error) {
	if l, ok := t.assetLists[account]; ok {
		return l, nil
	}
	l, err := t.s.EscrowedFor(t.ctx, account)
	if err != nil {
		return nil, err
	}
	t.assetLists[account] = l
	return l, nil
}

func (t *txn) addOfferTo(account, id string) error {
	l, err := t.offerList(account)
	if err != nil {
		return err
	}
	t.offerLists[account] = append(l, id)
	return nil
}

func (t *txn) removeOfferFrom(account, id string) error {
	l, err := t.offerList(account)
	if err != nil {
		return err
	}
	t.offerLists[account] = removeString(l, id)
	return nil
}

func (t *txn) addAssetTo(account string, a AssetRef) error {
	l, err := t.assetList(account)
	if err != nil {
		return err
	}
	t.assetLists[account] = append(l, a)
	return nil
}

func (t *txn) removeAssetFrom(account string, a AssetRef) error {
	l, err := t.assetList(account)
	if err != nil {
		return err
	}
	t.assetLists[account] = removeAsset(l, a)
	return nil
}

// commit encodes every staged change and writes them atomically, then
// refreshes the offer cache.
func (t *txn) commit() error {
	var ops []database.BatchOperation

	for id, o := range t.offers {
		if o == nil {
			ops = append(ops, database.Del(offerKey(id)))
			continue
		}
		data, err := encodeOffer(o)
		if err != nil {
			return err
		}
		ops = append(ops, database.Put(offerKey(id), data))
	}

	for account, l := range t.offerLists {
		op, err := listOp(offerListKey(account), len(l), l)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}
	for account, l := range t.assetLists {
		op, err := listOp(assetListKey(account), len(l), l)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}

	for a, c := range t.custody {
		if c == nil {
			ops = append(ops, database.Del(custodyKey(a)))
			continue
		}
		data, err := encode(c)
		if err != nil {
			return err
		}
		ops = append(ops, database.Put(custodyKey(a), data))
	}

	for id, rec := range t.pending {
		if rec == nil {
			ops = append(ops, database.Del(pendingKey(id)))
			continue
		}
		data, err := encode(rec)
		if err != nil {
			return err
		}
		ops = append(ops, database.Put(pendingKey(id), data))
	}

	if t.config != nil {
		data, err := encode(&configRecord{
			Admin:             t.config.Admin,
			FeeCollector:      t.config.FeeCollector,
			BaseFee:           t.config.BaseFee.String(),
			PrivilegeRegistry: t.config.PrivilegeRegistry,
		})
		if err != nil {
			return err
		}
		ops = append(ops, database.Put([]byte(configKey), data))
	}

	ops = append(ops, t.extra...)
	if len(ops) == 0 {
		return nil
	}

	// Drop cached copies first so a failed batch cannot leave the cache
	// ahead of the database.
	for id := range t.offers {
		t.s.cache.Remove(id)
	}
	if err := t.s.db.Batch(t.ctx, ops); err != nil {
		return errors.Wrap(err, "committing engine batch")
	}
	for id, o := range t.offers {
		if o != nil {
			t.s.cache.Add(id, o.Clone())
		}
	}
	return nil
}

// listOp deletes the key of an emptied list rather than storing an empty one.
func listOp(key []byte, n int, v any) (database.BatchOperation, error) {
	if n == 0 {
		return database.Del(key), nil
	}
	data, err := encode(v)
	if err != nil {
		return database.BatchOperation{}, err
	}
	return database.Put(key, data), nil
}

var mh codec.MsgpackHandle

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := codec.NewEncoder(&buf, &mh).Encode(v); err != nil {
		return nil, errors.Wrap(err, "msgpack encode")
	}
	return buf.Bytes(), nil
}

func decode(data []byte, v any) error {
	if err := codec.NewDecoderBytes(data, &mh).Decode(v); err != nil {
		return errors.Wrap(err, "msgpack decode")
	}
	return nil
}

type offerRecord struct {
	Initiator             string     `codec:"initiator"`
	Counterparty          string     `codec:"counterparty"`
	NativeAmount          string     `codec:"native_amount"`
	InitiatorExpected     []AssetRef `codec:"initiator_expected"`
	CounterpartyExpected  []AssetRef `codec:"counterparty_expected"`
	InitiatorDeposited    []AssetRef `codec:"initiator_deposited"`
	CounterpartyDeposited []AssetRef `codec:"counterparty_deposited"`
	Deposit               string     `codec:"deposit"`
	Fee                   string     `codec:"fee"`
	CreatedAt             int64      `codec:"created_at"`
	Privileged            bool       `codec:"privileged"`
}

func encodeOffer(o *Offer) ([]byte, error) {
	return encode(&offerRecord{
		Initiator:             o.Initiator,
		Counterparty:          o.Counterparty,
		NativeAmount:          o.NativeAmount.String(),
		InitiatorExpected:     o.InitiatorExpected,
		CounterpartyExpected:  o.CounterpartyExpected,
		InitiatorDeposited:    o.InitiatorDeposited,
		CounterpartyDeposited: o.CounterpartyDeposited,
		Deposit:               o.Deposit.String(),
		Fee:                   o.Fee.String(),
		CreatedAt:             o.CreatedAt.UnixNano(),
		Privileged:            o.Privileged,
	})
}

func decodeOffer(id string, data []byte) (*Offer, error) {
	var rec offerRecord
	if err := decode(data, &rec); err != nil {
		return nil, errors.Wrapf(err, "offer %s", id)
	}

	var amounts [3]amount.Amount
	for i, s := range []string{rec.NativeAmount, rec.Deposit, rec.Fee} {
		a, err := amount.Parse(s)
		if err != nil {
			return nil, errors.Wrapf(err, "offer %s", id)
		}
		amounts[i] = a
	}

	return &Offer{
		ID:                    id,
		Initiator:             rec.Initiator,
		Counterparty:          rec.Counterparty,
		NativeAmount:          amounts[0],
		InitiatorExpected:     nonNil(rec.InitiatorExpected),
		CounterpartyExpected:  nonNil(rec.CounterpartyExpected),
		InitiatorDeposited:    nonNil(rec.InitiatorDeposited),
		CounterpartyDeposited: nonNil(rec.CounterpartyDeposited),
		Deposit:               amounts[1],
		Fee:                   amounts[2],
		CreatedAt:             time.Unix(0, rec.CreatedAt),
		Privileged:            rec.Privileged,
	}, nil
}

func nonNil(l []AssetRef) []AssetRef {
	if l == nil {
		return []AssetRef{}
	}
	return l
}
