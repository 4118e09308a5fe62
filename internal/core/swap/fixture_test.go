package swap

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/LeJamon/goSwapd/internal/core/outbox"
	"github.com/LeJamon/goSwapd/internal/registry"
	"github.com/LeJamon/goSwapd/internal/storage/database"
	"github.com/LeJamon/goSwapd/internal/storage/database/memory"
	"github.com/stretchr/testify/require"
)

const (
	custodian = "swapd"
	admin     = "admin"
	collector = "fees"
	club      = "club.registry"

	alice = "alice"
	bob   = "bob"
	carol = "carol"

	nftOne = "nft.one"
	nftTwo = "nft.two"
)

// startingBalance is what every test account can pay from.
var startingBalance = amount.Units(1_000_000)

func asset(reg, item string) AssetRef {
	return AssetRef{RegistryID: reg, ItemID: item}
}

func testConfig() EngineConfig {
	return EngineConfig{
		Admin:             admin,
		FeeCollector:      collector,
		BaseFee:           DefaultBaseFee,
		PrivilegeRegistry: club,
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fixture wires an engine to an in-memory database, an in-memory registry
// and a real outbox. Privilege queries run synchronously by default.
type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    database.DB
	reg   *registry.Memory
	ob    *outbox.Outbox
	clock *fakeClock
	eng   *Engine

	mu        sync.Mutex
	holders   map[string]bool
	oracleErr error
	events    []Event
}

func newFixture(t *testing.T, mods ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		t:       t,
		ctx:     context.Background(),
		db:      memory.New(),
		reg:     registry.NewMemory(custodian),
		clock:   &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		holders: make(map[string]bool),
	}
	for _, acct := range []string{alice, bob, carol} {
		require.NoError(t, f.reg.Fund(acct, startingBalance))
	}
	f.ob = outbox.New(f.db, f.reg, f.reg, outbox.Config{}, outbox.WithClock(f.clock.Now))
	f.eng = f.open(mods...)
	return f
}

func (f *fixture) open(mods ...func(*Options)) *Engine {
	f.t.Helper()
	opts := Options{
		Clock:          f.clock.Now,
		Dispatch:       func(fn func()) { fn() },
		PendingTimeout: time.Minute,
		Sinks:          []EventSink{EventSinkFunc(f.record)},
	}
	for _, m := range mods {
		m(&opts)
	}
	eng, err := New(f.ctx, f.db, testConfig(), OracleFunc(f.holdsAny), f.reg, f.ob, opts)
	require.NoError(f.t, err)
	return eng
}

func (f *fixture) holdsAny(_ context.Context, reg, account string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if reg != club {
		return false, registry.ErrUnknownRegistry
	}
	if f.oracleErr != nil {
		return false, f.oracleErr
	}
	return f.holders[account], nil
}

func (f *fixture) setHolder(account string) {
	f.mu.Lock()
	f.holders[account] = true
	f.mu.Unlock()
}

func (f *fixture) record(e Event) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
}

func (f *fixture) eventsOf(typ EventType) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Event
	for _, e := range f.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// request builds a creation by alice toward bob that attaches exactly the
// required deposit.
func request(id string, native amount.Amount, mine, theirs []AssetRef, privileged bool) CreateRequest {
	required, err := RequiredDeposit(native, DefaultBaseFee, privileged)
	if err != nil {
		panic(err)
	}
	return CreateRequest{
		OfferID:            id,
		Initiator:          alice,
		NativeAmount:       native,
		InitiatorAssets:    mine,
		Counterparty:       bob,
		CounterpartyAssets: theirs,
		PrivilegedClaim:    privileged,
		Attached:           required,
	}
}

func (f *fixture) create(req CreateRequest) *Offer {
	f.t.Helper()
	p, err := f.eng.CreateOffer(f.ctx, req.Initiator, req)
	require.NoError(f.t, err)
	o, err := p.Wait(f.ctx)
	require.NoError(f.t, err)
	return o
}

// deposit mints item to owner, moves it into custody and notifies the
// engine the way a registry would.
func (f *fixture) deposit(offerID, owner string, a AssetRef) (Outcome, error) {
	f.reg.Mint(a.RegistryID, a.ItemID, owner)
	require.NoError(f.t, f.reg.Move(a.RegistryID, a.ItemID, owner, custodian))
	return f.eng.NotifyTransfer(f.ctx, notice(offerID, owner, a))
}

func notice(offerID, owner string, a AssetRef) TransferNotice {
	return TransferNotice{
		Registry:      a.RegistryID,
		Signer:        owner,
		Depositor:     owner,
		PreviousOwner: owner,
		ItemID:        a.ItemID,
		OfferID:       offerID,
	}
}

func (f *fixture) tasksFor(offerID string) []outbox.Task {
	f.t.Helper()
	tasks, err := f.ob.Tasks(f.ctx)
	require.NoError(f.t, err)
	var out []outbox.Task
	for _, task := range tasks {
		if task.OfferID == offerID {
			out = append(out, task)
		}
	}
	return out
}

func (f *fixture) drain() {
	f.t.Helper()
	_, err := f.ob.Drain(f.ctx)
	require.NoError(f.t, err)
}

func (f *fixture) owner(a AssetRef) string {
	o, _ := f.reg.Owner(a.RegistryID, a.ItemID)
	return o
}
