package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/pkg/errors"
)

// Payout records one native transfer made through Memory. Collections are
// recorded with From set.
type Payout struct {
	From   string
	To     string
	Amount amount.Amount
}

// Memory is an in-process registry and native ledger. It backs standalone
// mode and tests. Items moved with Move to the custodian account are
// considered held by the engine.
type Memory struct {
	mu        sync.Mutex
	custodian string
	owners    map[string]map[string]string // registry -> item -> owner
	balances  map[string]amount.Amount
	payouts   []Payout
	collected []Payout
	failures  int
	failErr   error
}

var (
	_ AssetRegistry = (*Memory)(nil)
	_ NativeLedger  = (*Memory)(nil)
)

// NewMemory returns an empty registry whose engine account is custodian.
func NewMemory(custodian string) *Memory {
	return &Memory{
		custodian: custodian,
		owners:    make(map[string]map[string]string),
		balances:  make(map[string]amount.Amount),
	}
}

// Custodian is the account that holds escrowed items.
func (m *Memory) Custodian() string { return m.custodian }

// Mint creates item in registry owned by owner.
func (m *Memory) Mint(registry, item, owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.owners[registry]
	if !ok {
		items = make(map[string]string)
		m.owners[registry] = items
	}
	items[item] = owner
}

// Move transfers item from one account to another on behalf of from.
func (m *Memory) Move(registry, item, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[registry][item]
	if !ok {
		return errors.Wrapf(ErrUnknownItem, "%s/%s", registry, item)
	}
	if owner != from {
		return errors.Errorf("%s/%s is owned by %s, not %s", registry, item, owner, from)
	}
	m.owners[registry][item] = to
	return nil
}

// Owner returns the current owner of an item.
func (m *Memory) Owner(registry, item string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[registry][item]
	return owner, ok
}

// FailNext makes the next n collaborator calls fail with err.
func (m *Memory) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.failErr = err
}

func (m *Memory) injectedFailure() error {
	if m.failures <= 0 {
		return nil
	}
	m.failures--
	return m.failErr
}

func (m *Memory) TokensForOwner(ctx context.Context, registry, owner string, limit int) ([]Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injectedFailure(); err != nil {
		return nil, err
	}

	var ids []string
	for item, o := range m.owners[registry] {
		if o == owner {
			ids = append(ids, item)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	tokens := make([]Token, 0, len(ids))
	for _, id := range ids {
		tokens = append(tokens, Token{TokenID: id, OwnerID: owner})
	}
	return tokens, nil
}

func (m *Memory) TransferItem(ctx context.Context, registry, item, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injectedFailure(); err != nil {
		return err
	}

	owner, ok := m.owners[registry][item]
	if !ok {
		return errors.Wrapf(ErrUnknownItem, "%s/%s", registry, item)
	}
	if owner != m.custodian {
		return errors.Wrapf(ErrNotOwner, "%s/%s", registry, item)
	}
	m.owners[registry][item] = to
	return nil
}

func (m *Memory) Transfer(ctx context.Context, to string, amt amount.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injectedFailure(); err != nil {
		return err
	}

	bal, err := m.balances[to].Add(amt)
	if err != nil {
		return err
	}
	m.balances[to] = bal
	m.payouts = append(m.payouts, Payout{To: to, Amount: amt})
	return nil
}

// Fund credits account with amt it can later be charged.
func (m *Memory) Fund(account string, amt amount.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, err := m.balances[account].Add(amt)
	if err != nil {
		return err
	}
	m.balances[account] = bal
	return nil
}

func (m *Memory) Collect(ctx context.Context, from string, amt amount.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injectedFailure(); err != nil {
		return err
	}

	bal, err := m.balances[from].Sub(amt)
	if err != nil {
		return errors.Wrapf(ErrInsufficient, "%s holds %s, %s requested", from, m.balances[from], amt)
	}
	m.balances[from] = bal
	m.collected = append(m.collected, Payout{From: from, To: m.custodian, Amount: amt})
	return nil
}

// Balance is what account currently holds.
func (m *Memory) Balance(account string) amount.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account]
}

// Received is the total native amount paid out to account.
func (m *Memory) Received(account string) amount.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := amount.Zero
	for _, p := range m.payouts {
		if p.To == account {
			total, _ = total.Add(p.Amount)
		}
	}
	return total
}

// Collected is the total native amount taken from account.
func (m *Memory) Collected(account string) amount.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := amount.Zero
	for _, p := range m.collected {
		if p.From == account {
			total, _ = total.Add(p.Amount)
		}
	}
	return total
}

// Payouts returns every native transfer in the order it was made.
func (m *Memory) Payouts() []Payout {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Payout, len(m.payouts))
	copy(out, m.payouts)
	return out
}
