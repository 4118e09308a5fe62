package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/LeJamon/goSwapd/internal/core/outbox"
	"github.com/LeJamon/goSwapd/internal/core/swap"
	"github.com/LeJamon/goSwapd/internal/registry"
	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
	"github.com/LeJamon/goSwapd/internal/storage/database/memory"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	custodian = "swapd"
	admin     = "admin"
	collector = "fees"
	club      = "club.registry"
	alice     = "alice"
	bob       = "bob"
	nftOne    = "nft.one"
	nftTwo    = "nft.two"
)

var startingBalance = amount.Units(1000)

var tokens = map[string]string{
	"alice-token": alice,
	"bob-token":   bob,
	"admin-token": admin,
	"nft-one-key": nftOne,
	"nft-two-key": nftTwo,
}

type stack struct {
	t       *testing.T
	ctx     context.Context
	reg     *registry.Memory
	ob      *outbox.Outbox
	eng     *swap.Engine
	hub     *EventHub
	history *fakeHistory
	srv     *httptest.Server
}

type fakeHistory struct {
	events map[string][]swap.Event
}

func (h *fakeHistory) Publish(ev swap.Event) {
	h.events[ev.OfferID] = append(h.events[ev.OfferID], ev)
}

func (h *fakeHistory) History(_ context.Context, offerID string) ([]swap.Event, error) {
	return h.events[offerID], nil
}

func (h *fakeHistory) Dropped() uint64 { return 0 }

func newStack(t *testing.T, withHistory bool) *stack {
	t.Helper()
	s := &stack{
		t:       t,
		ctx:     context.Background(),
		reg:     registry.NewMemory(custodian),
		hub:     NewEventHub(16, nil),
		history: &fakeHistory{events: make(map[string][]swap.Event)},
	}
	for _, acct := range []string{alice, bob} {
		require.NoError(t, s.reg.Fund(acct, startingBalance))
	}
	db := memory.New()
	s.ob = outbox.New(db, s.reg, s.reg, outbox.Config{PollInterval: time.Hour})

	sinks := []swap.EventSink{s.hub}
	if withHistory {
		sinks = append(sinks, s.history)
	}
	cfg := swap.EngineConfig{
		Admin:             admin,
		FeeCollector:      collector,
		BaseFee:           swap.DefaultBaseFee,
		PrivilegeRegistry: club,
	}
	eng, err := swap.New(s.ctx, db, cfg, swap.NewRegistryOracle(s.reg), s.reg, s.ob, swap.Options{
		Sinks:    sinks,
		Dispatch: func(f func()) { f() },
	})
	require.NoError(t, err)
	s.eng = eng

	svc := &rpc_types.ServiceContainer{
		Engine:     eng,
		Transfers:  s.ob,
		Version:    "test",
		Standalone: true,
		StartTime:  time.Now(),
	}
	if withHistory {
		svc.History = s.history
	}
	server := NewServer(svc,
		WithTokens(tokens),
		WithRegistries(nftOne, nftTwo),
		WithTimeout(5*time.Second))
	s.srv = httptest.NewServer(server.Handler(s.hub, prometheus.NewRegistry()))
	t.Cleanup(func() {
		s.hub.Close()
		s.srv.Close()
	})
	return s
}

func (s *stack) client(token string) *Client {
	return NewClient(s.srv.URL, token, 5*time.Second)
}

func (s *stack) call(token, method string, params interface{}) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := s.client(token).Call(s.ctx, method, params, &out)
	return out, err
}

func rpcError(t *testing.T, err error) *rpc_types.RpcError {
	t.Helper()
	require.Error(t, err)
	var rpcErr *rpc_types.RpcError
	require.True(t, errors.As(err, &rpcErr), "not an rpc error: %v", err)
	return rpcErr
}

func createParams(id string, native amount.Amount) map[string]interface{} {
	required, err := swap.RequiredDeposit(native, swap.DefaultBaseFee, false)
	if err != nil {
		panic(err)
	}
	return map[string]interface{}{
		"offer_id":            id,
		"initiator":           alice,
		"native_amount":       native,
		"initiator_assets":    []swap.AssetRef{{RegistryID: nftOne, ItemID: "1"}},
		"counterparty":        bob,
		"counterparty_assets": []swap.AssetRef{{RegistryID: nftTwo, ItemID: "2"}},
		"attached":            required,
		"wait":                true,
	}
}

// deposit moves item into custody and reports it with the registry's key.
func (s *stack) deposit(key, reg, item, owner, offerID string) (map[string]interface{}, error) {
	s.reg.Mint(reg, item, owner)
	require.NoError(s.t, s.reg.Move(reg, item, owner, custodian))
	return s.call(key, "transfer_notify", map[string]interface{}{
		"signer":            owner,
		"sender_id":         owner,
		"previous_owner_id": owner,
		"token_id":          item,
		"offer_id":          offerID,
	})
}

func TestServerInfo(t *testing.T) {
	s := newStack(t, false)

	resp, err := http.Get(s.srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Result struct {
			Status string                 `json:"status"`
			Info   map[string]interface{} `json:"info"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body.Result.Status)
	assert.Equal(t, "guest", body.Result.Info["role"])
	assert.Equal(t, true, body.Result.Info["standalone"])

	out, err := s.call("admin-token", "server_info", nil)
	require.NoError(t, err)
	info := out["info"].(map[string]interface{})
	assert.Equal(t, "admin", info["role"])
	assert.Equal(t, admin, info["account"])
	assert.Equal(t, map[string]interface{}{"enabled": false}, info["journal"])
}

func TestRequestErrors(t *testing.T) {
	s := newStack(t, false)

	post := func(body, token string) map[string]interface{} {
		req, err := http.NewRequest(http.MethodPost, s.srv.URL, strings.NewReader(body))
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out struct {
			Result map[string]interface{} `json:"result"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, "error", out.Result["status"])
		return out.Result
	}

	assert.Equal(t, "jsonInvalid", post("{", "")["error"])
	assert.Equal(t, "missingCommand", post(`{"params":[{}]}`, "")["error"])
	assert.Equal(t, "unknownCmd", post(`{"method":"ledger"}`, "")["error"])
	assert.Equal(t, "forbidden", post(`{"method":"ping"}`, "Bearer nope")["error"])
	assert.Equal(t, "forbidden", post(`{"method":"ping"}`, "alice-token")["error"])

	res := post(`{"method":"offer_info","params":[{"offer_id":"missing"}]}`, "")
	assert.Equal(t, "objectNotFound", res["error"])
	assert.Equal(t, map[string]interface{}{"command": "offer_info", "offer_id": "missing"}, res["request"])
}

func TestRoles(t *testing.T) {
	s := newStack(t, false)

	_, err := s.call("", "offer_create", createParams("H1", amount.Zero))
	assert.Equal(t, "commandUntrusted", rpcError(t, err).ErrorString)

	_, err = s.call("", "transfer_notify", map[string]interface{}{"offer_id": "H1"})
	assert.Equal(t, "commandUntrusted", rpcError(t, err).ErrorString)

	// Accounts that are not registries cannot report transfers.
	_, err = s.call("alice-token", "transfer_notify", map[string]interface{}{"offer_id": "H1"})
	assert.Equal(t, "commandUntrusted", rpcError(t, err).ErrorString)

	_, err = s.call("alice-token", "engine_config_set", map[string]interface{}{"fee_collector": "alice"})
	assert.Equal(t, "commandUntrusted", rpcError(t, err).ErrorString)

	out, err := s.call("admin-token", "engine_config_set", map[string]interface{}{
		"fee_collector": "treasury",
		"base_fee":      "5000",
	})
	require.NoError(t, err)
	assert.Equal(t, "tesSUCCESS", out["result"])

	cfg := s.eng.Config()
	assert.Equal(t, "treasury", cfg.FeeCollector)
	assert.Equal(t, amount.New(5000), cfg.BaseFee)
	assert.Equal(t, admin, cfg.Admin)

	out, err = s.call("", "engine_config", nil)
	require.NoError(t, err)
	assert.Equal(t, "treasury", out["config"].(map[string]interface{})["fee_collector"])

	_, err = s.call("admin-token", "engine_config_set", map[string]interface{}{"base_fee": "0"})
	assert.Equal(t, "temBAD_AMOUNT", rpcError(t, err).ErrorString)
}

func TestOfferLifecycle(t *testing.T) {
	s := newStack(t, false)
	native := amount.Units(2)

	out, err := s.call("alice-token", "offer_create", createParams("H1", native))
	require.NoError(t, err)
	assert.Equal(t, "tesSUCCESS", out["result"])
	assert.NotEmpty(t, out["pending_id"])
	offer := out["offer"].(map[string]interface{})
	assert.Equal(t, "H1", offer["offer_id"])
	assert.Equal(t, native.String(), offer["native_amount"])

	out, err = s.call("", "account_offers", map[string]interface{}{"account": bob})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"H1"}, out["offers"])

	out, err = s.deposit("nft-one-key", nftOne, "1", alice, "H1")
	require.NoError(t, err)
	assert.Equal(t, "accepted", out["outcome"])
	assert.Equal(t, false, out["rejected"])

	out, err = s.call("alice-token", "account_escrow", nil)
	require.NoError(t, err)
	assert.Equal(t, alice, out["account"])
	assert.Len(t, out["assets"], 1)

	out, err = s.call("", "offer_info", map[string]interface{}{"offer_id": "H1"})
	require.NoError(t, err)
	assert.Equal(t, false, out["funded"])

	out, err = s.deposit("nft-two-key", nftTwo, "2", bob, "H1")
	require.NoError(t, err)
	assert.Equal(t, "completed", out["outcome"])

	_, err = s.call("", "offer_info", map[string]interface{}{"offer_id": "H1"})
	assert.Equal(t, "objectNotFound", rpcError(t, err).ErrorString)

	_, err = s.ob.Drain(s.ctx)
	require.NoError(t, err)
	owner, _ := s.reg.Owner(nftOne, "1")
	assert.Equal(t, bob, owner)
	owner, _ = s.reg.Owner(nftTwo, "2")
	assert.Equal(t, alice, owner)
	assert.Equal(t, native, s.reg.Received(bob))
}

func TestOfferCreateWithoutWait(t *testing.T) {
	s := newStack(t, false)

	params := createParams("H2", amount.Zero)
	delete(params, "wait")
	out, err := s.call("alice-token", "offer_create", params)
	require.NoError(t, err)

	id := out["pending_id"].(string)
	require.NotEmpty(t, id)

	out, err = s.call("", "pending_info", map[string]interface{}{"pending_id": id})
	require.NoError(t, err)
	pending := out["pending"].(map[string]interface{})
	assert.Equal(t, "H2", pending["offer_id"])
	assert.Equal(t, string(swap.PendingCommitted), pending["state"])

	_, err = s.call("", "pending_info", map[string]interface{}{"pending_id": "nope"})
	assert.Equal(t, "objectNotFound", rpcError(t, err).ErrorString)

	_, err = s.call("", "pending_info", nil)
	assert.Equal(t, "invalidParams", rpcError(t, err).ErrorString)
}

func TestEngineErrors(t *testing.T) {
	s := newStack(t, false)

	params := createParams("H3", amount.Zero)
	params["attached"] = "1"
	_, err := s.call("alice-token", "offer_create", params)
	rpcErr := rpcError(t, err)
	assert.Equal(t, "tecINSUFFICIENT_PAYMENT", rpcErr.ErrorString)
	assert.Equal(t, int(swap.TecINSUFFICIENT_PAYMENT), rpcErr.Code)

	// The signer must be the initiator.
	_, err = s.call("bob-token", "offer_create", createParams("H3", amount.Zero))
	assert.Equal(t, "temBAD_SIGNER", rpcError(t, err).ErrorString)

	_, err = s.call("alice-token", "offer_cancel", map[string]interface{}{"offer_id": "missing", "attached": "1"})
	rpcErr = rpcError(t, err)
	assert.Equal(t, "tecNO_ENTRY", rpcErr.ErrorString)
	assert.Equal(t, 140, rpcErr.Code)

	_, err = s.call("alice-token", "offer_cancel", map[string]interface{}{})
	assert.Equal(t, "invalidParams", rpcError(t, err).ErrorString)
}

func TestAttachedPaymentIsCollected(t *testing.T) {
	s := newStack(t, false)
	huge := amount.MustParse("1000000000000000000000000000000")

	// More than alice holds: nothing is accepted.
	params := createParams("H8", amount.Zero)
	params["attached"] = huge
	_, err := s.call("alice-token", "offer_create", params)
	assert.Equal(t, "tecUNFUNDED_PAYMENT", rpcError(t, err).ErrorString)

	// A false privilege claim aborts and returns the whole payment.
	params = createParams("H8", amount.Zero)
	params["attached"] = startingBalance
	params["privileged"] = true
	_, err = s.call("alice-token", "offer_create", params)
	assert.Equal(t, "tecPRIVILEGE_MISMATCH", rpcError(t, err).ErrorString)
	_, err = s.ob.Drain(s.ctx)
	require.NoError(t, err)
	assert.Equal(t, startingBalance, s.reg.Balance(alice))

	// Surplus on a live offer comes back on cancellation, minus the fee.
	params = createParams("H9", amount.Zero)
	params["attached"] = startingBalance
	_, err = s.call("alice-token", "offer_create", params)
	require.NoError(t, err)
	_, err = s.call("alice-token", "offer_cancel", map[string]interface{}{
		"offer_id": "H9",
		"attached": swap.CancelProof,
	})
	require.NoError(t, err)

	_, err = s.ob.Drain(s.ctx)
	require.NoError(t, err)

	paidIn := s.reg.Collected(alice)
	paidOut := s.reg.Received(alice)
	assert.True(t, paidOut.Lt(paidIn), "paid out %s, collected %s", paidOut, paidIn)
	assert.True(t, s.reg.Balance(alice).Lt(startingBalance))

	fee, err := swap.DefaultBaseFee.Add(swap.CancelProof)
	require.NoError(t, err)
	left, err := startingBalance.Sub(fee)
	require.NoError(t, err)
	assert.Equal(t, left, s.reg.Balance(alice))
	assert.Equal(t, fee, s.reg.Received(collector))
}

func TestRejectedNotification(t *testing.T) {
	s := newStack(t, false)
	_, err := s.call("alice-token", "offer_create", createParams("H4", amount.Zero))
	require.NoError(t, err)

	// nft.two is not part of alice's bundle.
	out, err := s.deposit("nft-two-key", nftTwo, "9", alice, "H4")
	require.NoError(t, err)
	assert.Equal(t, "rejected", out["outcome"])
	assert.Equal(t, true, out["rejected"])
	assert.Equal(t, "tecASSET_NOT_EXPECTED", out["result"])
	assert.NotEmpty(t, out["reason"])
}

func TestCancelOverRPC(t *testing.T) {
	s := newStack(t, true)
	_, err := s.call("alice-token", "offer_create", createParams("H5", amount.Zero))
	require.NoError(t, err)
	_, err = s.deposit("nft-one-key", nftOne, "1", alice, "H5")
	require.NoError(t, err)

	out, err := s.call("bob-token", "offer_cancel", map[string]interface{}{
		"offer_id": "H5",
		"attached": swap.CancelProof,
	})
	require.NoError(t, err)
	assert.Equal(t, "tesSUCCESS", out["result"])

	out, err = s.call("", "account_offers", map[string]interface{}{"account": alice})
	require.NoError(t, err)
	assert.Empty(t, out["offers"])

	out, err = s.call("", "offer_history", map[string]interface{}{"offer_id": "H5"})
	require.NoError(t, err)
	events := out["events"].([]interface{})
	require.Len(t, events, 3)
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.(map[string]interface{})["type"].(string))
	}
	assert.Equal(t, []string{
		string(swap.EventOfferCreated),
		string(swap.EventAssetDeposited),
		string(swap.EventOfferCancelled),
	}, types)

	_, err = s.ob.Drain(s.ctx)
	require.NoError(t, err)
	owner, _ := s.reg.Owner(nftOne, "1")
	assert.Equal(t, alice, owner)
}

func TestOfferHistoryDisabled(t *testing.T) {
	s := newStack(t, false)
	_, err := s.call("", "offer_history", map[string]interface{}{"offer_id": "H1"})
	assert.Equal(t, "notEnabled", rpcError(t, err).ErrorString)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newStack(t, false)

	resp, err := http.Get(s.srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(s.srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodsRegistered(t *testing.T) {
	server := NewServer(&rpc_types.ServiceContainer{})
	assert.Equal(t, []string{
		"account_escrow",
		"account_offers",
		"engine_config",
		"engine_config_set",
		"offer_cancel",
		"offer_create",
		"offer_history",
		"offer_info",
		"pending_info",
		"ping",
		"server_info",
		"transfer_notify",
	}, server.Methods())
}
