package rpc_types

import (
	"context"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/LeJamon/goSwapd/internal/core/outbox"
	"github.com/LeJamon/goSwapd/internal/core/swap"
)

// ServiceContainer holds references to all services needed by RPC handlers
type ServiceContainer struct {
	Engine EngineService

	// History is nil when no event journal is configured
	History HistoryService

	// Transfers is nil when the outbox is not exposed
	Transfers TransferService

	Version    string
	Standalone bool
	StartTime  time.Time
}

// EngineService is the part of the swap engine reachable over RPC
type EngineService interface {
	CreateOffer(ctx context.Context, signer string, req swap.CreateRequest) (*swap.Pending, error)
	NotifyTransfer(ctx context.Context, n swap.TransferNotice) (swap.Outcome, error)
	CancelOffer(ctx context.Context, signer, offerID string, attached amount.Amount) error

	Offer(ctx context.Context, id string) (*swap.Offer, error)
	OffersFor(ctx context.Context, account string) ([]string, error)
	EscrowedFor(ctx context.Context, account string) ([]swap.AssetRef, error)
	PendingInfo(id string) (swap.PendingStatus, error)

	Config() swap.EngineConfig
	UpdateConfig(ctx context.Context, signer string, cfg swap.EngineConfig) error
}

// HistoryService reads the lifecycle events recorded for an offer
type HistoryService interface {
	History(ctx context.Context, offerID string) ([]swap.Event, error)
	Dropped() uint64
}

// TransferService reports queued transfer-out tasks
type TransferService interface {
	Tasks(ctx context.Context) ([]outbox.Task, error)
}
