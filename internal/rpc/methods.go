package rpc

import (
	"github.com/LeJamon/goSwapd/internal/rpc/rpc_handlers"
	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
)

// registerAllMethods registers every RPC method
// This function is called by NewServer to set up the complete method registry
func (s *Server) registerAllMethods(svc *rpc_types.ServiceContainer) {
	// Server Information Methods
	s.registry.Register("server_info", &rpc_handlers.ServerInfoMethod{Services: svc})
	s.registry.Register("ping", &rpc_handlers.PingMethod{})

	// Offer lifecycle Methods
	s.registry.Register("offer_create", &rpc_handlers.OfferCreateMethod{Services: svc})
	s.registry.Register("transfer_notify", &rpc_handlers.TransferNotifyMethod{Services: svc})
	s.registry.Register("offer_cancel", &rpc_handlers.OfferCancelMethod{Services: svc})

	// Query Methods
	s.registry.Register("offer_info", &rpc_handlers.OfferInfoMethod{Services: svc})
	s.registry.Register("pending_info", &rpc_handlers.PendingInfoMethod{Services: svc})
	s.registry.Register("offer_history", &rpc_handlers.OfferHistoryMethod{Services: svc})
	s.registry.Register("account_offers", &rpc_handlers.AccountOffersMethod{Services: svc})
	s.registry.Register("account_escrow", &rpc_handlers.AccountEscrowMethod{Services: svc})

	// Admin Methods (require admin role)
	s.registry.Register("engine_config", &rpc_handlers.EngineConfigMethod{Services: svc})
	s.registry.Register("engine_config_set", &rpc_handlers.EngineConfigSetMethod{Services: svc})
}
