package providers

import (
	"github.com/samber/do/v2"

	"github.com/bookswapapp/bookswap-server/internal/config"
	"github.com/bookswapapp/bookswap-server/internal/logger"
	"github.com/bookswapapp/bookswap-server/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	s, err := store.New(cfg.Store.DataPath, log.Logger)
	if err != nil {
		return nil, err
	}

	return &StoreHandle{Store: s}, nil
}
