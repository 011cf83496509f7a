package providers

import (
	"github.com/samber/do/v2"

	"github.com/bookswapapp/bookswap-server/internal/auth"
	"github.com/bookswapapp/bookswap-server/internal/config"
	"github.com/bookswapapp/bookswap-server/internal/logger"
	"github.com/bookswapapp/bookswap-server/internal/service"
)

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideBookService provides the book catalog service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(storeHandle.Store, log.Logger), nil
}

// ProvideExchangeService provides the exchange coordinator.
func ProvideExchangeService(i do.Injector) (*service.ExchangeService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewExchangeService(storeHandle.Store, log.Logger), nil
}

// ProvideMatchService provides the match engine.
func ProvideMatchService(i do.Injector) (*service.MatchService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewMatchService(storeHandle.Store, log.Logger, cfg.Match.TargetSize, cfg.Match.TopSignals, nil), nil
}
