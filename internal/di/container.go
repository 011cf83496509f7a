// Package di provides dependency injection configuration for the BookSwap server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/bookswapapp/bookswap-server/internal/auth"
	"github.com/bookswapapp/bookswap-server/internal/config"
	"github.com/bookswapapp/bookswap-server/internal/di/providers"
	"github.com/bookswapapp/bookswap-server/internal/logger"
	"github.com/bookswapapp/bookswap-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideBookService)
	do.Provide(injector, providers.ProvideExchangeService)
	do.Provide(injector, providers.ProvideMatchService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.BookService](injector)
	_ = do.MustInvoke[*service.ExchangeService](injector)
	_ = do.MustInvoke[*service.MatchService](injector)

	// Server last so every dependency is live before it accepts traffic.
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
