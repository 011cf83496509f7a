package providers

import (
	"github.com/samber/do/v2"

	"github.com/bookswapapp/bookswap-server/internal/auth"
	"github.com/bookswapapp/bookswap-server/internal/config"
	"github.com/bookswapapp/bookswap-server/internal/logger"
)

// AuthKey is the hex-encoded PASETO symmetric key.
type AuthKey string

// ProvideAuthKey loads or generates the authentication key. A configured key
// takes precedence; otherwise one is generated and persisted next to the
// database.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.AccessTokenKey != "" {
		return AuthKey(cfg.Auth.AccessTokenKey), nil
	}

	key, err := auth.LoadOrGenerateKey(cfg.Store.DataPath)
	if err != nil {
		return "", err
	}
	cfg.Auth.AccessTokenKey = key

	log.Info("Authentication key loaded", "access_token_duration", cfg.Auth.AccessTokenDuration)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService(string(authKey), cfg.Auth.AccessTokenDuration)
}
