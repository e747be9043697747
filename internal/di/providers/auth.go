package providers

import (
	"github.com/samber/do/v2"

	"github.com/hermanshu/targ-site-sub000/internal/auth"
	"github.com/hermanshu/targ-site-sub000/internal/config"
	"github.com/hermanshu/targ-site-sub000/internal/logger"
)

// ProvideTokenService loads or generates the token key and provides the
// PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	keyHex, err := auth.LoadOrGenerateKey(cfg.Auth.KeyPath)
	if err != nil {
		return nil, err
	}

	log.Info("Authentication key loaded",
		"key_path", cfg.Auth.KeyPath,
		"token_duration", cfg.Auth.TokenDuration,
	)

	return auth.NewTokenService(keyHex, cfg.Auth.TokenDuration)
}
