// Package di provides dependency injection configuration for the refshelf server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/refshelf/refshelf-server/internal/auth"
	"github.com/refshelf/refshelf-server/internal/config"
	"github.com/refshelf/refshelf-server/internal/di/providers"
	"github.com/refshelf/refshelf-server/internal/logger"
	"github.com/refshelf/refshelf-server/internal/service"
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

	// Metadata layer
	do.Provide(injector, providers.ProvideCrossrefClient)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideReferenceService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap resolves every service eagerly so configuration and storage
// errors surface at startup instead of on the first request.
func Bootstrap(injector *do.RootScope) error {
	for _, invoke := range []func(do.Injector) error{
		invokeAs[*config.Config],
		invokeAs[*logger.Logger],
		invokeAs[providers.AuthKey],
		invokeAs[*providers.StoreHandle],
		invokeAs[*providers.CrossrefClientHandle],
		invokeAs[*auth.TokenService],
		invokeAs[*service.AuthService],
		invokeAs[*service.ReferenceService],
		invokeAs[*providers.HTTPServerHandle],
	} {
		if err := invoke(injector); err != nil {
			return err
		}
	}
	return nil
}

func invokeAs[T any](i do.Injector) error {
	_, err := do.Invoke[T](i)
	return err
}
