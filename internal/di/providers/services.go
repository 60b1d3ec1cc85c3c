package providers

import (
	"github.com/samber/do/v2"

	"github.com/refshelf/refshelf-server/internal/auth"
	"github.com/refshelf/refshelf-server/internal/logger"
	"github.com/refshelf/refshelf-server/internal/service"
)

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideReferenceService provides the reference service.
func ProvideReferenceService(i do.Injector) (*service.ReferenceService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	crossrefHandle := do.MustInvoke[*CrossrefClientHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	// A nil *crossref.Client must not become a non-nil interface.
	var fetcher service.MetadataFetcher
	if crossrefHandle.Client != nil {
		fetcher = crossrefHandle.Client
	}

	return service.NewReferenceService(storeHandle.Store, fetcher, log.Logger), nil
}
