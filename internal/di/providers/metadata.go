package providers

import (
	"github.com/samber/do/v2"

	"github.com/refshelf/refshelf-server/internal/config"
	"github.com/refshelf/refshelf-server/internal/logger"
	"github.com/refshelf/refshelf-server/internal/metadata/crossref"
)

// CrossrefClientHandle wraps the DOI client with shutdown capability.
// Client is nil when DOI import is disabled.
type CrossrefClientHandle struct {
	*crossref.Client
}

// Shutdown implements do.Shutdownable.
func (h *CrossrefClientHandle) Shutdown() error {
	if h.Client != nil {
		h.Client.Close()
	}
	return nil
}

// ProvideCrossrefClient provides the DOI metadata client.
func ProvideCrossrefClient(i do.Injector) (*CrossrefClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Crossref.Enabled {
		log.Info("DOI import disabled by configuration")
		return &CrossrefClientHandle{}, nil
	}

	client := crossref.New(crossref.Config{
		BaseURL:  cfg.Crossref.BaseURL,
		RPS:      cfg.Crossref.RPS,
		Burst:    cfg.Crossref.Burst,
		Timeout:  cfg.Crossref.Timeout,
		CacheTTL: cfg.Crossref.CacheTTL,
	}, log.Component("crossref").Logger)

	log.Info("Crossref client initialized",
		"rps", cfg.Crossref.RPS,
		"cache_ttl", cfg.Crossref.CacheTTL,
	)

	return &CrossrefClientHandle{Client: client}, nil
}
