package api

import "github.com/refshelf/refshelf-server/internal/service"

// Services groups the business services used by the API server.
type Services struct {
	Auth       *service.AuthService
	References *service.ReferenceService
}
