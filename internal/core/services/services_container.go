package services

import (
	portsrepo "github.com/filevaulthq/filevault_app/internal/core/ports/repositories"
	portssvc "github.com/filevaulthq/filevault_app/internal/core/ports/services"
	"github.com/filevaulthq/filevault_app/internal/core/ports/storage"
	"github.com/filevaulthq/filevault_app/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, blobStore storage.BlobStore) (*portssvc.ServiceContainer, error) {
	// Create the container structure first
	container := &portssvc.ServiceContainer{}

	container.User = NewUserService(repos.UserRepo)
	container.Session = NewSessionService(repos.UserRepo)

	tokenService, err := NewTokenService(cfg)
	if err != nil {
		return nil, err
	}
	container.Token = tokenService

	// The gateway receives its collaborators explicitly; there is no global
	// registry of verification strategies to resolve from.
	container.Auth = NewAuthService(container.User, container.Token, container.Session, repos.UserRepo)

	container.Access = NewAccessService()
	container.File = NewFileService(repos.FileRepo, blobStore, container.Access)

	container.GoogleOAuth = NewGoogleOAuthService(cfg)

	return container, nil
}
