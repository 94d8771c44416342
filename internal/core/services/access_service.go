package services

import (
	"github.com/filevaulthq/filevault_app/internal/core/domain"
	portssvc "github.com/filevaulthq/filevault_app/internal/core/ports/services"
)

// accessService resolves per-file permissions. It is pure: no repository
// access, no mutable state, safe under unlimited concurrency.
type accessService struct{}

// NewAccessService creates the authorization engine.
func NewAccessService() portssvc.AccessSvcFacade {
	return &accessService{}
}

// HasAccess resolves in a fixed order:
//  1. soft-deleted files fail closed for everyone,
//  2. the owner always passes; ownership short-circuits before grants, so an
//     owner inconsistently present in the share list with a lesser grant
//     still has full access,
//  3. public files grant read to every caller, including anonymous ones,
//  4. an explicit grant is consulted last: WRITE satisfies read, READ does
//     not satisfy write,
//  5. everything else is denied.
func (s *accessService) HasAccess(actor *domain.User, file *domain.File, perm domain.SharePermission) bool {
	if file == nil || file.IsDeleted {
		return false
	}

	if actor != nil && actor.UserID == file.OwnerID {
		return true
	}

	if perm == domain.PermissionRead && file.IsPublic {
		return true
	}

	if actor == nil {
		return false
	}

	if grant, ok := file.GrantFor(actor.UserID); ok {
		return grant.Permission.Satisfies(perm)
	}

	return false
}
