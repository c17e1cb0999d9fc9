// Package authz holds the stateless authorization policy. Every
// decision is a pure function of the requester, the admin flag, and the
// requester's relationship-ledger tie to the target building; callers
// look the tie up first and pass it in. Denials carry the most specific
// applicable reason, which becomes the API error body.
package authz

import (
	"github.com/rentals-dev/rentals/internal/apperrors"
	"github.com/rentals-dev/rentals/internal/models"
)

// Actor is the authenticated requester.
type Actor struct {
	UserID  uint
	IsAdmin bool
}

// Tie is the requester's ledger row for the target building, if any.
type Tie struct {
	Kind  string
	Found bool
}

func OwnerTie() Tie  { return Tie{Kind: models.RelationshipOwner, Found: true} }
func TenantTie() Tie { return Tie{Kind: models.RelationshipTenant, Found: true} }
func NoTie() Tie     { return Tie{} }

// CanManageUser gates user, profile and per-user listing endpoints:
// admins and the user themselves only.
func CanManageUser(actor Actor, targetUserID uint) error {
	if actor.IsAdmin || actor.UserID == targetUserID {
		return nil
	}
	return apperrors.Forbidden("user not authorized to perform this action")
}

// CanModifyBuilding gates building update and delete: admin or a
// profile holding an owner tie. A tenant tie and no tie at all produce
// distinct reasons.
func CanModifyBuilding(actor Actor, tie Tie) error {
	if actor.IsAdmin {
		return nil
	}
	if !tie.Found {
		return apperrors.Forbidden("user profile is not linked to the building")
	}
	if tie.Kind != models.RelationshipOwner {
		return apperrors.Forbidden("user does not have permission to modify this building")
	}
	return nil
}

// CanManageTies gates adding and removing ledger rows. Same owner
// requirement as CanModifyBuilding, but an unlinked requester gets the
// relationship-specific message.
func CanManageTies(actor Actor, tie Tie) error {
	if actor.IsAdmin {
		return nil
	}
	if !tie.Found {
		return apperrors.Forbidden("user does not have permission to modify this building, profile not linked to building")
	}
	if tie.Kind != models.RelationshipOwner {
		return apperrors.Forbidden("user does not have permission to modify this building")
	}
	return nil
}

// CanViewBuildingScoped gates building-scoped lists (linked profiles,
// comments, notices, the live feed): any tie suffices.
func CanViewBuildingScoped(actor Actor, tie Tie) error {
	if actor.IsAdmin || tie.Found {
		return nil
	}
	return apperrors.Forbidden("user profile not linked to building")
}

// CanAuthorNotice requires an owner tie from the authoring profile.
func CanAuthorNotice(tie Tie) error {
	if !tie.Found {
		return apperrors.Forbidden("user profile not linked to building")
	}
	if tie.Kind != models.RelationshipOwner {
		return apperrors.Forbidden("cannot create notice if not owner")
	}
	return nil
}

// CanAuthorComment requires a tenant tie from the authoring profile.
func CanAuthorComment(tie Tie) error {
	if !tie.Found {
		return apperrors.Forbidden("user profile not linked to building")
	}
	if tie.Kind != models.RelationshipTenant {
		return apperrors.Forbidden("cannot comment if not tenant")
	}
	return nil
}

// CanTouchAnnouncement gates reads and mutations of a single notice or
// comment: the author or an admin. authorID is nil for comments whose
// author was deleted, which only admins may then touch.
func CanTouchAnnouncement(actor Actor, authorID *uint) error {
	if actor.IsAdmin {
		return nil
	}
	if authorID != nil && *authorID == actor.UserID {
		return nil
	}
	return apperrors.Forbidden("user not authorized to perform this action")
}

// CanListAdminData gates unfiltered collection endpoints.
func CanListAdminData(actor Actor) error {
	if actor.IsAdmin {
		return nil
	}
	return apperrors.Forbidden("user lacks permission to access this data")
}
