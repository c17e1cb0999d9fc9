// Package services holds the transactional lifecycle procedures: the
// cascade, protect and set-null rules that keep users, profiles,
// buildings and the relationship ledger consistent. Every procedure
// expects to run inside one gorm transaction together with the
// authorization check that preceded it.
package services

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rentals-dev/rentals/internal/apperrors"
	"github.com/rentals-dev/rentals/internal/geo"
	"github.com/rentals-dev/rentals/internal/models"
)

const pqUniqueViolation = "23505"

// RegisterUser creates the account and its profile in one step. The
// profile is created here, explicitly, rather than by any implicit
// post-save hook.
func RegisterUser(tx *gorm.DB, username, passwordHash string) (models.User, error) {
	user := models.User{Username: username, PasswordHash: passwordHash}
	if err := tx.Create(&user).Error; err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return models.User{}, apperrors.BadRequest("username already exists")
		}
		return models.User{}, err
	}
	profile := models.Profile{UserID: user.ID}
	if err := tx.Create(&profile).Error; err != nil {
		return models.User{}, err
	}
	user.Profile = profile
	return user, nil
}

// DeleteUser removes the account. Blocked while the user still owns a
// notice (protect semantics: the notice must be resolved first). The
// tenant reference of authored comments is nulled, the profile is
// removed with its orphan-building cleanup, then the user row goes.
func DeleteUser(tx *gorm.DB, user models.User) error {
	var noticeCount int64
	if err := tx.Model(&models.Notice{}).Where("owner_id = ?", user.ID).Count(&noticeCount).Error; err != nil {
		return err
	}
	if noticeCount > 0 {
		return apperrors.Conflict("building has an unresolved notice")
	}

	if err := tx.Model(&models.Comment{}).Where("tenant_id = ?", user.ID).Update("tenant_id", nil).Error; err != nil {
		return err
	}

	var profile models.Profile
	err := tx.Where("user_id = ?", user.ID).First(&profile).Error
	if err == nil {
		if err := DeleteProfile(tx, profile); err != nil {
			return err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	// Hard delete: a soft-deleted row would keep the username under
	// the unique index and block re-registration.
	return tx.Unscoped().Delete(&user).Error
}

// DeleteProfile removes the profile and its ledger rows. Any building
// left without a single remaining tie is an orphan and is deleted too,
// subject to the unresolved-notice guard, which aborts the whole
// transaction.
func DeleteProfile(tx *gorm.DB, profile models.Profile) error {
	var ties []models.UserBuilding
	if err := tx.Where("profile_id = ?", profile.ID).Find(&ties).Error; err != nil {
		return err
	}

	if err := tx.Where("profile_id = ?", profile.ID).Delete(&models.UserBuilding{}).Error; err != nil {
		return err
	}

	for _, tie := range ties {
		var remaining int64
		if err := tx.Model(&models.UserBuilding{}).Where("building_id = ?", tie.BuildingID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining > 0 {
			continue
		}
		building, err := GetBuilding(tx, tie.BuildingID)
		if err != nil {
			return err
		}
		if err := DeleteBuilding(tx, building); err != nil {
			return err
		}
	}

	// Hard delete for the same reason as the user row: the user_id
	// unique index must not stay occupied by a soft-deleted profile.
	return tx.Unscoped().Delete(&profile).Error
}

// CreateBuilding stores the building and ties the owning profile to it
// with an owner relationship.
func CreateBuilding(tx *gorm.DB, profile models.Profile, location geo.Point, attrs models.Building) (models.Building, error) {
	attrs.Location = location
	if err := tx.Create(&attrs).Error; err != nil {
		return models.Building{}, err
	}
	tie := models.UserBuilding{
		ProfileID:    profile.ID,
		BuildingID:   attrs.ID,
		Relationship: models.RelationshipOwner,
	}
	if err := tx.Create(&tie).Error; err != nil {
		return models.Building{}, err
	}
	return attrs, nil
}

// DeleteBuilding removes a building, cascading its comments and ledger
// rows. Blocked while any notice still references it; notices never
// cascade, they must be deleted first.
func DeleteBuilding(tx *gorm.DB, building models.Building) error {
	// Lock the notice rows, then count what was locked; a locking
	// clause cannot ride on an aggregate.
	var notices []models.Notice
	err := tx.Select("id").
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("building_id = ?", building.ID).
		Find(&notices).Error
	if err != nil {
		return err
	}
	if len(notices) > 0 {
		return apperrors.Conflict("building has an unresolved notice")
	}

	if err := tx.Where("building_id = ?", building.ID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("building_id = ?", building.ID).Delete(&models.UserBuilding{}).Error; err != nil {
		return err
	}
	return tx.Delete(&building).Error
}

// AddTie links a profile to a building. A profile holds at most one
// relationship per building, enforced here and not just by the index.
func AddTie(tx *gorm.DB, profileID, buildingID uint, relationship string) error {
	if !models.ValidRelationship(relationship) {
		return apperrors.BadRequest("relationship must be either owner or tenant")
	}

	var existing int64
	if err := tx.Model(&models.UserBuilding{}).Where("profile_id = ? AND building_id = ?", profileID, buildingID).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return apperrors.Conflict("profile already linked to this building")
	}

	tie := models.UserBuilding{ProfileID: profileID, BuildingID: buildingID, Relationship: relationship}
	if err := tx.Create(&tie).Error; err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return apperrors.Conflict("profile already linked to this building")
		}
		return err
	}
	return nil
}

// RemoveTie unlinks a profile from a building. Removing the last owner
// row is rejected; the owner rows are locked so two concurrent removals
// cannot both observe a second owner.
func RemoveTie(tx *gorm.DB, profileID, buildingID uint) error {
	var tie models.UserBuilding
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("profile_id = ? AND building_id = ?", profileID, buildingID).
		First(&tie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("user is not linked to this building")
		}
		return err
	}

	if tie.Relationship == models.RelationshipOwner {
		var owners []models.UserBuilding
		err := tx.Select("id").
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("building_id = ? AND relationship = ?", buildingID, models.RelationshipOwner).
			Find(&owners).Error
		if err != nil {
			return err
		}
		if len(owners) <= 1 {
			return apperrors.Conflict("cannot delete building only owner")
		}
	}

	return tx.Delete(&tie).Error
}

// CreateNotice persists an owner announcement. Relationship checks are
// the caller's responsibility via the policy evaluator.
func CreateNotice(tx *gorm.DB, ownerID, buildingID uint, body string) (models.Notice, error) {
	notice := models.Notice{OwnerID: ownerID, BuildingID: buildingID, Body: body}
	if err := tx.Create(&notice).Error; err != nil {
		return models.Notice{}, err
	}
	return notice, nil
}

// CreateComment persists a tenant announcement.
func CreateComment(tx *gorm.DB, tenantID, buildingID uint, body string) (models.Comment, error) {
	comment := models.Comment{TenantID: &tenantID, BuildingID: buildingID, Body: body}
	if err := tx.Create(&comment).Error; err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}
