package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/rentals-dev/rentals/internal/apperrors"
	"github.com/rentals-dev/rentals/internal/authz"
	"github.com/rentals-dev/rentals/internal/models"
)

// Lookup helpers translating gorm's record-not-found into the error
// taxonomy. All take the transaction handle of the current request.

func GetUser(tx *gorm.DB, userID uint) (models.User, error) {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, apperrors.NotFound("user does not exist")
		}
		return models.User{}, err
	}
	return user, nil
}

func GetProfile(tx *gorm.DB, userID uint) (models.Profile, error) {
	var profile models.Profile
	if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Profile{}, apperrors.NotFound("profile does not exist")
		}
		return models.Profile{}, err
	}
	return profile, nil
}

func GetBuilding(tx *gorm.DB, buildingID uint) (models.Building, error) {
	var building models.Building
	if err := tx.First(&building, buildingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Building{}, apperrors.NotFound("building does not exist")
		}
		return models.Building{}, err
	}
	return building, nil
}

func GetNotice(tx *gorm.DB, noticeID uint) (models.Notice, error) {
	var notice models.Notice
	if err := tx.First(&notice, noticeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Notice{}, apperrors.NotFound("notice does not exist")
		}
		return models.Notice{}, err
	}
	return notice, nil
}

func GetComment(tx *gorm.DB, commentID uint) (models.Comment, error) {
	var comment models.Comment
	if err := tx.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Comment{}, apperrors.NotFound("comment does not exist")
		}
		return models.Comment{}, err
	}
	return comment, nil
}

// TieForUser resolves a user's ledger tie to a building. A user without
// a profile, or without a row for this building, simply has no tie; the
// policy evaluator turns that into the appropriate denial.
func TieForUser(tx *gorm.DB, userID, buildingID uint) (authz.Tie, error) {
	var profile models.Profile
	if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.NoTie(), nil
		}
		return authz.NoTie(), err
	}
	return TieForProfile(tx, profile.ID, buildingID)
}

func TieForProfile(tx *gorm.DB, profileID, buildingID uint) (authz.Tie, error) {
	var tie models.UserBuilding
	err := tx.Where("profile_id = ? AND building_id = ?", profileID, buildingID).First(&tie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.NoTie(), nil
		}
		return authz.NoTie(), err
	}
	return authz.Tie{Kind: tie.Relationship, Found: true}, nil
}
