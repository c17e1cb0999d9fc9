package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rentals-dev/rentals/db"
	"github.com/rentals-dev/rentals/internal/apperrors"
	"github.com/rentals-dev/rentals/internal/authz"
	"github.com/rentals-dev/rentals/internal/geo"
	"github.com/rentals-dev/rentals/internal/models"
	"github.com/rentals-dev/rentals/internal/pagination"
	"github.com/rentals-dev/rentals/internal/services"
	"github.com/rentals-dev/rentals/internal/types"
)

type CreateBuildingRequest struct {
	UserID         uint            `json:"user_id" binding:"required"`
	Building       string          `json:"building" binding:"required"`
	Comment        string          `json:"comment"`
	County         string          `json:"county"`
	District       string          `json:"district"`
	Rent           string          `json:"rent"`
	PaymentDetails json.RawMessage `json:"payment_details"`
	Occupancy      bool            `json:"occupancy"`
}

type UpdateBuildingRequest struct {
	Building       *string          `json:"building"`
	Comment        *string          `json:"comment"`
	County         *string          `json:"county"`
	District       *string          `json:"district"`
	Rent           *string          `json:"rent"`
	PaymentDetails *json.RawMessage `json:"payment_details"`
	Occupancy      *bool            `json:"occupancy"`
}

// ListBuildings is a public read. The default output is the paginated
// envelope; ?geojson=true switches to the bulk FeatureCollection mode.
func ListBuildings(ctx *gin.Context) {
	if ctx.Query("geojson") == "true" {
		var buildings []models.Building
		if err := db.DB.Order("id").Find(&buildings).Error; err != nil {
			fail(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, types.NewFeatureCollection(buildings))
		return
	}

	page := pagination.FromRequest(ctx)

	var total int64
	if err := db.DB.Model(&models.Building{}).Count(&total).Error; err != nil {
		fail(ctx, err)
		return
	}

	var buildings []models.Building
	if err := db.DB.Order("id").Offset(page.Offset()).Limit(page.Size).Find(&buildings).Error; err != nil {
		fail(ctx, err)
		return
	}

	results := make([]types.BuildingResponse, 0, len(buildings))
	for _, building := range buildings {
		results = append(results, types.NewBuildingResponse(building))
	}

	envelope, err := page.Envelope(ctx, total, results)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, envelope)
}

// CreateBuilding registers a building for a profile, which becomes its
// first owner in the same transaction.
func CreateBuilding(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	var body CreateBuildingRequest
	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "must provide user id and building coordinate"})
		return
	}

	if err := authz.CanManageUser(current.Actor(), body.UserID); err != nil {
		fail(ctx, err)
		return
	}

	location, err := geo.ParseCoordinate(body.Building)
	if err != nil {
		fail(ctx, apperrors.BadRequest(err.Error()))
		return
	}

	var building models.Building
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		user, err := services.GetUser(tx, body.UserID)
		if err != nil {
			return err
		}
		profile, err := services.GetProfile(tx, user.ID)
		if err != nil {
			return err
		}
		building, err = services.CreateBuilding(tx, profile, location, models.Building{
			Comment:        body.Comment,
			County:         body.County,
			District:       body.District,
			Rent:           body.Rent,
			PaymentDetails: datatypes.JSON(body.PaymentDetails),
			Occupancy:      body.Occupancy,
		})
		return err
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	log.Info().Uint("building_id", building.ID).Uint("owner_id", body.UserID).Msg("building created")

	ctx.JSON(http.StatusCreated, types.NewBuildingResponse(building))
}

func GetBuilding(ctx *gin.Context) {
	buildingID, err := paramID(ctx, "building_id", "building does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	building, err := services.GetBuilding(db.DB, buildingID)
	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"building": types.NewBuildingResponse(building)})
}

func UpdateBuilding(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	buildingID, err := paramID(ctx, "building_id", "building does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	var body UpdateBuildingRequest
	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var building models.Building
	err = db.DB.Transaction(func(tx *gorm.DB) error {
		building, err = services.GetBuilding(tx, buildingID)
		if err != nil {
			return err
		}

		tie, err := services.TieForUser(tx, current.ID, building.ID)
		if err != nil {
			return err
		}
		if err := authz.CanModifyBuilding(current.Actor(), tie); err != nil {
			return err
		}

		if body.Building != nil {
			location, err := geo.ParseCoordinate(*body.Building)
			if err != nil {
				return apperrors.BadRequest(err.Error())
			}
			building.Location = location
		}
		if body.Comment != nil {
			building.Comment = *body.Comment
		}
		if body.County != nil {
			building.County = *body.County
		}
		if body.District != nil {
			building.District = *body.District
		}
		if body.Rent != nil {
			building.Rent = *body.Rent
		}
		if body.PaymentDetails != nil {
			building.PaymentDetails = datatypes.JSON(*body.PaymentDetails)
		}
		if body.Occupancy != nil {
			building.Occupancy = *body.Occupancy
		}

		return tx.Save(&building).Error
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":  "building successfully updated",
		"building": types.NewBuildingResponse(building),
	})
}

// DeleteBuilding cascades comments and ledger rows but is blocked with
// a conflict while any notice still references the building.
func DeleteBuilding(ctx *gin.Context) {
	current, ok := currentUser(ctx)
	if !ok {
		return
	}

	buildingID, err := paramID(ctx, "building_id", "building does not exist")
	if err != nil {
		fail(ctx, err)
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		building, err := services.GetBuilding(tx, buildingID)
		if err != nil {
			return err
		}

		tie, err := services.TieForUser(tx, current.ID, building.ID)
		if err != nil {
			return err
		}
		if err := authz.CanModifyBuilding(current.Actor(), tie); err != nil {
			return err
		}

		return services.DeleteBuilding(tx, building)
	})

	if err != nil {
		fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"building_id": buildingID, "status": "successfully deleted"})
}
