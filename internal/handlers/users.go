package handlers

import (
	"net/http"
	"strings"

	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/middleware"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/gin-gonic/gin"
)

const maxBioLength = 500

func loadUser(c *gin.Context, d Deps, id uint) (*models.User, bool) {
	var user *models.User
	err := d.Store.WithTx(c.Request.Context(), func(tx store.Tx) error {
		var err error
		user, err = tx.GetUser(c.Request.Context(), id)
		return err
	})
	if err != nil {
		respondError(c, d.Log, err)
		return nil, false
	}
	return user, true
}

// GetProfile retrieves the user's profile
func GetProfile(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loadUser(c, d, middleware.UserID(c))
		if !ok {
			return
		}
		c.JSON(200, user)
	}
}

// UpdateProfile changes the editable profile fields. Rating aggregates are
// owned by the rating aggregator and cannot be set here.
func UpdateProfile(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := middleware.UserID(c)

		var input struct {
			FirstName   *string `json:"firstName"`
			LastName    *string `json:"lastName"`
			PhoneNumber *string `json:"phoneNumber"`
			Bio         *string `json:"bio"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if input.FirstName != nil && strings.TrimSpace(*input.FirstName) == "" {
			c.JSON(400, gin.H{"error": "First name cannot be empty"})
			return
		}
		if input.Bio != nil && len(*input.Bio) > maxBioLength {
			c.JSON(400, gin.H{"error": "Bio is limited to 500 characters"})
			return
		}

		var user *models.User
		// the row lock keeps a concurrent rating update from being overwritten
		err := d.Store.WithTx(c.Request.Context(), func(tx store.Tx) error {
			var err error
			if user, err = tx.GetUserForUpdate(c.Request.Context(), userId); err != nil {
				return err
			}
			if input.FirstName != nil {
				user.FirstName = strings.TrimSpace(*input.FirstName)
			}
			if input.LastName != nil {
				user.LastName = strings.TrimSpace(*input.LastName)
			}
			if input.PhoneNumber != nil {
				user.PhoneNumber = strings.TrimSpace(*input.PhoneNumber)
			}
			if input.Bio != nil {
				user.Bio = strings.TrimSpace(*input.Bio)
			}
			return tx.SaveUser(c.Request.Context(), user)
		})
		if err != nil {
			respondError(c, d.Log, err)
			return
		}

		c.JSON(200, user)
	}
}

// UploadProfilePhoto stores the "photo" form file and replaces the previous one.
func UploadProfilePhoto(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := middleware.UserID(c)

		file, err := c.FormFile("photo")
		if err != nil {
			c.JSON(400, gin.H{"error": "photo file is required"})
			return
		}

		url, err := d.Storage.UploadImage(file, "profiles")
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var previous string
		var user *models.User
		err = d.Store.WithTx(c.Request.Context(), func(tx store.Tx) error {
			var err error
			if user, err = tx.GetUserForUpdate(c.Request.Context(), userId); err != nil {
				return err
			}
			previous = user.PhotoURL
			user.PhotoURL = url
			return tx.SaveUser(c.Request.Context(), user)
		})
		if err != nil {
			_ = d.Storage.DeleteImage(url)
			respondError(c, d.Log, err)
			return
		}

		if previous != "" {
			if err := d.Storage.DeleteImage(previous); err != nil {
				d.Log.WithError(err).WithField("user_id", userId).Warn("failed to delete previous photo")
			}
		}
		c.JSON(http.StatusOK, gin.H{"photoUrl": url})
	}
}

// GetPublicProfile shows another user without contact details.
func GetPublicProfile(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		user, ok := loadUser(c, d, id)
		if !ok {
			return
		}
		c.JSON(200, gin.H{
			"id":                     user.ID,
			"firstName":              user.FirstName,
			"lastName":               user.LastName,
			"bio":                    user.Bio,
			"photoUrl":               user.PhotoURL,
			"averageRatingDriver":    user.AverageRatingDriver,
			"totalTripsDriver":       user.TotalTripsDriver,
			"averageRatingPassenger": user.AverageRatingPassenger,
			"totalTripsPassenger":    user.TotalTripsPassenger,
			"memberSince":            user.CreatedAt,
		})
	}
}
