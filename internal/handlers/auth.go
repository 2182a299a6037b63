package handlers

import (
	"net/http"
	"strings"

	"github.com/chachabrian/mooveit-carpool/internal/apperr"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/chachabrian/mooveit-carpool/pkg/utils"
	"github.com/gin-gonic/gin"
)

type RegisterInput struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func Register(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		user := models.User{
			Email:       strings.ToLower(strings.TrimSpace(input.Email)),
			Password:    input.Password,
			FirstName:   strings.TrimSpace(input.FirstName),
			LastName:    strings.TrimSpace(input.LastName),
			PhoneNumber: strings.TrimSpace(input.PhoneNumber),
			Role:        models.UserRoleUser,
		}
		if err := user.HashPassword(); err != nil {
			c.JSON(500, gin.H{"error": "Failed to hash password"})
			return
		}

		err := d.Store.WithTx(c.Request.Context(), func(tx store.Tx) error {
			return tx.CreateUser(c.Request.Context(), &user)
		})
		if apperr.Kind(err) == apperr.ErrConflict {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		if err != nil {
			respondError(c, d.Log, err)
			return
		}

		token, err := utils.GenerateToken(&user, d.JWTSecret, d.JWTTTL)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		d.Log.WithField("user_id", user.ID).Info("user registered")
		c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
	}
}

func Login(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var user *models.User
		err := d.Store.WithTx(c.Request.Context(), func(tx store.Tx) error {
			var err error
			user, err = tx.GetUserByEmail(c.Request.Context(), strings.TrimSpace(input.Email))
			return err
		})
		if apperr.Kind(err) == apperr.ErrNotFound {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}
		if err != nil {
			respondError(c, d.Log, err)
			return
		}

		if err := user.CheckPassword(input.Password); err != nil {
			c.JSON(401, gin.H{"error": "Invalid credentials"})
			return
		}

		token, err := utils.GenerateToken(user, d.JWTSecret, d.JWTTTL)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(200, gin.H{"token": token, "user": user})
	}
}
