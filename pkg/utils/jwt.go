package utils

import (
	"fmt"
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

func GenerateToken(user *models.User, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"exp":   time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(tokenString, secret string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
}

// Claims extracts the user id and role of a validated token.
func Claims(token *jwt.Token) (uint, models.UserRole, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", fmt.Errorf("invalid token claims")
	}
	id, ok := claims["id"].(float64)
	if !ok || id <= 0 {
		return 0, "", fmt.Errorf("invalid token subject")
	}
	role, _ := claims["role"].(string)
	if role == "" {
		role = string(models.UserRoleUser)
	}
	return uint(id), models.UserRole(role), nil
}
