package server

import (
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type tokenClaims struct {
	UserID   string
	Username string
	Type     string
}

func (api *TaskAPI) issueToken(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"typ":      tokenType,
		"exp":      time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(api.cfg.JWTSecret))
}

func (api *TaskAPI) issueTokenPair(user *models.User) (access, refresh string, err error) {
	access, err = api.issueToken(user, tokenTypeAccess, time.Duration(api.cfg.AccessTTLMinutes)*time.Minute)
	if err != nil {
		return "", "", err
	}
	refresh, err = api.issueToken(user, tokenTypeRefresh, time.Duration(api.cfg.RefreshTTLHours)*time.Hour)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (api *TaskAPI) parseToken(tokenString string) (*tokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.ErrInvalidToken
		}
		return []byte(api.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.ErrInvalidToken
	}

	claims := &tokenClaims{}
	if userID, ok := mapClaims["user_id"].(string); ok {
		claims.UserID = userID
	}
	if username, ok := mapClaims["username"].(string); ok {
		claims.Username = username
	}
	if tokenType, ok := mapClaims["typ"].(string); ok {
		claims.Type = tokenType
	}
	if claims.UserID == "" {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}
