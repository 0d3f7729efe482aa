package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

const claimUserID = "user_id"

var ErrNoPlayer = errors.New("token carries no user_id")

func NewTokenAuth(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// IssueToken signs a token for playerId. Used by tests and local debugging.
func IssueToken(tokenAuth *jwtauth.JWTAuth, playerId int64, ttl time.Duration) (string, error) {
	_, tokenString, err := tokenAuth.Encode(map[string]interface{}{
		claimUserID: playerId,
		"exp":       time.Now().Add(ttl).Unix(),
	})
	return tokenString, err
}

// LogDebugToken logs a week-long token for playerId.
func LogDebugToken(tokenAuth *jwtauth.JWTAuth, playerId int64) {
	tokenString, err := IssueToken(tokenAuth, playerId, 7*24*time.Hour)
	if err != nil {
		log.Warnf("unable to issue debug token: %v", err)
		return
	}
	// For debugging only
	log.Debugf("DEBUG: JWT for player %d: %s", playerId, tokenString)
}

// PlayerIDFromContext reads the verified user_id claim.
func PlayerIDFromContext(ctx context.Context) (int64, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return 0, err
	}

	switch v := claims[claimUserID].(type) {
	case float64:
		if v <= 0 || v != float64(int64(v)) {
			return 0, fmt.Errorf("invalid user_id %v", v)
		}
		return int64(v), nil
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid user_id %q", v)
		}
		return id, nil
	}
	return 0, ErrNoPlayer
}
