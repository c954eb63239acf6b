package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
)

// SessionTokenTTL bounds how long a session token is accepted. The session
// itself may expire sooner.
const SessionTokenTTL = 24 * time.Hour

const sessionContextKey = "session_id"

// SessionClaims binds a bearer token to one viewer session.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs a token for sessionID.
func GenerateSessionToken(sessionID, secret string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken validates a token and returns its claims.
func ParseSessionToken(tokenString, secret string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// SessionAuth requires "Authorization: Bearer <token>" whose session matches
// the :id path parameter.
func SessionAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header. Use 'Bearer <token>'")
			return
		}

		claims, err := ParseSessionToken(strings.TrimPrefix(authHeader, "Bearer "), secret)
		if err != nil {
			msg := "Invalid session token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Session token expired"
			}
			abortUnauthorized(c, msg)
			return
		}

		if claims.SessionID != c.Param("id") {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Error:   "forbidden",
				Message: "Token does not belong to this session",
				Code:    http.StatusForbidden,
			})
			return
		}

		c.Set(sessionContextKey, claims.SessionID)
		c.Next()
	}
}

// GetSessionID returns the session bound by SessionAuth, or "".
func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: msg,
		Code:    http.StatusUnauthorized,
	})
}
