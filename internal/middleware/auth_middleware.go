package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"supporthub/internal/transport/httpdto"
	"supporthub/pkg/logger"
)

// AgentClaims is the JWT payload issued to dashboard agents.
type AgentClaims struct {
	AgentID   string `json:"agent_id"`
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}

type agentCtxKey string

const agentIDKey agentCtxKey = "agent_id"

// AgentIDFromContext returns the authenticated agent's id.
func AgentIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(agentIDKey).(uuid.UUID)
	return id, ok
}

// AuthMiddleware validates the bearer token and pins the request to the
// token's account. Requests whose :account_id path param names a
// different account are rejected, not silently re-scoped.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		if token == "" {
			unauthorized(c)
			return
		}

		claims := &AgentClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			unauthorized(c)
			return
		}

		agentID, err := uuid.Parse(claims.AgentID)
		if err != nil {
			unauthorized(c)
			return
		}
		accountID, err := uuid.Parse(claims.AccountID)
		if err != nil {
			unauthorized(c)
			return
		}
		if param := c.Param("account_id"); param != "" && param != accountID.String() {
			c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("forbidden", "FORBIDDEN"))
			c.Abort()
			return
		}

		ctx := context.WithValue(c.Request.Context(), agentIDKey, agentID)
		ctx = context.WithValue(ctx, logger.AccountIdKey, accountID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
	c.Abort()
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
