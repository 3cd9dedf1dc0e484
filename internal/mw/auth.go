package mw

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hostel-management-backend/internal/identity"
	"hostel-management-backend/internal/logging"
	"hostel-management-backend/internal/model"
)

const principalKey = "principal"

// TokenParser verifies access tokens.
type TokenParser interface {
	Parse(token string) (*identity.Claims, error)
}

// RevocationChecker reports signed-out token IDs and removed accounts.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
	IsAccountRevoked(ctx context.Context, accountID string) (bool, error)
}

// Principal is the authenticated caller of a request.
type Principal struct {
	AccountID string
	Role      model.Role
	BlockID   *int
	TokenID   string
	ExpiresAt time.Time
}

// Auth requires a valid, unrevoked bearer token and stores the caller as the
// request Principal.
func Auth(tokens TokenParser, revoked RevocationChecker) gin.HandlerFunc {
	log := logging.WithComponent("auth")
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		claims, err := tokens.Parse(raw)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
			return
		}
		if revoked != nil {
			isRevoked, err := revoked.IsRevoked(c.Request.Context(), claims.ID)
			if err == nil && !isRevoked {
				isRevoked, err = revoked.IsAccountRevoked(c.Request.Context(), claims.Subject)
			}
			if err != nil {
				log.WithError(err).Error("Failed to check token revocation")
				abort(c, http.StatusServiceUnavailable, "NetworkOrTimeout", "could not verify session")
				return
			}
			if isRevoked {
				abort(c, http.StatusUnauthorized, "Unauthorized", "session has ended")
				return
			}
		}

		p := &Principal{
			AccountID: claims.Subject,
			Role:      claims.Role,
			BlockID:   claims.BlockID,
			TokenID:   claims.ID,
		}
		if claims.ExpiresAt != nil {
			p.ExpiresAt = claims.ExpiresAt.Time
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not one of roles. Wardens must
// also carry a hostel block.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Unauthorized", "not signed in")
			return
		}
		for _, role := range roles {
			if p.Role != role {
				continue
			}
			if role == model.RoleWarden && (p.BlockID == nil || !model.ValidHostelID(*p.BlockID)) {
				abort(c, http.StatusForbidden, "Forbidden", "warden account has no hostel block")
				return
			}
			c.Next()
			return
		}
		abort(c, http.StatusForbidden, "Forbidden", "not allowed for role "+string(p.Role))
	}
}

// CurrentPrincipal returns the caller stored by Auth.
func CurrentPrincipal(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}
