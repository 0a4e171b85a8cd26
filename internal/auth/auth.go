// Package auth resolves the caller of an API request. Identity is owned by
// the external provider: tokens are only verified here, and the first
// verified request provisions the local user row.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Lingges1210/tutorlink-sub001/internal/logging"
	"github.com/Lingges1210/tutorlink-sub001/internal/model"
)

const principalKey = "principal"

// CronHeader carries the shared secret on the internal batch endpoints.
const CronHeader = "X-Cron-Secret"

// Claims are the identity-provider claims the backend relies on.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Users provisions the local row for a verified identity.
type Users interface {
	EnsureUser(ctx context.Context, u *model.User) (*model.User, error)
}

// Verifier checks HMAC-signed bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier returns a verifier for tokens signed with secret. An empty
// issuer accepts any issuer.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &Verifier{secret: []byte(secret), issuer: issuer}, nil
}

// Verify parses and validates a raw token.
func (v *Verifier) Verify(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// Middleware authenticates the request and stores the principal in the gin
// context. Deactivated users are refused.
func Middleware(v *Verifier, users Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c.GetHeader("Authorization"))
		if !ok {
			abort(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		claims, err := v.Verify(raw)
		if err != nil {
			logging.Debug().Err(err).Msg("rejected bearer token")
			abort(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		u, err := users.EnsureUser(c.Request.Context(), &model.User{
			ID:    claims.Subject,
			Email: strings.ToLower(claims.Email),
			Name:  claims.Name,
		})
		if err != nil {
			logging.Error().Err(err).Str("user_id", claims.Subject).Msg("failed to provision user")
			abort(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		if u.IsDeactivated {
			abort(c, http.StatusForbidden, "Account is deactivated.")
			return
		}
		c.Set(principalKey, u)
		c.Next()
	}
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Principal returns the authenticated user, or nil outside Middleware.
func Principal(c *gin.Context) *model.User {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}

// SetPrincipal stores u as the caller. Used by tests and internal callers.
func SetPrincipal(c *gin.Context, u *model.User) {
	c.Set(principalKey, u)
}

// RequireTutor admits approved tutors. Admins pass as well.
func RequireTutor() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := Principal(c)
		switch {
		case u == nil:
			abort(c, http.StatusUnauthorized, "Unauthorized")
		case u.Role == model.RoleAdmin:
			c.Next()
		case u.Role != model.RoleTutor || u.TutorStatus != model.TutorStatusApproved:
			abort(c, http.StatusForbidden, "Only approved tutors can do this.")
		default:
			c.Next()
		}
	}
}

// RequireAdmin admits ADMIN users only.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := Principal(c)
		switch {
		case u == nil:
			abort(c, http.StatusUnauthorized, "Unauthorized")
		case u.Role != model.RoleAdmin:
			abort(c, http.StatusForbidden, "Forbidden")
		default:
			c.Next()
		}
	}
}

// CronGuard compares the X-Cron-Secret header with secret in constant time
// and answers failStatus on a mismatch. An empty secret locks the route.
func CronGuard(secret string, failStatus int) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(CronHeader))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			logging.Warn().Str("path", c.FullPath()).Str("ip", c.ClientIP()).Msg("cron request with bad secret")
			abort(c, failStatus, http.StatusText(failStatus))
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
