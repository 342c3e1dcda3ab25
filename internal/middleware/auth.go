package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/MohammedAlanizy/PatientPortal/internal/model"
	"github.com/MohammedAlanizy/PatientPortal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// GuestToken is the literal bearer sentinel the kiosk sends when no staff
// session exists. It never parses as a JWT and is handled explicitly.
const GuestToken = "GUEST"

// Context keys set by the middleware for downstream handlers
const (
	CtxUserID   = "userID"
	CtxUserRole = "userRole"
	CtxUsername = "username"
	CtxIsGuest  = "isGuest"
)

// Auth issues and validates access tokens. One instance is shared by the
// HTTP middleware and the WebSocket upgrade path.
type Auth struct {
	secret []byte
}

// NewAuth builds the token authority. An empty secret is only tolerated in
// dev; production deployments must set JWT_SECRET.
func NewAuth(secret, env string) *Auth {
	if secret == "" {
		if env != "dev" {
			panic("FATAL: JWT_SECRET environment variable is required outside dev")
		}
		secret = "default_super_secret_key" // Development fallback only
	}
	return &Auth{secret: []byte(secret)}
}

// Claims carried by an access token
type Claims struct {
	UserID   int
	Username string
	Role     string
}

// GenerateToken signs an access token for the given user
func (a *Auth) GenerateToken(user *model.User, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      float64(user.ID),
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(a.secret)
}

// ParseToken validates a raw token string and extracts its claims
func (a *Auth) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}

	sub, _ := claims["sub"].(float64)
	username, _ := claims["username"].(string)
	role, ok := claims["role"].(string)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &Claims{UserID: int(sub), Username: username, Role: role}, nil
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// RequireRole validates the JWT token and checks if the user's role exists
// in the allowedRoles list
func (a *Auth) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error("Authorization is missing or malformed. Expected 'Bearer <token>'"))
			return
		}

		claims, err := a.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error("Invalid token: "+err.Error()))
			return
		}

		roleAllowed := false
		for _, role := range allowedRoles {
			if claims.Role == role {
				roleAllowed = true
				break
			}
		}
		if !roleAllowed {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error("Access denied: insufficient permissions"))
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUserRole, claims.Role)
		c.Set(CtxUsername, claims.Username)
		c.Next()
	}
}

// OptionalAuth accepts either a valid staff token or the guest sentinel.
// Staff claims are placed on the context; the sentinel marks the caller as
// a guest. Anything else is rejected.
func (a *Auth) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error("Authorization is missing or malformed. Expected 'Bearer <token>'"))
			return
		}

		if tokenString == GuestToken {
			c.Set(CtxIsGuest, true)
			c.Next()
			return
		}

		claims, err := a.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error("Invalid token: "+err.Error()))
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUserRole, claims.Role)
		c.Set(CtxUsername, claims.Username)
		c.Set(CtxIsGuest, false)
		c.Next()
	}
}
