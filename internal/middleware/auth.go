package middleware

import (
	"context"
	"net/http"
	"strings"

	"ventafacil/internal/apierror"
	"ventafacil/internal/permission"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const (
	ClaimsKey      = "claims"
	PermissionsKey = "permissions"
)

// JWTClaims are the custom claims embedded in every access token.
type JWTClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Rol      string `json:"rol"`
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token on every protected route.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid || claims.UserID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token invalido o expirado"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
// Roles are the persisted names ("ADMIN", "CAJERA").
func RequireRole(roles ...permission.Role) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r.String()] = true
	}
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !allowed[claims.Rol] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
			return
		}
		c.Next()
	}
}

// PermissionSource resolves a user's effective keys from the server's own
// records; a token never carries permissions.
type PermissionSource interface {
	Efectivos(ctx context.Context, usuarioID int64) (permission.Set, error)
}

// RequirePermission rejects requests whose user does not hold key.
func RequirePermission(src PermissionSource, key permission.Key) gin.HandlerFunc {
	return func(c *gin.Context) {
		set, ok := Permissions(c, src)
		if !ok {
			return
		}
		if !set.Has(key) {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
			return
		}
		c.Next()
	}
}

// Permissions loads the caller's set once per request. On failure the
// response is already written and ok is false.
func Permissions(c *gin.Context, src PermissionSource) (permission.Set, bool) {
	if v, exists := c.Get(PermissionsKey); exists {
		return v.(permission.Set), true
	}
	claims := GetClaims(c)
	if claims == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
		return permission.Set{}, false
	}
	set, err := src.Efectivos(c.Request.Context(), claims.UserID)
	if err != nil {
		log.Error().Err(err).
			Str("request_id", c.GetString(RequestIDKey)).
			Int64("user_id", claims.UserID).
			Msg("permission lookup failed")
		c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
		return permission.Set{}, false
	}
	c.Set(PermissionsKey, set)
	return set, true
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
// Returns nil outside JWTAuth.
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}
