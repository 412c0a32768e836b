package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/dotaladder/backend/internal/config"
	"github.com/dotaladder/backend/internal/models"
	"github.com/dotaladder/backend/internal/store"
)

// sessionClaims is the JWT payload of a logged-in user.
type sessionClaims struct {
	SteamID uint64 `json:"steam_id"`
	jwt.RegisteredClaims
}

// Login issues a session token for a steam id. The admin password, when
// configured and supplied, is checked against its bcrypt hash but admin
// rights themselves come from the permissions table.
func Login(st *store.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			SteamID       uint64 `json:"steam_id"`
			AdminPassword string `json:"admin_password"`
		}
		if err := c.BindJSON(&req); err != nil || req.SteamID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "steam_id required"})
			return
		}

		if req.AdminPassword != "" {
			if cfg.AdminPasswordHash == "" ||
				bcrypt.CompareHashAndPassword([]byte(cfg.AdminPasswordHash), []byte(req.AdminPassword)) != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "bad admin password"})
				return
			}
			if err := st.GivePermission(req.SteamID, models.PermissionAdmin); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
		}

		if _, err := st.GetOrCreateUser(req.SteamID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		claims := sessionClaims{
			SteamID: req.SteamID,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.SessionTimeoutMin) * time.Minute)),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token, "steam_id": strconv.FormatUint(req.SteamID, 10)})
	}
}

// RequireAuth validates the bearer token and stores the steam id in the
// context.
func RequireAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		var claims sessionClaims
		_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &claims,
			func(t *jwt.Token) (interface{}, error) { return []byte(cfg.JWTSecret), nil })
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("steam_id", claims.SteamID)
		c.Next()
	}
}

// RequireAdmin gates a route on the admin permission.
func RequireAdmin(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		steamID := c.GetUint64("steam_id")
		ok, err := st.HasPermission(steamID, models.PermissionAdmin)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}
