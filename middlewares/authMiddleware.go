package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token and projects its claims into
// the request context: user, tenant, branch, capabilities, admin flag.
// Handlers and the deletion engine read only the context, never the token.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if auth == "" {
			c.Next()
			return
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		ctx = utils.SetTokenInContext(ctx, auth)
		ctx = utils.SetUserIdInContext(ctx, claim.ID)
		ctx = utils.SetUserNameInContext(ctx, claim.Name)
		ctx = utils.SetBusinessIdInContext(ctx, claim.BusinessId)
		ctx = utils.SetBranchIdInContext(ctx, claim.BranchId)
		ctx = utils.SetCapabilitiesInContext(ctx, claim.Capabilities)
		ctx = utils.SetIsAdminInContext(ctx, claim.Role == "admin")

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth aborts when no authenticated user reached this point.
// Mounted after AuthMiddleware on every business route group.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUserIdFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		businessId, ok := utils.GetBusinessIdFromContext(c.Request.Context())
		if !ok || businessId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
