package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookingcore/pkg/util"
)

// AuthMiddleware validates the bearer JWT and puts the tenant id into the
// gin context. Every /api route runs behind it; handlers never read tenant
// identity from the request body.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := util.ExtractToken(c.Request)
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		tenantID, err := util.ParseJWT(tokenStr, secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set("tenant_id", tenantID)
		c.Next()
	}
}
