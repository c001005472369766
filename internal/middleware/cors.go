package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/teamslot/backend/config"
	"github.com/teamslot/backend/pkg/response"
)

// CORS applies the browser access policy. Preflights from unknown origins are refused; other
// requests from them proceed without CORS headers, so the browser blocks the response.
func CORS(policy config.CORSConfig) gin.HandlerFunc {
	methods := strings.Join(policy.AllowedMethods, ", ")
	headers := strings.Join(policy.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(int(policy.MaxAge.Seconds()))
	anyOrigin := policy.AllowsAnyOrigin()

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := origin != "" && policy.AllowsOrigin(origin)
		if allowed {
			if anyOrigin {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
		}

		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""
		if !preflight {
			c.Next()
			return
		}
		if !allowed {
			response.Forbidden(c, "origin not allowed")
			return
		}
		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		if policy.MaxAge > 0 {
			c.Header("Access-Control-Max-Age", maxAge)
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}
