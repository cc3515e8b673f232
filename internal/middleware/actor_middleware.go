package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/hotelbridge/liteapi-booking/internal/utils"
	"github.com/hotelbridge/liteapi-booking/pkg/liteapi"
)

// ActorMiddleware attaches the caller's identity to the request context so
// upstream calls made while serving the request are audited against it.
// Admin requests are attributed to the admin email; everything else is "public".
// Must run after AuthMiddleware on admin routes.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userAgent := utils.GetUserAgent(c)
		actor := liteapi.Actor{
			Name:      "public",
			IPAddress: utils.GetRealIP(c),
			UserAgent: userAgent,
			Device:    utils.ParseUserAgent(userAgent).Label(),
		}
		if adminCtx, ok := GetAdminContext(c); ok {
			actor.Name = adminCtx.Email
		}

		c.Request = c.Request.WithContext(liteapi.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}
