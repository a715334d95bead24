package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DeviceID pins every browser to a stable anonymous id kept in a cookie.
// Anonymous history and budget are scoped to it.
func DeviceID(maxAge int, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(DeviceCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(DeviceCookie, id, maxAge, "/", "", secure, true)
		}
		c.Set(DeviceIDKey, id)
		c.Next()
	}
}
