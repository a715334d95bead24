package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/estate-chat/internal/auth"
)

const (
	UserIDKey    = "user_id"
	DeviceIDKey  = "device_id"
	RequestIDKey = "request_id"

	DeviceCookie = "device_id"
)

// IdentityFrom reads what OptionalAuth and DeviceID stored on c.
func IdentityFrom(c *gin.Context) auth.Identity {
	var id auth.Identity
	if v, ok := c.Get(UserIDKey); ok {
		id.UserID, _ = v.(uint64)
	}
	id.DeviceID = c.GetString(DeviceIDKey)
	return id
}
