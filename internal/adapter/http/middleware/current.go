package middleware

import (
	ct "tasktracker/pkg/context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

func CurrentMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		current := ct.NewCurrent()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		current.Set(ct.RequestIDKey, requestID)
		current.Set(ct.UserAgentKey, c.Request.UserAgent())
		current.Set(ct.IPAddressKey, c.ClientIP())
		current.Set(ct.MethodKey, c.Request.Method)
		current.Set(ct.PathKey, c.Request.URL.Path)

		ctx := ct.WithCurrent(c.Request.Context(), current)
		c.Request = c.Request.WithContext(ctx)

		c.Set("current", current)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

func GetCurrent(c *gin.Context) *ct.Current {
	if current, ok := c.Get("current"); ok {
		if curr, ok := current.(*ct.Current); ok {
			return curr
		}
	}

	return ct.GetCurrent(c.Request.Context())
}
