package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultCSP = "default-src 'none'; frame-ancestors 'none'"
	// uploaded images are opened directly in the browser
	uploadsCSP = "default-src 'none'; img-src 'self'; frame-ancestors 'none'"
)

func SecurityHeaders(uploadPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("X-XSS-Protection", "0")
		if uploadPrefix != "" && strings.HasPrefix(c.Request.URL.Path, uploadPrefix+"/") {
			c.Header("Content-Security-Policy", uploadsCSP)
		} else {
			c.Header("Content-Security-Policy", defaultCSP)
		}
		c.Next()
	}
}

// StaticUploadHeaders marks served images as inline and cacheable.
func StaticUploadHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Disposition", "inline")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Cache-Control", "public, max-age=3600")
		c.Next()
	}
}
