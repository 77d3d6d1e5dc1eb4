package auth

import "github.com/gin-gonic/gin"

const subjectKey = "authSubject"

// GetSubject returns the authenticated caller or an empty string when auth
// is disabled.
func GetSubject(c *gin.Context) string {
	if v, ok := c.Get(subjectKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
