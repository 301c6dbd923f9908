// Package output writes response bodies in the shape of each API version.
package output

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope formats success and failure responses.
type Envelope interface {
	// Confirm writes a JSON success body. echo holds id fields that
	// only versions with echoed ids include.
	Confirm(c *gin.Context, status int, body, echo gin.H)

	// NotFound writes a 404 for the named resource.
	NotFound(c *gin.Context, what, id string)

	// BadRequest writes a 400 for malformed input.
	BadRequest(c *gin.Context, reason string)

	// Fail writes a 500 carrying the underlying error message.
	// action names what was attempted, e.g. "Error fetching tasks".
	Fail(c *gin.Context, action string, err error)
}

// ForVersion returns the envelope for an API version. Unknown versions get V2.
func ForVersion(v int) Envelope {
	if v == 1 {
		return V1{}
	}
	return V2{}
}

// V1 writes plain-text failures and successes without echoed ids.
type V1 struct{}

func (V1) Confirm(c *gin.Context, status int, body, echo gin.H) {
	c.JSON(status, body)
}

func (V1) NotFound(c *gin.Context, what, id string) {
	c.String(http.StatusNotFound, what+" not found")
}

func (V1) BadRequest(c *gin.Context, reason string) {
	c.String(http.StatusBadRequest, reason)
}

func (V1) Fail(c *gin.Context, action string, err error) {
	c.String(http.StatusInternalServerError, action+": "+err.Error())
}

// V2 writes {"error", "details"} failures and echoes ids on success.
type V2 struct{}

func (V2) Confirm(c *gin.Context, status int, body, echo gin.H) {
	out := make(gin.H, len(body)+len(echo))
	for k, v := range body {
		out[k] = v
	}
	for k, v := range echo {
		out[k] = v
	}
	c.JSON(status, out)
}

func (V2) NotFound(c *gin.Context, what, id string) {
	c.JSON(http.StatusNotFound, gin.H{
		"error":   what + " not found",
		"details": "No " + lower(what) + " exists with id " + id,
	})
}

func (V2) BadRequest(c *gin.Context, reason string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid input",
		"details": reason,
	})
}

func (V2) Fail(c *gin.Context, action string, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   action,
		"details": err.Error(),
	})
}

// lower lowercases an ASCII first letter.
func lower(s string) string {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return s
	}
	return string(s[0]+'a'-'A') + s[1:]
}
