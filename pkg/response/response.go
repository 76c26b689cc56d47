package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the envelope for message-style and error responses. Endpoints with
// a richer payload write their own shape and only use Error from here.
type Body struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// Message writes a {success:true, message} body.
func Message(c *gin.Context, status int, message string) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, Body{
		Success:   true,
		Message:   message,
		RequestID: c.GetString("request_id"),
	})
}

// Error writes a {success:false, message} body and aborts the request.
func Error(c *gin.Context, status int, message string, details any) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(status, Body{
		Success:   false,
		Message:   message,
		RequestID: c.GetString("request_id"),
		Details:   details,
	})
}
