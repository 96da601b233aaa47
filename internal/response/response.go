package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success returns a success response
func Success(data interface{}) Response {
	return Response{
		Success: true,
		Message: "success",
		Data:    data,
	}
}

// Message returns a success response carrying only a message
func Message(message string) Response {
	return Response{
		Success: true,
		Message: message,
	}
}

// Error returns an error response with a machine readable code
func Error(code, message string) Response {
	return Response{
		Success: false,
		Message: message,
		Code:    code,
	}
}

// JSON sends a JSON response
func JSON(c *gin.Context, statusCode int, response Response) {
	c.JSON(statusCode, response)
}

// SuccessJSON sends a success JSON response
func SuccessJSON(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, Success(data))
}

// MessageJSON sends a 200 response with a message and no data
func MessageJSON(c *gin.Context, message string) {
	JSON(c, http.StatusOK, Message(message))
}

// ErrorJSON sends an error JSON response
func ErrorJSON(c *gin.Context, statusCode int, code, message string) {
	JSON(c, statusCode, Error(code, message))
}

// ErrorDataJSON sends an error response with details in data
func ErrorDataJSON(c *gin.Context, statusCode int, code, message string, data interface{}) {
	resp := Error(code, message)
	resp.Data = data
	JSON(c, statusCode, resp)
}
