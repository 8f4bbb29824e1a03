package handler

import (
	"net/http"

	"github.com/blues/pledges/internal/errs"
	"github.com/gin-gonic/gin"
)

// Response is the common API envelope.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// SuccessResponse writes a success envelope.
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse writes an error envelope.
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// DomainErrorResponse maps a domain error to its HTTP status.
func DomainErrorResponse(c *gin.Context, err error) {
	switch {
	case errs.IsNotFound(err):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errs.IsNotPermitted(err):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errs.IsBadRequest(err):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
	}
}
