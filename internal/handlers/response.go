package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hotelbridge/liteapi-booking/pkg/validator"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// SuccessResponse is returned by endpoints that have nothing else to say
type SuccessResponse struct {
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: code, Message: message})
}

// bindAndValidate decodes the JSON body into dst and runs the struct validator.
// It writes the 400 response itself and returns false when the request is unusable.
func bindAndValidate(c *gin.Context, v *validator.RequestValidator, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return false
	}
	return validate(c, v, dst)
}

func validate(c *gin.Context, v *validator.RequestValidator, dst interface{}) bool {
	err := v.Struct(dst)
	if err == nil {
		return true
	}

	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Request validation failed",
			Fields:  verr.Fields,
		})
		return false
	}
	respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
	return false
}

// queryInt reads a positive integer query parameter, clamped to max
func queryInt(c *gin.Context, name string, def, max int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
