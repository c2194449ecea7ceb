package apirouter

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func AbortWithError(c *gin.Context, code int, err error) {
	c.Status(code)
	c.Error(err)
	c.Abort()
}

func AbortWithValidationError(c *gin.Context, err error) {
	var errorResponse ErrorResponse
	errorResponse.Parse(err)
	code := errorResponse.Code
	if code == 0 {
		code = http.StatusUnprocessableEntity
		errorResponse.Code = code
	}
	AbortWithError(c, code, errorResponse)
}
