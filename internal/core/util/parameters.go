package util

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
)

func ParamsToMap[T any](c *gin.Context) (T, error) {
	var params T

	if err := c.ShouldBindJSON(&params); err != nil {
		return params, err
	}

	return params, nil
}

// OptionalJSON binds a JSON body into T. It reports false when the request
// has no body.
func OptionalJSON[T any](c *gin.Context) (T, bool, error) {
	var params T

	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return params, false, nil
	}

	if err := c.ShouldBindJSON(&params); err != nil {
		if errors.Is(err, io.EOF) {
			return params, false, nil
		}
		return params, true, err
	}

	return params, true, nil
}

// IDParam parses an int64 path parameter. Zero and negative ids are valid
// input; they simply never match a stored task.
func IDParam(c *gin.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}
