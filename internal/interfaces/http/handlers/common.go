// Package handlers implements the gin handlers behind the /api/v1 routes.
package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/turtacn/ARChemistry/pkg/errors"
)

// ErrorResponse is the standard error response body.  Error repeats Message
// so clients of the recognition contract, which read "error", keep working.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error"`
}

// writeAppError maps err to a status through the error code table.  Server
// side failures other than upstream and availability errors are masked.
func writeAppError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatus(code)

	resp := ErrorResponse{Code: code.String(), Message: err.Error()}
	var ae *errors.AppError
	if stderrors.As(err, &ae) {
		resp.Message = ae.Message
		if status < http.StatusInternalServerError {
			resp.Detail = ae.Detail
		}
	}
	if status == http.StatusInternalServerError {
		resp.Code = errors.ErrCodeInternal.String()
		resp.Message = "internal server error"
		resp.Detail = ""
	}
	resp.Error = resp.Message
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// bindError converts a binding failure into a validation AppError listing the
// offending fields.
func bindError(err error) error {
	var ve validator.ValidationErrors
	if stderrors.As(err, &ve) {
		fields := make([]string, 0, len(ve))
		for _, fe := range ve {
			fields = append(fields, fieldMessage(fe))
		}
		return errors.New(errors.ErrCodeValidation, "invalid request").
			WithDetail(strings.Join(fields, "; "))
	}
	return errors.Wrap(err, errors.ErrCodeBadRequest, "malformed request body")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt", "min":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
