package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// UseJSONFieldNames makes binding errors name fields by their json tag, so
// they match the field names in InputValidationError.
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// errorResponse maps domain errors onto HTTP status codes.
func errorResponse(err error) (int, ErrorResponse) {
	var inputErr *lotto.InputValidationError
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Code:    CodeInvalidRequest,
			Details: map[string]string{"field": inputErr.Field},
		}
	case lotto.IsConfigurationError(err):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  CodeInsufficientData,
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error: err.Error(),
			Code:  CodeCancelled,
		}
	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  CodeInternal,
		}
	}
}

func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status, resp := errorResponse(err)
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"path":   c.FullPath(),
		"status": status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}
	c.JSON(status, resp)
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, bindErrorResponse(err))
}

// bindErrorResponse reports the first failed binding rule against its
// field, or the decode error when the body is not valid JSON.
func bindErrorResponse(err error) ErrorResponse {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		field := fe.Field()
		if i := strings.IndexByte(field, '['); i >= 0 {
			field = field[:i]
		}
		return ErrorResponse{
			Error:   fmt.Sprintf("invalid %s: failed %q rule", field, ruleOf(fe)),
			Code:    CodeInvalidRequest,
			Details: map[string]string{"field": field},
		}
	}
	return ErrorResponse{
		Error:   "invalid request body",
		Code:    CodeInvalidRequest,
		Details: map[string]string{"body": err.Error()},
	}
}

func ruleOf(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
