package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/marketplace-backend/internal/logger"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
)

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	Error string            `json:"error"`
	Code  apperror.ErrorCode `json:"code"`
}

// ErrorHandler переводит последнюю ошибку из c.Errors в JSON-ответ.
// Внутренние ошибки маскируются, детали попадают только в лог.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := toAppError(err)

		fields := logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
			"code":   appErr.Code,
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Log.WithFields(fields).WithError(err).Error("ошибка обработки запроса")
		} else {
			logger.Log.WithFields(fields).Debug(appErr.Message)
		}

		c.JSON(appErr.HTTPStatus, ErrorResponse{Error: appErr.Message, Code: appErr.Code})
	}
}

func toAppError(err error) *apperror.AppError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if typed, ok := apperror.FromStore(err).(*apperror.AppError); ok {
		return typed
	}
	return apperror.Internal(err)
}

// abortWithError прерывает цепочку с ответом в формате ErrorHandler.
func abortWithError(c *gin.Context, err *apperror.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, ErrorResponse{Error: err.Message, Code: err.Code})
}
