package ginx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"oip/rfmengine/pkg/errorutil"
)

// Response 统一响应结构
type Response struct {
	Meta Meta        `json:"meta"`
	Data interface{} `json:"data,omitempty"`
}

// Meta 元数据
type Meta struct {
	Code      int           `json:"code" example:"200"`
	Message   string        `json:"message" example:"OK"`
	Retryable bool          `json:"retryable,omitempty"`
	Details   []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Path string `json:"path" example:"as_of"`
	Info string `json:"info" example:"as_of is invalid"`
}

// AcceptedData 异步任务受理后返回的数据
type AcceptedData struct {
	RequestID string `json:"request_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	PollURL   string `json:"poll_url" example:"/api/v1/jobs/550e8400-e29b-41d4-a716-446655440000"`
}

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Meta: Meta{
			Code:    200,
			Message: "OK",
		},
		Data: data,
	})
}

// Accepted 异步受理响应（202），客户端通过 poll_url 轮询结果
func Accepted(c *gin.Context, requestID string, pollURL string) {
	c.JSON(http.StatusAccepted, Response{
		Meta: Meta{
			Code:    202,
			Message: "Accepted, please poll for results",
		},
		Data: AcceptedData{
			RequestID: requestID,
			PollURL:   pollURL,
		},
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, message string) {
	c.JSON(httpCode, Response{
		Meta: Meta{
			Code:    httpCode,
			Message: message,
		},
	})
}

// ErrorWithDetails 带详情的错误响应
func ErrorWithDetails(c *gin.Context, httpCode int, message string, details []ErrorDetail) {
	c.JSON(httpCode, Response{
		Meta: Meta{
			Code:    httpCode,
			Message: message,
			Details: details,
		},
	})
}

// FromError 按 errorutil.Error 的错误码输出响应，data 非空时一并返回（例如 PARTIAL 运行结果）
func FromError(c *gin.Context, err error, data interface{}) {
	e := errorutil.Wrap(err)

	httpCode := http.StatusInternalServerError
	switch e.Code {
	case errorutil.CodePartial:
		httpCode = http.StatusMultiStatus
	case errorutil.CodeBadInput:
		httpCode = http.StatusBadRequest
	case errorutil.CodeNotFound:
		httpCode = http.StatusNotFound
	case errorutil.CodeConflict:
		httpCode = http.StatusConflict
	case errorutil.CodeInvalid:
		httpCode = http.StatusUnprocessableEntity
	}

	meta := Meta{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable,
	}
	if e.DevDetails != "" && gin.Mode() != gin.ReleaseMode {
		meta.Details = []ErrorDetail{{Path: "dev_details", Info: e.DevDetails}}
	}
	c.JSON(httpCode, Response{Meta: meta, Data: data})
}

// BadRequest 400 错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// BadRequestWithValidation 400 错误（带验证详情）
func BadRequestWithValidation(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]ErrorDetail, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			details = append(details, ErrorDetail{
				Path: fieldErr.Field(),
				Info: getValidationErrorMessage(fieldErr),
			})
		}
		ErrorWithDetails(c, http.StatusBadRequest, "Validation failed", details)
		return
	}

	BadRequest(c, err.Error())
}

// NotFound 404 错误
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// ServiceUnavailable 503 错误（依赖未配置）
func ServiceUnavailable(c *gin.Context, message string) {
	Error(c, http.StatusServiceUnavailable, message)
}

// InternalError 500 错误
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// getValidationErrorMessage 根据验证错误类型返回友好的错误消息
func getValidationErrorMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fieldErr.Field() + " is required"
	case "datetime":
		return fieldErr.Field() + " must match " + fieldErr.Param()
	case "min":
		return fieldErr.Field() + " must be at least " + fieldErr.Param()
	case "max":
		return fieldErr.Field() + " must be at most " + fieldErr.Param()
	case "oneof":
		return fieldErr.Field() + " must be one of " + fieldErr.Param()
	default:
		return fieldErr.Field() + " is invalid"
	}
}
