package api

import (
	"github.com/gin-gonic/gin"

	"github.com/MugzLord/WIB/internal/errors"
)

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// respondOK 成功响应
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(200, SuccessResponse{
		Success: true,
		Data:    data,
	})
}

// respondError 按业务错误码映射HTTP状态
func respondError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if e, ok := err.(*errors.AppError); ok {
		appErr = e
	} else {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}

	requestID := c.GetHeader("X-Request-ID")
	c.JSON(appErr.HTTPStatus(), errors.NewErrorResponse(appErr, requestID))
}

// respondBadRequest 参数绑定失败
func respondBadRequest(c *gin.Context, err error) {
	respondError(c, errors.Wrap(err, errors.ErrInvalidParam, "请求参数错误"))
}
