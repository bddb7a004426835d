package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MugzLord/WIB/internal/archive"
	"github.com/MugzLord/WIB/internal/errors"
)

// ArchiveHandler 归档查询处理器
type ArchiveHandler struct {
	store *archive.Store
	log   *zap.Logger
}

// NewArchiveHandler 创建归档查询处理器
func NewArchiveHandler(store *archive.Store, log *zap.Logger) *ArchiveHandler {
	return &ArchiveHandler{store: store, log: log}
}

// List 列出归档会话
// @Summary 归档列表
// @Description 按完局时间倒序;community/room 可选过滤
// @Tags Archive
// @Security Bearer
// @Produce json
// @Param community query string false "社区"
// @Param room query string false "房间"
// @Param offset query int false "偏移"
// @Param limit query int false "数量上限，默认20"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/archive/sessions [get]
func (h *ArchiveHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	records, err := h.store.List(c.Request.Context(), c.Query("community"), c.Query("room"), offset, limit)
	if err != nil {
		h.log.Error("查询归档列表失败", zap.Error(err))
		respondError(c, errors.Wrap(err, errors.ErrDatabaseQuery, "查询归档失败"))
		return
	}

	respondOK(c, records)
}

// Get 获取归档详情
// @Summary 归档详情
// @Tags Archive
// @Security Bearer
// @Produce json
// @Param id path string true "归档ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/archive/sessions/{id} [get]
func (h *ArchiveHandler) Get(c *gin.Context) {
	record, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == archive.ErrNotFound {
			respondError(c, errors.New(errors.ErrNotFound, "归档记录不存在"))
			return
		}
		h.log.Error("查询归档详情失败", zap.Error(err))
		respondError(c, errors.Wrap(err, errors.ErrDatabaseQuery, "查询归档失败"))
		return
	}

	respondOK(c, record)
}
