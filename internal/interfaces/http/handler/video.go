// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"clipiq-api/internal/application/chat"
	"clipiq-api/internal/domain/entity"
	"clipiq-api/internal/interfaces/http/dto"
)

// VideoHandler 视频摄取处理器
type VideoHandler struct {
	svc *chat.Service
}

// NewVideoHandler 创建视频摄取处理器
func NewVideoHandler(svc *chat.Service) *VideoHandler {
	return &VideoHandler{svc: svc}
}

// Process 摄取视频到会话
// @Summary 摄取视频
// @Description 解析视频链接并摄取字幕到会话索引
// @Tags Video
// @Accept json
// @Produce json
// @Router /v1/videos/process [post]
func (h *VideoHandler) Process(c *gin.Context) {
	var req dto.ProcessVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.ProcessVideo(c.Request.Context(), chat.ProcessVideoInput{
		SessionID: req.SessionID,
		URL:       req.URL,
	})
	if err != nil {
		// 无字幕是业务终态而非调用失败，正常返回记录让客户端按状态处理
		if result != nil && result.Video.CurrentStatus() == entity.VideoStatusNoTranscript {
			dto.Success(c, dto.ProcessVideoResponse{
				SessionID: result.SessionID,
				Video:     dto.NewVideoView(result.Video),
			})
			return
		}
		dto.Fail(c, err)
		return
	}

	dto.Success(c, dto.ProcessVideoResponse{
		SessionID: result.SessionID,
		Video:     dto.NewVideoView(result.Video),
	})
}
