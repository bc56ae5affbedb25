package handler

import (
	"github.com/gin-gonic/gin"

	"clipiq-api/internal/application/chat"
	"clipiq-api/internal/interfaces/http/dto"
)

// ChatHandler 对话处理器
type ChatHandler struct {
	svc *chat.Service
}

// NewChatHandler 创建对话处理器
func NewChatHandler(svc *chat.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Chat 处理一轮对话
// @Summary 视频问答
// @Description 基于会话内视频回答问题，按意图路由到问答/摘要/对比
// @Tags Chat
// @Accept json
// @Produce json
// @Router /v1/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.Chat(c.Request.Context(), chat.ChatInput{
		SessionID: req.SessionID,
		VideoID:   req.VideoID,
		Query:     req.Query,
		Intent:    chat.Intent(req.Intent),
	})
	if err != nil {
		dto.Fail(c, err)
		return
	}

	dto.Success(c, dto.NewChatResponse(result))
}

// Summary 单视频摘要
// @Summary 视频摘要
// @Description 生成或返回缓存的单视频摘要
// @Tags Chat
// @Accept json
// @Produce json
// @Router /v1/summary [post]
func (h *ChatHandler) Summary(c *gin.Context) {
	var req dto.SummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.Summarize(c.Request.Context(), req.SessionID, req.VideoID)
	if err != nil {
		dto.Fail(c, err)
		return
	}

	dto.Success(c, dto.SummaryResponse{
		SessionID: result.SessionID,
		VideoID:   result.VideoID,
		Summary:   result.Summary,
		Cached:    result.Cached,
	})
}

// Compare 双视频对比
// @Summary 视频对比
// @Description 对会话内两个就绪视频做对比问答
// @Tags Chat
// @Accept json
// @Produce json
// @Router /v1/compare [post]
func (h *ChatHandler) Compare(c *gin.Context) {
	var req dto.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.Compare(c.Request.Context(), req.SessionID, req.Query)
	if err != nil {
		dto.Fail(c, err)
		return
	}

	dto.Success(c, dto.CompareResponse{
		SessionID: result.SessionID,
		VideoA:    result.VideoA,
		VideoB:    result.VideoB,
		Answer:    result.Answer,
		Citations: dto.NewCitations(result.Citations),
		Degraded:  result.Degraded,
	})
}

// ClearSession 销毁会话
// @Summary 清除会话
// @Description 销毁会话及其索引数据和缓存
// @Tags Session
// @Produce json
// @Router /v1/sessions/{id} [delete]
func (h *ChatHandler) ClearSession(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		dto.BadRequest(c, "session id is required")
		return
	}

	if err := h.svc.ClearSession(c.Request.Context(), sessionID); err != nil {
		dto.Fail(c, err)
		return
	}

	dto.NoContent(c)
}
