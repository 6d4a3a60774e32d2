package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"thalrakshak-assistant/internal/conversation"
	"thalrakshak-assistant/internal/document"
	"thalrakshak-assistant/internal/export"
	"thalrakshak-assistant/internal/models"

	"go.uber.org/zap"
)

const chatPrefix = "/api/v1/chat/sessions"

// multipart 表单额外开销
const uploadOverhead = 1 << 20

// ChatHandler 会话接口
type ChatHandler struct {
	manager *conversation.Manager
	limits  document.Limits
	logger  *zap.Logger
}

// NewChatHandler 创建会话 Handler
func NewChatHandler(manager *conversation.Manager, limits document.Limits, logger *zap.Logger) *ChatHandler {
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = document.DefaultLimits.MaxBytes
	}
	return &ChatHandler{
		manager: manager,
		limits:  limits,
		logger:  logger,
	}
}

// ServeHTTP 路由分发
// /api/v1/chat/sessions
// /api/v1/chat/sessions/{id}
// /api/v1/chat/sessions/{id}/messages|documents|transcript|transcript/export|profile
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, chatPrefix), "/")
	if rest == "" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.CreateSession(w, r)
		return
	}

	id, action, _ := strings.Cut(rest, "/")
	session, err := h.manager.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
		return
	}

	switch {
	case action == "" && r.Method == http.MethodDelete:
		h.CloseSession(w, r, id)
	case action == "messages" && r.Method == http.MethodPost:
		h.SendMessage(w, r, session)
	case action == "documents" && r.Method == http.MethodPost:
		h.UploadDocument(w, r, session)
	case action == "transcript" && r.Method == http.MethodGet:
		h.GetTranscript(w, r, session)
	case action == "transcript/export" && r.Method == http.MethodGet:
		h.ExportTranscript(w, r, session)
	case action == "profile" && r.Method == http.MethodPut:
		h.SetProfile(w, r, session)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type createSessionRequest struct {
	Profile *models.UserProfile `json:"profile"`
}

// CreateSession 创建会话（可选携带用户档案）
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := readBodyJSON(r, 1<<16, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if req.Profile != nil && req.Profile.BloodType != "" && !req.Profile.BloodType.Valid() {
		writeJSON(w, http.StatusBadRequest, Fail(fmt.Sprintf("invalid blood type %q", req.Profile.BloodType)))
		return
	}

	s := h.manager.Create(req.Profile)
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"session_id": s.ID(),
		"state":      s.State(),
	}))
}

// CloseSession 关闭会话，记录随之丢弃
func (h *ChatHandler) CloseSession(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.manager.Close(id); err != nil {
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"session_id": id}))
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// SendMessage 发送一条文本消息，返回助手回复
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request, s *conversation.Session) {
	var req sendMessageRequest
	if err := readBodyJSON(r, 1<<16, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, Fail("text is required"))
		return
	}

	turn, err := s.SendText(r.Context(), req.Text)
	if err != nil {
		h.writeSessionError(w, s.ID(), err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(turn))
}

// UploadDocument 上传医疗报告（multipart 字段 file）
// 过大的文件同样进入会话，由会话回复"文件过大"
func (h *ChatHandler) UploadDocument(w http.ResponseWriter, r *http.Request, s *conversation.Session) {
	// 硬上限：两倍 MaxBytes，超出部分不再读取
	r.Body = http.MaxBytesReader(w, r.Body, 2*h.limits.MaxBytes+uploadOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("failed to parse form"))
		return
	}

	var part *multipart.Part
	for {
		part, err = mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, Fail("file not found in request"))
			return
		}
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("failed to parse form"))
			return
		}
		if part.FormName() == "file" {
			break
		}
		part.Close()
	}
	defer part.Close()

	upload, err := readUploadPart(part, h.limits.MaxBytes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("failed to read file"))
		return
	}
	turn, err := s.Upload(r.Context(), upload)
	if err != nil {
		h.writeSessionError(w, s.ID(), err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(turn))
}

// readUploadPart 最多保留 maxBytes+1 字节；更大的文件只统计大小
// 触及请求硬上限时统计到此为止，DeclaredSize 为下限
func readUploadPart(part *multipart.Part, maxBytes int64) (document.Upload, error) {
	upload := document.Upload{
		Name:        part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
	}
	data, err := io.ReadAll(io.LimitReader(part, maxBytes+1))
	if err != nil {
		return upload, err
	}
	upload.Data = data
	upload.DeclaredSize = int64(len(data))
	if upload.DeclaredSize > maxBytes {
		rest, _ := io.Copy(io.Discard, part)
		upload.DeclaredSize += rest
	}
	return upload, nil
}

// GetTranscript 会话记录
func (h *ChatHandler) GetTranscript(w http.ResponseWriter, r *http.Request, s *conversation.Session) {
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"session_id":     s.ID(),
		"state":          s.State(),
		"turns":          s.Transcript(),
		"active_request": s.ActiveRequest(),
	}))
}

// ExportTranscript 导出会话记录 xlsx
func (h *ChatHandler) ExportTranscript(w http.ResponseWriter, r *http.Request, s *conversation.Session) {
	data, err := export.TranscriptWorkbook(s.ID(), s.Transcript())
	if err != nil {
		h.logger.Error("TranscriptWorkbook failed", zap.String("session_id", s.ID()), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to generate export: %v", err)))
		return
	}
	writeXLSX(w, fmt.Sprintf("transcript-%s.xlsx", s.ID()), data)
}

// SetProfile 设置用户档案
func (h *ChatHandler) SetProfile(w http.ResponseWriter, r *http.Request, s *conversation.Session) {
	var profile models.UserProfile
	if err := readBodyJSON(r, 1<<16, &profile); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if profile.BloodType != "" && !profile.BloodType.Valid() {
		writeJSON(w, http.StatusBadRequest, Fail(fmt.Sprintf("invalid blood type %q", profile.BloodType)))
		return
	}
	s.SetProfile(&profile)
	writeJSON(w, http.StatusOK, Ok(s.Profile()))
}

func (h *ChatHandler) writeSessionError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, conversation.ErrSessionClosed):
		writeJSON(w, http.StatusGone, Fail(err.Error()))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("Request cancelled", zap.String("session_id", sessionID), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, Fail(err.Error()))
	default:
		h.logger.Error("Session error", zap.String("session_id", sessionID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
	}
}
