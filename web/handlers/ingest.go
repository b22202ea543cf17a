package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"context-engine/database"
	apperrors "context-engine/errors"
	"context-engine/ingest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type IngestHandler struct {
	ingestor  *ingest.Service
	extractor *ingest.PDFExtractor
	logger    *zap.Logger
}

func NewIngestHandler(ingestor *ingest.Service, extractor *ingest.PDFExtractor, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{
		ingestor:  ingestor,
		extractor: extractor,
		logger:    logger,
	}
}

type memoryRequest struct {
	UserID     string   `json:"user_id" binding:"required"`
	Kind       string   `json:"kind"`
	Content    string   `json:"content" binding:"required"`
	Importance float64  `json:"importance"`
	Tags       []string `json:"tags"`
}

func (h *IngestHandler) CreateMemory(c *gin.Context) {
	var req memoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.ingestor.IngestMemory(c.Request.Context(), database.MemoryRecord{
		UserID:     req.UserID,
		Kind:       req.Kind,
		Content:    req.Content,
		Importance: req.Importance,
		Tags:       req.Tags,
	})
	if err != nil {
		if apperrors.IsInvalidInput(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to ingest memory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store memory"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type messageRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	ChatID  string `json:"chat_id"`
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func (h *IngestHandler) CreateMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.ingestor.IngestMessage(c.Request.Context(), database.MessageRecord{
		UserID:  req.UserID,
		ChatID:  req.ChatID,
		Role:    req.Role,
		Content: req.Content,
	})
	if err != nil {
		if apperrors.IsInvalidInput(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to ingest message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type documentRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Title  string `json:"title" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

func (h *IngestHandler) CreateDocument(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, chunks, err := h.ingestor.IngestDocument(c.Request.Context(), req.UserID, req.Title, req.Text)
	if err != nil {
		if apperrors.IsInvalidInput(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to ingest document", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store document"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "chunks": chunks})
}

func (h *IngestHandler) ListDocuments(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	docs, err := h.ingestor.ListDocuments(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list documents", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}

	out := make([]gin.H, 0, len(docs))
	for _, doc := range docs {
		out = append(out, gin.H{
			"id":         doc.ID,
			"title":      doc.Title,
			"created_at": doc.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

func (h *IngestHandler) DeleteDocument(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	deleted, err := h.ingestor.DeleteDocument(c.Request.Context(), userID, docID)
	if err != nil {
		h.logger.Error("Failed to delete document", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete document"})
		return
	}
	if deleted == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *IngestHandler) DeleteMemories(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	deleted, err := h.ingestor.DeleteUserMemories(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to delete memories", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete memories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *IngestHandler) DeleteMessages(c *gin.Context) {
	userID := c.Query("user_id")
	chatID := c.Query("chat_id")
	if userID == "" || chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and chat_id are required"})
		return
	}

	deleted, err := h.ingestor.DeleteChatMessages(c.Request.Context(), userID, chatID)
	if err != nil {
		h.logger.Error("Failed to delete messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// UploadDocument accepts a multipart PDF upload, extracts its text and ingests
// it under the uploader's id.
func (h *IngestHandler) UploadDocument(c *gin.Context) {
	userID := c.PostForm("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only PDF uploads are supported"})
		return
	}

	tmpPath := filepath.Join(os.TempDir(), uuid.NewString()+".pdf")
	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		h.logger.Error("Failed to save uploaded file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save upload"})
		return
	}
	defer os.Remove(tmpPath)

	text, err := h.extractor.ExtractText(tmpPath)
	if err != nil {
		h.logger.Error("Failed to extract PDF text", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not extract text from PDF"})
		return
	}

	title := c.PostForm("title")
	if title == "" {
		title = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}

	id, chunks, err := h.ingestor.IngestDocument(c.Request.Context(), userID, title, text)
	if err != nil {
		h.logger.Error("Failed to ingest uploaded document", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store document"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "chunks": chunks, "title": title})
}
