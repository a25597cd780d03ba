package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"topics-service/internal/engine"
	"topics-service/internal/middleware"
	"topics-service/internal/repositories"
	"topics-service/internal/telemetry"
)

// TopicHandler manages the thin topic CRUD surface. The durable member list
// changes here, never through live joins.
type TopicHandler struct {
	topicRepo repositories.TopicRepository
	engine    *engine.Engine
	audit     *telemetry.AuditEmitter
}

// NewTopicHandler builds a TopicHandler.
func NewTopicHandler(topicRepo repositories.TopicRepository, eng *engine.Engine, audit *telemetry.AuditEmitter) *TopicHandler {
	return &TopicHandler{topicRepo: topicRepo, engine: eng, audit: audit}
}

// CreateTopic creates a topic; the creator becomes member and admin.
func (h *TopicHandler) CreateTopic(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req struct {
		Name      string `json:"name" binding:"required"`
		IsPrivate bool   `json:"is_private"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic name is required"})
		return
	}

	topic, err := h.topicRepo.Create(c.Request.Context(), name, req.IsPrivate, identity.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrTopicNameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "topic name already taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create topic"})
		return
	}

	h.audit.Emit(c.Request.Context(), "info", "topic created: "+topic.Name, requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, topic)
}

// ListTopics returns all topics, most recently active first.
func (h *TopicHandler) ListTopics(c *gin.Context) {
	topics, err := h.topicRepo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load topics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

// AddMember adds a user to the durable member set. Admin only.
func (h *TopicHandler) AddMember(c *gin.Context) {
	identity, _ := middleware.IdentityFromContext(c)
	topicID := c.Param("topic_id")

	admin, err := h.topicRepo.IsAdmin(c.Request.Context(), topicID, identity.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify admin"})
		return
	}
	if !admin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}

	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.topicRepo.AddMember(c.Request.Context(), topicID, req.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add member"})
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveMember removes a user from the durable member set. Admins may remove
// anyone; users may remove themselves.
func (h *TopicHandler) RemoveMember(c *gin.Context) {
	identity, _ := middleware.IdentityFromContext(c)
	topicID := c.Param("topic_id")
	userID := c.Param("user_id")

	if userID != identity.ID {
		admin, err := h.topicRepo.IsAdmin(c.Request.Context(), topicID, identity.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify admin"})
			return
		}
		if !admin {
			c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
			return
		}
	}

	if err := h.topicRepo.RemoveMember(c.Request.Context(), topicID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove member"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetHistory serves paginated topic history. Access is checked against the
// directory whether or not the caller is joined to the live room.
func (h *TopicHandler) GetHistory(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	topicID := c.Param("topic_id")

	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
			return
		}
		page = parsed
	}

	history, err := h.engine.History(c.Request.Context(), identity, topicID, page, engine.DefaultPageSize)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrTopicNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "topic not found"})
		case errors.Is(err, engine.ErrAccessDenied):
			c.JSON(http.StatusForbidden, gin.H{"error": "not a topic member"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		}
		return
	}

	c.JSON(http.StatusOK, history)
}
