package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"topics-service/internal/engine"
	"topics-service/internal/mocks"
	"topics-service/internal/models"
	"topics-service/internal/repositories"
)

func setupTopicRouter(topics *mocks.TopicRepositoryMock, messages *mocks.MessageRepositoryMock, identity models.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)

	eng := engine.NewEngine(topics, messages, new(mocks.VerifierMock))
	handler := NewTopicHandler(topics, eng, nil)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("identity", identity)
		c.Next()
	})
	router.POST("/topics", handler.CreateTopic)
	router.GET("/topics", handler.ListTopics)
	router.POST("/topics/:topic_id/members", handler.AddMember)
	router.DELETE("/topics/:topic_id/members/:user_id", handler.RemoveMember)
	router.GET("/topics/:topic_id/messages", handler.GetHistory)
	return router
}

func TestCreateTopic(t *testing.T) {
	topics := new(mocks.TopicRepositoryMock)
	router := setupTopicRouter(topics, new(mocks.MessageRepositoryMock), models.Identity{ID: "u1", Username: "alice"})

	topics.On("Create", mock.Anything, "general", false, "u1").
		Return(models.Topic{ID: "t1", Name: "general", CreatorID: "u1"}, nil).Once()

	body, _ := json.Marshal(gin.H{"name": "  general  "})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/topics", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var topic models.Topic
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &topic))
	assert.Equal(t, "t1", topic.ID)
	topics.AssertExpectations(t)
}

func TestCreateTopicNameTaken(t *testing.T) {
	topics := new(mocks.TopicRepositoryMock)
	router := setupTopicRouter(topics, new(mocks.MessageRepositoryMock), models.Identity{ID: "u1"})

	topics.On("Create", mock.Anything, "general", false, "u1").
		Return(models.Topic{}, repositories.ErrTopicNameTaken).Once()

	body, _ := json.Marshal(gin.H{"name": "general"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/topics", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateTopicBlankName(t *testing.T) {
	topics := new(mocks.TopicRepositoryMock)
	router := setupTopicRouter(topics, new(mocks.MessageRepositoryMock), models.Identity{ID: "u1"})

	body, _ := json.Marshal(gin.H{"name": "   "})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/topics", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	topics.AssertNotCalled(t, "Create")
}

func TestListTopics(t *testing.T) {
	topics := new(mocks.TopicRepositoryMock)
	router := setupTopicRouter(topics, new(mocks.MessageRepositoryMock), models.Identity{ID: "u1"})

	topics.On("List", mock.Anything).
		Return([]models.Topic{{ID: "t1", Name: "general"}, {ID: "t2", Name: "random"}}, nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/topics", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Topics []models.Topic `json:"topics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Topics, 2)
}

func TestAddMemberRequiresAdmin(t *testing.T) {
	topics := new(mocks.TopicRepositoryMock)
	router := setupTopicRouter(topics, new(mocks.MessageRepositoryMock), models.Identity{ID: "u1"})

	topics.On("IsAdmin", mock.Anything, "t1", "u1").Return(false, nil).Once()

	body, _ := json.Marshal(gin.H{"user_id": "u2"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/topics/t1/members", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	topics.AssertNotCalled(t, "AddMember")
}

func TestAddMemberAsAdmin(t *testing.T) {
	topics := new(mocks.TopicRepositoryMock)
	router := setupTopicRouter(topics, new(mocks.MessageRepositoryMock), models.Identity{ID: "u1"})

	topics.On("IsAdmin", mock.Anything, "t1", "u1").Return(true, nil).Once()
	topics.On("AddMember", mock.Anything, "t1", "u2").Return(nil).Once()

	body, _ := json.Marshal(gin.H{"user_id": "u2"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/topics/t1/members", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	topics.AssertExpectations(t)
}

func TestRemoveMemberSelf(t *testing.T) {
	topics := new(mocks.TopicRepositoryMock)
	router := setupTopicRouter(topics, new(mocks.MessageRepositoryMock), models.Identity{ID: "u1"})

	// Removing yourself needs no admin check.
	topics.On("RemoveMember", mock.Anything, "t1", "u1").Return(nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/topics/t1/members/u1", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
	topics.AssertNotCalled(t, "IsAdmin")
}

func TestRemoveMemberOtherRequiresAdmin(t *testing.T) {
	topics := new(mocks.TopicRepositoryMock)
	router := setupTopicRouter(topics, new(mocks.MessageRepositoryMock), models.Identity{ID: "u1"})

	topics.On("IsAdmin", mock.Anything, "t1", "u1").Return(false, nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/topics/t1/members/u2", nil))

	require.Equal(t, http.StatusForbidden, w.Code)
	topics.AssertNotCalled(t, "RemoveMember")
}

func TestGetHistory(t *testing.T) {
	topics := new(mocks.TopicRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	router := setupTopicRouter(topics, messages, models.Identity{ID: "u1", Username: "alice"})

	topics.On("Get", mock.Anything, "t1").Return(models.Topic{ID: "t1"}, nil).Once()
	messages.On("Query", mock.Anything, "t1", 2, engine.DefaultPageSize).
		Return([]models.Message{{ID: "m1", TopicID: "t1"}}, 120, nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/topics/t1/messages?page=2", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var page models.HistoryPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasMore)
}

func TestGetHistoryInvalidPage(t *testing.T) {
	topics := new(mocks.TopicRepositoryMock)
	router := setupTopicRouter(topics, new(mocks.MessageRepositoryMock), models.Identity{ID: "u1"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/topics/t1/messages?page=0", nil))

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetHistoryAccess(t *testing.T) {
	topics := new(mocks.TopicRepositoryMock)
	router := setupTopicRouter(topics, new(mocks.MessageRepositoryMock), models.Identity{ID: "u1"})

	topics.On("Get", mock.Anything, "missing").Return(models.Topic{}, repositories.ErrTopicNotFound).Once()
	topics.On("Get", mock.Anything, "p1").Return(models.Topic{ID: "p1", IsPrivate: true}, nil).Once()
	topics.On("IsMember", mock.Anything, "p1", "u1").Return(false, nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/topics/missing/messages", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/topics/p1/messages", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
}
