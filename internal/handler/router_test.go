package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"social-system/config"
	"social-system/internal/graph"
	"social-system/internal/handler"
	"social-system/internal/repository"
	"social-system/internal/service"
	"social-system/internal/testutil"
	"social-system/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Reason  string          `json:"reason"`
	Data    json.RawMessage `json:"data"`
}

type api struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *api {
	gin.SetMode(gin.TestMode)

	orm := testutil.NewDB(t)
	store := repository.NewStore(orm)
	g := graph.NewRelationalGraph(store)
	deps := service.Deps{
		Store:     store,
		Projector: graph.NewProjector(g, config.GraphConfig{}),
		Limits:    config.FeedConfig{DefaultLimit: 10, MaxLimit: 50, SuggestionLimit: 10},
	}
	jwtSvc := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", Issuer: "test", ExpireTime: time.Hour})
	feed := service.NewFeedService(deps)

	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"), jwtSvc.AuthMiddleware(), handler.Handlers{
		Users:         handler.NewUserHandler(service.NewUserService(deps, jwtSvc)),
		Friends:       handler.NewFriendshipHandler(service.NewFriendshipService(deps), service.NewSuggestionService(deps, g, time.Second), 10),
		Communities:   handler.NewCommunityHandler(service.NewCommunityService(deps), feed, 10),
		Posts:         handler.NewPostHandler(service.NewPostService(deps), feed, 10),
		Notifications: handler.NewNotificationHandler(service.NewNotificationService(deps), 10),
	})
	return &api{t: t, router: router}
}

func (a *api) call(method, path, token string, body interface{}) envelope {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var resp envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func (a *api) register(name string) (uint, string) {
	a.t.Helper()
	resp := a.call(http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"username": name, "email": name + "@example.com", "password": "pw",
	})
	require.Equal(a.t, 0, resp.Code, resp.Message)
	var data struct {
		User struct {
			ID uint `json:"id"`
		} `json:"user"`
		AccessToken string `json:"access_token"`
	}
	require.NoError(a.t, json.Unmarshal(resp.Data, &data))
	return data.User.ID, data.AccessToken
}

func TestAuthRequired(t *testing.T) {
	a := newAPI(t)

	resp := a.call(http.MethodGet, "/api/v1/feed", "", nil)
	assert.Equal(t, 401, resp.Code)

	resp = a.call(http.MethodGet, "/api/v1/feed", "not-a-token", nil)
	assert.Equal(t, 401, resp.Code)
}

func TestFriendshipFlowOverHTTP(t *testing.T) {
	a := newAPI(t)
	aliceID, alice := a.register("alice")
	bobID, bob := a.register("bob")

	resp := a.call(http.MethodPost, fmt.Sprintf("/api/v1/friends/%d/request", bobID), alice, nil)
	require.Equal(t, 0, resp.Code, resp.Message)
	var sent struct {
		RequestID uint `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &sent))

	// 重复发送得到冲突码和具体原因
	resp = a.call(http.MethodPost, fmt.Sprintf("/api/v1/friends/%d/request", aliceID), bob, nil)
	assert.Equal(t, 409, resp.Code)
	assert.Equal(t, "duplicate_pending", resp.Reason)

	resp = a.call(http.MethodPost, fmt.Sprintf("/api/v1/friends/requests/%d/accept", sent.RequestID), alice, nil)
	assert.Equal(t, 403, resp.Code)
	assert.Equal(t, "not_authorized", resp.Reason)

	resp = a.call(http.MethodPost, fmt.Sprintf("/api/v1/friends/requests/%d/accept", sent.RequestID), bob, nil)
	require.Equal(t, 0, resp.Code, resp.Message)

	resp = a.call(http.MethodGet, fmt.Sprintf("/api/v1/friends/%d/status", aliceID), bob, nil)
	require.Equal(t, 0, resp.Code)
	var st service.FriendshipStatus
	require.NoError(t, json.Unmarshal(resp.Data, &st))
	assert.Equal(t, service.FriendshipFriends, st.Status)

	resp = a.call(http.MethodPost, "/api/v1/posts", alice, map[string]string{"text_body": "hola"})
	require.Equal(t, 0, resp.Code, resp.Message)

	resp = a.call(http.MethodGet, "/api/v1/feed?page=1&limit=5", bob, nil)
	require.Equal(t, 0, resp.Code)
	var page service.PostPage
	require.NoError(t, json.Unmarshal(resp.Data, &page))
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "hola", page.Posts[0].TextBody)

	resp = a.call(http.MethodGet, "/api/v1/feed?limit=0", bob, nil)
	assert.Equal(t, 400, resp.Code)
}

func TestCommunityOwnerLeaveIsSoftFailure(t *testing.T) {
	a := newAPI(t)
	_, owner := a.register("owner")

	resp := a.call(http.MethodPost, "/api/v1/communities", owner, map[string]interface{}{"name": "gophers"})
	require.Equal(t, 0, resp.Code, resp.Message)
	var view service.CommunityView
	require.NoError(t, json.Unmarshal(resp.Data, &view))

	resp = a.call(http.MethodPost, fmt.Sprintf("/api/v1/communities/%d/leave", view.ID), owner, nil)
	require.Equal(t, 0, resp.Code)
	var result service.LeaveResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)

	resp = a.call(http.MethodGet, "/api/v1/communities/abc", owner, nil)
	assert.Equal(t, 400, resp.Code)
}
