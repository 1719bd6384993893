package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/knowledger/internal/config"
	"github.com/user/knowledger/internal/handler"
	"github.com/user/knowledger/internal/mail"
	"github.com/user/knowledger/internal/middleware"
	"github.com/user/knowledger/internal/model"
	"github.com/user/knowledger/internal/repository"
	"github.com/user/knowledger/internal/router"
	"github.com/user/knowledger/internal/service"
	"github.com/user/knowledger/internal/storage"
	"github.com/user/knowledger/internal/testutil"
)

const secret = "handler-test-secret"

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	repos  *repository.Repositories
	cfg    *config.Config
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
}

func newServer(t *testing.T, mutate func(cfg *config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		AppSecret: secret,
		JWTExpiry: time.Hour,
		AppURL:    "http://localhost:3000",
		Stripe:    config.StripeConfig{Currency: "eur", SkipWebhookSignature: true},
	}
	if mutate != nil {
		mutate(cfg)
	}

	repos := testutil.NewRepos(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svcs := service.NewServices(repos, cfg, store, mail.NewConsoleMailer("no-reply@test", "KnowLedger"), nil)

	r := gin.New()
	r.Use(sessions.Sessions("kl_session", cookie.NewStore([]byte(secret))))
	router.RegisterRoutes(r, handler.NewHandler(cfg, svcs))
	return &testServer{t: t, engine: r, repos: repos, cfg: cfg}
}

func (s *testServer) token(u *model.User) string {
	tok, err := middleware.GenerateToken(u.ID, u.Email, u.Role, secret, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t, nil)

	w, env := s.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "eve@example.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)
	assert.Contains(t, strings.Join(w.Header().Values("Set-Cookie"), "; "), middleware.TokenCookie+"=")

	w, env = s.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "bad", "password": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(env.Data), "fields")

	w, _ = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "eve@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "eve@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)

	w, env = s.do(http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "eve@example.com")

	w, _ = s.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	s := newServer(t, nil)
	author := testutil.User(t, s.repos, "author", model.RoleFormator)
	u := testutil.User(t, s.repos, "u", model.RoleNormal)
	v := testutil.Video(t, s.repos, author.ID, 10)
	tok := s.token(u)

	w, _ := s.do(http.MethodPost, "/api/history", tok, gin.H{"type": "video", "itemId": v.ID, "timestamp": 150})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(http.MethodPost, "/api/history", tok, gin.H{"type": "article", "itemId": v.ID, "timestamp": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(http.MethodPost, "/api/history", tok, gin.H{"type": "video", "itemId": 999, "timestamp": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := s.do(http.MethodGet, fmt.Sprintf("/api/history?type=video&itemId=%d", v.ID), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var h model.History
	require.NoError(t, json.Unmarshal(env.Data, &h))
	assert.Equal(t, 150.0, h.Timestamp)

	w, env = s.do(http.MethodGet, fmt.Sprintf("/api/progress/videos/%d", v.ID), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p service.VideoProgress
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.InDelta(t, 25.0, p.Percent, 0.001)

	w, env = s.do(http.MethodDelete, "/api/history", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":1}`, string(env.Data))
}

func TestFormationEndpoints(t *testing.T) {
	s := newServer(t, nil)
	formator := testutil.User(t, s.repos, "formator", model.RoleFormator)
	u := testutil.User(t, s.repos, "u", model.RoleNormal)

	body := gin.H{"title": "Kubernetes", "content": "chapitres", "isPremium": true, "price": 29.9}
	w, _ := s.do(http.MethodPost, "/api/formations", s.token(u), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := s.do(http.MethodPost, "/api/formations", s.token(formator), gin.H{"title": "Kubernetes", "isPremium": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(env.Data), "price")

	w, env = s.do(http.MethodPost, "/api/formations", s.token(formator), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var f model.Formation
	require.NoError(t, json.Unmarshal(env.Data, &f))

	w, env = s.do(http.MethodGet, "/api/formations/"+f.Slug, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, false, detail["canAccess"])
	assert.NotContains(t, string(env.Data), "chapitres")

	w, env = s.do(http.MethodPost, "/api/formations/"+f.Slug, s.token(u), gin.H{"rating": 4})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rating":4,"average":4,"total":1}`, string(env.Data))

	w, _ = s.do(http.MethodPost, "/api/formations/"+f.Slug, s.token(u), gin.H{"rating": 6})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(http.MethodGet, "/api/formations?page=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"limit":15`)

	// 非作者不能删除
	path := fmt.Sprintf("/api/users/content/formation/%d", f.ID)
	w, _ = s.do(http.MethodDelete, path, s.token(u), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(http.MethodDelete, path, s.token(formator), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, "/api/formations/"+f.Slug, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStripeWebhookBypass(t *testing.T) {
	s := newServer(t, nil)
	author := testutil.User(t, s.repos, "author", model.RoleFormator)
	u := testutil.User(t, s.repos, "u", model.RoleNormal)
	f := testutil.Formation(t, s.repos, author.ID, true, 15)

	event := gin.H{
		"id":   "evt_http_1",
		"type": "checkout.session.completed",
		"data": gin.H{"object": gin.H{
			"id": "cs_http_1", "object": "checkout.session", "mode": "payment", "amount_total": 1500,
			"metadata": gin.H{"kind": "purchase", "userId": fmt.Sprint(u.ID), "itemId": fmt.Sprint(f.ID), "type": "formation"},
		}},
	}
	w, env := s.do(http.MethodPost, "/api/webhooks/stripe", "", event)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"duplicate":false`)

	w, env = s.do(http.MethodPost, "/api/webhooks/stripe", "", event)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"duplicate":true`)

	owned, err := s.repos.Purchase.Exists(context.Background(), u.ID, f.ID, model.TypeFormation)
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	s := newServer(t, func(cfg *config.Config) {
		cfg.Stripe.SkipWebhookSignature = false
		cfg.Stripe.WebhookSecret = "whsec_test"
	})
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewBufferString(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutesRoleGated(t *testing.T) {
	s := newServer(t, nil)
	admin := testutil.User(t, s.repos, "admin", model.RoleAdmin)
	formator := testutil.User(t, s.repos, "formator", model.RoleFormator)
	u := testutil.User(t, s.repos, "u", model.RoleNormal)

	w, _ := s.do(http.MethodGet, "/api/admin/search?q=form", s.token(u), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, env := s.do(http.MethodGet, "/api/admin/search?q=form", s.token(formator), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "formator@example.com")

	w, _ = s.do(http.MethodGet, "/api/admin/stats", s.token(formator), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, env = s.do(http.MethodGet, "/api/admin/stats", s.token(admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"users":3`)

	w, _ = s.do(http.MethodPut, fmt.Sprintf("/api/admin/users/%d/role", u.ID), s.token(admin), gin.H{"role": "FORMATOR"})
	assert.Equal(t, http.StatusOK, w.Code)

	// 支付网关未配置
	w, _ = s.do(http.MethodPost, "/api/checkout/subscription", s.token(u), gin.H{"plan": "MONTHLY"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDemotedAdminLosesAccessWithOldToken(t *testing.T) {
	s := newServer(t, nil)
	ctx := context.Background()
	root := testutil.User(t, s.repos, "root", model.RoleAdmin)
	admin := testutil.User(t, s.repos, "admin", model.RoleAdmin)
	formator := testutil.User(t, s.repos, "formator", model.RoleFormator)
	f := testutil.Formation(t, s.repos, formator.ID, false, 0)
	tok := s.token(admin)

	w, _ := s.do(http.MethodGet, "/api/admin/stats", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// 通过后台降级，缓存随之失效
	w, _ = s.do(http.MethodPut, fmt.Sprintf("/api/admin/users/%d/role", admin.ID), s.token(root), gin.H{"role": "NORMAL"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.do(http.MethodGet, "/api/admin/stats", tok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(http.MethodPost, "/api/formations", tok, gin.H{"title": "Go avancé"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(http.MethodDelete, fmt.Sprintf("/api/users/content/formation/%d", f.ID), tok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 直接改库的讲师，Token 未使用过时立即生效
	require.NoError(t, s.repos.User.UpdateRole(ctx, formator.ID, model.RoleNormal))
	w, _ = s.do(http.MethodPost, "/api/formations", s.token(formator), gin.H{"title": "Go avancé"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
