package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/config"
	"github.com/sysu-ecnc-dev/course-timetable/backend/internal/domain"
)

const testSecret = "test-secret"

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	cfg.JWT.Expiration = 3600

	s := &cfg.Scheduler
	s.PopulationSize = 10
	s.MaxGenerations = 10
	s.TournamentSize = 3
	s.CrossoverRate = 0.8
	s.MutationRate = 0.02
	s.EliteCount = 1
	s.HardConflictWeight = 10
	s.SoftConflictWeight = 1
	s.MaxPlacementAttempts = 50
	s.MaxCoursesPerDay = 3
	s.DefaultProfessorLoad = 3
	s.MaxSectionsPerCourse = 1
	s.SoftSlotThreshold = 4
	s.Strategy = "sequence"
	s.Workers = 1

	h, err := NewHandler(cfg, nil, nil, nil)
	require.NoError(t, err)
	h.RegisterRoutes()
	return h
}

func newTestToken(t *testing.T, role domain.Role, method jwt.SigningMethod, key any) string {
	t.Helper()

	token := jwt.NewWithClaims(method, AuthClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Subject:   "1",
		},
	})
	ss, err := token.SignedString(key)
	require.NoError(t, err)
	return ss
}

func doRequest(t *testing.T, h http.Handler, method, path, body, token string) Response {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	resp := Response{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestAuthMiddleware(t *testing.T) {
	h := newTestHandler(t)

	resp := doRequest(t, h.Mux, http.MethodGet, "/catalog/", "", "")
	assert.False(t, resp.Success)
	assert.Equal(t, "用户未登录", resp.Message)

	resp = doRequest(t, h.Mux, http.MethodGet, "/catalog/", "", "not-a-token")
	assert.False(t, resp.Success)
	assert.Equal(t, "无效的令牌", resp.Message)

	// 用其他密钥签名的令牌
	forged := newTestToken(t, domain.RoleAdmin, jwt.SigningMethodHS256, []byte("other-secret"))
	resp = doRequest(t, h.Mux, http.MethodGet, "/catalog/", "", forged)
	assert.False(t, resp.Success)
	assert.Equal(t, "无效的令牌", resp.Message)

	// 不接受 HS256 以外的签名算法
	hs512 := newTestToken(t, domain.RoleAdmin, jwt.SigningMethodHS512, []byte(testSecret))
	resp = doRequest(t, h.Mux, http.MethodGet, "/catalog/", "", hs512)
	assert.False(t, resp.Success)
	assert.Equal(t, "无效的令牌", resp.Message)
}

func TestRequiredRole(t *testing.T) {
	h := newTestHandler(t)
	token := newTestToken(t, domain.RoleStaff, jwt.SigningMethodHS256, []byte(testSecret))

	for _, path := range []string{"/catalog/courses", "/catalog/rooms", "/timetables/generate"} {
		resp := doRequest(t, h.Mux, http.MethodPost, path, `{}`, token)
		assert.False(t, resp.Success, path)
		assert.Equal(t, "权限不足", resp.Message, path)
	}
}

func TestInvalidIDs(t *testing.T) {
	h := newTestHandler(t)
	token := newTestToken(t, domain.RoleStaff, jwt.SigningMethodHS256, []byte(testSecret))

	resp := doRequest(t, h.Mux, http.MethodGet, "/timetables/abc/", "", token)
	assert.False(t, resp.Success)
	assert.Equal(t, "课表ID无效", resp.Message)

	resp = doRequest(t, h.Mux, http.MethodGet, "/timetables/jobs/not-a-uuid", "", token)
	assert.False(t, resp.Success)
	assert.Equal(t, "任务ID无效", resp.Message)
}

func TestGenerateTimetable_InvalidRequest(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "不是 JSON", body: `not json`},
		{name: "未知字段", body: `{"name":"课表","unknown":1}`},
		{name: "缺少名称", body: `{}`},
		{name: "策略无效", body: `{"name":"课表","strategy":"random"}`},
		{name: "交叉概率超出范围", body: `{"name":"课表","crossoverRate":1.5}`},
		{name: "精英数量超过默认种群大小", body: `{"name":"课表","eliteCount":20}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/timetables/generate", strings.NewReader(tt.body))
			req = req.WithContext(context.WithValue(req.Context(), MyInfoCtx, &domain.User{ID: 1, Role: domain.RoleAdmin, IsActive: true}))
			rec := httptest.NewRecorder()

			h.GenerateTimetable(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			resp := Response{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestLogout(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	resp := Response{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, tokenCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
}
