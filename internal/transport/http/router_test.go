package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang/mock/gomock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-photo-sharing/internal/cache"
	"github.com/pribylovaa/go-photo-sharing/internal/config"
	"github.com/pribylovaa/go-photo-sharing/internal/models"
	"github.com/pribylovaa/go-photo-sharing/internal/password"
	"github.com/pribylovaa/go-photo-sharing/internal/service"
	"github.com/pribylovaa/go-photo-sharing/internal/storage"
	"github.com/pribylovaa/go-photo-sharing/internal/token"
	"github.com/pribylovaa/go-photo-sharing/mocks"
)

const (
	testEmail    = "dana@example.com"
	testPassword = "dana-password-1"
	testUserID   = int64(17)
)

type apiFixture struct {
	srv   *httptest.Server
	users *mocks.MockUserStorage
	mr    *miniredis.Miniredis
	user  *models.User
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()

	return newAPIWith(t, Options{Timeout: 5 * time.Second})
}

func newAPIWith(t *testing.T, routerOpts Options) *apiFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStorage(ctrl)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	codec, err := token.New(config.AuthConfig{JWTSecret: "http-secret", JWTExpireMinutes: 60})
	require.NoError(t, err)

	opts := cache.Options{AccessTTL: codec.AccessTTL()}
	hasher := password.NewHasher(bcrypt.MinCost)
	svc := service.New(users, cache.NewSessionStore(rdb, opts), cache.NewBlacklist(rdb, opts), codec, hasher)

	hash, err := hasher.Hash(testPassword)
	require.NoError(t, err)
	user := &models.User{ID: testUserID, Email: testEmail, Username: "dana", PasswordHash: hash, IsActive: true}

	users.EXPECT().UserByEmail(gomock.Any(), testEmail).Return(user, nil).AnyTimes()
	users.EXPECT().UserByEmail(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound).AnyTimes()
	users.EXPECT().UserByID(gomock.Any(), testUserID).Return(user, nil).AnyTimes()

	srv := httptest.NewServer(NewRouter(svc, routerOpts))
	t.Cleanup(srv.Close)

	return &apiFixture{srv: srv, users: users, mr: mr, user: user}
}

func (f *apiFixture) do(t *testing.T, method, path, bearer, body string) (*http.Response, []byte) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "photo-web/3.0")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func (f *apiFixture) login(t *testing.T) models.AuthResult {
	t.Helper()

	resp, raw := f.do(t, http.MethodPost, "/auth/login", "",
		`{"email":"`+testEmail+`","password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var res models.AuthResult
	require.NoError(t, json.Unmarshal(raw, &res))
	return res
}

func errorCode(t *testing.T, raw []byte) string {
	t.Helper()

	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return env.Error.Code
}

func TestAPI_LoginMeLogout(t *testing.T) {
	t.Parallel()

	f := newAPI(t)
	res := f.login(t)

	require.Equal(t, "bearer", res.TokenType)
	require.Equal(t, int64(3600), res.ExpiresIn)
	require.Equal(t, testUserID, res.UserID)

	resp, raw := f.do(t, http.MethodGet, "/auth/me", res.AccessToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	var me models.UserView
	require.NoError(t, json.Unmarshal(raw, &me))
	require.Equal(t, testEmail, me.Email)
	require.Equal(t, res.SessionID, me.Session.ID)
	require.True(t, me.Session.IsCurrent)
	require.Equal(t, "photo-web/3.0", me.Session.UserAgent)
	require.Equal(t, "127.0.0.1", me.Session.IPAddress)
	require.NotContains(t, string(raw), "password")

	resp, _ = f.do(t, http.MethodPost, "/auth/logout", res.AccessToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = f.do(t, http.MethodGet, "/auth/me", res.AccessToken, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "token_revoked", errorCode(t, raw))

	resp, raw = f.do(t, http.MethodPost, "/auth/logout", res.AccessToken, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "token_already_invalid", errorCode(t, raw))
}

func TestAPI_LoginRejections(t *testing.T) {
	t.Parallel()

	f := newAPI(t)

	resp, raw := f.do(t, http.MethodPost, "/auth/login", "", `{"email":"`+testEmail+`","password":"nope-nope"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_credentials", errorCode(t, raw))

	resp, raw = f.do(t, http.MethodPost, "/auth/login", "", `{"email":"ghost@example.com","password":"nope-nope"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_credentials", errorCode(t, raw))

	resp, raw = f.do(t, http.MethodPost, "/auth/login", "", `{"email":"`+testEmail+`","password":"x","extra":1}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_argument", errorCode(t, raw))

	resp, _ = f.do(t, http.MethodPost, "/auth/login", "", `{"email":`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_LoginDisabledAccount(t *testing.T) {
	t.Parallel()

	f := newAPI(t)
	f.user.IsActive = false

	resp, raw := f.do(t, http.MethodPost, "/auth/login", "",
		`{"email":"`+testEmail+`","password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "account_disabled", errorCode(t, raw))
}

func TestAPI_RefreshRotation(t *testing.T) {
	t.Parallel()

	f := newAPI(t)
	first := f.login(t)

	resp, raw := f.do(t, http.MethodPost, "/auth/refresh", "", `{"refresh_token":"`+first.RefreshToken+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var second models.AuthResult
	require.NoError(t, json.Unmarshal(raw, &second))
	require.NotEqual(t, first.AccessToken, second.AccessToken)

	resp, raw = f.do(t, http.MethodPost, "/auth/refresh", "", `{"refresh_token":"`+first.RefreshToken+`"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "session_expired", errorCode(t, raw))

	resp, raw = f.do(t, http.MethodPost, "/auth/refresh", "", `{"refresh_token":"`+second.AccessToken+`"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "wrong_token_type", errorCode(t, raw))
}

func TestAPI_Validate(t *testing.T) {
	t.Parallel()

	f := newAPI(t)
	res := f.login(t)

	valid := func(bearer string) bool {
		resp, raw := f.do(t, http.MethodPost, "/auth/validate", bearer, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Valid bool `json:"valid"`
		}
		require.NoError(t, json.Unmarshal(raw, &out))
		return out.Valid
	}

	require.True(t, valid(res.AccessToken))
	require.False(t, valid(""))
	require.False(t, valid("garbage"))
}

func TestAPI_SessionsAndRevocation(t *testing.T) {
	t.Parallel()

	f := newAPI(t)
	a := f.login(t)
	b := f.login(t)

	resp, raw := f.do(t, http.MethodGet, "/auth/sessions", a.AccessToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Sessions []models.SessionInfo `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Sessions, 2)
	require.NotContains(t, string(raw), a.AccessToken)

	current := 0
	for _, s := range list.Sessions {
		if s.IsCurrent {
			current++
			require.Equal(t, a.SessionID, s.ID)
		}
	}
	require.Equal(t, 1, current)

	resp, _ = f.do(t, http.MethodDelete, "/auth/sessions/current", a.AccessToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/auth/me", a.AccessToken, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, raw = f.do(t, http.MethodPost, "/auth/logout-all", b.AccessToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"revoked":1}`, string(raw))

	resp, raw = f.do(t, http.MethodGet, "/auth/me", b.AccessToken, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "session_expired", errorCode(t, raw))
}

func TestAPI_ChangePassword(t *testing.T) {
	t.Parallel()

	f := newAPI(t)
	res := f.login(t)

	resp, raw := f.do(t, http.MethodPost, "/auth/password", res.AccessToken,
		`{"current_password":"wrong-one-1","new_password":"brand-new-pass"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "incorrect_password", errorCode(t, raw))

	f.users.EXPECT().UpdateUser(gomock.Any(), testUserID, gomock.Any()).Return(f.user, nil)

	resp, raw = f.do(t, http.MethodPost, "/auth/password", res.AccessToken,
		`{"current_password":"`+testPassword+`","new_password":"brand-new-pass"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	resp, raw = f.do(t, http.MethodGet, "/auth/me", res.AccessToken, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "session_expired", errorCode(t, raw))
}

func TestAPI_MissingBearer(t *testing.T) {
	t.Parallel()

	f := newAPI(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/auth/me"},
		{http.MethodPost, "/auth/logout"},
		{http.MethodPost, "/auth/logout-all"},
		{http.MethodGet, "/auth/sessions"},
		{http.MethodDelete, "/auth/sessions/current"},
	} {
		resp, raw := f.do(t, tc.method, tc.path, "", "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, tc.path)
		require.Equal(t, "unauthenticated", errorCode(t, raw), tc.path)
		require.NotEmpty(t, resp.Header.Get("WWW-Authenticate"), tc.path)
	}
}

func TestAPI_StoreUnavailableIs503(t *testing.T) {
	t.Parallel()

	f := newAPI(t)
	res := f.login(t)
	f.mr.Close()

	resp, raw := f.do(t, http.MethodGet, "/auth/me", res.AccessToken, "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "unavailable", errorCode(t, raw))
}

func TestNewRouter_BasePath(t *testing.T) {
	t.Parallel()

	h := NewRouter(nil, Options{BasePath: "/api"})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/validate", bytes.NewReader(nil)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"valid":false}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/validate", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

// loginFrom входит с заголовком X-Forwarded-For и возвращает IP из /auth/me.
func (f *apiFixture) loginFrom(t *testing.T, forwardedFor string) string {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/auth/login",
		strings.NewReader(`{"email":"`+testEmail+`","password":"`+testPassword+`"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res models.AuthResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))

	_, raw := f.do(t, http.MethodGet, "/auth/me", res.AccessToken, "")

	var view models.UserView
	require.NoError(t, json.Unmarshal(raw, &view))
	return view.Session.IPAddress
}

func TestAPI_ForwardedForIgnoredByDefault(t *testing.T) {
	t.Parallel()

	f := newAPI(t)

	require.Equal(t, "127.0.0.1", f.loginFrom(t, "198.51.100.23"))
}

func TestAPI_ForwardedForHonouredBehindTrustedProxy(t *testing.T) {
	t.Parallel()

	f := newAPIWith(t, Options{Timeout: 5 * time.Second, TrustProxy: true})

	require.Equal(t, "198.51.100.23", f.loginFrom(t, "198.51.100.23"))
}

func TestNewRouter_AccessLogUsesClientIPOnlyWhenTrusted(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name  string
		trust bool
		want  string
	}{
		{"untrusted", false, "192.0.2.1"},
		{"trusted", true, "198.51.100.23"},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			l := zerolog.New(&buf)
			h := NewRouter(nil, Options{Logger: &l, TrustProxy: tc.trust})

			req := httptest.NewRequest(http.MethodPost, "/auth/validate", nil)
			req.Header.Set("X-Forwarded-For", "198.51.100.23")
			h.ServeHTTP(httptest.NewRecorder(), req)

			var rec map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
			require.Equal(t, "http", rec["message"])
			require.Equal(t, tc.want, rec["remote_ip"])
		})
	}
}
