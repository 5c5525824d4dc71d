package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/store"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/user"
	jwtpkg "github.com/BigBr41n/Dz-Stores-Finder/internal/platform/jwt"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/password"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/storage"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/repository/memory"
)

const testSecret = "test-secret"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type captureNotifier struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (n *captureNotifier) SendActivation(_ context.Context, email, _, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens[email] = token
	return nil
}

func (n *captureNotifier) SendResetToken(_ context.Context, email, _, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens["reset:"+email] = token
	return nil
}

func (n *captureNotifier) NotifyPasswordChanged(context.Context, string, string) error {
	return nil
}

func (n *captureNotifier) token(key string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens[key]
}

// countingStorage counts writes that reach the backing storage.
type countingStorage struct {
	storage.Storage
	saves atomic.Int32
}

func (c *countingStorage) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	c.saves.Add(1)
	return c.Storage.Save(ctx, name, r, size, contentType)
}

type testEnv struct {
	server   *httptest.Server
	users    *user.Service
	notifier *captureNotifier
	logos    *countingStorage
}

func setupServer(t *testing.T) *testEnv {
	return setupServerWithLimit(t, 6000, 100)
}

func setupServerWithLimit(t *testing.T, authPerMinute, authBurst int) *testEnv {
	t.Helper()

	db := memory.NewDB()
	notifier := &captureNotifier{tokens: map[string]string{}}
	jm := jwtpkg.NewManager(jwtpkg.Options{AccessSecret: testSecret})
	userRepo := memory.NewUserRepo(db, password.NewHasher(bcrypt.MinCost))

	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	logos := &countingStorage{Storage: local}

	userSvc := user.NewService(userRepo, password.NewHasher(bcrypt.MinCost), notifier, jm, nil)
	storeSvc := store.NewService(memory.NewStoreRepo(db), userRepo, logos, nil)

	server := httptest.NewServer(NewRouter(Deps{
		Users:             userSvc,
		Stores:            storeSvc,
		Tokens:            jm,
		Logos:             logos,
		UploadMaxBytes:    1 << 16,
		AuthRatePerMinute: authPerMinute,
		AuthRateBurst:     authBurst,
	}))
	t.Cleanup(server.Close)

	return &testEnv{server: server, users: userSvc, notifier: notifier, logos: logos}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// registerUser signs up, activates and logs in, returning an access token
// and the user id.
func (e *testEnv) registerUser(t *testing.T, email string) (string, string) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/auth/signup", "", signUpRequest{Name: "Tester", Email: email, Password: "secret42"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created user.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	resp = e.do(t, http.MethodGet, "/api/v1/auth/verify?token="+e.notifier.token(email), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: email, Password: "secret42"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res user.LoginResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken, created.ID
}

func decodeError(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func decodeStore(t *testing.T, resp *http.Response) store.Store {
	t.Helper()
	var s store.Store
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	return s
}

func TestAuthFlow(t *testing.T) {
	env := setupServer(t)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/signup", "", signUpRequest{Name: "Ana", Email: "ana@x.com", Password: "secret42"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/signup", "", signUpRequest{Name: "Ana", Email: "ana@x.com", Password: "secret42"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "email_taken", decodeError(t, resp)["error"])

	resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "ana@x.com", Password: "secret42"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "account_not_verified", decodeError(t, resp)["error"])

	resp = env.do(t, http.MethodGet, "/api/v1/auth/verify?token="+env.notifier.token("ana@x.com"), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/auth/verify?token="+env.notifier.token("ana@x.com"), "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "ana@x.com", Password: "secret42"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login user.LoginResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	assert.Equal(t, "ana@x.com", login.Email)

	resp = env.do(t, http.MethodGet, "/api/v1/users/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, "ana@x.com", me["email"])
	assert.NotContains(t, me, "password")

	resp = env.do(t, http.MethodPost, "/api/v1/auth/refresh", "", refreshRequest{RefreshToken: login.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tokens user.Tokens
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tokens))
	assert.NotEmpty(t, tokens.AccessToken)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/refresh", "", refreshRequest{RefreshToken: login.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPasswordResetAndChange(t *testing.T) {
	env := setupServer(t)
	token, _ := env.registerUser(t, "sam@x.com")

	resp := env.do(t, http.MethodPost, "/api/v1/auth/forgotPassword", "", forgotPasswordRequest{Email: "nobody@x.com"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "invalid_email", decodeError(t, resp)["error"])

	resp = env.do(t, http.MethodPost, "/api/v1/auth/forgotPassword", "", forgotPasswordRequest{Email: "sam@x.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/verifyResetCode", "",
		resetPasswordRequest{Token: env.notifier.token("reset:sam@x.com"), Password: "newsecret9"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "sam@x.com", Password: "newsecret9"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/api/v1/auth/change-password", token,
		changePasswordRequest{OldPassword: "wrong", NewPassword: "another77"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/api/v1/auth/change-password", token,
		changePasswordRequest{OldPassword: "newsecret9", NewPassword: "another77"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/api/v1/auth/change-password", "",
		changePasswordRequest{OldPassword: "another77", NewPassword: "again1234"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectRejectsExpiredAndOrphanTokens(t *testing.T) {
	env := setupServer(t)

	claims := jwtpkg.Claims{
		UserID: "u-1",
		Type:   "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "storefinder",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	resp := env.do(t, http.MethodGet, "/api/v1/users/me", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "you should refresh your token", decodeError(t, resp)["message"])

	orphan, err := jwtpkg.NewManager(jwtpkg.Options{AccessSecret: testSecret}).IssueAccess("ghost", user.RoleUser)
	require.NoError(t, err)
	resp = env.do(t, http.MethodGet, "/api/v1/users/me", orphan, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "user_not_found", decodeError(t, resp)["error"])

	resp = env.do(t, http.MethodGet, "/api/v1/users/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStoreLifecycle(t *testing.T) {
	env := setupServer(t)
	ownerToken, ownerID := env.registerUser(t, "owner@x.com")
	otherToken, _ := env.registerUser(t, "other@x.com")

	body := storeRequest{
		StoreName:   "Librairie El Amel",
		Wilaya:      "Oran",
		City:        "Oran",
		Description: "school books",
		Keywords:    []string{"books", "stationery"},
		SocialMediaLinks: []socialLinkRequest{
			{Name: "facebook", Link: "https://facebook.com/amel"},
		},
	}

	resp := env.do(t, http.MethodPost, "/api/v1/stores", "", body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/stores", ownerToken, storeRequest{StoreName: "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", decodeError(t, resp)["error"])

	resp = env.do(t, http.MethodPost, "/api/v1/stores", ownerToken, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeStore(t, resp)
	assert.Equal(t, ownerID, created.OwnerID)
	assert.Equal(t, store.TypeReal, created.Type)

	body.Description = "school and university books"
	resp = env.do(t, http.MethodPut, "/api/v1/stores/"+created.ID, otherToken, body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/api/v1/stores/"+created.ID, ownerToken, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "school and university books", decodeStore(t, resp).Description)

	resp = env.do(t, http.MethodPost, "/api/v1/stores/"+created.ID+"/rating", otherToken, rateRequest{Rating: 4})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rated := decodeStore(t, resp)
	assert.Equal(t, 1, rated.Rating)
	assert.Equal(t, 4.0, rated.AverageRating)

	resp = env.do(t, http.MethodPost, "/api/v1/stores/"+created.ID+"/rating", otherToken, rateRequest{Rating: 2})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/stores/"+created.ID+"/rating", otherToken, rateRequest{Rating: 9})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var found []store.Store
	resp = env.do(t, http.MethodGet, "/api/v1/stores/search?searchTerm=BOOKS&searchTerm=nothing", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&found))
	assert.Len(t, found, 1)

	resp = env.do(t, http.MethodGet, "/api/v1/stores/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/stores/wilaya/oran", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&found))
	assert.Len(t, found, 1)

	resp = env.do(t, http.MethodGet, "/api/v1/stores/by-name?storeName=amel", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&found))
	assert.Len(t, found, 1)

	resp = env.do(t, http.MethodGet, "/api/v1/users/me/stores", ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&found))
	assert.Len(t, found, 1)

	resp = env.do(t, http.MethodDelete, "/api/v1/stores/"+created.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/v1/stores/"+created.ID, ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/stores/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "store_not_found", decodeError(t, resp)["error"])
}

func uploadLogo(t *testing.T, env *testEnv, storeID, token string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(logoField, "logo.bin")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/api/v1/stores/"+storeID+"/logo", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLogoUploadAndDownload(t *testing.T) {
	env := setupServer(t)
	ownerToken, _ := env.registerUser(t, "owner@x.com")
	otherToken, _ := env.registerUser(t, "other@x.com")

	resp := env.do(t, http.MethodPost, "/api/v1/stores", ownerToken, storeRequest{StoreName: "Amel", City: "Oran"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeStore(t, resp)

	resp = env.do(t, http.MethodGet, "/api/v1/stores/"+created.ID+"/logo", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = uploadLogo(t, env, created.ID, ownerToken, []byte("just text"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_file_type", decodeError(t, resp)["error"])

	resp = uploadLogo(t, env, created.ID, otherToken, pngHeader)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "not_owner", decodeError(t, resp)["error"])
	resp = uploadLogo(t, env, "missing", ownerToken, pngHeader)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Zero(t, env.logos.saves.Load(), "rejected uploads must not reach storage")

	resp = uploadLogo(t, env, created.ID, ownerToken, pngHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decodeStore(t, resp)
	assert.Regexp(t, `^storeLogo-[0-9a-f-]{36}\.png$`, first.Logo)

	resp = uploadLogo(t, env, created.ID, ownerToken, pngHeader)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decodeStore(t, resp)
	assert.NotEqual(t, first.Logo, second.Logo)

	resp = env.do(t, http.MethodGet, "/api/v1/stores/"+created.ID+"/logo", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	resp = uploadLogo(t, env, created.ID, ownerToken, bytes.Repeat([]byte{0x89}, 1<<17))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRoleGates(t *testing.T) {
	env := setupServer(t)
	userToken, _ := env.registerUser(t, "user@x.com")
	adminToken, adminID := env.registerUser(t, "admin@x.com")
	require.NoError(t, env.users.UpdateRole(context.Background(), adminID, user.RoleAdmin))

	resp := env.do(t, http.MethodPost, "/api/v1/stores", userToken, storeRequest{StoreName: "Amel", City: "Oran"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeStore(t, resp)

	verified := true
	resp = env.do(t, http.MethodPatch, "/api/v1/stores/"+created.ID+"/verify", userToken, verifyStoreRequest{Verified: &verified})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Role is read from the stored user, so the promotion applies to the
	// already issued token.
	resp = env.do(t, http.MethodPatch, "/api/v1/stores/"+created.ID+"/verify", adminToken, verifyStoreRequest{Verified: &verified})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeStore(t, resp).Verified)

	resp = env.do(t, http.MethodGet, "/api/v1/users", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users []user.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
	assert.Len(t, users, 2)

	resp = env.do(t, http.MethodPatch, "/api/v1/users/"+adminID+"/role", adminToken, updateRoleRequest{Role: "owner"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPatch, "/api/v1/users/missing/role", adminToken, updateRoleRequest{Role: user.RoleEditor})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthRateLimit(t *testing.T) {
	env := setupServerWithLimit(t, 1, 1)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "a@x.com", Password: "secret42"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "a@x.com", Password: "secret42"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestHealthAndReady(t *testing.T) {
	env := setupServer(t)

	resp := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp = env.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
