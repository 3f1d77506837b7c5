package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront-service/internal/mail"
	"storefront-service/internal/repository/repotest"
	"storefront-service/internal/service"
	"storefront-service/internal/upload"
	"storefront-service/pkg/config"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const publicURL = "http://shop.test"

type captureNotifier struct {
	mu    sync.Mutex
	links []string
}

func (n *captureNotifier) Dispatch(_ context.Context, _ string, msg mail.VerificationMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.links = append(n.links, msg.Link)
}

func (n *captureNotifier) lastToken(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.links)
	link, err := url.Parse(n.links[len(n.links)-1])
	require.NoError(t, err)
	return link.Query().Get("token")
}

type testServer struct {
	e        *echo.Echo
	store    *repotest.MemoryStore
	notifier *captureNotifier
	pingErr  error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	staticDir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{PublicURL: publicURL},
		JWT: config.JWTConfig{
			SigningKey:                  "handler-test-key",
			AccessTokenExpiration:       time.Hour,
			VerificationTokenExpiration: time.Hour,
		},
		Upload: config.UploadConfig{StaticDir: staticDir, ImageDir: "images", Width: 200, Height: 200, MaxBytes: 1 << 20},
	}

	ts := &testServer{
		store:    repotest.NewMemoryStore(),
		notifier: &captureNotifier{},
	}

	links := service.NewLinks(cfg)
	auth := service.NewAuthenticator(ts.store, cfg.JWT)
	h := New(Dependencies{
		Auth:           auth,
		Accounts:       service.NewAccounts(ts.store, auth, ts.notifier, links),
		Catalog:        service.NewCatalog(ts.store, upload.NewIngestor(cfg.Upload.ImagePath(), cfg.Upload.Width, cfg.Upload.Height)),
		Links:          links,
		PingDB:         func() error { return ts.pingErr },
		StaticDir:      staticDir,
		MaxUploadBytes: cfg.Upload.MaxBytes,
	})

	ts.e = echo.New()
	RegisterRoutes(ts.e, h)
	return ts
}

func (ts *testServer) do(method, path, contentType string, body io.Reader, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) doJSON(method, path string, payload interface{}, token string) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	return ts.do(method, path, echo.MIMEApplicationJSON, body, token)
}

func (ts *testServer) register(t *testing.T, username string) {
	t.Helper()
	rec := ts.doJSON(http.MethodPost, "/registration", map[string]string{
		"username": username,
		"email":    username + "@x.com",
		"password": "pw123",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (ts *testServer) login(t *testing.T, username string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {"pw123"}}
	rec := ts.do(http.MethodPost, "/token", echo.MIMEApplicationForm, strings.NewReader(form.Encode()), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "bearer", body["token_type"])
	return body["access_token"]
}

func (ts *testServer) signUp(t *testing.T, username string) string {
	t.Helper()
	ts.register(t, username)
	return ts.login(t, username)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, detail string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "error", body["status"])
	if detail != "" {
		assert.Equal(t, detail, body["detail"])
	}
	if status == http.StatusUnauthorized {
		assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
	}
}

func multipartFile(t *testing.T, filename string, content []byte) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return w.FormDataContentType(), &buf
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 320, 240))))
	return buf.Bytes()
}

func TestHelloAndHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/health?check=db", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["db_status"])

	ts.pingErr = errors.New("connection refused")
	rec = ts.do(http.MethodGet, "/health?check=db", "", nil, "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", decode(t, rec)["db_status"])
}

func TestRegistration(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.doJSON(http.MethodPost, "/registration", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "pw123",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice")
	assert.Equal(t, "ok", decode(t, rec)["status"])

	require.Len(t, ts.store.Businesses(), 1)
	assert.Equal(t, "alice", ts.store.Businesses()[0].BusinessName)
	assert.Len(t, ts.notifier.links, 1)
}

func TestRegistrationRejected(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")

	rec := ts.doJSON(http.MethodPost, "/registration", map[string]string{
		"username": "alice", "email": "other@x.com", "password": "pw",
	}, "")
	assertError(t, rec, http.StatusConflict, "Username or email already registered")

	rec = ts.doJSON(http.MethodPost, "/registration", map[string]string{
		"username": "bob", "email": "not-an-email", "password": "pw",
	}, "")
	assertError(t, rec, http.StatusBadRequest, "")

	rec = ts.doJSON(http.MethodPost, "/registration", map[string]string{
		"username": "averyveryverylongusername", "email": "b@x.com", "password": "pw",
	}, "")
	assertError(t, rec, http.StatusBadRequest, "")
}

func TestRegistrationRejectsLongPassword(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.doJSON(http.MethodPost, "/registration", map[string]string{
		"username": "alice", "email": "a@x.com", "password": strings.Repeat("p", 80),
	}, "")
	assertError(t, rec, http.StatusBadRequest, "Invalid request data: password failed on max")

	// 40 two-byte runes pass the length tag but exceed what bcrypt accepts
	rec = ts.doJSON(http.MethodPost, "/registration", map[string]string{
		"username": "alice", "email": "a@x.com", "password": strings.Repeat("é", 40),
	}, "")
	assertError(t, rec, http.StatusBadRequest, "Password must not exceed 72 bytes")

	assert.Empty(t, ts.store.Users())
	assert.Empty(t, ts.notifier.links)
}

func TestTokenRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")

	form := url.Values{"username": {"alice"}, "password": {"wrong"}}
	rec := ts.do(http.MethodPost, "/token", echo.MIMEApplicationForm, strings.NewReader(form.Encode()), "")
	assertError(t, rec, http.StatusUnauthorized, "Invalid username or password")
}

func TestVerification(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")
	token := ts.notifier.lastToken(t)

	rec := ts.do(http.MethodGet, "/verification?token="+url.QueryEscape(token), "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Contains(t, rec.Body.String(), "Hello alice")
	assert.True(t, ts.store.Users()[0].IsVerified)

	rec = ts.do(http.MethodGet, "/verification?token="+url.QueryEscape(token), "", nil, "")
	assertError(t, rec, http.StatusUnauthorized, "Invalid token or expired token")

	rec = ts.do(http.MethodGet, "/verification?token=garbage", "", nil, "")
	assertError(t, rec, http.StatusUnauthorized, "Invalid token or expired token")
}

func TestVerificationTokenIsNotABearerToken(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice")

	rec := ts.do(http.MethodPost, "/user/me", "", nil, ts.notifier.lastToken(t))
	assertError(t, rec, http.StatusUnauthorized, "Invalid username or password")
}

func TestMe(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "alice")

	rec := ts.do(http.MethodPost, "/user/me", "", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "Ok", body["status"])
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "alice@x.com", body["email"])
	assert.Equal(t, false, body["verified"])
	assert.Equal(t, time.Now().UTC().Format("Jan 02 2006"), body["join_date"])
	assert.Equal(t, publicURL+"/static/images/default.jpg", body["logo_path"])

	rec = ts.do(http.MethodPost, "/user/me", "", nil, "")
	assertError(t, rec, http.StatusUnauthorized, "Not authenticated")
}

func TestListProductsEmpty(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/products", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Ok","data":[]}`, rec.Body.String())
}

func TestProductLifecycle(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.signUp(t, "alice")
	stranger := ts.signUp(t, "mallory")

	rec := ts.doJSON(http.MethodPost, "/products", map[string]interface{}{
		"name": "lamp", "category": "home", "original_price": 100, "new_price": 75,
		"offer_expiration_date": "2030-01-31",
	}, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, 25.0, created["percentage_discount"])
	assert.Equal(t, "productDefault.jpg", created["product_image"])
	id := int(created["id"].(float64))
	path := "/products/" + strconv.Itoa(id)

	rec = ts.do(http.MethodGet, "/products", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["data"], 1)

	rec = ts.do(http.MethodGet, path, "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode(t, rec)["data"].(map[string]interface{})
	business := detail["business_details"].(map[string]interface{})
	assert.Equal(t, "alice", business["name"])
	assert.Equal(t, "alice@x.com", business["email"])
	assert.Equal(t, "lamp", detail["product_details"].(map[string]interface{})["name"])

	rec = ts.doJSON(http.MethodPut, path, map[string]interface{}{"name": "stolen"}, stranger)
	assertError(t, rec, http.StatusUnauthorized, "Not authenticated to perform this action or invalid user input")

	rec = ts.doJSON(http.MethodPut, path, map[string]interface{}{"original_price": 0, "new_price": 10}, owner)
	assertError(t, rec, http.StatusUnauthorized, "Not authenticated to perform this action or invalid user input")

	rec = ts.doJSON(http.MethodPut, path, map[string]interface{}{"original_price": 200, "new_price": 50}, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, 75.0, updated["percentage_discount"])
	assert.Equal(t, "lamp", updated["name"])

	rec = ts.do(http.MethodDelete, path, "", nil, stranger)
	assertError(t, rec, http.StatusUnauthorized, "Not authenticated to perform this action")

	rec = ts.do(http.MethodDelete, path, "", nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Ok","data":"Product deleted"}`, rec.Body.String())

	rec = ts.do(http.MethodGet, path, "", nil, "")
	assertError(t, rec, http.StatusNotFound, "Product not found")
}

func TestCreateProductRejected(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "alice")

	rec := ts.doJSON(http.MethodPost, "/products", map[string]interface{}{
		"name": "lamp", "original_price": 0, "new_price": 0,
	}, token)
	assertError(t, rec, http.StatusBadRequest, "Error occurred while processing your request")

	rec = ts.doJSON(http.MethodPost, "/products", map[string]interface{}{
		"name": "lamp", "original_price": 10, "new_price": 5, "offer_expiration_date": "tomorrow",
	}, token)
	assertError(t, rec, http.StatusBadRequest, "")

	rec = ts.doJSON(http.MethodPost, "/products", map[string]interface{}{"name": "lamp", "original_price": 10}, "")
	assertError(t, rec, http.StatusUnauthorized, "")

	rec = ts.do(http.MethodGet, "/products/abc", "", nil, "")
	assertError(t, rec, http.StatusBadRequest, "Invalid id")
}

func TestUpdateBusiness(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.signUp(t, "alice")
	stranger := ts.signUp(t, "mallory")
	path := "/business/" + strconv.Itoa(int(ts.store.Businesses()[0].ID))

	rec := ts.doJSON(http.MethodPut, path, map[string]interface{}{"city": "Accra"}, stranger)
	assertError(t, rec, http.StatusUnauthorized, "Not authenticated to perform this action")

	rec = ts.doJSON(http.MethodPut, path, map[string]interface{}{
		"city": "Accra", "region": "Greater Accra", "business_description": "Lamps",
	}, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decode(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "Accra", data["city"])
	assert.Equal(t, "Lamps", data["business_description"])
	assert.Equal(t, "alice", data["business_name"])

	rec = ts.doJSON(http.MethodPut, "/business/999", map[string]interface{}{"city": "Accra"}, owner)
	assertError(t, rec, http.StatusNotFound, "Business not found")
}

func TestUploadProfile(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signUp(t, "alice")

	contentType, body := multipartFile(t, "me.png", pngBytes(t))
	rec := ts.do(http.MethodPost, "/uploadfile/profile", contentType, body, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fileURL := decode(t, rec)["filename"].(string)
	require.True(t, strings.HasPrefix(fileURL, publicURL+"/static/images/"), fileURL)

	rec = ts.do(http.MethodGet, strings.TrimPrefix(fileURL, publicURL), "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/user/me", "", nil, token)
	assert.Equal(t, fileURL, decode(t, rec)["logo_path"])

	for _, name := range []string{"me.gif", "me.PNG"} {
		contentType, body = multipartFile(t, name, pngBytes(t))
		rec = ts.do(http.MethodPost, "/uploadfile/profile", contentType, body, token)
		assertError(t, rec, http.StatusBadRequest, "file extension not allowed")
	}

	rec = ts.do(http.MethodPost, "/uploadfile/profile", echo.MIMEApplicationJSON, strings.NewReader("{}"), token)
	assertError(t, rec, http.StatusBadRequest, "file is required")
}

func TestUploadProductImage(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.signUp(t, "alice")
	stranger := ts.signUp(t, "mallory")

	rec := ts.doJSON(http.MethodPost, "/products", map[string]interface{}{
		"name": "lamp", "original_price": 100, "new_price": 75,
	}, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	path := "/uploadfile/product/" + strconv.Itoa(int(decode(t, rec)["data"].(map[string]interface{})["id"].(float64)))

	contentType, body := multipartFile(t, "p.jpg", pngBytes(t))
	rec = ts.do(http.MethodPost, path, contentType, body, stranger)
	assertError(t, rec, http.StatusUnauthorized, "Not authenticated to perform this action")

	contentType, body = multipartFile(t, "p.jpg", pngBytes(t))
	rec = ts.do(http.MethodPost, path, contentType, body, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasSuffix(decode(t, rec)["filename"].(string), ".jpg"))

	contentType, body = multipartFile(t, "p.png", pngBytes(t))
	rec = ts.do(http.MethodPost, "/uploadfile/product/999", contentType, body, owner)
	assertError(t, rec, http.StatusNotFound, "Product not found")
}
