package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/househub/internal/auth"
	"github.com/geocoder89/househub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeVerifier maps raw bearer tokens to fixed claims.
type fakeVerifier map[string]*auth.Claims

func (f fakeVerifier) Verify(token string) (*auth.Claims, error) {
	if c, ok := f[token]; ok {
		return c, nil
	}
	return nil, auth.ErrInvalidToken
}

var testTokens = fakeVerifier{
	"admin":    {UserID: 1, Username: "root", Role: auth.RoleAdmin},
	"subadmin": {UserID: 2, Username: "deputy", Role: auth.RoleSubAdmin},
	"owner-7":  {UserID: 7, Username: "olu", Role: auth.RoleOwner},
	"user-9":   {UserID: 9, Username: "tayo", Role: auth.RoleUser},
}

// authedRouter mounts one handler behind the real auth middleware.
func authedRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Handle(method, path, middlewares.NewAuthMiddleware(testTokens).RequireAuth(), h)
	return r
}

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Handle(method, path, h)
	return r
}

func do(r http.Handler, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doJSON(r http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	return do(r, method, target, token, bytes.NewBufferString(body), "application/json")
}

// houseForm builds a multipart listing form with the given fields and one
// image part per file name.
func houseForm(t *testing.T, fields map[string]string, images ...string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, name := range images {
		part, err := mw.CreateFormFile("images", name)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func validHouseFields(ownerID string) map[string]string {
	return map[string]string{
		"owner_id":      ownerID,
		"owner_name":    "Olu",
		"description":   "two bedroom flat",
		"price_per_day": "45.5",
		"location":      "Lagos",
		"posted_by":     "owner",
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad json: %v body=%s", err, w.Body.String())
	}
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	body := decode(t, w)
	e, _ := body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

var errDB = errors.New("db error")
