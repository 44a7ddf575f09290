package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/househub/internal/auth"
	"github.com/geocoder89/househub/internal/config"
	"github.com/geocoder89/househub/internal/db"
	apphttp "github.com/geocoder89/househub/internal/http"
	"github.com/geocoder89/househub/internal/ratelimit"
	"github.com/geocoder89/househub/internal/repo/postgres"
	"github.com/geocoder89/househub/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

func testConfig() config.Config {
	return config.Config{
		Env:             "test",
		JWTSecret:       "test-secret-key",
		UploadMaxBytes:  5 << 20,
		UploadMaxFiles:  10,
		RateLimitMax:    100,
		RateLimitWindow: time.Minute,
	}
}

type pgApp struct {
	router   http.Handler
	pool     *pgxpool.Pool
	images   *storage.Store
	cleanups *postgres.CleanupRepo
}

// setupPostgresApp wires the router on real Postgres repos. Set TEST_DB_DSN to
// a disposable database to run these tests.
func setupPostgresApp(t *testing.T) *pgApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	pool, err := db.NewPool(dsn, 4)
	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	ctx := context.Background()
	if err := db.ApplySchema(ctx, pool); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	resetDB(t, pool)
	t.Cleanup(func() { resetDB(t, pool) })

	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	images, err := storage.NewStore(storage.Options{Dir: t.TempDir(), URLPrefix: "/uploads", MaxBytes: cfg.UploadMaxBytes, MaxFiles: cfg.UploadMaxFiles})
	if err != nil {
		t.Fatalf("upload store: %v", err)
	}

	users := postgres.NewUsersRepo(pool, nil)
	cleanups := postgres.NewCleanupRepo(pool, nil)

	router := apphttp.NewRouter(logger, cfg, apphttp.Deps{
		Users:   users,
		Houses:  postgres.NewHousesRepo(pool, nil, cleanups),
		Rents:   postgres.NewRentsRepo(pool, nil),
		Images:  images,
		Purger:  storage.NewPurger(images, cleanups, logger),
		Tokens:  auth.NewManager(cfg.JWTSecret, time.Hour),
		Limiter: ratelimit.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
	})

	return &pgApp{router: router, pool: pool, images: images, cleanups: cleanups}
}

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		TRUNCATE file_cleanups, rentals, houses, users
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

func doRequest(router http.Handler, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doJSON(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	return doRequest(router, method, path, token, bytes.NewBufferString(body), "application/json")
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID int64 `json:"id"`
	} `json:"user"`
}

func signup(t *testing.T, router http.Handler, email, role string) session {
	t.Helper()

	body := fmt.Sprintf(`{"username":"someone","email":%q,"password":"password123","phone":"0800","role":%q}`, email, role)
	if w := doJSON(router, http.MethodPost, "/auth/register", "", body); w.Code != http.StatusCreated {
		t.Fatalf("register got status %d, body=%s", w.Code, w.Body.String())
	}

	w := doJSON(router, http.MethodPost, "/auth/login", "", fmt.Sprintf(`{"email":%q,"password":"password123"}`, email))
	if w.Code != http.StatusOK {
		t.Fatalf("login got status %d, body=%s", w.Code, w.Body.String())
	}

	var s session
	mustReadJSON(t, w, &s)
	return s
}

func listingForm(t *testing.T, ownerID int64, images ...string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("owner_id", fmt.Sprint(ownerID))
	_ = mw.WriteField("owner_name", "Olu")
	_ = mw.WriteField("description", "two bedroom flat")
	_ = mw.WriteField("price_per_day", "45.50")
	_ = mw.WriteField("location", "Lagos")
	_ = mw.WriteField("posted_by", "owner")
	for _, name := range images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, name))
		h.Set("Content-Type", "image/png")
		pw, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = pw.Write(pngBytes)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestPostgres_RegisterDuplicateEmail(t *testing.T) {
	app := setupPostgresApp(t)
	signup(t, app.router, "sam@example.com", "user")

	body := `{"username":"sam","email":"sam@example.com","password":"password123","phone":"0800"}`
	w := doJSON(app.router, http.MethodPost, "/auth/register", "", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}

	var count int
	if err := app.pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("got %d users, want 1", count)
	}
}

func TestPostgres_ListingAndBookingLifecycle(t *testing.T) {
	app := setupPostgresApp(t)
	owner := signup(t, app.router, "owner@example.com", "owner")
	tenant := signup(t, app.router, "tenant@example.com", "user")

	body, ct := listingForm(t, owner.User.ID, "a.png", "b.png")
	w := doRequest(app.router, http.MethodPost, "/houses", owner.Token, body, ct)
	if w.Code != http.StatusCreated {
		t.Fatalf("create got status %d, body=%s", w.Code, w.Body.String())
	}

	var created struct {
		House struct {
			ID          int64    `json:"id"`
			Images      []string `json:"images"`
			PricePerDay float64  `json:"price_per_day"`
		} `json:"house"`
	}
	mustReadJSON(t, w, &created)
	if len(created.House.Images) != 2 || created.House.PricePerDay != 45.5 {
		t.Fatalf("unexpected listing %+v", created.House)
	}

	book := fmt.Sprintf(`{"amount":120,"tenantName":"Tayo","tenantEmail":"tenant@example.com","startDate":"2024-01-01","endDate":"2024-01-03","tenantId":%d,"ownerId":%d,"phone":"0800","houseId":%d}`,
		tenant.User.ID, owner.User.ID, created.House.ID)
	w = doJSON(app.router, http.MethodPost, "/rent/book", tenant.Token, book)
	if w.Code != http.StatusCreated {
		t.Fatalf("book got status %d, body=%s", w.Code, w.Body.String())
	}

	var booked struct {
		Rent struct {
			DaysNumber int    `json:"daysNumber"`
			StartDate  string `json:"startDate"`
		} `json:"rent"`
	}
	mustReadJSON(t, w, &booked)
	if booked.Rent.DaysNumber != 2 || booked.Rent.StartDate != "2024-01-01" {
		t.Fatalf("unexpected booking %+v", booked.Rent)
	}

	// replacing the image set drops a and b
	body, ct = listingForm(t, owner.User.ID, "c.png")
	w = doRequest(app.router, http.MethodPut, fmt.Sprintf("/houses/%d", created.House.ID), owner.Token, body, ct)
	if w.Code != http.StatusOK {
		t.Fatalf("update got status %d, body=%s", w.Code, w.Body.String())
	}

	var pending int
	if err := app.pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM file_cleanups WHERE status = 'pending'`).Scan(&pending); err != nil {
		t.Fatalf("count cleanups: %v", err)
	}
	if pending != 0 {
		t.Fatalf("inline purge should resolve every removed image, %d still pending", pending)
	}

	w = doRequest(app.router, http.MethodDelete, fmt.Sprintf("/houses/%d", created.House.ID), owner.Token, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete got status %d, body=%s", w.Code, w.Body.String())
	}

	var rentals int
	if err := app.pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM rentals`).Scan(&rentals); err != nil {
		t.Fatalf("count rentals: %v", err)
	}
	if rentals != 0 {
		t.Fatalf("bookings should be removed with their listing, got %d", rentals)
	}

	entries, err := os.ReadDir(app.images.Dir())
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files left, got %d", len(entries))
	}
}

func TestPostgres_CleanupClaimRetriesMissingWork(t *testing.T) {
	app := setupPostgresApp(t)
	ctx := context.Background()

	tx, err := app.pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := app.cleanups.EnqueueTx(ctx, tx, []string{"/uploads/a.png", "/uploads/b.png"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tasks, err := app.cleanups.ClaimBatch(ctx, "worker-a", 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("claimed %d tasks, want 2", len(tasks))
	}

	// a second worker sees nothing while the rows are processing
	again, err := app.cleanups.ClaimBatch(ctx, "worker-b", 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("claimed %d tasks twice", len(again))
	}

	if err := app.cleanups.MarkDone(ctx, tasks[0].ID); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	if err := app.cleanups.Reschedule(ctx, tasks[1].ID, time.Now().Add(-time.Second), "disk busy"); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	retry, err := app.cleanups.ClaimBatch(ctx, "worker-b", 10)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(retry) != 1 || retry[0].ID != tasks[1].ID || retry[0].Attempts < 1 {
		t.Fatalf("unexpected retry batch %+v", retry)
	}
}
