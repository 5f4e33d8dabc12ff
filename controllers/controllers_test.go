package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"gamevote-backend/config"
	"gamevote-backend/export"
	"gamevote-backend/middleware"
	"gamevote-backend/models"
	"gamevote-backend/store"
	"gamevote-backend/voting"
)

func testConfig() config.Config {
	return config.Config{
		Port:          "0",
		Backend:       "sqlite",
		AdminUsername: "adminU",
		AdminPassword: "secret",
		JWTSecret:     "test-secret",
		SessionTTL:    time.Hour,
	}
}

func newTestApp(t *testing.T) (*fiber.App, store.Store) {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "votes.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	if err := st.Init(ctx); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	if err := st.SeedCategories(ctx, []models.Category{
		{Name: "Best Games", NameAr: "أفضل الألعاب", DisplayOrder: 1, IsRanked: true, Kind: models.KindGame},
		{Name: "Best Publisher", NameAr: "أفضل ناشر", DisplayOrder: 2, IsRanked: false, Kind: models.KindPublisher},
	}); err != nil {
		t.Fatalf("failed to seed categories: %v", err)
	}

	cfg := testConfig()
	svc := voting.NewService(st)
	pub := NewPublicController(st, svc, cfg)
	admin := NewAdminController(st, svc, export.NewExporter(st), cfg)

	app := fiber.New()

	app.Get("/categories", pub.GetCategories)
	app.Get("/games", pub.GetGames)
	app.Get("/suggestions", pub.GetSuggestions)
	app.Post("/check-name", pub.CheckName)
	app.Post("/check-vote", pub.CheckVote)
	app.Post("/submit", pub.Submit)
	app.Get("/user-results/:username", pub.UserResults)
	app.Post("/admin-login", admin.Login)

	gated := app.Group("/", middleware.RequireAdmin(cfg.JWTSecret))
	gated.Get("/admin/view-table", admin.ViewTable)
	gated.Delete("/admin/category/:id", admin.DeleteCategory)
	gated.Put("/admin/vote/:id", admin.EditVote)
	gated.Get("/download-excel", admin.DownloadExcel)

	return app, st
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, cookies ...*http.Cookie) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	resp.Body.Close()

	var parsed map[string]any
	if len(raw) > 0 && json.Valid(raw) {
		json.Unmarshal(raw, &parsed)
	}
	return resp, parsed
}

func aliceBallot() map[string]any {
	return map[string]any{
		"name": "alice",
		"votes": map[string][]string{
			"1": {"G1", "G2", "G3", "G4", "G5"},
			"2": {"Pub1"},
		},
	}
}

func TestSubmitEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/submit", aliceBallot())
	if resp.StatusCode != http.StatusOK || body["status"] != "success" {
		t.Fatalf("first submit: status %d body %v", resp.StatusCode, body)
	}

	resp, body = doJSON(t, app, http.MethodPost, "/submit", aliceBallot())
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("second submit: status %d, want 403", resp.StatusCode)
	}
	if body["status"] != "error" {
		t.Fatalf("second submit body: %v", body)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/submit", map[string]any{
		"name":  "bob",
		"votes": map[string][]string{"1": {"A", "B"}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("short ballot: status %d, want 400", resp.StatusCode)
	}
}

func TestCheckNameAndVote(t *testing.T) {
	app, _ := newTestApp(t)

	_, body := doJSON(t, app, http.MethodPost, "/check-name", map[string]any{"name": "adminU"})
	if body["status"] != "admin" {
		t.Fatalf("admin name: %v", body)
	}

	_, body = doJSON(t, app, http.MethodPost, "/check-vote", map[string]any{"name": "alice"})
	if body["status"] != "new" {
		t.Fatalf("unseen voter: %v", body)
	}

	if resp, _ := doJSON(t, app, http.MethodPost, "/submit", aliceBallot()); resp.StatusCode != http.StatusOK {
		t.Fatalf("submit failed with status %d", resp.StatusCode)
	}

	_, body = doJSON(t, app, http.MethodPost, "/check-name", map[string]any{"name": "alice"})
	if body["status"] != "exists" {
		t.Fatalf("voted name: %v", body)
	}

	_, body = doJSON(t, app, http.MethodPost, "/check-vote", map[string]any{"name": "alice"})
	if body["status"] != "exists" || body["vote_count"] != float64(6) {
		t.Fatalf("voted voter: %v", body)
	}
}

func TestUserResultsGrouping(t *testing.T) {
	app, _ := newTestApp(t)

	if resp, _ := doJSON(t, app, http.MethodPost, "/submit", aliceBallot()); resp.StatusCode != http.StatusOK {
		t.Fatalf("submit failed with status %d", resp.StatusCode)
	}

	resp, body := doJSON(t, app, http.MethodGet, "/user-results/alice", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "success" {
		t.Fatalf("user results: status %d body %v", resp.StatusCode, body)
	}
	results, ok := body["results"].([]any)
	if !ok || len(results) != 2 {
		t.Fatalf("expected 2 category groups, got %v", body["results"])
	}
	if body["total_voters"] != float64(1) {
		t.Fatalf("total_voters = %v, want 1", body["total_voters"])
	}
}

func adminLogin(t *testing.T, app *fiber.App) *http.Cookie {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/admin-login", map[string]any{"password": "secret"})
	if resp.StatusCode != http.StatusOK || body["status"] != "success" {
		t.Fatalf("login: status %d body %v", resp.StatusCode, body)
	}
	for _, c := range resp.Cookies() {
		if c.Name == middleware.AdminCookie {
			return c
		}
	}
	t.Fatal("login response did not set the admin cookie")
	return nil
}

func TestAdminGate(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/admin/view-table?table=games", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("ungated access: status %d, want 403", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/admin-login", map[string]any{"password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password: status %d, want 401", resp.StatusCode)
	}

	cookie := adminLogin(t, app)

	resp, body := doJSON(t, app, http.MethodGet, "/admin/view-table?table=games", nil, cookie)
	if resp.StatusCode != http.StatusOK || body["status"] != "success" {
		t.Fatalf("gated access with session: status %d body %v", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/admin/view-table?table=secrets", nil, cookie)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid table: status %d, want 400", resp.StatusCode)
	}
}

func TestAdminCategoryDeleteGuard(t *testing.T) {
	app, _ := newTestApp(t)
	cookie := adminLogin(t, app)

	if resp, _ := doJSON(t, app, http.MethodPost, "/submit", aliceBallot()); resp.StatusCode != http.StatusOK {
		t.Fatalf("submit failed with status %d", resp.StatusCode)
	}

	resp, _ := doJSON(t, app, http.MethodDelete, "/admin/category/1", nil, cookie)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("delete voted category: status %d, want 409", resp.StatusCode)
	}
}

func TestAdminVoteEditRankPolicy(t *testing.T) {
	app, st := newTestApp(t)
	cookie := adminLogin(t, app)

	if resp, _ := doJSON(t, app, http.MethodPost, "/submit", aliceBallot()); resp.StatusCode != http.StatusOK {
		t.Fatalf("submit failed with status %d", resp.StatusCode)
	}
	votes, err := st.VotesByVoter(context.Background(), "alice")
	if err != nil || len(votes) == 0 {
		t.Fatalf("failed to load votes: %v", err)
	}
	id := votes[0].ID

	resp, _ := doJSON(t, app, http.MethodPut, "/admin/vote/"+strconv.Itoa(id), map[string]any{"selection": "G9", "rank": 7}, cookie)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("out-of-range rank: status %d, want 400", resp.StatusCode)
	}

	// Moving onto a rank the voter already holds trips the unique key.
	resp, _ = doJSON(t, app, http.MethodPut, "/admin/vote/"+strconv.Itoa(id), map[string]any{"selection": "G9", "rank": 2}, cookie)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("conflicting rank: status %d, want 400", resp.StatusCode)
	}

	resp, body := doJSON(t, app, http.MethodPut, "/admin/vote/"+strconv.Itoa(id), map[string]any{"selection": "G9", "rank": 1}, cookie)
	if resp.StatusCode != http.StatusOK || body["status"] != "success" {
		t.Fatalf("valid edit: status %d body %v", resp.StatusCode, body)
	}
}

func TestDownloadExcel(t *testing.T) {
	app, _ := newTestApp(t)
	cookie := adminLogin(t, app)

	if resp, _ := doJSON(t, app, http.MethodPost, "/submit", aliceBallot()); resp.StatusCode != http.StatusOK {
		t.Fatalf("submit failed with status %d", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodGet, "/download-excel", nil)
	req.AddCookie(cookie)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download: status %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type %q", ct)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read payload: %v", err)
	}
	if len(payload) == 0 {
		t.Fatal("empty spreadsheet payload")
	}
}

