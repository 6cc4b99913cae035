package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/cablequotes-backend/internal/auth"
	"github.com/angelmondragon/cablequotes-backend/internal/comments"
	"github.com/angelmondragon/cablequotes-backend/internal/directory"
	"github.com/angelmondragon/cablequotes-backend/internal/notifications"
	"github.com/angelmondragon/cablequotes-backend/internal/queries"
	"github.com/angelmondragon/cablequotes-backend/internal/reports"
	cableresponses "github.com/angelmondragon/cablequotes-backend/internal/responses"
	"github.com/angelmondragon/cablequotes-backend/internal/users"
	pkgAuth "github.com/angelmondragon/cablequotes-backend/pkg/auth"
	"github.com/angelmondragon/cablequotes-backend/pkg/auth/session"
	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	"github.com/angelmondragon/cablequotes-backend/pkg/db"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cablequotes-backend/pkg/db/models"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
	"github.com/angelmondragon/cablequotes-backend/pkg/mailer"
	"github.com/angelmondragon/cablequotes-backend/pkg/metrics"
	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubSessions struct {
	live bool
}

func (s stubSessions) HasSession(context.Context, string) (bool, error) {
	return s.live, nil
}

func (stubSessions) Generate(context.Context, string, uuid.UUID) (string, error) {
	return "refresh", nil
}

func (stubSessions) Rotate(context.Context, string, string) (*session.Rotation, error) {
	return nil, session.ErrInvalidRefreshToken
}

func (stubSessions) Revoke(context.Context, string) error {
	return nil
}

type recordingNotifier struct {
	submitted int
	responded int
	weekly    []*mailer.Attachment
}

func (n *recordingNotifier) QuerySubmitted(context.Context, *models.Query) error {
	n.submitted++
	return nil
}

func (n *recordingNotifier) ResponsesRecorded(context.Context, *models.Query, []notifications.ResponsePair) error {
	n.responded++
	return nil
}

func (n *recordingNotifier) DailyReportReady(context.Context, *reports.Stats) error {
	return nil
}

func (n *recordingNotifier) WeeklyReportReady(_ context.Context, _ *reports.Stats, attachment *mailer.Attachment) error {
	n.weekly = append(n.weekly, attachment)
	return nil
}

type stubDirectory struct {
	snap directory.Snapshot
	err  error
}

func (d stubDirectory) Get() directory.Snapshot {
	return d.snap
}

func (d stubDirectory) Refresh(context.Context) (directory.Snapshot, error) {
	return d.snap, d.err
}

type harness struct {
	t        *testing.T
	cfg      *config.Config
	router   http.Handler
	conn     *gorm.DB
	notifier *recordingNotifier
	seller   *models.User
	admin    *models.User
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		Password: config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32},
	}
}

func newHarness(t *testing.T, deps func(*Deps)) *harness {
	t.Helper()
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	conn := dbtest.Open(t)
	tx := db.FromConn(conn)
	// Friday morning, Warsaw
	now := func() time.Time { return time.Date(2026, 6, 12, 10, 0, 0, 0, timeutil.Location()) }

	market := "Mazowsze"
	seller := &models.User{ID: uuid.New(), Username: "Jan Kowalski", Market: &market, PasswordHash: "x"}
	admin := &models.User{ID: uuid.New(), Username: "Logistyka", IsAdmin: true, CanDelete: true, PasswordHash: "x"}
	if err := conn.Create(seller).Error; err != nil {
		t.Fatalf("seed seller: %v", err)
	}
	if err := conn.Create(admin).Error; err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	userRepo := users.NewRepository(conn)
	queryRepo := queries.NewRepository(conn)
	notifier := &recordingNotifier{}

	authSvc, err := auth.NewService(auth.ServiceParams{UserRepo: userRepo, SessionManager: stubSessions{live: true}, JWTConfig: cfg.JWT, Password: cfg.Password, Logger: logg})
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	userSvc, err := users.NewService(users.ServiceParams{Repo: userRepo, Password: cfg.Password, Logger: logg})
	if err != nil {
		t.Fatalf("users service: %v", err)
	}
	querySvc, err := queries.NewService(queries.ServiceParams{Repo: queryRepo, Tx: tx, Users: userRepo, Notifier: notifier, Logger: logg, Now: now})
	if err != nil {
		t.Fatalf("query service: %v", err)
	}
	responseSvc, err := cableresponses.NewService(cableresponses.ServiceParams{
		Repo: cableresponses.NewRepository(conn), Queries: queryRepo, Tx: tx, Notifier: notifier, Logger: logg, Now: now,
	})
	if err != nil {
		t.Fatalf("response service: %v", err)
	}
	commentSvc, err := comments.NewService(comments.ServiceParams{Repo: comments.NewRepository(conn), Tx: tx, Logger: logg, Now: now})
	if err != nil {
		t.Fatalf("comment service: %v", err)
	}
	reportSvc, err := reports.NewService(queryRepo, logg, now)
	if err != nil {
		t.Fatalf("report service: %v", err)
	}

	registry := metrics.NewRegistry()
	metrics.NewNotificationMetrics(registry)

	d := Deps{
		DB:        stubPinger{},
		Sessions:  stubSessions{live: true},
		Metrics:   registry,
		Auth:      authSvc,
		Users:     userSvc,
		Queries:   querySvc,
		Responses: responseSvc,
		Comments:  commentSvc,
		Reports:   reportSvc,
		Notifier:  notifier,
		Directory: stubDirectory{snap: directory.Snapshot{
			Markets:      []string{"Mazowsze", "Śląsk"},
			Salespersons: map[string][]string{"Mazowsze": {"Jan Kowalski"}, "Śląsk": {"Ewa Nowak"}},
		}},
	}
	if deps != nil {
		deps(&d)
	}

	return &harness{
		t:        t,
		cfg:      cfg,
		router:   NewRouter(cfg, logg, d),
		conn:     conn,
		notifier: notifier,
		seller:   seller,
		admin:    admin,
	}
}

func (h *harness) token(u *models.User) string {
	h.t.Helper()
	token, err := pkgAuth.MintAccessToken(h.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:    u.ID,
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		CanDelete: u.CanDelete,
		JTI:       session.NewAccessID(),
	})
	if err != nil {
		h.t.Fatalf("mint token: %v", err)
	}
	return token
}

func (h *harness) do(method, path string, as *models.User, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+h.token(as))
	}
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)
	return resp
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, resp.Body.String())
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		t.Fatalf("decode data: %v (%s)", err, string(envelope.Data))
	}
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return payload.Error.Code
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	h := newHarness(t, nil)
	if resp := h.do(http.MethodGet, "/health/live", nil, nil); resp.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", resp.Code)
	}
	if resp := h.do(http.MethodGet, "/health/ready", nil, nil); resp.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", resp.Code)
	}

	down := newHarness(t, func(d *Deps) { d.DB = stubPinger{err: errors.New("connection refused")} })
	resp := down.do(http.MethodGet, "/health/ready", nil, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "connection refused") {
		t.Fatalf("expected failing dependency in details: %s", resp.Body.String())
	}
}

func TestProtectedRoutesRequireJWT(t *testing.T) {
	h := newHarness(t, nil)
	for _, path := range []string{"/api/v1/queries", "/api/v1/auth/me", "/api/v1/directory/markets"} {
		resp := h.do(http.MethodGet, path, nil, nil)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, resp.Code)
		}
	}
}

func TestRevokedSessionIsRejected(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.Sessions = stubSessions{live: false} })
	if resp := h.do(http.MethodGet, "/api/v1/queries", h.seller, nil); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	h := newHarness(t, nil)
	if resp := h.do(http.MethodGet, "/api/v1/admin/reports/weekly", h.seller, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	resp := h.do(http.MethodGet, "/api/v1/admin/reports/weekly?start=2026-06-01&end=2026-06-12", h.admin, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var stats reports.Stats
	decodeData(t, resp, &stats)
	if stats.EndDate.Hour() != 23 {
		t.Fatalf("end date should cover the whole day, got %s", stats.EndDate)
	}

	bad := h.do(http.MethodGet, "/api/v1/admin/reports/weekly?start=12.06.2026", h.admin, nil)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date got %d", bad.Code)
	}
}

func TestAuthMeReturnsProfile(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.do(http.MethodGet, "/api/v1/auth/me", h.seller, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var me users.UserDTO
	decodeData(t, resp, &me)
	if me.Username != "Jan Kowalski" || me.IsAdmin {
		t.Fatalf("unexpected profile %+v", me)
	}
}

func TestQueryLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t, nil)

	create := h.do(http.MethodPost, "/api/v1/queries", h.seller, map[string]any{
		"client":         "Elbud",
		"preferred_date": "2026-06-20",
		"cables": []map[string]any{
			{"cable_type": "YKY 5x10", "voltage": "0.6/1kV", "length": 100, "packaging": "pełne bębny"},
		},
	})
	if create.Code != http.StatusCreated {
		t.Fatalf("create: expected 201 got %d: %s", create.Code, create.Body.String())
	}
	var created queries.QueryDTO
	decodeData(t, create, &created)
	if created.Market != "Mazowsze" || len(created.Cables) != 1 {
		t.Fatalf("unexpected query %+v", created)
	}
	if h.notifier.submitted != 1 {
		t.Fatalf("expected submission notification, got %d", h.notifier.submitted)
	}
	base := "/api/v1/queries/" + created.ID.String()

	var feed []queries.FeedItem
	decodeData(t, h.do(http.MethodGet, "/api/v1/queries?status=pending", h.seller, nil), &feed)
	if len(feed) != 1 || feed[0].Query.ID != created.ID {
		t.Fatalf("expected query in pending feed, got %+v", feed)
	}

	if resp := h.do(http.MethodGet, base+"/responses/pending", h.seller, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("salesperson must not answer: got %d", resp.Code)
	}
	var pending []queries.CableDTO
	decodeData(t, h.do(http.MethodGet, base+"/responses/pending", h.admin, nil), &pending)
	if len(pending) != 1 {
		t.Fatalf("expected one pending cable, got %d", len(pending))
	}

	record := h.do(http.MethodPost, base+"/responses", h.admin, map[string]any{
		"responses": []map[string]any{{
			"cable_id":                 pending[0].ID,
			"price_per_meter_client":   "12,50",
			"price_per_meter_purchase": "10",
			"delivery_option":          "3dni",
			"validity_option":          "14dni",
		}},
	})
	if record.Code != http.StatusCreated {
		t.Fatalf("record: expected 201 got %d: %s", record.Code, record.Body.String())
	}
	var answered queries.FeedItem
	decodeData(t, record, &answered)
	if !answered.IsFullyResponded {
		t.Fatalf("expected query to be fully responded")
	}
	if h.notifier.responded != 1 {
		t.Fatalf("expected response notification")
	}

	again := h.do(http.MethodPost, base+"/responses", h.admin, map[string]any{
		"responses": []map[string]any{{"cable_id": pending[0].ID, "price_per_meter_client": "1", "price_per_meter_purchase": "1", "delivery_option": "1dni", "validity_option": "1dni"}},
	})
	if again.Code != http.StatusUnprocessableEntity || errorCode(t, again) != "STATE_CONFLICT" {
		t.Fatalf("expected state conflict, got %d %s", again.Code, again.Body.String())
	}

	edit := map[string]any{
		"client":         "Elbud",
		"preferred_date": "2026-06-20",
		"cables":         []map[string]any{{"cable_type": "YKY 5x16", "length": 50, "packaging": "dokładne odcinki"}},
	}
	if resp := h.do(http.MethodPut, base, h.seller, edit); resp.Code != http.StatusForbidden {
		t.Fatalf("editing an answered query: expected 403 got %d", resp.Code)
	}

	if resp := h.do(http.MethodPatch, base+"/sale-status", h.seller, map[string]any{"is_won": true}); resp.Code != http.StatusOK {
		t.Fatalf("sale status: expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	commentResp := h.do(http.MethodPost, base+"/comments", h.seller, map[string]any{"content": "Klient pyta o termin"})
	if commentResp.Code != http.StatusCreated {
		t.Fatalf("comment: expected 201 got %d: %s", commentResp.Code, commentResp.Body.String())
	}
	var comment map[string]any
	decodeData(t, commentResp, &comment)
	var oneRead map[string]any
	decodeData(t, h.do(http.MethodPut, base+"/comments/"+comment["id"].(string)+"/read", h.admin, map[string]any{"is_read": true}), &oneRead)
	if oneRead["is_read"] != true {
		t.Fatalf("expected comment marked read, got %v", oneRead)
	}
	decodeData(t, h.do(http.MethodPut, base+"/comments/"+comment["id"].(string)+"/read", h.admin, map[string]any{"is_read": false}), &oneRead)
	var readResult map[string]any
	decodeData(t, h.do(http.MethodPost, base+"/comments/read", h.admin, nil), &readResult)
	if readResult["updated"] != float64(1) {
		t.Fatalf("expected one comment marked read, got %v", readResult)
	}

	dup := h.do(http.MethodPost, base+"/duplicate", h.seller, nil)
	if dup.Code != http.StatusCreated {
		t.Fatalf("duplicate: expected 201 got %d", dup.Code)
	}

	if resp := h.do(http.MethodDelete, base, h.seller, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("delete without permission: expected 403 got %d", resp.Code)
	}
	var deleted map[string]any
	decodeData(t, h.do(http.MethodDelete, base, h.admin, nil), &deleted)
	if deleted["cables"] != float64(1) || deleted["responses"] != float64(1) || deleted["comments"] != float64(1) {
		t.Fatalf("unexpected delete counts %v", deleted)
	}
	if resp := h.do(http.MethodGet, base, h.seller, nil); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete got %d", resp.Code)
	}
}

func TestQueryCreateReturnsFieldErrors(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.do(http.MethodPost, "/api/v1/queries", h.seller, map[string]any{
		"client":         "E",
		"preferred_date": "2026-06-01",
		"cables":         []map[string]any{},
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Details["client"] == "" || payload.Error.Details["preferred_date"] == "" {
		t.Fatalf("expected client and preferred_date errors, got %v", payload.Error.Details)
	}
}

func TestDirectoryRoutes(t *testing.T) {
	h := newHarness(t, nil)
	var markets []string
	decodeData(t, h.do(http.MethodGet, "/api/v1/directory/markets", h.seller, nil), &markets)
	if len(markets) != 2 {
		t.Fatalf("unexpected markets %v", markets)
	}

	var names []string
	decodeData(t, h.do(http.MethodGet, "/api/v1/directory/markets/"+url.PathEscape("Śląsk")+"/salespersons", h.seller, nil), &names)
	if len(names) != 1 || names[0] != "Ewa Nowak" {
		t.Fatalf("unexpected salespersons %v", names)
	}

	if resp := h.do(http.MethodPost, "/api/v1/admin/directory/refresh", h.seller, nil); resp.Code != http.StatusForbidden {
		t.Fatalf("refresh as salesperson: expected 403 got %d", resp.Code)
	}

	failing := newHarness(t, func(d *Deps) { d.Directory = stubDirectory{err: errors.New("sheet missing")} })
	if resp := failing.do(http.MethodPost, "/api/v1/admin/directory/refresh", failing.admin, nil); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("failed refresh: expected 503 got %d", resp.Code)
	}
}

func TestWeeklyReportSendAttachesWorkbook(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.do(http.MethodPost, "/api/v1/admin/reports/weekly/send", h.admin, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(h.notifier.weekly) != 1 || !strings.HasSuffix(h.notifier.weekly[0].Filename, ".xlsx") {
		t.Fatalf("expected workbook attachment, got %+v", h.notifier.weekly)
	}

	download := h.do(http.MethodGet, "/api/v1/admin/reports/weekly.xlsx", h.admin, nil)
	if download.Code != http.StatusOK {
		t.Fatalf("download: expected 200 got %d", download.Code)
	}
	if got := download.Header().Get("Content-Type"); got != reports.WorkbookContentType {
		t.Fatalf("unexpected content type %s", got)
	}
}

func TestMetricsEndpointIsExposed(t *testing.T) {
	h := newHarness(t, func(d *Deps) {
		reg := prometheus.NewRegistry()
		metrics.NewCronJobMetrics(reg).IncSuccess("query-reminders")
		d.Metrics = reg
	})
	resp := h.do(http.MethodGet, "/metrics", nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "cablequotes_cron_job_success_total") {
		t.Fatalf("expected cron metrics in exposition")
	}
}

func TestReminderReportValidatesHours(t *testing.T) {
	h := newHarness(t, nil)
	bad := h.do(http.MethodGet, "/api/v1/admin/reports/reminders?hours=soon", h.admin, nil)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", bad.Code)
	}
	if !strings.Contains(bad.Body.String(), `"hours"`) {
		t.Fatalf("expected hours field error: %s", bad.Body.String())
	}

	var rows []reports.UnansweredQuery
	decodeData(t, h.do(http.MethodGet, "/api/v1/admin/reports/reminders?hours=1", h.admin, nil), &rows)
	if len(rows) != 0 {
		t.Fatalf("expected no reminders on an empty database, got %d", len(rows))
	}
}
