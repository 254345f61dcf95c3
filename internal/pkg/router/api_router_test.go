package router

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TazaQala/app/controllers"
	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/app/repository/repositorytest"
	"github.com/ManuelReschke/TazaQala/internal/pkg/accounts"
	"github.com/ManuelReschke/TazaQala/internal/pkg/config"
	"github.com/ManuelReschke/TazaQala/internal/pkg/lifecycle"
	"github.com/ManuelReschke/TazaQala/internal/pkg/metrics"
	"github.com/ManuelReschke/TazaQala/internal/pkg/moderation"
	"github.com/ManuelReschke/TazaQala/internal/pkg/rewards"
	"github.com/ManuelReschke/TazaQala/internal/pkg/statistics"
	"github.com/ManuelReschke/TazaQala/internal/pkg/upload"
)

type fixedGateway struct{ res moderation.Result }

func (g fixedGateway) Analyze(context.Context, string) (moderation.Result, error) { return g.res, nil }
func (g fixedGateway) Name() string                                              { return "fixed" }

type testServer struct {
	app   *fiber.App
	store *repositorytest.Store
	keys  map[string]string
	ids   map[string]uint
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repositorytest.NewStore()
	m := metrics.New()
	cfg := config.Default()
	gw := moderation.NewGuarded(fixedGateway{res: moderation.Result{
		Confidence: 0.7, Status: models.AIStatusNeedsReview, Category: models.CategoryMixed, Raw: "{}",
	}}, time.Second, m)

	api := &controllers.API{
		Reports:       lifecycle.NewService(store, gw, cfg, m),
		Rewards:       rewards.NewService(store, m),
		Stats:         statistics.NewService(store.Repos().Stats, nil, time.Minute),
		Accounts:      accounts.NewService(store),
		Notifications: store.Repos().Notification,
		Uploads:       upload.NewStore(t.TempDir()),
	}

	app := fiber.New()
	InstallRouter(app, NewHttpRouter(m, "", ""), NewApiRouter(api, store.Repos().User, nil, nil, 0))

	s := &testServer{app: app, store: store, keys: map[string]string{}, ids: map[string]uint{}}
	for name, u := range map[string]models.User{
		"admin":     {Role: models.ROLE_ADMIN},
		"moderator": {Role: models.ROLE_MODERATOR},
		"cleaner":   {Role: models.ROLE_CITIZEN, IsCleaner: true},
		"citizen":   {Role: models.ROLE_CITIZEN},
	} {
		u.Name = name
		u.Email = name + "@example.com"
		raw, err := u.IssueAPIKey()
		require.NoError(t, err)
		s.ids[name] = store.AddUser(u)
		s.keys[name] = raw
	}
	return s
}

func (s *testServer) do(t *testing.T, who, method, path string, body io.Reader, contentType string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if who != "" {
		req.Header.Set("X-API-Key", s.keys[who])
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return resp.StatusCode, out
}

func (s *testServer) json(t *testing.T, who, method, path, body string) (int, map[string]any) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return s.do(t, who, method, path, r, fiber.MIMEApplicationJSON)
}

func pngFile(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, data := range files {
		fw, err := w.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (s *testServer) submit(t *testing.T, who string) uint {
	t.Helper()
	body, ct := multipartBody(t, map[string]string{
		"latitude": "43.238", "longitude": "76.945", "district": "Almaly", "description": "bottles",
	}, map[string][]byte{"photo": pngFile(t)})
	status, out := s.do(t, who, http.MethodPost, "/api/v1/reports", body, ct)
	require.Equal(t, fiber.StatusCreated, status, out)
	return uint(out["id"].(float64))
}

func TestReportWorkflowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	id := s.submit(t, "citizen")
	path := "/api/v1/reports/" + itoa(id)

	status, out := s.json(t, "", http.MethodGet, path, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, models.ReportStatusPending, out["status"])

	status, _ = s.json(t, "citizen", http.MethodPost, path+"/take", "")
	assert.Equal(t, fiber.StatusForbidden, status)

	status, out = s.json(t, "moderator", http.MethodPost, path+"/take", `{"comment":"on it"}`)
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Equal(t, models.ReportStatusInProgress, out["status"])

	body, ct := multipartBody(t, nil, map[string][]byte{"after_photo": pngFile(t)})
	status, out = s.do(t, "cleaner", http.MethodPost, path+"/cleanup", body, ct)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "missing_artifact", out["error"])

	body, ct = multipartBody(t, nil, map[string][]byte{"after_photo": pngFile(t), "disposal_photo": pngFile(t)})
	status, out = s.do(t, "cleaner", http.MethodPost, path+"/cleanup", body, ct)
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Equal(t, models.ReportStatusPendingVerification, out["status"])

	status, _ = s.json(t, "moderator", http.MethodPost, path+"/cleanup/approve", "")
	assert.Equal(t, fiber.StatusForbidden, status)

	status, out = s.json(t, "admin", http.MethodPost, path+"/cleanup/approve", "")
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Equal(t, models.ReportStatusCleaned, out["status"])

	status, out = s.json(t, "admin", http.MethodPost, path+"/cleanup/approve", "")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "invalid_transition", out["error"])

	assert.Equal(t, config.Default().Points.CleanupReward, s.store.User(s.ids["cleaner"]).TotalPoints)
}

func TestSubmitValidation(t *testing.T) {
	s := newTestServer(t)

	body, ct := multipartBody(t, map[string]string{"latitude": "43.2", "longitude": "76.9"}, nil)
	status, _ := s.do(t, "", http.MethodPost, "/api/v1/reports", body, ct)
	assert.Equal(t, fiber.StatusBadRequest, status)

	body, ct = multipartBody(t, map[string]string{"latitude": "120", "longitude": "76.9"}, map[string][]byte{"photo": pngFile(t)})
	status, out := s.do(t, "", http.MethodPost, "/api/v1/reports", body, ct)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", out["error"])

	body, ct = multipartBody(t, map[string]string{"latitude": "43.2", "longitude": "76.9"}, map[string][]byte{"photo": []byte("<html></html>")})
	status, _ = s.do(t, "", http.MethodPost, "/api/v1/reports", body, ct)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAuthAndNotFound(t *testing.T) {
	s := newTestServer(t)
	id := s.submit(t, "")

	status, _ := s.json(t, "", http.MethodPost, "/api/v1/reports/"+itoa(id)+"/upvote", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, out := s.json(t, "citizen", http.MethodPost, "/api/v1/reports/"+itoa(id)+"/upvote", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, out["upvoted"])

	status, _ = s.json(t, "", http.MethodGet, "/api/v1/reports/9999", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = s.json(t, "", http.MethodGet, "/api/v1/reports/abc", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.json(t, "citizen", http.MethodGet, "/api/v1/admin/users", "")
	assert.Equal(t, fiber.StatusForbidden, status)

	status, out = s.json(t, "admin", http.MethodGet, "/api/v1/admin/users", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 4, out["total"])

	status, _ = s.json(t, "", http.MethodGet, "/api/v1/reports?status=bogus", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestMyReportsAndUUIDLookup(t *testing.T) {
	s := newTestServer(t)
	mine := []uint{s.submit(t, "citizen"), s.submit(t, "citizen")}
	s.submit(t, "cleaner")
	s.submit(t, "")

	status, _ := s.json(t, "", http.MethodGet, "/api/v1/me/reports", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, out := s.json(t, "citizen", http.MethodGet, "/api/v1/me/reports", "")
	require.Equal(t, fiber.StatusOK, status, out)
	assert.EqualValues(t, 2, out["count"])
	got := []uint{}
	for _, r := range out["reports"].([]any) {
		got = append(got, uint(r.(map[string]any)["id"].(float64)))
	}
	assert.ElementsMatch(t, mine, got)

	status, out = s.json(t, "admin", http.MethodGet, "/api/v1/me/reports", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 0, out["count"])

	_, out = s.json(t, "", http.MethodGet, "/api/v1/reports/"+itoa(mine[0]), "")
	ref := out["uuid"].(string)
	require.NotEmpty(t, ref)

	status, out = s.json(t, "", http.MethodGet, "/api/v1/reports/"+ref, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, mine[0], out["id"])

	status, _ = s.json(t, "", http.MethodGet, "/api/v1/reports/0b7e7a7c-3f55-4b0e-9d7a-2a9d1b0c4e11", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRewardsAndNotificationsOverHTTP(t *testing.T) {
	s := newTestServer(t)

	status, out := s.json(t, "admin", http.MethodPost, "/api/v1/admin/rewards", `{"title":"Coffee","points_cost":10,"quantity":1}`)
	require.Equal(t, fiber.StatusCreated, status, out)
	rewardPath := "/api/v1/rewards/" + itoa(uint(out["id"].(float64))) + "/redeem"

	status, out = s.json(t, "citizen", http.MethodPost, rewardPath, "")
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "insufficient_balance", out["error"])

	s.submit(t, "citizen") // +15 points

	status, out = s.json(t, "citizen", http.MethodPost, rewardPath, "")
	require.Equal(t, fiber.StatusCreated, status, out)
	assert.Equal(t, models.RedemptionStatusPending, out["status"])

	status, out = s.json(t, "citizen", http.MethodPost, rewardPath, "")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "reward_unavailable", out["error"])

	status, out = s.json(t, "citizen", http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, out["unread"])

	status, out = s.json(t, "citizen", http.MethodPost, "/api/v1/notifications/read-all", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, out["updated"])

	status, out = s.json(t, "citizen", http.MethodGet, "/api/v1/me", "")
	require.Equal(t, fiber.StatusOK, status)
	points := out["points"].(map[string]any)
	assert.EqualValues(t, 5, points["balance"])
	assert.EqualValues(t, 10, points["spent"])
}

func TestInfrastructureRoutes(t *testing.T) {
	s := newTestServer(t)

	status, out := s.json(t, "", http.MethodGet, "/health", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", out["status"])

	status, _ = s.do(t, "", http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, fiber.StatusOK, status)

	status, out = s.json(t, "", http.MethodGet, "/api/v1/stats", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, out, "by_status")
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
