package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-mes/internal/config"
	"github.com/bitfantasy/nimo-mes/internal/middleware"
	"github.com/bitfantasy/nimo-mes/internal/model/entity"
	"github.com/bitfantasy/nimo-mes/internal/repository"
	"github.com/bitfantasy/nimo-mes/internal/service"
)

type memStore struct {
	snap    *entity.Snapshot
	version int64
}

func (s *memStore) Fetch(ctx context.Context) (*entity.Snapshot, int64, error) {
	return s.snap.Clone(), s.version, nil
}

func (s *memStore) Save(ctx context.Context, snap *entity.Snapshot, expected, next int64) error {
	if s.version != expected {
		return repository.ErrVersionMismatch
	}
	s.snap = snap.Clone()
	s.version = next
	return nil
}

func testSnapshot() *entity.Snapshot {
	return &entity.Snapshot{
		Cards: []entity.Card{{
			ID:        "c1",
			Name:      "Drive shaft",
			CreatedAt: 1700000000000,
			Attachments: []entity.Attachment{{
				ID:          "f1",
				Name:        "drawing.txt",
				ContentType: "text/plain",
				Content:     base64.StdEncoding.EncodeToString([]byte("blueprint")),
			}},
		}},
		Ops:     []entity.OperationType{{ID: "op1", Code: "OP-AAAA", Name: "Milling"}},
		Centers: []entity.WorkCenter{{ID: "wc1", Name: "Machining"}},
	}
}

func newTestRouter(t *testing.T, store *memStore, authToken string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	state := service.NewStateService(store, logger)
	auth := service.NewAuthService(
		config.AuthConfig{Token: authToken},
		config.JWTConfig{Secret: "test-secret", Issuer: "nimo-mes"},
		nil,
	)
	backup := service.NewBackupService(config.BackupConfig{Dir: t.TempDir(), Limit: 3}, nil, "", logger)

	stateHandler := NewStateHandler(state, backup)
	fileHandler := NewFileHandler(service.NewFileService(state))
	exportHandler := NewExportHandler(state, service.NewExportService())

	r := gin.New()
	v1 := r.Group("/api/v1")
	authorized := v1.Group("")
	authorized.Use(middleware.TokenAuth(auth))
	{
		authorized.GET("/state", stateHandler.Get)
		authorized.POST("/state", middleware.CSRF(auth), stateHandler.Put)
		authorized.GET("/files/:id", fileHandler.Get)
		authorized.GET("/export/cards.xlsx", exportHandler.Cards)
	}
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetState(t *testing.T) {
	store := &memStore{snap: testSnapshot(), version: 5}
	r := newTestRouter(t, store, "")

	w := doJSON(r, http.MethodGet, "/api/v1/state", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int             `json:"code"`
		Data entity.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, int64(5), resp.Data.Version)
	assert.Len(t, resp.Data.Cards, 1)
}

func TestPutState_Success(t *testing.T) {
	store := &memStore{snap: testSnapshot(), version: 1}
	r := newTestRouter(t, store, "")

	body := gin.H{
		"version": 1,
		"cards":   []gin.H{{"id": "c1", "name": "Drive shaft v2"}},
		"ops":     []gin.H{},
		"centers": []gin.H{},
	}
	w := doJSON(r, http.MethodPost, "/api/v1/state", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			Version int64 `json:"version"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Data.Version)
	assert.Equal(t, int64(2), store.version)

	// Server-owned createdAt survived the rewrite attempt.
	assert.Equal(t, int64(1700000000000), store.snap.Cards[0].CreatedAt)
	assert.Equal(t, "Drive shaft v2", store.snap.Cards[0].Name)
}

func TestPutState_VersionConflict(t *testing.T) {
	store := &memStore{snap: testSnapshot(), version: 4}
	r := newTestRouter(t, store, "")

	body := gin.H{"version": 2, "cards": []gin.H{}, "ops": []gin.H{}, "centers": []gin.H{}}
	w := doJSON(r, http.MethodPost, "/api/v1/state", body, nil)
	require.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			ExpectedVersion int64 `json:"expectedVersion"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 40900, resp.Code)
	assert.Equal(t, int64(4), resp.Data.ExpectedVersion)
}

func TestPutState_MissingVersion(t *testing.T) {
	store := &memStore{snap: testSnapshot(), version: 1}
	r := newTestRouter(t, store, "")

	w := doJSON(r, http.MethodPost, "/api/v1/state", gin.H{"cards": []gin.H{}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutState_NonPositiveVersion(t *testing.T) {
	store := &memStore{snap: testSnapshot(), version: 1}
	r := newTestRouter(t, store, "")

	// Zero and negative claims are malformed input, not stale versions.
	for _, version := range []int64{0, -7} {
		body := gin.H{"version": version, "cards": []gin.H{}, "ops": []gin.H{}, "centers": []gin.H{}}
		w := doJSON(r, http.MethodPost, "/api/v1/state", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "version %d", version)
	}
	assert.Equal(t, int64(1), store.version)
}

func TestPutState_MalformedBody(t *testing.T) {
	store := &memStore{snap: testSnapshot(), version: 1}
	r := newTestRouter(t, store, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/state", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutState_ValidationFailure(t *testing.T) {
	store := &memStore{snap: testSnapshot(), version: 1}
	r := newTestRouter(t, store, "")

	cards := make([]gin.H, 501)
	for i := range cards {
		cards[i] = gin.H{"id": fmt.Sprintf("c%d", i)}
	}
	body := gin.H{"version": 1, "cards": cards}
	w := doJSON(r, http.MethodPost, "/api/v1/state", body, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(1), store.version)
}

func TestGetFile(t *testing.T) {
	store := &memStore{snap: testSnapshot(), version: 1}
	r := newTestRouter(t, store, "")

	w := doJSON(r, http.MethodGet, "/api/v1/files/f1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "blueprint", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestGetFile_NotFound(t *testing.T) {
	store := &memStore{snap: testSnapshot(), version: 1}
	r := newTestRouter(t, store, "")

	w := doJSON(r, http.MethodGet, "/api/v1/files/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportCards(t *testing.T) {
	store := &memStore{snap: testSnapshot(), version: 1}
	r := newTestRouter(t, store, "")

	w := doJSON(r, http.MethodGet, "/api/v1/export/cards.xlsx", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PK", w.Body.String()[:2])
}

func TestAuth_RequiredWhenConfigured(t *testing.T) {
	store := &memStore{snap: testSnapshot(), version: 1}
	r := newTestRouter(t, store, "s3cret")

	w := doJSON(r, http.MethodGet, "/api/v1/state", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/state", nil, map[string]string{
		"Authorization": "Bearer s3cret",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/state", nil, map[string]string{
		"X-Auth-Token": "s3cret",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/state", nil, map[string]string{
		"Authorization": "Bearer wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCSRF_RequiredForWrites(t *testing.T) {
	store := &memStore{snap: testSnapshot(), version: 1}
	r := newTestRouter(t, store, "s3cret")

	body := gin.H{"version": 1, "cards": []gin.H{}, "ops": []gin.H{}, "centers": []gin.H{}}
	w := doJSON(r, http.MethodPost, "/api/v1/state", body, map[string]string{
		"Authorization": "Bearer s3cret",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCSRF_SkippedOnOpenInstance(t *testing.T) {
	store := &memStore{snap: testSnapshot(), version: 1}
	r := newTestRouter(t, store, "")

	body := gin.H{"version": 1, "cards": []gin.H{}, "ops": []gin.H{}, "centers": []gin.H{}}
	w := doJSON(r, http.MethodPost, "/api/v1/state", body, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
