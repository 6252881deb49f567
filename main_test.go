package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"invite-digest/config"
	"invite-digest/models"
	"invite-digest/services"
	"invite-digest/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		FoodTypeDefault:        "Local Cuisine",
		DescriptionPlaceholder: "Join us for a great dining experience!",
		RatingPlaceholder:      "Not specified",
		LooseKeyMatch:          true,
	}
}

func newTestRouter(cfg *config.Config, source storage.Source) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	store := services.NewFieldMapStore(logger, source)
	svc := services.NewTransformService(logger, store, services.OptionsFromConfig(cfg))
	return newRouter(cfg, svc, store, logger)
}

func doRequest(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTransformEndpoint(t *testing.T) {
	router := newTestRouter(testConfig(), nil)

	inner, _ := json.Marshal(map[string]any{
		"output":         "Slow-smoked brisket.\n\n**Rating:** 4.6",
		"foodType":       "BBQ",
		"friend_message": "Wear stretchy pants",
	})
	outer, _ := json.Marshal(map[string]any{"raw_body": string(inner)})
	body, _ := json.Marshal(map[string]any{
		"Restaurant": "Maple & Smoke",
		"Max Words":  25,
		"raw_output": string(outer),
		"Emails":     []string{"sam@example.com"},
	})

	w := doRequest(router, http.MethodPost, "/transform", string(body), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	for _, key := range models.OutputKeys {
		assert.Contains(t, out, key)
	}
	assert.Equal(t, "Slow-smoked brisket.", out["description"])
	assert.Equal(t, "Slow-smoked brisket.", out["gemini_description"])
	assert.Equal(t, "4.6", out["rating_score"])
	assert.Equal(t, "4.6", out["rating"])
	assert.Equal(t, "BBQ", out["food_type"])
	assert.Equal(t, "BBQ", out["foodType"])
	assert.Equal(t, "Wear stretchy pants", out["friend_message"])
	assert.Equal(t, "Maple & Smoke", out["restaurant"])
	assert.Equal(t, "25", out["max_words"])
	assert.Equal(t, []any{"sam@example.com"}, out["emails"])
	assert.Equal(t, "", out["event_name"])
}

func TestTransformEndpointEmptyObject(t *testing.T) {
	router := newTestRouter(testConfig(), nil)

	w := doRequest(router, http.MethodPost, "/transform", `{}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "Local Cuisine", out["food_type"])
	assert.Equal(t, "Not specified", out["rating_score"])
	assert.Equal(t, "Join us for a great dining experience!", out["description"])
	assert.Equal(t, []any{}, out["emails"])
}

func TestTransformEndpointRejectsNonObjects(t *testing.T) {
	router := newTestRouter(testConfig(), nil)

	for _, body := range []string{`{broken`, `[1,2,3]`, `"text"`, ``, `{"Food Type":"Thai"} {}`, `{"Food Type":"Thai"} junk`} {
		w := doRequest(router, http.MethodPost, "/transform", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}

func TestTransformEndpointBodyLimit(t *testing.T) {
	router := newTestRouter(testConfig(), nil)

	body := `{"Output":"` + strings.Repeat("a", maxRecordBytes) + `"}`
	w := doRequest(router, http.MethodPost, "/transform", body, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestAPIKeyMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.APISecretKey = "s3cret"
	router := newTestRouter(cfg, nil)

	w := doRequest(router, http.MethodPost, "/transform", `{}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodPost, "/transform", `{}`, map[string]string{"X-API-KEY": "s3cret"})
	assert.Equal(t, http.StatusOK, w.Code)

	// health and metrics stay open
	w = doRequest(router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doRequest(router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFieldMapRoutes(t *testing.T) {
	w := doRequest(newTestRouter(testConfig(), nil), http.MethodPost, "/field-map/reload", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	path := filepath.Join(t.TempDir(), "field-map.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  restaurant:\n    keys: [\"Venue\"]\n"), 0600))
	router := newTestRouter(testConfig(), storage.NewFileSource(path))

	w = doRequest(router, http.MethodPost, "/field-map/reload", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/field-map", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fm config.FieldMap
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fm))
	assert.Equal(t, []string{"Venue"}, fm.Fields[config.FieldRestaurant].Keys)

	w = doRequest(router, http.MethodPost, "/transform", `{"venue":"Saffron Lounge"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"restaurant":"Saffron Lounge"`)

	require.NoError(t, os.WriteFile(path, []byte("fields: ["), 0600))
	w = doRequest(router, http.MethodPost, "/field-map/reload", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
