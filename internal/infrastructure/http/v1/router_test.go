package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"majifix/internal/core/entity"
	"majifix/internal/core/id"
	"majifix/internal/core/locale"
	"majifix/internal/domain/reference"
	"majifix/internal/domain/service"
	"majifix/internal/infrastructure/storage/memory"
)

type testAPI struct {
	router  http.Handler
	repo    *memory.ServiceRepo
	manager *service.Manager

	jurisdiction *reference.Jurisdiction
	group        *reference.ServiceGroup
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	api := &testAPI{
		repo: memory.NewServiceRepo(),
	}

	refs := memory.NewReferenceStore()
	api.jurisdiction = &reference.Jurisdiction{
		Base:  entity.NewBase(),
		Code:  "MJF",
		Name:  locale.Localized{"en": "Majifix Municipal"},
		Color: "#0A6EBD",
	}
	refs.AddJurisdiction(api.jurisdiction)

	api.group = &reference.ServiceGroup{
		Base:           entity.NewBase(),
		JurisdictionID: &api.jurisdiction.ID,
		Code:           "WS",
		Name:           locale.Localized{"en": "Water Supply"},
		Color:          "#2196F3",
	}
	refs.AddGroup(api.group)

	locales := locale.Config{Default: "en", Supported: []string{"en", "sw"}}
	api.manager = service.NewManager(service.Config{
		Repo:       api.repo,
		References: refs,
		Locales:    locales,
	})

	api.router = NewRouter(RouterConfig{
		Services: api.manager,
		Locales:  locales,
	})
	return api
}

func (api *testAPI) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	return w
}

func (api *testAPI) mustCreate(t *testing.T, name, code string, external bool) map[string]any {
	t.Helper()

	payload := map[string]any{
		"group": api.group.ID.String(),
		"name":  map[string]string{"en": name},
		"flags": map[string]bool{"external": external},
	}
	if code != "" {
		payload["code"] = code
	}

	w := api.do(t, http.MethodPost, PathPrefix+"/services", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

type listEnvelope struct {
	Data  []map[string]any `json:"data"`
	Total int64            `json:"total"`
	Size  int              `json:"size"`
	Limit int              `json:"limit"`
	Skip  int              `json:"skip"`
	Page  int              `json:"page"`
	Pages int              `json:"pages"`
}

func TestCreateService(t *testing.T) {
	api := newTestAPI(t)

	resp := api.mustCreate(t, "Water Leakage", "", true)

	assert.Equal(t, "W", resp["code"])
	assert.NotEmpty(t, resp["color"])

	group, ok := resp["group"].(map[string]any)
	require.True(t, ok, "group should be populated")
	assert.Equal(t, "WS", group["code"])

	jurisdiction, ok := resp["jurisdiction"].(map[string]any)
	require.True(t, ok, "jurisdiction should be inherited from group")
	assert.Equal(t, "MJF", jurisdiction["code"])
}

func TestCreateService_Validation(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, PathPrefix+"/services", map[string]any{
		"name": map[string]string{"en": "Orphan"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.NotEmpty(t, resp["message"])
	assert.NotNil(t, resp["error"])
}

func TestListServices_Pagination(t *testing.T) {
	api := newTestAPI(t)

	for i := 0; i < 32; i++ {
		api.mustCreate(t, fmt.Sprintf("Service %02d", i), fmt.Sprintf("S%02d", i), false)
	}

	w := api.do(t, http.MethodGet, PathPrefix+"/services", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var env listEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, int64(32), env.Total)
	assert.Equal(t, 10, env.Size)
	assert.Equal(t, 10, env.Limit)
	assert.Equal(t, 1, env.Page)
	assert.Equal(t, 4, env.Pages)

	w = api.do(t, http.MethodGet, PathPrefix+"/services?page=4&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, 2, env.Size)
	assert.Equal(t, 4, env.Page)
	assert.Equal(t, 30, env.Skip)
}

func TestGetService_NotFound(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, PathPrefix+"/services/"+id.New().String(), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
}

func TestPatchService(t *testing.T) {
	api := newTestAPI(t)

	created := api.mustCreate(t, "Water Leakage", "", false)
	serviceID := created["id"].(string)

	w := api.do(t, http.MethodPatch, PathPrefix+"/services/"+serviceID, map[string]any{
		"sla": map[string]any{"ttr": 24},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	sla := resp["sla"].(map[string]any)
	assert.Equal(t, float64(24), sla["ttr"])

	// Untouched fields survive the patch
	assert.Equal(t, "W", resp["code"])
}

func TestDeleteService_BlockedByDependents(t *testing.T) {
	api := newTestAPI(t)

	created := api.mustCreate(t, "Water Leakage", "", false)
	serviceID := id.MustParse(created["id"].(string))
	api.repo.SetDependents(serviceID, 3)

	w := api.do(t, http.MethodDelete, PathPrefix+"/services/"+serviceID.String(), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Fail to Delete. 3 service requests depend on it", resp["message"])
}

func TestDeleteService_ReturnsRecord(t *testing.T) {
	api := newTestAPI(t)

	created := api.mustCreate(t, "Water Leakage", "", false)
	serviceID := created["id"].(string)

	w := api.do(t, http.MethodDelete, PathPrefix+"/services/"+serviceID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, serviceID, resp["id"])
	assert.NotEmpty(t, resp["deletedAt"])

	w = api.do(t, http.MethodGet, PathPrefix+"/services/"+serviceID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOpen311Services(t *testing.T) {
	api := newTestAPI(t)

	api.mustCreate(t, "Water Leakage", "", true)
	api.mustCreate(t, "Meter Audit", "MA", false)

	w := api.do(t, http.MethodGet, PathPrefix+"/open311/services", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var services []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &services))
	require.Len(t, services, 1)

	assert.Equal(t, "W", services[0]["service_code"])
	assert.Equal(t, "Water Leakage", services[0]["service_name"])
	assert.Equal(t, "realtime", services[0]["type"])
	assert.Equal(t, false, services[0]["metadata"])
	assert.Equal(t, "Water Supply", services[0]["group"])

	// The suffixed form answers identically
	w = api.do(t, http.MethodGet, PathPrefix+"/open311/services.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &services))
	require.Len(t, services, 1)
	assert.Equal(t, "W", services[0]["service_code"])
}

func TestServiceSchema(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, PathPrefix+"/services/schema", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schema))
	assert.Equal(t, "Service", schema["title"])
	assert.Contains(t, schema, "properties")
}

func TestExportServices(t *testing.T) {
	api := newTestAPI(t)

	api.mustCreate(t, "Water Leakage", "", true)
	api.mustCreate(t, "Meter Audit", "MA", false)

	w := api.do(t, http.MethodGet, PathPrefix+"/services/export", nil,
		"Accept-Encoding", "gzip")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "services_exports_")

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "code,name")
}

func TestListByJurisdiction(t *testing.T) {
	api := newTestAPI(t)

	api.mustCreate(t, "Water Leakage", "", true)

	w := api.do(t, http.MethodGet, PathPrefix+"/jurisdictions/"+api.jurisdiction.ID.String()+"/services", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var env listEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, int64(1), env.Total)

	// A different jurisdiction sees nothing
	w = api.do(t, http.MethodGet, PathPrefix+"/jurisdictions/"+id.New().String()+"/services", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, int64(0), env.Total)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "majifix_http_requests_total")
}
