package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HerbHall/fleetgate/internal/auth"
	"github.com/HerbHall/fleetgate/internal/testutil"
	"github.com/HerbHall/fleetgate/pkg/models"
)

// testAPI wires the handler behind the real auth middleware, the same way
// the server composes them.
func testAPI(t *testing.T) (http.Handler, *auth.TokenService, *Registry) {
	t.Helper()

	reg, _ := testRegistry(t)
	mux := http.NewServeMux()
	NewHandler(reg).RegisterRoutes(mux)

	tokens := auth.NewTokenService([]byte("test-secret-key-32bytes-long!!"), time.Minute)
	handler := auth.NewService(tokens).Middleware()(mux)
	return handler, tokens, reg
}

func doRequest(t *testing.T, handler http.Handler, tokens *auth.TokenService, admin bool, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *strings.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	} else {
		reqBody = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reqBody)

	name := "operator"
	if admin {
		name = "administrator"
	}
	token, err := tokens.IssueAccessToken("user-"+name, name, admin)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleRegister_Admin(t *testing.T) {
	handler, tokens, _ := testAPI(t)

	body := `{"name":"prod-cf","type":"cf","api_endpoint":"https://api.cf.example.com"}`
	rec := doRequest(t, handler, tokens, true, http.MethodPost, "/api/v1/endpoints", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}

	var ep models.Endpoint
	if err := json.Unmarshal(rec.Body.Bytes(), &ep); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if ep.GUID == "" {
		t.Error("expected generated GUID in response")
	}
	if ep.Type != models.EndpointTypeCloudFoundry {
		t.Errorf("Type = %q, want cf", ep.Type)
	}
}

func TestHandleRegister_NonAdminForbidden(t *testing.T) {
	handler, tokens, _ := testAPI(t)

	body := `{"name":"x","type":"cf","api_endpoint":"https://x"}`
	rec := doRequest(t, handler, tokens, false, http.MethodPost, "/api/v1/endpoints", body)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q, want application/problem+json", ct)
	}
}

func TestHandleRegister_BadBody(t *testing.T) {
	handler, tokens, _ := testAPI(t)

	rec := doRequest(t, handler, tokens, true, http.MethodPost, "/api/v1/endpoints", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, handler, tokens, true, http.MethodPost, "/api/v1/endpoints", `{"name":"only-name"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing fields", rec.Code)
	}
}

func TestHandleList_NoToken(t *testing.T) {
	handler, _, _ := testAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/endpoints", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandleList_FiltersAdminOnly(t *testing.T) {
	handler, tokens, reg := testAPI(t)
	ctx := context.Background()

	if _, err := reg.Register(ctx, testutil.NewEndpoint(testutil.WithName("public"))); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := reg.Register(ctx, testutil.NewEndpoint(testutil.WithName("internal"), testutil.WithAdminOnly())); err != nil {
		t.Fatalf("Register: %v", err)
	}

	rec := doRequest(t, handler, tokens, false, http.MethodGet, "/api/v1/endpoints", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var visible []models.Endpoint
	if err := json.Unmarshal(rec.Body.Bytes(), &visible); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(visible) != 1 || visible[0].Name != "public" {
		t.Errorf("non-admin sees %+v, want only public", visible)
	}

	rec = doRequest(t, handler, tokens, true, http.MethodGet, "/api/v1/endpoints", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &visible); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(visible) != 2 {
		t.Errorf("admin sees %d endpoints, want 2", len(visible))
	}
}

func TestHandleGet_AdminOnlyHiddenAsNotFound(t *testing.T) {
	handler, tokens, reg := testAPI(t)

	ep, err := reg.Register(context.Background(),
		testutil.NewEndpoint(testutil.WithAdminOnly()))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	rec := doRequest(t, handler, tokens, false, http.MethodGet, "/api/v1/endpoints/"+ep.GUID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 (existence not revealed)", rec.Code)
	}

	rec = doRequest(t, handler, tokens, true, http.MethodGet, "/api/v1/endpoints/"+ep.GUID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", rec.Code)
	}
}

func TestHandleRemove(t *testing.T) {
	handler, tokens, reg := testAPI(t)

	ep, err := reg.Register(context.Background(), testutil.NewEndpoint())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	rec := doRequest(t, handler, tokens, false, http.MethodDelete, "/api/v1/endpoints/"+ep.GUID, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin remove status = %d, want 403", rec.Code)
	}

	rec = doRequest(t, handler, tokens, true, http.MethodDelete, "/api/v1/endpoints/"+ep.GUID, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("admin remove status = %d, want 204", rec.Code)
	}

	rec = doRequest(t, handler, tokens, true, http.MethodDelete, "/api/v1/endpoints/"+ep.GUID, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second remove status = %d, want 404", rec.Code)
	}
}
