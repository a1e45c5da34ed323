package endpoints

import (
	"bytes"
	"contacts-backend/internal/api"
	"contacts-backend/internal/api/middleware"
	"contacts-backend/internal/dto"
	internaljwt "contacts-backend/internal/jwt"
	"contacts-backend/internal/queue"
	contactsservice "contacts-backend/internal/service/contacts"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)
}

type testServer struct {
	mux   *http.ServeMux
	repo  *contactsservice.MemoryRepository
	queue *queue.RequestQueueManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	internaljwt.Configure("test-secret", "admin-secret")

	repo := contactsservice.NewMemoryRepository()
	service := contactsservice.NewWithRepository(repo, nil, fixedNow)
	queueManager := queue.NewRequestQueueManager(10, 1)
	t.Cleanup(queueManager.Shutdown)
	server := api.NewAPIServer(":0", queueManager, nil, nil)

	contacts := NewContactsEndpoints(service)
	keys := NewKeysEndpoints(service)
	duplicates := NewDuplicatesEndpoints(service)
	profile := NewProfileEndpoints(service)

	mux := http.NewServeMux()
	user := middleware.ValidateUserJWT
	mux.HandleFunc("/api/v1/contacts/fields", server.MakeHTTPHandleFunc(contacts.Fields, user))
	mux.HandleFunc("/api/v1/contacts/filters/values", server.MakeHTTPHandleFunc(contacts.FilterValues, user))
	mux.HandleFunc("/api/v1/contacts/filters/preview", server.MakeHTTPHandleFunc(contacts.FilterPreview, user))
	mux.HandleFunc("/api/v1/contacts/search", server.MakeHTTPHandleFunc(contacts.Search, user))
	mux.HandleFunc("/api/v1/contacts/aggregates", server.MakeHTTPHandleFunc(contacts.Aggregates, user))
	mux.HandleFunc("/api/v1/contacts/finalize", server.MakeHTTPHandleFunc(contacts.Finalize, user))
	mux.HandleFunc("/api/v1/contacts/import", server.MakeHTTPHandleFunc(contacts.Import, user))
	mux.HandleFunc("/api/v1/contacts/export", server.MakeHTTPHandleFunc(contacts.Export, user))
	mux.HandleFunc("/api/v1/contacts/bulk", server.MakeHTTPHandleFunc(contacts.Bulk, user))
	mux.HandleFunc("/api/v1/contacts/{id}", server.MakeHTTPHandleFunc(contacts.Contact, user))
	mux.HandleFunc("/api/v1/contacts/keys", server.MakeHTTPHandleFunc(keys.KeyConfig, user))
	mux.HandleFunc("/api/v1/contacts/keys/primary", server.MakeHTTPHandleFunc(keys.PrimaryKey, user))
	mux.HandleFunc("/api/v1/contacts/keys/email", server.MakeHTTPHandleFunc(keys.EmailKey, user))
	mux.HandleFunc("/api/v1/contacts/revert-requests", server.MakeHTTPHandleFunc(keys.RevertRequests, user))
	mux.HandleFunc("/api/v1/admin/revert-requests", server.MakeHTTPHandleFunc(keys.AdminRevertRequests, middleware.ValidateAdminJWT))
	mux.HandleFunc("/api/v1/contacts/duplicates", server.MakeHTTPHandleFunc(duplicates.Duplicates, user))
	mux.HandleFunc("/api/v1/contacts/duplicates/resolve", server.MakeHTTPHandleFunc(duplicates.Resolve, user))
	mux.HandleFunc("/api/v1/profile/columns", server.MakeHTTPHandleFunc(profile.Columns, user))

	return &testServer{mux: mux, repo: repo, queue: queueManager}
}

func bearer(t *testing.T, tenantID string) string {
	t.Helper()
	token, err := internaljwt.CreateToken(internaljwt.User{
		Id:       "user-1",
		TenantID: tenantID,
		Email:    "owner@example.com",
	}, internaljwt.RoleUser, 0)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	return "Bearer " + token
}

func adminBearer(t *testing.T) string {
	t.Helper()
	token, err := internaljwt.CreateToken(internaljwt.User{Id: "admin-1"}, internaljwt.RoleAdmin, 0)
	if err != nil {
		t.Fatalf("create admin token: %v", err)
	}
	return "Bearer " + token
}

func (s *testServer) do(t *testing.T, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func importContacts(t *testing.T, s *testServer, auth string, body string) dto.ImportResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contacts/import", strings.NewReader(body))
	req.Header.Set("Authorization", auth)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("import failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp dto.ImportResponse
	decodeBody(t, rec, &resp)
	return resp
}

func TestContactsRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/contacts/fields", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestKeyLifecycleEndpoints(t *testing.T) {
	s := newTestServer(t)
	auth := bearer(t, "tenant-1")

	importContacts(t, s, auth, `{"contacts":[{"email":"a@example.com","customerId":"c-1"}]}`)

	rec := s.do(t, http.MethodGet, "/api/v1/contacts/keys", auth, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get keys: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"primaryKey":null`) {
		t.Fatalf("expected null primary key, got %s", rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/v1/contacts/keys/primary", auth, dto.KeyRequest{Attribute: "nope"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown attribute, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/contacts/keys/primary", auth, dto.KeyRequest{Attribute: "customerId"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create primary key: %d %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPut, "/api/v1/contacts/keys/email", auth, dto.KeyRequest{Attribute: "email"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update email key: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/v1/contacts/finalize", auth, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("finalize: %d %s", rec.Code, rec.Body.String())
	}
	var cfg dto.KeyConfigResponse
	decodeBody(t, rec, &cfg)
	if !cfg.IsFinalized || !cfg.IsPrimaryKeyLocked || cfg.PrimaryKey == nil || *cfg.PrimaryKey != "customerId" {
		t.Fatalf("unexpected config after finalize: %+v", cfg)
	}

	rec = s.do(t, http.MethodPut, "/api/v1/contacts/keys/primary", auth, dto.KeyRequest{Attribute: "email"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on locked key, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodDelete, "/api/v1/contacts/keys/primary", auth, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 deleting locked key, got %d", rec.Code)
	}

	body := dto.RevertRequestBody{RequestType: "EDIT_CONTACTS_PRIMARY_KEY"}
	rec = s.do(t, http.MethodPost, "/api/v1/contacts/revert-requests", auth, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit revert: %d %s", rec.Code, rec.Body.String())
	}
	var revert dto.RevertRequestResponse
	decodeBody(t, rec, &revert)
	if revert.Status != "PENDING" {
		t.Fatalf("expected PENDING, got %s", revert.Status)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/contacts/revert-requests", auth, body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second request, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/admin/revert-requests", auth, dto.AdminRevertDecisionRequest{
		TenantID: "tenant-1", RequestType: body.RequestType, Approve: true,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected user token to be refused on admin route, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/admin/revert-requests", adminBearer(t), dto.AdminRevertDecisionRequest{
		TenantID: "tenant-1", RequestType: body.RequestType, Approve: true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin approve: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/api/v1/contacts/revert-requests?requestType=EDIT_CONTACTS_PRIMARY_KEY", auth, nil)
	decodeBody(t, rec, &revert)
	if revert.Status != "APPROVED" {
		t.Fatalf("expected APPROVED, got %s", revert.Status)
	}

	rec = s.do(t, http.MethodPut, "/api/v1/contacts/keys/primary", auth, dto.KeyRequest{Attribute: "email"})
	if rec.Code != http.StatusOK {
		t.Fatalf("approved update: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCancelRevertRequestNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodDelete, "/api/v1/contacts/revert-requests", bearer(t, "tenant-1"), dto.RevertRequestBody{
		RequestType: "EDIT_CONTACTS_EMAIL_KEY",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var apiErr api.ApiError
	decodeBody(t, rec, &apiErr)
	if apiErr.Error == "" {
		t.Fatalf("expected error message in body")
	}
}

func TestDuplicateEndpoints(t *testing.T) {
	s := newTestServer(t)
	auth := bearer(t, "tenant-1")

	importContacts(t, s, auth, `{"contacts":[{"email":"a@example.com","name":"old"},{"email":"b@example.com","name":"old"}]}`)
	rec := s.do(t, http.MethodPost, "/api/v1/contacts/keys/primary", auth, dto.KeyRequest{Attribute: "email"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create primary key: %d", rec.Code)
	}
	result := importContacts(t, s, auth, `{"contacts":[{"email":"a@example.com","name":"new"},{"email":"b@example.com","name":"new"}]}`)
	if result.Duplicates != 2 {
		t.Fatalf("expected 2 duplicates, got %+v", result)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/contacts/duplicates?page=1", auth, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list duplicates: %d %s", rec.Code, rec.Body.String())
	}
	var page dto.DuplicatesResponse
	decodeBody(t, rec, &page)
	if page.TotalRecords != 2 || len(page.DuplicateContacts) != 2 {
		t.Fatalf("unexpected page %+v", page)
	}

	pair := page.DuplicateContacts[0]
	rec = s.do(t, http.MethodPost, "/api/v1/contacts/duplicates/resolve", auth, dto.ResolveDuplicatesRequest{
		ContactsToBeSaved: []dto.ResolvedContactRequest{{DuplicateID: pair.ID, Fields: pair.New.Fields}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve pair: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/api/v1/contacts/duplicates?page=1", auth, nil)
	decodeBody(t, rec, &page)
	if page.TotalRecords != 1 {
		t.Fatalf("expected 1 remaining, got %d", page.TotalRecords)
	}

	keepExisting := false
	rec = s.do(t, http.MethodPost, "/api/v1/contacts/duplicates/resolve", auth, dto.ResolveDuplicatesRequest{
		IsSaveNewContact: &keepExisting,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve all: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/api/v1/contacts/duplicates?page=0", auth, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for page 0, got %d", rec.Code)
	}
}

func TestSearchFilterAndContactCrudEndpoints(t *testing.T) {
	s := newTestServer(t)
	auth := bearer(t, "tenant-1")
	importContacts(t, s, auth, `{"contacts":[
		{"email":"a@example.com","country":"US"},
		{"email":"broken","country":"US"},
		{"email":"c@example.com","country":"DE"}
	]}`)

	rec := s.do(t, http.MethodGet, "/api/v1/contacts/fields", auth, nil)
	var fields dto.FieldsResponse
	decodeBody(t, rec, &fields)
	if len(fields.Data) != 2 || fields.Data[0] != "country" || fields.Data[1] != "email" {
		t.Fatalf("unexpected fields %v", fields.Data)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/contacts/filters/values?key=country&searchTerm=u&page=1", auth, nil)
	var values dto.FilterValuesResponse
	decodeBody(t, rec, &values)
	if len(values.Values) != 1 || values.Values[0] != "US" || values.HasMore {
		t.Fatalf("unexpected values %+v", values)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/contacts/filters/preview", auth, dto.PreviewRequest{Criteria: []string{"country:US"}})
	var preview dto.MessageResponse
	decodeBody(t, rec, &preview)
	if preview.Message != "2 contacts match the selected criteria" {
		t.Fatalf("unexpected preview %q", preview.Message)
	}

	rec = s.do(t, http.MethodPut, "/api/v1/contacts/keys/email", auth, dto.KeyRequest{Attribute: "email"})
	if rec.Code != http.StatusOK {
		t.Fatalf("set email key: %d", rec.Code)
	}

	searchBody := `{"page":0,"pageSize":10,"filters":{"logic":"AND","groups":[{"logic":"OR","conditions":[{"key":"country","values":["US"]}]}]},"quickFilterFlags":{"invalidEmail":true}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contacts/search", strings.NewReader(searchBody))
	req.Header.Set("Authorization", auth)
	searchRec := httptest.NewRecorder()
	s.mux.ServeHTTP(searchRec, req)
	if searchRec.Code != http.StatusOK {
		t.Fatalf("search: %d %s", searchRec.Code, searchRec.Body.String())
	}
	var search dto.SearchResponse
	decodeBody(t, searchRec, &search)
	if search.Total != 1 || len(search.Data) != 1 {
		t.Fatalf("unexpected search result %+v", search)
	}
	id := search.Data[0].ID

	rec = s.do(t, http.MethodGet, "/api/v1/contacts/aggregates", auth, nil)
	var agg dto.AggregatesResponse
	decodeBody(t, rec, &agg)
	if agg.Total != 3 || agg.InvalidEmailCount != 1 || agg.DuplicateCount != 0 {
		t.Fatalf("unexpected aggregates %+v", agg)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/contacts/"+id, strings.NewReader(`{"fields":{"email":"fixed@example.com"}}`))
	req.Header.Set("Authorization", auth)
	patchRec := httptest.NewRecorder()
	s.mux.ServeHTTP(patchRec, req)
	if patchRec.Code != http.StatusOK {
		t.Fatalf("patch contact: %d %s", patchRec.Code, patchRec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/api/v1/contacts/aggregates", auth, nil)
	decodeBody(t, rec, &agg)
	if agg.InvalidEmailCount != 0 {
		t.Fatalf("expected invalid count 0 after fix, got %d", agg.InvalidEmailCount)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/contacts/export", auth, nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "text/csv" {
		t.Fatalf("export: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Body.String(), "id,country,email\n") {
		t.Fatalf("unexpected csv header %q", rec.Body.String())
	}

	rec = s.do(t, http.MethodDelete, "/api/v1/contacts/"+id, auth, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete contact: %d", rec.Code)
	}
	rec = s.do(t, http.MethodDelete, "/api/v1/contacts/"+id, auth, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodDelete, "/api/v1/contacts/bulk", auth, dto.BulkContactsRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty bulk delete, got %d", rec.Code)
	}
}

func TestColumnsEndpoint(t *testing.T) {
	s := newTestServer(t)
	auth := bearer(t, "tenant-1")

	rec := s.do(t, http.MethodPut, "/api/v1/profile/columns", auth, dto.ColumnsRequest{Columns: []string{"email", "name"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("save columns: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/api/v1/profile/columns", auth, nil)
	var cols dto.ColumnsResponse
	decodeBody(t, rec, &cols)
	if !cols.Saved || len(cols.Columns) != 2 || cols.Columns[0] != "email" {
		t.Fatalf("unexpected columns %+v", cols)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/profile/columns", auth, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestTenantsAreIsolated(t *testing.T) {
	s := newTestServer(t)
	importContacts(t, s, bearer(t, "tenant-1"), `{"contacts":[{"email":"a@example.com"}]}`)

	rec := s.do(t, http.MethodGet, "/api/v1/contacts/aggregates", bearer(t, "tenant-2"), nil)
	var agg dto.AggregatesResponse
	decodeBody(t, rec, &agg)
	if agg.Total != 0 {
		t.Fatalf("expected tenant-2 to see no contacts, got %d", agg.Total)
	}
}
