package salarysliphandler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"salaryslip/internal/domain/auth"
	"salaryslip/internal/domain/salaryslip"
	cryptoutil "salaryslip/internal/platform/crypto"
	"salaryslip/internal/platform/metrics"
	"salaryslip/internal/requestctx"
)

type fakeZones struct {
	mu      sync.Mutex
	dangers map[string]bool
	err     error
	calls   []string
}

func (f *fakeZones) IsDangerZone(_ context.Context, station string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, station)
	return f.dangers[station], f.err
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func newRouter(t *testing.T, zones salaryslip.ZoneLookup, sealer *cryptoutil.Sealer) (http.Handler, *metrics.Collector) {
	t.Helper()
	if sealer == nil {
		var err error
		sealer, err = cryptoutil.NewSealer("")
		if err != nil {
			t.Fatalf("sealer: %v", err)
		}
	}
	collector := metrics.New()
	h := NewHandler(zones, sealer, collector)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, collector
}

func post(t *testing.T, router http.Handler, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func TestBasicSalaryEndpoint(t *testing.T) {
	router, collector := newRouter(t, nil, nil)

	rec, env := post(t, router, "/salary-slips/basic-salary", `{"wage":500,"workingDays":20}`)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got AmountResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode amount: %v", err)
	}
	if got.Operation != salaryslip.OpBasicSalary || got.Amount.String() != "10000" {
		t.Fatalf("unexpected amount: %+v", got)
	}

	calcs := collector.Snapshot()["calculationsTotal"].(map[string]uint64)
	if calcs[salaryslip.OpBasicSalary] != 1 {
		t.Fatalf("expected calculation to be counted, got %v", calcs)
	}
}

func TestTransportationAllowanceEndpoint(t *testing.T) {
	router, _ := newRouter(t, nil, nil)

	tests := []struct {
		platform string
		status   int
		want     string
	}{
		{platform: "Office", status: http.StatusOK, want: "500"},
		{platform: "remote", status: http.StatusOK, want: "0"},
		{platform: "hybrid", status: http.StatusOK, want: "250"},
		{platform: "moon", status: http.StatusUnprocessableEntity},
		{platform: "", status: http.StatusUnprocessableEntity},
	}

	for _, tc := range tests {
		t.Run(tc.platform, func(t *testing.T) {
			rec, env := post(t, router, "/salary-slips/transportation-allowance", `{"workPlatform":"`+tc.platform+`"}`)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status != http.StatusOK {
				if env.Error == nil || env.Error.Code != "unknown_work_platform" {
					t.Fatalf("unexpected error: %s", rec.Body.String())
				}
				if !strings.Contains(env.Error.Message, "no default") {
					t.Fatalf("expected message to say a missing platform has no default, got %q", env.Error.Message)
				}
				return
			}
			var got AmountResponse
			if err := json.Unmarshal(env.Data, &got); err != nil {
				t.Fatalf("decode amount: %v", err)
			}
			if got.Amount.String() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got.Amount)
			}
		})
	}
}

func TestDangerPayEndpoint(t *testing.T) {
	zones := &fakeZones{dangers: map[string]bool{"Ukraine": true}}
	router, _ := newRouter(t, zones, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "flagged", body: `{"isDanger":true,"dutyStation":"Saudi Arabia"}`, want: "1000"},
		{name: "danger zone", body: `{"dutyStation":"Ukraine"}`, want: "1000"},
		{name: "safe zone", body: `{"dutyStation":"Saudi Arabia"}`, want: "0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := post(t, router, "/salary-slips/danger-pay", tc.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			var got AmountResponse
			if err := json.Unmarshal(env.Data, &got); err != nil {
				t.Fatalf("decode amount: %v", err)
			}
			if got.Amount.String() != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got.Amount)
			}
		})
	}

	if len(zones.calls) != 2 || zones.calls[0] != "Ukraine" || zones.calls[1] != "Saudi Arabia" {
		t.Fatalf("expected lookups only for unflagged employees, got %v", zones.calls)
	}
}

func TestDangerPayEndpointErrors(t *testing.T) {
	unset, _ := newRouter(t, nil, nil)
	rec, env := post(t, unset, "/salary-slips/danger-pay", `{"dutyStation":"Ukraine"}`)
	if rec.Code != http.StatusInternalServerError || env.Error == nil || env.Error.Code != "zone_lookup_unset" {
		t.Fatalf("expected zone_lookup_unset, got %d: %s", rec.Code, rec.Body.String())
	}

	failing, _ := newRouter(t, &fakeZones{err: errors.New("backend down")}, nil)
	rec, env = post(t, failing, "/salary-slips/danger-pay", `{"dutyStation":"Ukraine"}`)
	if rec.Code != http.StatusBadGateway || env.Error == nil || env.Error.Code != "zone_lookup_failed" {
		t.Fatalf("expected zone_lookup_failed, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCalculateEndpoint(t *testing.T) {
	zones := &fakeZones{dangers: map[string]bool{"Ukraine": true}}
	router, _ := newRouter(t, zones, nil)

	rec, env := post(t, router, "/salary-slips/calculate",
		`{"wage":"500.00","workingDays":20,"workPlatform":"hybrid","dutyStation":"Ukraine"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var slip salaryslip.Slip
	if err := json.Unmarshal(env.Data, &slip); err != nil {
		t.Fatalf("decode slip: %v", err)
	}
	if slip.ID == "" || slip.Total.String() != "11250" {
		t.Fatalf("unexpected slip: %+v", slip)
	}
}

func TestCalculateEndpointRejectsBadInput(t *testing.T) {
	router, _ := newRouter(t, &fakeZones{}, nil)

	tests := []struct {
		name string
		body string
		code string
	}{
		{name: "empty body", body: "", code: "invalid_json"},
		{name: "malformed", body: `{"wage":`, code: "invalid_json"},
		{name: "negative wage", body: `{"wage":-1,"workPlatform":"office"}`, code: "validation_failed"},
		{name: "negative days", body: `{"wage":1,"workingDays":-2,"workPlatform":"office"}`, code: "validation_failed"},
		{name: "huge exponent wage", body: `{"wage":"1e50000000","workingDays":20,"workPlatform":"office"}`, code: "validation_failed"},
		{name: "wage above bound", body: `{"wage":1000000000001,"workingDays":1,"workPlatform":"office"}`, code: "validation_failed"},
		{name: "tiny exponent wage", body: `{"wage":"1e-50000000","workingDays":1,"workPlatform":"office"}`, code: "validation_failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := post(t, router, "/salary-slips/calculate", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if env.Error == nil || env.Error.Code != tc.code {
				t.Fatalf("expected %s, got %s", tc.code, rec.Body.String())
			}
		})
	}
}

func TestValidationIssuesUseJSONFieldNames(t *testing.T) {
	router, _ := newRouter(t, &fakeZones{}, nil)
	_, env := post(t, router, "/salary-slips/basic-salary", `{"wage":-5,"workingDays":400}`)
	if env.Error == nil {
		t.Fatal("expected validation error")
	}

	var issues []ValidationIssue
	if err := json.Unmarshal(env.Error.Details, &issues); err != nil {
		t.Fatalf("decode issues: %v", err)
	}
	fields := map[string]bool{}
	for _, issue := range issues {
		fields[issue.Field] = true
	}
	if !fields["wage"] || !fields["workingDays"] {
		t.Fatalf("expected wage and workingDays issues, got %+v", issues)
	}
}

func TestCalculatePDFEndpoint(t *testing.T) {
	router, _ := newRouter(t, &fakeZones{}, nil)

	rec, _ := post(t, router, "/salary-slips/calculate/pdf", `{"wage":500,"workingDays":20,"workPlatform":"office"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Fatal("expected a pdf document")
	}
}

func TestCalculatePDFEndpointSealed(t *testing.T) {
	sealer, err := cryptoutil.NewSealer("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	router, _ := newRouter(t, &fakeZones{}, sealer)

	rec, _ := post(t, router, "/salary-slips/calculate/pdf", `{"wage":500,"workingDays":20,"workPlatform":"remote"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "application/octet-stream" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	plain, err := sealer.Open(rec.Body.Bytes(), rec.Header().Get("X-Slip-ID"))
	if err != nil {
		t.Fatalf("open sealed slip: %v", err)
	}
	if !bytes.HasPrefix(plain, []byte("%PDF-")) {
		t.Fatal("expected sealed payload to be a pdf")
	}
}

func TestDangerZoneEndpoint(t *testing.T) {
	router, _ := newRouter(t, salaryslip.NewStaticZones("Ukraine"), nil)

	req := httptest.NewRequest(http.MethodGet, "/danger-zones/ukraine", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var got ZoneResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode zone: %v", err)
	}
	if got.Station != "ukraine" || !got.DangerZone {
		t.Fatalf("unexpected zone response: %+v", got)
	}
}

type fakeRegistry struct {
	stations []string
	addErr   error
	listErr  error
	added    []string
}

func (f *fakeRegistry) List(context.Context) ([]string, error) {
	return f.stations, f.listErr
}

func (f *fakeRegistry) Add(_ context.Context, station string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, station)
	f.stations = append(f.stations, station)
	return nil
}

type fakeInvalidator struct {
	invalidated []string
}

func (f *fakeInvalidator) Invalidate(_ context.Context, station string) error {
	f.invalidated = append(f.invalidated, station)
	return nil
}

func newZoneRouter(registry salaryslip.ZoneRegistry, cache ZoneInvalidator) http.Handler {
	h := NewHandler(salaryslip.NewStaticZones(), nil, metrics.New())
	h.Registry = registry
	h.Cache = cache
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func addZone(router http.Handler, role, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/danger-zones", strings.NewReader(body))
	if role != "" {
		req = req.WithContext(requestctx.WithPrincipal(req.Context(), auth.Principal{Subject: "clerk-1", Role: role}))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListDangerZonesEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		registry salaryslip.ZoneRegistry
		status   int
		want     []string
	}{
		{name: "static list", registry: salaryslip.NewStaticZones("Ukraine", " syria "), status: http.StatusOK, want: []string{"syria", "ukraine"}},
		{name: "empty registry", registry: &fakeRegistry{}, status: http.StatusOK, want: []string{}},
		{name: "registry failure", registry: &fakeRegistry{listErr: errors.New("db down")}, status: http.StatusBadGateway},
		{name: "no registry", registry: nil, status: http.StatusNotImplemented},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newZoneRouter(tc.registry, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/danger-zones", nil))
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status != http.StatusOK {
				return
			}
			var env envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			var got ZoneListResponse
			if err := json.Unmarshal(env.Data, &got); err != nil {
				t.Fatalf("decode list: %v", err)
			}
			if strings.Join(got.Stations, ",") != strings.Join(tc.want, ",") || got.Stations == nil {
				t.Fatalf("expected %v, got %v", tc.want, got.Stations)
			}
		})
	}
}

func TestAddDangerZoneInvalidatesCache(t *testing.T) {
	registry := &fakeRegistry{}
	cache := &fakeInvalidator{}
	router := newZoneRouter(registry, cache)

	rec := addZone(router, auth.RolePayroll, `{"station":"  Saudi Arabia "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(registry.added) != 1 || registry.added[0] != "Saudi Arabia" {
		t.Fatalf("expected trimmed station to be added, got %v", registry.added)
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "Saudi Arabia" {
		t.Fatalf("expected cache invalidation after add, got %v", cache.invalidated)
	}
}

func TestAddDangerZoneErrors(t *testing.T) {
	tests := []struct {
		name     string
		registry salaryslip.ZoneRegistry
		role     string
		body     string
		status   int
		code     string
	}{
		{name: "anonymous", registry: &fakeRegistry{}, body: `{"station":"Ukraine"}`, status: http.StatusUnauthorized, code: "unauthorized"},
		{name: "viewer", registry: &fakeRegistry{}, role: auth.RoleViewer, body: `{"station":"Ukraine"}`, status: http.StatusForbidden, code: "forbidden"},
		{name: "blank station", registry: &fakeRegistry{}, role: auth.RolePayroll, body: `{"station":"   "}`, status: http.StatusBadRequest, code: "validation_failed"},
		{name: "malformed", registry: &fakeRegistry{}, role: auth.RolePayroll, body: `{"station":`, status: http.StatusBadRequest, code: "invalid_json"},
		{name: "static list", registry: salaryslip.NewStaticZones("Ukraine"), role: auth.RolePayroll, body: `{"station":"Syria"}`, status: http.StatusConflict, code: "zone_registry_read_only"},
		{name: "store failure", registry: &fakeRegistry{addErr: errors.New("db down")}, role: auth.RolePayroll, body: `{"station":"Syria"}`, status: http.StatusBadGateway, code: "zone_add_failed"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cache := &fakeInvalidator{}
			rec := addZone(newZoneRouter(tc.registry, cache), tc.role, tc.body)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			var env envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Error == nil || env.Error.Code != tc.code {
				t.Fatalf("expected %s, got %s", tc.code, rec.Body.String())
			}
			if len(cache.invalidated) != 0 {
				t.Fatalf("expected no invalidation on failure, got %v", cache.invalidated)
			}
		})
	}
}
