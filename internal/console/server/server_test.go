package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sentinelai/compliance-console/internal/agent"
	"github.com/sentinelai/compliance-console/internal/console/handler"
	"github.com/sentinelai/compliance-console/internal/console/service"
	"github.com/sentinelai/compliance-console/internal/dashboard"
	"github.com/sentinelai/compliance-console/internal/domain"
)

// --- Заглушки сервисов ---

type stubDashboard struct {
	view        service.AccountsView
	accounts    []domain.UserAccount
	snapshot    dashboard.Snapshot
	lastAccount string
	lastTerm    string
	lastPage    int
}

func (s *stubDashboard) ListAccounts(ctx context.Context) service.AccountsView { return s.view }

func (s *stubDashboard) AccountsForAuditor(ctx context.Context, auditorID string) []domain.UserAccount {
	return s.accounts
}

func (s *stubDashboard) BuildSnapshot(ctx context.Context, accountID, term string, page int) dashboard.Snapshot {
	s.lastAccount, s.lastTerm, s.lastPage = accountID, term, page
	return s.snapshot
}

type stubAudit struct {
	result    *domain.AuditResult
	err       error
	calls     int
	lastReqID string
}

func (s *stubAudit) RunAudit(ctx context.Context, requirementID, accountID string) (*domain.AuditResult, error) {
	s.calls++
	s.lastReqID = requirementID
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

// --- Тестовый клиент ---

type apiClient struct {
	t    *testing.T
	base string
}

func newTestAPI(t *testing.T, dash *stubDashboard, audit *stubAudit) *apiClient {
	t.Helper()
	srv := NewConsoleServer(
		zap.NewNop(),
		handler.NewDashboardHandler(dash, zap.NewNop()),
		handler.NewAuditHandler(audit, zap.NewNop()),
		prometheus.NewRegistry(),
	)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return &apiClient{t: t, base: ts.URL}
}

func (c *apiClient) get(path string) (int, map[string]any) {
	c.t.Helper()
	resp, err := http.Get(c.base + path)
	if err != nil {
		c.t.Fatalf("GET %s: %v", path, err)
	}
	return c.decode(resp)
}

func (c *apiClient) post(path string, body any) (int, map[string]any) {
	c.t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		c.t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(c.base+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		c.t.Fatalf("POST %s: %v", path, err)
	}
	return c.decode(resp)
}

func (c *apiClient) decode(resp *http.Response) (int, map[string]any) {
	c.t.Helper()
	defer resp.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, payload
}

// --- Триггер аудита ---

func TestRunAuditEndpointSuccess(t *testing.T) {
	audit := &stubAudit{result: &domain.AuditResult{
		Success:       true,
		Message:       "Audit completed successfully for 1.1.1",
		RequirementID: "1.1.1",
		Output:        "all controls passed",
	}}
	api := newTestAPI(t, &stubDashboard{}, audit)

	code, body := api.post("/run-compliance-agent", map[string]string{
		"requirement_id": "1.1.1",
		"aws_account_id": "aws-account-001",
	})
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["success"] != true || body["output"] != "all controls passed" {
		t.Fatalf("body: %v", body)
	}
	if _, present := body["exit_code"]; present {
		t.Fatalf("success response must omit exit_code")
	}
}

func TestRunAuditEndpointProcessFailure(t *testing.T) {
	exitCode := 2
	audit := &stubAudit{result: &domain.AuditResult{
		Success:       false,
		Message:       "Audit failed for 8.2.1",
		RequirementID: "8.2.1",
		ErrorOutput:   "AccessDenied",
		ExitCode:      &exitCode,
	}}
	api := newTestAPI(t, &stubDashboard{}, audit)

	code, body := api.post("/run-compliance-agent", map[string]string{"requirement_id": "8.2.1"})
	// Сбой процесса — это 200 с success:false, а не 5xx
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["success"] != false || body["error_output"] != "AccessDenied" {
		t.Fatalf("body: %v", body)
	}
	if body["exit_code"] != float64(2) {
		t.Fatalf("exit_code = %v, want 2", body["exit_code"])
	}
}

func TestRunAuditEndpointMissingRequirement(t *testing.T) {
	audit := &stubAudit{}
	api := newTestAPI(t, &stubDashboard{}, audit)

	code, body := api.post("/run-compliance-agent", map[string]string{"aws_account_id": "aws-account-001"})
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
	if body["message"] != "Missing required parameter: requirement_id" {
		t.Fatalf("message = %v", body["message"])
	}
	if audit.calls != 0 {
		t.Fatalf("service must not be called without requirement_id")
	}
}

func TestRunAuditEndpointInvalidIdentifier(t *testing.T) {
	audit := &stubAudit{err: fmt.Errorf("requirement_id %q: %w", "1.1; rm", agent.ErrInvalidIdentifier)}
	api := newTestAPI(t, &stubDashboard{}, audit)

	code, _ := api.post("/run-compliance-agent", map[string]string{"requirement_id": "1.1; rm"})
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
}

func TestRunAuditEndpointRejectsGet(t *testing.T) {
	api := newTestAPI(t, &stubDashboard{}, &stubAudit{})

	code, body := api.get("/run-compliance-agent")
	if code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", code)
	}
	if body["message"] != "Use POST method" {
		t.Fatalf("message = %v", body["message"])
	}
}

// --- Дашборд ---

func TestDashboardQueryPassthrough(t *testing.T) {
	dash := &stubDashboard{snapshot: dashboard.Snapshot{
		Items:      []domain.RequirementStatus{},
		Counts:     domain.StatusCounts{Total: 42, Compliant: 40},
		Page:       3,
		TotalPages: 5,
		Pages:      []int{1, 2, 3, 4, 5},
	}}
	api := newTestAPI(t, dash, &stubAudit{})

	code, body := api.get("/api/v1/dashboard?aws_account_id=aws-account-001&search=firewall&page=3")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if dash.lastAccount != "aws-account-001" || dash.lastTerm != "firewall" || dash.lastPage != 3 {
		t.Fatalf("query not passed through: %q %q %d", dash.lastAccount, dash.lastTerm, dash.lastPage)
	}
	counts := body["counts"].(map[string]any)
	if counts["total"] != float64(42) {
		t.Fatalf("counts: %v", counts)
	}
}

func TestDashboardEmptyState(t *testing.T) {
	dash := &stubDashboard{snapshot: dashboard.Snapshot{
		Items: []domain.RequirementStatus{},
		Pages: []int{},
	}}
	api := newTestAPI(t, dash, &stubAudit{})

	code, body := api.get("/api/v1/dashboard")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	// Фронт получает [] и нулевые счетчики, а не null
	if items, ok := body["items"].([]any); !ok || len(items) != 0 {
		t.Fatalf("items: %v", body["items"])
	}
}

func TestAccountsRoute(t *testing.T) {
	dash := &stubDashboard{view: service.AccountsView{
		Auditors: []string{"auditor-1"},
		Accounts: []domain.UserAccount{
			{ID: "ua-1", AuditorID: "auditor-1", AWSAccountID: "aws-account-001", AccountName: "Production"},
		},
	}}
	api := newTestAPI(t, dash, &stubAudit{})

	code, body := api.get("/api/v1/accounts")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	auditors := body["auditors"].([]any)
	if len(auditors) != 1 || auditors[0] != "auditor-1" {
		t.Fatalf("auditors: %v", auditors)
	}
}

func TestHealthRoute(t *testing.T) {
	api := newTestAPI(t, &stubDashboard{}, &stubAudit{})

	resp, err := http.Get(api.base + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
