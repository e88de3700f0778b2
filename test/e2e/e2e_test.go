//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

type chaseData struct {
	ID             string `json:"id"`
	ClientRef      string `json:"client_ref"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	ValueTier      string `json:"value_tier"`
	ChaseCount     int    `json:"chase_count"`
	ProviderName   string `json:"provider_name,omitempty"`
	Blocking       bool   `json:"blocking"`
	DaysOverdue    int    `json:"days_overdue"`
	AcknowledgedAt string `json:"acknowledged_at,omitempty"`
}

type chaseListData struct {
	Items   []chaseData `json:"items"`
	Cursor  string      `json:"cursor,omitempty"`
	HasMore bool        `json:"has_more"`
}

type scoredListingData struct {
	Scored []struct {
		Item      chaseData `json:"item"`
		Composite float64   `json:"composite"`
		Priority  string    `json:"priority"`
	} `json:"scored"`
	Recommendations []struct {
		ItemID  string `json:"item_id"`
		Channel string `json:"channel"`
		Timing  string `json:"timing"`
		Message string `json:"message"`
	} `json:"recommendations"`
}

type cycleResultData struct {
	Actions []struct {
		ItemID    string `json:"item_id"`
		ClientRef string `json:"client_ref"`
		Channel   string `json:"channel"`
	} `json:"actions"`
	Stats struct {
		Mode        string `json:"mode"`
		ItemsScored int    `json:"items_scored"`
		Dispatched  int    `json:"dispatched"`
		Degraded    bool   `json:"degraded"`
	} `json:"stats"`
}

func (e *E2ETestEnv) createChase(t *testing.T, body map[string]interface{}) chaseData {
	t.Helper()
	resp, err := e.Post("/chases", body, e.APIKeyToken)
	if err != nil {
		t.Fatalf("failed to create chase: %v", err)
	}
	var chase chaseData
	if err := json.Unmarshal(resp.Data, &chase); err != nil {
		t.Fatalf("failed to parse chase: %v", err)
	}
	return chase
}

func TestE2E_ChaseLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	dueAt := time.Now().UTC().Add(-72 * time.Hour).Format(time.RFC3339)
	chase := env.createChase(t, map[string]interface{}{
		"client_ref":    "CL-0001",
		"type":          "authorization_request",
		"value_tier":    "high",
		"provider_name": "Aviva",
		"blocking":      true,
		"due_at":        dueAt,
	})

	if chase.ID == "" {
		t.Fatal("expected chase ID")
	}
	if chase.Status != "overdue" {
		t.Fatalf("expected overdue status for past due date, got %s", chase.Status)
	}

	// Get round-trips the item
	getResp, err := env.Get("/chases/"+chase.ID, env.APIKeyToken)
	if err != nil {
		t.Fatalf("failed to get chase: %v", err)
	}
	var fetched chaseData
	if err := json.Unmarshal(getResp.Data, &fetched); err != nil {
		t.Fatalf("failed to parse chase: %v", err)
	}
	if fetched.ClientRef != "CL-0001" || fetched.ProviderName != "Aviva" {
		t.Fatalf("unexpected chase: %+v", fetched)
	}

	// Record an action: item moves to sent, count goes up
	actResp, err := env.Post("/chases/"+chase.ID+"/actions", nil, env.APIKeyToken)
	if err != nil {
		t.Fatalf("failed to record action: %v", err)
	}
	var acted chaseData
	if err := json.Unmarshal(actResp.Data, &acted); err != nil {
		t.Fatalf("failed to parse chase: %v", err)
	}
	if acted.ChaseCount != 1 {
		t.Fatalf("expected chase count 1, got %d", acted.ChaseCount)
	}

	// Acknowledge closes the item
	ackResp, err := env.Post("/chases/"+chase.ID+"/ack", nil, env.APIKeyToken)
	if err != nil {
		t.Fatalf("failed to acknowledge: %v", err)
	}
	var acked chaseData
	if err := json.Unmarshal(ackResp.Data, &acked); err != nil {
		t.Fatalf("failed to parse chase: %v", err)
	}
	if acked.Status != "acknowledged" || acked.AcknowledgedAt == "" {
		t.Fatalf("expected acknowledged chase, got %+v", acked)
	}

	// Acknowledging twice conflicts
	if _, err := env.Post("/chases/"+chase.ID+"/ack", nil, env.APIKeyToken); err == nil {
		t.Fatal("expected error acknowledging twice")
	}
}

func TestE2E_ListPagination(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	for i := 0; i < 5; i++ {
		env.createChase(t, map[string]interface{}{
			"client_ref": fmt.Sprintf("CL-%04d", i),
			"type":       "client_document",
			"value_tier": "medium",
		})
	}

	resp, err := env.Get("/chases?limit=3", env.APIKeyToken)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	var page1 chaseListData
	if err := json.Unmarshal(resp.Data, &page1); err != nil {
		t.Fatalf("failed to parse list: %v", err)
	}
	if len(page1.Items) != 3 || !page1.HasMore || page1.Cursor == "" {
		t.Fatalf("unexpected first page: %d items, has_more=%v", len(page1.Items), page1.HasMore)
	}

	resp, err = env.Get("/chases?limit=3&cursor="+page1.Cursor, env.APIKeyToken)
	if err != nil {
		t.Fatalf("failed to list page 2: %v", err)
	}
	var page2 chaseListData
	if err := json.Unmarshal(resp.Data, &page2); err != nil {
		t.Fatalf("failed to parse list: %v", err)
	}
	if len(page2.Items) != 2 || page2.HasMore {
		t.Fatalf("unexpected second page: %d items, has_more=%v", len(page2.Items), page2.HasMore)
	}
}

func TestE2E_ScoreAndRecommend(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	overdue := time.Now().UTC().Add(-240 * time.Hour).Format(time.RFC3339)
	blocking := env.createChase(t, map[string]interface{}{
		"client_ref":    "CL-0001",
		"type":          "authorization_request",
		"value_tier":    "high",
		"provider_name": "Aviva",
		"blocking":      true,
		"due_at":        overdue,
	})
	env.createChase(t, map[string]interface{}{
		"client_ref": "CL-0002",
		"type":       "post_advice",
		"value_tier": "low",
	})

	resp, err := env.Post("/chases/score", nil, env.APIKeyToken)
	if err != nil {
		t.Fatalf("failed to score: %v", err)
	}
	var listing scoredListingData
	if err := json.Unmarshal(resp.Data, &listing); err != nil {
		t.Fatalf("failed to parse listing: %v", err)
	}

	if len(listing.Scored) != 2 || len(listing.Recommendations) != 2 {
		t.Fatalf("expected 2 scored and 2 recommendations, got %d/%d",
			len(listing.Scored), len(listing.Recommendations))
	}

	// The long-overdue blocking high-value item ranks first
	if listing.Recommendations[0].ItemID != blocking.ID {
		t.Fatalf("expected blocking item first, got %s", listing.Recommendations[0].ItemID)
	}
	if listing.Scored[0].Composite < listing.Scored[1].Composite {
		t.Fatal("expected descending composite order")
	}
}

func TestE2E_CycleAndAudit(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	overdue := time.Now().UTC().Add(-120 * time.Hour).Format(time.RFC3339)
	env.createChase(t, map[string]interface{}{
		"client_ref": "CL-0001",
		"type":       "client_document",
		"value_tier": "high",
		"due_at":     overdue,
	})

	resp, err := env.Post("/cycles", map[string]string{"mode": "rule_based"}, env.APIKeyToken)
	if err != nil {
		t.Fatalf("failed to run cycle: %v", err)
	}
	var result cycleResultData
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("failed to parse cycle result: %v", err)
	}
	if result.Stats.Mode != "rule_based" || result.Stats.ItemsScored != 1 {
		t.Fatalf("unexpected cycle stats: %+v", result.Stats)
	}
	if result.Stats.Dispatched != 1 || len(result.Actions) != 1 {
		t.Fatalf("expected 1 dispatched action, got %+v", result.Stats)
	}

	// The dispatch lands in the communications audit trail
	commResp, err := env.Get("/communications", env.APIKeyToken)
	if err != nil {
		t.Fatalf("failed to list communications: %v", err)
	}
	var comms []struct {
		ClientRef string `json:"client_ref"`
		Channel   string `json:"channel"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(commResp.Data, &comms); err != nil {
		t.Fatalf("failed to parse communications: %v", err)
	}
	if len(comms) != 1 || comms[0].ClientRef != "CL-0001" {
		t.Fatalf("unexpected communications: %+v", comms)
	}

	// llm_assisted degrades to rule_based without a reasoner
	resp, err = env.Post("/cycles", map[string]string{"mode": "llm_assisted"}, env.APIKeyToken)
	if err != nil {
		t.Fatalf("failed to run llm_assisted cycle: %v", err)
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("failed to parse cycle result: %v", err)
	}
	if !result.Stats.Degraded {
		t.Fatal("expected degraded llm_assisted run without a reasoner")
	}
}

func TestE2E_Dashboard(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	overdue := time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339)
	env.createChase(t, map[string]interface{}{
		"client_ref": "CL-0001",
		"type":       "authorization_request",
		"value_tier": "high",
		"due_at":     overdue,
	})
	env.createChase(t, map[string]interface{}{
		"client_ref": "CL-0002",
		"type":       "client_document",
		"value_tier": "medium",
	})

	resp, err := env.Get("/dashboard", env.APIKeyToken)
	if err != nil {
		t.Fatalf("failed to get dashboard: %v", err)
	}
	var dash struct {
		ActiveChases  int            `json:"active_chases"`
		OverdueChases int            `json:"overdue_chases"`
		ByType        map[string]int `json:"by_type"`
	}
	if err := json.Unmarshal(resp.Data, &dash); err != nil {
		t.Fatalf("failed to parse dashboard: %v", err)
	}
	if dash.ActiveChases != 2 || dash.OverdueChases != 1 {
		t.Fatalf("unexpected dashboard: %+v", dash)
	}
	if dash.ByType["authorization_request"] != 1 || dash.ByType["client_document"] != 1 {
		t.Fatalf("unexpected by_type: %+v", dash.ByType)
	}
}

func TestE2E_QueryWithoutReasoner(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	_, err := env.Post("/queries", map[string]string{"query": "who needs chasing?"}, env.APIKeyToken)
	if err == nil {
		t.Fatal("expected 503 without a configured reasoner")
	}
	if !strings.Contains(err.Error(), "HTTP 503") {
		t.Fatalf("expected HTTP 503, got %v", err)
	}
}

func TestE2E_RuleBasedQuery(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	// Keyword dispatch answers without a reasoner configured.
	resp, err := env.Post("/queries", map[string]string{
		"query": "who needs chasing?",
		"mode":  "rule_based",
	}, env.APIKeyToken)
	if err != nil {
		t.Fatalf("rule_based query failed: %v", err)
	}

	var result struct {
		Intent string `json:"intent"`
		Rounds int    `json:"rounds"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("failed to parse query response: %v", err)
	}
	if result.Intent != "needs_chasing" || result.Rounds != 1 {
		t.Fatalf("unexpected query result: %+v", result)
	}

	_, err = env.Post("/queries", map[string]string{
		"query": "who needs chasing?",
		"mode":  "clairvoyant",
	}, env.APIKeyToken)
	if err == nil {
		t.Fatal("expected 400 for an unknown mode")
	}
	if !strings.Contains(err.Error(), "HTTP 400") {
		t.Fatalf("expected HTTP 400, got %v", err)
	}
}

func TestE2E_AuthRequired(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	if _, err := env.Get("/chases", ""); err == nil {
		t.Fatal("expected 401 without token")
	}

	bogus := "chs_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	if _, err := env.Get("/chases", bogus); err == nil {
		t.Fatal("expected 401 with unknown token")
	}

	// Revoked keys are rejected
	if _, err := env.Delete("/apikeys/"+env.APIKeyID, ""); err != nil {
		t.Fatalf("failed to revoke key: %v", err)
	}
	if _, err := env.Get("/chases", env.APIKeyToken); err == nil {
		t.Fatal("expected 401 with revoked token")
	}
}

func TestE2E_CLI(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()
	env.BuildBinaries()

	out, err := env.RunChaser(env.BinaryDir,
		"add", "--client", "CL-0042", "--type", "authorization_request",
		"--tier", "high", "--provider", "Scottish Widows", "--blocking")
	if err != nil {
		t.Fatalf("chaser add failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Created chase:") {
		t.Fatalf("unexpected add output: %s", out)
	}

	out, err = env.RunChaser(env.BinaryDir, "list")
	if err != nil {
		t.Fatalf("chaser list failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "CL-0042") {
		t.Fatalf("expected CL-0042 in list output: %s", out)
	}

	out, err = env.RunChaser(env.BinaryDir, "dashboard")
	if err != nil {
		t.Fatalf("chaser dashboard failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Active chases: 1") {
		t.Fatalf("unexpected dashboard output: %s", out)
	}
}
