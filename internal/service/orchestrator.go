package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/adviserops/chaser/internal/domain"
	"github.com/adviserops/chaser/internal/telemetry"
	"github.com/adviserops/chaser/internal/tools"
)

// ToolCall is a reasoner's decision to run one tool with the given arguments
type ToolCall struct {
	Name      string
	Arguments json.RawMessage
}

// FinalAnswer is a reasoner's decision to stop and answer
type FinalAnswer struct {
	Answer     string
	Intent     string
	Confidence float64
}

// Decision is the reasoner's output for one round: exactly one of Call or
// Final is set.
type Decision struct {
	Call  *ToolCall
	Final *FinalAnswer
}

// Observation records what happened in one round of the loop. Either Result
// or Err is set.
type Observation struct {
	Round     int             `json:"round"`
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    any             `json:"result,omitempty"`
	Err       string          `json:"error,omitempty"`
}

// ReasonerRequest carries everything a reasoner needs to decide the next
// step: the query, the tool descriptors it may choose from, and the ordered
// transcript of what has happened so far.
type ReasonerRequest struct {
	Query        string
	Tools        []*tools.Descriptor
	Observations []Observation
}

// Reasoner decides, one round at a time, whether to call a tool or answer.
// Implementations must be stateless across queries.
type Reasoner interface {
	Decide(ctx context.Context, req ReasonerRequest) (*Decision, error)
}

// Loop states
const (
	loopAwaitingDecision = "AWAITING_DECISION"
	loopExecutingTool    = "EXECUTING_TOOL"
	loopDone             = "DONE"
	loopFailed           = "FAILED"
)

const (
	defaultMaxRounds   = 6
	defaultToolTimeout = 15 * time.Second
)

// OrchestratorConfig bounds a single query's reasoning loop
type OrchestratorConfig struct {
	MaxRounds   int
	ToolTimeout time.Duration
}

// DefaultOrchestratorConfig returns the production loop bounds
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MaxRounds:   defaultMaxRounds,
		ToolTimeout: defaultToolTimeout,
	}
}

// QueryResult is the outcome of one orchestrated query
type QueryResult struct {
	Answer       string
	Intent       string
	Confidence   float64
	Rows         any
	Observations []Observation
	Rounds       int
}

// Orchestrator runs the reasoning loop: the reasoner picks a tool, the
// orchestrator executes it and feeds the observation back, until the reasoner
// answers or a bound trips. Each query gets its own loop; no state is shared
// between queries.
type Orchestrator struct {
	catalog  *tools.Catalog
	reasoner Reasoner
	cfg      OrchestratorConfig
}

// NewOrchestrator creates an Orchestrator over a sealed catalog
func NewOrchestrator(catalog *tools.Catalog, reasoner Reasoner, cfg OrchestratorConfig) *Orchestrator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = defaultMaxRounds
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = defaultToolTimeout
	}
	return &Orchestrator{catalog: catalog, reasoner: reasoner, cfg: cfg}
}

// AnswerQuery answers one natural-language query on behalf of a firm. In
// llm_assisted mode the reasoning loop drives tool selection; in rule_based
// mode the query is matched to a single tool by keyword intent.
func (o *Orchestrator) AnswerQuery(ctx context.Context, firmID, query string, mode domain.QueryMode) (*QueryResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "Orchestrator.AnswerQuery", telemetry.SpanAttributes{
		FirmID:    firmID,
		Operation: "answer_query",
	})
	defer span.End()

	if query == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query is required")
	}

	switch mode {
	case domain.QueryModeRuleBased:
		return o.answerRuleBased(ctx, firmID, query)
	case domain.QueryModeLLMAssisted, "":
	default:
		return nil, domain.ErrInvalidQueryMode
	}

	if o.reasoner == nil {
		return nil, domain.ErrReasoningUnavailable
	}

	toolList := o.catalog.List()
	var observations []Observation
	var rows any
	haveRows := false
	lastFailedTool := ""

	for round := 1; round <= o.cfg.MaxRounds; round++ {
		decision, err := o.reasoner.Decide(ctx, ReasonerRequest{
			Query:        query,
			Tools:        toolList,
			Observations: observations,
		})
		if err != nil {
			log.Printf("orchestrator: reasoner failed on round %d (state=%s): %v", round, loopFailed, err)
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeReasoningUnavailable, "reasoner request failed", err)
		}

		if decision != nil && decision.Final != nil {
			log.Printf("orchestrator: query answered on round %d (state=%s)", round, loopDone)
			return &QueryResult{
				Answer:       decision.Final.Answer,
				Intent:       decision.Final.Intent,
				Confidence:   decision.Final.Confidence,
				Rows:         rows,
				Observations: observations,
				Rounds:       round,
			}, nil
		}

		if decision == nil || decision.Call == nil {
			observations = append(observations, Observation{
				Round: round,
				Err:   "[" + domain.ErrCodeValidation + "] reasoner returned neither a tool call nor an answer",
			})
			continue
		}

		call := decision.Call
		descriptor, ok := o.catalog.Get(call.Name)
		if !ok {
			// Unknown tool is recoverable: the reasoner sees the error
			// and can pick again next round.
			obs := Observation{
				Round:     round,
				Tool:      call.Name,
				Arguments: call.Arguments,
				Err:       fmt.Sprintf("[%s] unknown tool %q", domain.ErrCodeValidation, call.Name),
			}
			observations = append(observations, obs)
			if done, outcome := o.repeatedFailure(call.Name, &lastFailedTool, rows, haveRows, observations, round); done {
				return outcome.result, outcome.err
			}
			continue
		}

		log.Printf("orchestrator: round %d (state=%s) tool=%s", round, loopExecutingTool, call.Name)
		result, invokeErr := o.invoke(ctx, descriptor, firmID, call.Arguments)
		if invokeErr != nil {
			observations = append(observations, Observation{
				Round:     round,
				Tool:      call.Name,
				Arguments: call.Arguments,
				Err:       fmt.Sprintf("[%s] %v", domain.ErrCodeToolExecution, invokeErr),
			})
			if done, outcome := o.repeatedFailure(call.Name, &lastFailedTool, rows, haveRows, observations, round); done {
				return outcome.result, outcome.err
			}
			continue
		}

		lastFailedTool = ""
		rows = result
		haveRows = true
		observations = append(observations, Observation{
			Round:     round,
			Tool:      call.Name,
			Arguments: call.Arguments,
			Result:    result,
		})
	}

	// Round cap reached without a final answer.
	log.Printf("orchestrator: round cap %d reached (state=%s)", o.cfg.MaxRounds, loopAwaitingDecision)
	if haveRows {
		return &QueryResult{
			Answer:       "Reached the reasoning round limit; returning the data gathered so far.",
			Intent:       "partial",
			Confidence:   0.3,
			Rows:         rows,
			Observations: observations,
			Rounds:       o.cfg.MaxRounds,
		}, nil
	}
	return nil, domain.ErrLoopBoundExceeded
}

// ruleIntents maps query keywords to a single tool, most specific first.
// Substring matching keeps this deterministic and dependency-free; it is
// deliberately rough, the reasoning loop handles anything subtler.
var ruleIntents = []struct {
	intent   string
	tool     string
	keywords []string
}{
	{"stuck_items", "find_stuck_items", []string{"stuck", "stalled"}},
	{"blocking_items", "identify_blocking_items", []string{"blocking", "blocked"}},
	{"provider_performance", "analyze_provider_performance", []string{"provider"}},
	{"chase_recommendations", "get_chase_recommendations", []string{"recommend"}},
	{"chase_priorities", "prioritize_chase_items", []string{"priorit", "urgent"}},
	{"overdue_follow_ups", "find_overdue_follow_ups", []string{"overdue", "follow"}},
	{"review_due", "find_review_due_clients", []string{"review", "meeting"}},
	{"allowance_availability", "check_allowance_availability", []string{"isa", "allowance", "headroom"}},
	{"excess_cash", "analyze_excess_cash", []string{"cash", "excess"}},
	{"documents_waiting", "list_documents_waiting", []string{"document", "waiting", "pending"}},
	{"birthdays", "find_birthday_clients", []string{"birthday"}},
	{"retirement_demographics", "analyze_retirement_demographics", []string{"retirement", "demographic", "pension"}},
	{"needs_chasing", "list_items_needing_chase", []string{"chase", "outstanding"}},
}

func matchRuleIntent(query string) (intent, tool string, ok bool) {
	q := strings.ToLower(query)
	for _, ri := range ruleIntents {
		for _, kw := range ri.keywords {
			if strings.Contains(q, kw) {
				return ri.intent, ri.tool, true
			}
		}
	}
	return "", "", false
}

// answerRuleBased dispatches the query to exactly one tool chosen by keyword
// intent. It needs no reasoner and always finishes in a single round.
func (o *Orchestrator) answerRuleBased(ctx context.Context, firmID, query string) (*QueryResult, error) {
	intent, toolName, ok := matchRuleIntent(query)
	if !ok {
		return &QueryResult{
			Answer: "No insight matched this query; rephrase it or use llm_assisted mode.",
			Intent: "unknown",
			Rounds: 1,
		}, nil
	}

	descriptor, found := o.catalog.Get(toolName)
	if !found {
		return nil, domain.NewDomainError(domain.ErrCodeInternalError,
			fmt.Sprintf("intent %s maps to unregistered tool %s", intent, toolName))
	}

	log.Printf("orchestrator: rule_based query intent=%s tool=%s", intent, toolName)
	args := json.RawMessage(`{}`)
	result, err := o.invoke(ctx, descriptor, firmID, args)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeToolExecution,
			fmt.Sprintf("tool %s failed", toolName), err)
	}

	return &QueryResult{
		Answer:     fmt.Sprintf("Matched the query to %s.", strings.ReplaceAll(intent, "_", " ")),
		Intent:     intent,
		Confidence: 0.6,
		Rows:       result,
		Observations: []Observation{{
			Round:     1,
			Tool:      toolName,
			Arguments: args,
			Result:    result,
		}},
		Rounds: 1,
	}, nil
}

type loopOutcome struct {
	result *QueryResult
	err    error
}

// repeatedFailure enforces the two-strikes rule: the same tool failing twice
// in a row ends the loop rather than burning the remaining rounds.
func (o *Orchestrator) repeatedFailure(tool string, lastFailed *string, rows any, haveRows bool, observations []Observation, round int) (bool, loopOutcome) {
	if *lastFailed != tool {
		*lastFailed = tool
		return false, loopOutcome{}
	}
	if haveRows {
		return true, loopOutcome{result: &QueryResult{
			Answer:       fmt.Sprintf("Tool %s failed repeatedly; returning the data gathered before the failure.", tool),
			Intent:       "partial",
			Confidence:   0.3,
			Rows:         rows,
			Observations: observations,
			Rounds:       round,
		}}
	}
	return true, loopOutcome{err: domain.NewDomainError(domain.ErrCodeToolExecution,
		fmt.Sprintf("tool %s failed twice in a row with no results collected", tool))}
}

// invoke runs one tool call under its own timeout
func (o *Orchestrator) invoke(ctx context.Context, d *tools.Descriptor, firmID string, args json.RawMessage) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.ToolTimeout)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "Orchestrator.invoke", telemetry.SpanAttributes{
		FirmID:    firmID,
		Tool:      d.Name,
		Operation: "tool_call",
	})
	defer span.End()

	result, err := d.Invoke(ctx, firmID, args)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return result, nil
}
