package domain

// QueryMode selects how an interactive query is answered: through the
// reasoning loop, or by deterministic keyword intent matching.
type QueryMode string

const (
	QueryModeRuleBased   QueryMode = "rule_based"
	QueryModeLLMAssisted QueryMode = "llm_assisted"
)

// ParseQueryMode validates a raw mode string. An empty mode defaults to
// llm_assisted.
func ParseQueryMode(raw string) (QueryMode, error) {
	if raw == "" {
		return QueryModeLLMAssisted, nil
	}
	m := QueryMode(raw)
	switch m {
	case QueryModeRuleBased, QueryModeLLMAssisted:
		return m, nil
	}
	return "", ErrInvalidQueryMode
}
