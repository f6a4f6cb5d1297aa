package chunker

// TokenEstimator maps text to an approximate token count. Any monotonic,
// documented function works; chunk budgets are heuristic, not tokenizer
// contracts.
type TokenEstimator func(text string) int

// EstimateTokens is the default estimator: roughly one token per four
// characters. Intentionally coarse; exact tokenization is not required for
// chunk sizing.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	tokens := len(text) / 4
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
