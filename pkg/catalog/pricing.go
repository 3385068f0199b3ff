package catalog

import "strings"

// Cost returns the estimated input, output and total cost in USD for the
// given token counts, using the model's per-million prices.
func Cost(m Model, inputTokens, outputTokens int64) (float64, float64, float64) {
	inputCost := float64(inputTokens) / 1_000_000.0 * m.CostPerMillionInput
	outputCost := float64(outputTokens) / 1_000_000.0 * m.CostPerMillionOutput
	return inputCost, outputCost, inputCost + outputCost
}

// Lookup resolves a model name as reported by an upstream, such as
// "anthropic/claude-sonnet-4", "claude-sonnet-4-20250514" or
// "gpt-4o-2024-08-06", back to its catalog entry.
func Lookup(name string) (Model, bool) {
	if m, ok := ByID(name); ok {
		return m, true
	}

	normalized := normalizeModel(name)
	for _, m := range models {
		if m.ID == normalized {
			return m, true
		}
		for _, upstream := range m.Upstream {
			if normalizeModel(upstream) == normalized {
				return m, true
			}
		}
	}
	return Model{}, false
}

func normalizeModel(model string) string {
	normalized := strings.ToLower(strings.TrimSpace(model))
	if normalized == "" {
		return normalized
	}

	// Strip OpenRouter-style vendor prefix: anthropic/claude-opus-4
	if idx := strings.LastIndex(normalized, "/"); idx != -1 {
		normalized = normalized[idx+1:]
	}

	// Strip Anthropic-style date suffix: -YYYYMMDD (8 consecutive digits)
	if idx := strings.LastIndex(normalized, "-"); idx != -1 {
		suffix := normalized[idx+1:]
		if len(suffix) == 8 && isDigits(suffix) {
			normalized = normalized[:idx]
		}
	}

	// Strip OpenAI-style date suffix: -YYYY-MM-DD
	normalized = stripOpenAIDateSuffix(normalized)

	// Anthropic aliases: claude-sonnet-4-0 -> claude-sonnet-4
	normalized = strings.TrimSuffix(normalized, "-0")
	normalized = strings.ReplaceAll(normalized, "4.5", "4-5")
	return normalized
}

// stripOpenAIDateSuffix removes a trailing -YYYY-MM-DD date suffix from a model name.
func stripOpenAIDateSuffix(model string) string {
	if len(model) < 12 {
		return model
	}

	suffix := model[len(model)-11:]
	if suffix[0] != '-' {
		return model
	}
	date := suffix[1:]
	if isDigits(date[0:4]) && date[4] == '-' && isDigits(date[5:7]) && date[7] == '-' && isDigits(date[8:10]) {
		return model[:len(model)-11]
	}
	return model
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
