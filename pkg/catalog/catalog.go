// Package catalog is the static table of chat models agentbase can route to.
package catalog

import "slices"

// Provider is the company behind a model.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
)

// Status is the availability indicator shown next to a model.
type Status string

const (
	StatusEnabled  Status = "enabled"
	StatusBeta     Status = "beta"
	StatusDisabled Status = "disabled"
)

// Upstream route names used as keys in Model.Upstream.
const (
	RouteOpenRouter = "openrouter"
	RouteAnthropic  = "anthropic"
)

// DefaultModelID is used whenever a request names no model, or an unknown one.
const DefaultModelID = "claude-haiku-4-5"

// Model describes one selectable chat model.
type Model struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	Provider             Provider `json:"provider"`
	IsPremium            bool     `json:"isPremium"`
	SupportsThinking     bool     `json:"supportsThinking"`
	Status               Status   `json:"statusIndicator"`
	ContextWindow        int      `json:"contextWindow"`
	CostPerMillionInput  float64  `json:"costPerMillionInput"`
	CostPerMillionOutput float64  `json:"costPerMillionOutput"`

	// Upstream maps a route name to the model id that route expects.
	Upstream map[string]string `json:"-"`
}

// UpstreamID returns the id the given route expects for this model.
func (m Model) UpstreamID(route string) (string, bool) {
	id, ok := m.Upstream[route]
	return id, ok
}

var models = []Model{
	{
		ID:                   "claude-haiku-4-5",
		Name:                 "Claude Haiku 4.5",
		Description:          "Rápido y eficiente para tareas generales",
		Provider:             ProviderAnthropic,
		Status:               StatusEnabled,
		ContextWindow:        200_000,
		CostPerMillionInput:  1,
		CostPerMillionOutput: 5,
		Upstream: map[string]string{
			RouteOpenRouter: "anthropic/claude-haiku-4-5",
			RouteAnthropic:  "claude-haiku-4-5",
		},
	},
	{
		ID:                   "claude-sonnet-4",
		Name:                 "Claude Sonnet 4",
		Description:          "Balance perfecto entre velocidad y capacidad",
		Provider:             ProviderAnthropic,
		IsPremium:            true,
		SupportsThinking:     true,
		Status:               StatusEnabled,
		ContextWindow:        200_000,
		CostPerMillionInput:  3,
		CostPerMillionOutput: 15,
		Upstream: map[string]string{
			RouteOpenRouter: "anthropic/claude-sonnet-4",
			RouteAnthropic:  "claude-sonnet-4-0",
		},
	},
	{
		ID:                   "claude-opus-4",
		Name:                 "Claude Opus 4",
		Description:          "Máxima capacidad para tareas complejas",
		Provider:             ProviderAnthropic,
		IsPremium:            true,
		SupportsThinking:     true,
		Status:               StatusEnabled,
		ContextWindow:        200_000,
		CostPerMillionInput:  15,
		CostPerMillionOutput: 75,
		Upstream: map[string]string{
			RouteOpenRouter: "anthropic/claude-opus-4",
			RouteAnthropic:  "claude-opus-4-0",
		},
	},
	{
		ID:                   "gpt-4o",
		Name:                 "GPT-4o",
		Description:          "Modelo multimodal de alta capacidad",
		Provider:             ProviderOpenAI,
		IsPremium:            true,
		Status:               StatusEnabled,
		ContextWindow:        128_000,
		CostPerMillionInput:  2.5,
		CostPerMillionOutput: 10,
		Upstream: map[string]string{
			RouteOpenRouter: "openai/gpt-4o",
		},
	},
	{
		ID:                   "gpt-4o-mini",
		Name:                 "GPT-4o Mini",
		Description:          "Versión optimizada y económica de GPT-4o",
		Provider:             ProviderOpenAI,
		Status:               StatusEnabled,
		ContextWindow:        128_000,
		CostPerMillionInput:  0.15,
		CostPerMillionOutput: 0.6,
		Upstream: map[string]string{
			RouteOpenRouter: "openai/gpt-4o-mini",
		},
	},
	{
		ID:                   "gemini-2.5-pro",
		Name:                 "Gemini 2.5 Pro",
		Description:          "Modelo avanzado de Google para razonamiento",
		Provider:             ProviderGoogle,
		IsPremium:            true,
		Status:               StatusEnabled,
		ContextWindow:        1_000_000,
		CostPerMillionInput:  3.5,
		CostPerMillionOutput: 10.5,
		Upstream: map[string]string{
			RouteOpenRouter: "google/gemini-2.5-pro",
		},
	},
}

// All returns every model in display order.
func All() []Model {
	return slices.Clone(models)
}

// ByID returns the model with the given id.
func ByID(id string) (Model, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// Free returns the models available without a premium plan.
func Free() []Model {
	return filter(func(m Model) bool { return !m.IsPremium })
}

// Premium returns the models that require a premium plan.
func Premium() []Model {
	return filter(func(m Model) bool { return m.IsPremium })
}

// IsValid reports whether id names a model in the catalog.
func IsValid(id string) bool {
	_, ok := ByID(id)
	return ok
}

// Default returns the default model.
func Default() Model {
	m, _ := ByID(DefaultModelID)
	return m
}

// Resolve validates a client supplied model id. Empty, unknown and disabled
// ids resolve to the default model.
func Resolve(id string) Model {
	m, ok := ByID(id)
	if !ok || m.Status == StatusDisabled {
		return Default()
	}
	return m
}

func filter(keep func(Model) bool) []Model {
	out := make([]Model, 0, len(models))
	for _, m := range models {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}
