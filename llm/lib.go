package llm

import (
	"github.com/slipwaylabs/slipway/project"
	"github.com/slipwaylabs/slipway/validate"
)

// Token and temperature defaults for the two request kinds. Planning is a
// small payload that benefits from some variety; generation is large and
// wants the model kept on rails.
const (
	PlanMaxTokens   = 2048
	PlanTemperature = 0.6

	GenerateMaxTokens   = 8192
	GenerateTemperature = 0.4
)

// PlanRequest builds the completion request that asks for a project
// manifest. The rules are echoed into the prompt so the model is told the
// same bounds the validator will enforce.
func PlanRequest(brief string, rules validate.ManifestRules) Request {
	return Request{
		System:      planningSystemPrompt(),
		User:        planningPrompt(project.SanitizeBrief(brief), rules),
		MaxTokens:   PlanMaxTokens,
		Temperature: PlanTemperature,
	}
}

// GenerateRequest builds the completion request that asks for the full file
// set a manifest plans. Retries reuse the identical request: echoing broken
// output back at the model anchors it on its own mistakes.
func GenerateRequest(m *project.Manifest, rules validate.Rules) Request {
	return Request{
		System:      generationSystemPrompt(),
		User:        generationPrompt(m, rules),
		MaxTokens:   GenerateMaxTokens,
		Temperature: GenerateTemperature,
	}
}
