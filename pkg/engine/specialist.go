package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ensembled/ensemble/pkg/api"
)

// classification is the strict decode target for the classifier's JSON
// answer.
type classification struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Complexity string `json:"complexity"`
}

// defaultClassification is the fixed fallback when the classifier's
// answer cannot be decoded.
func defaultClassification() classification {
	return classification{
		Primary:    categoryCoding,
		Secondary:  "general",
		Complexity: "medium",
	}
}

// runSpecialist classifies the prompt with one cheap provider call,
// routes it to up to three specialist models via the fixed lookup
// table, and calls each selected model once with the bare prompt.
func (e *Engine) runSpecialist(ctx context.Context, r *run) (*api.OrchestrationResult, error) {
	cls, fallback, err := e.classify(ctx, r.req.Prompt)
	if err != nil {
		return nil, err
	}

	selected, reasons := routeSpecialists(cls, r.models)

	result := &api.OrchestrationResult{
		Strategy: api.StrategySpecialist,
		Models:   selected,
		Routing: &api.Routing{
			Primary:    cls.Primary,
			Secondary:  cls.Secondary,
			Complexity: cls.Complexity,
			Fallback:   fallback,
			Reasons:    reasons,
		},
	}

	// Specialists answer the bare original prompt; no history injection.
	for _, model := range selected {
		text, err := e.provider.Complete(ctx, r.req.Prompt, r.callOptions(model))
		if err != nil {
			return nil, err
		}

		result.Responses = append(result.Responses, api.ModelResponse{
			Model:     model,
			Response:  text,
			Timestamp: time.Now().UTC(),
		})

		if err := r.append(ctx, api.RoleAssistant, text, model, map[string]string{
			"routing": reasons[model],
		}); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// classify issues the classification call and strictly decodes the
// answer. A provider failure is fatal; an undecodable answer degrades to
// the fixed default classification, reported via the fallback flag.
func (e *Engine) classify(ctx context.Context, prompt string) (classification, bool, error) {
	text, err := e.provider.Complete(ctx,
		classificationPrompt(prompt),
		foldOptions(e.cfg.ClassifierModel))
	if err != nil {
		return classification{}, false, err
	}

	cls, ok := decodeClassification(text)
	if !ok {
		slog.Warn("classification answer not decodable, using default",
			"classifier", e.cfg.ClassifierModel,
		)
		return defaultClassification(), true, nil
	}
	return cls, false, nil
}

// decodeClassification decodes the classifier's answer into a validated
// classification. The answer must contain a JSON object with a known
// primary category and complexity; a missing or unknown secondary
// degrades to "general" rather than rejecting the whole answer.
func decodeClassification(text string) (classification, bool) {
	raw := extractJSONObject(text)
	if raw == "" {
		return classification{}, false
	}

	var cls classification
	if err := json.Unmarshal([]byte(raw), &cls); err != nil {
		return classification{}, false
	}

	cls.Primary = strings.ToLower(strings.TrimSpace(cls.Primary))
	cls.Secondary = strings.ToLower(strings.TrimSpace(cls.Secondary))
	cls.Complexity = strings.ToLower(strings.TrimSpace(cls.Complexity))

	if !knownCategories[cls.Primary] {
		return classification{}, false
	}
	switch cls.Complexity {
	case "low", "medium", "high":
	default:
		return classification{}, false
	}
	if cls.Secondary == "" || (!knownCategories[cls.Secondary] && cls.Secondary != "general") {
		cls.Secondary = "general"
	}

	return cls, true
}

// extractJSONObject returns the first balanced {...} span in text, or ""
// when none exists. Classifiers tend to wrap the object in prose or
// code fences.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// routeSpecialists maps the classification to up to N models
// (N = 1/2/3 for low/medium/high complexity), honoring the available
// list as a filter. Primary-category candidates come first, then
// secondary-category backfill, then the first available model as the
// last resort.
func routeSpecialists(cls classification, available []string) ([]string, map[string]string) {
	n := modelCountForComplexity(cls.Complexity)

	isAvailable := make(map[string]bool, len(available))
	for _, m := range available {
		isAvailable[m] = true
	}

	var selected []string
	reasons := make(map[string]string)
	chosen := make(map[string]bool)

	pick := func(candidates []string, reason string) {
		for _, m := range candidates {
			if len(selected) >= n {
				return
			}
			if !isAvailable[m] || chosen[m] {
				continue
			}
			selected = append(selected, m)
			chosen[m] = true
			reasons[m] = reason
		}
	}

	pick(specialistRouting[cls.Primary],
		fmt.Sprintf("Primary specialist for %s", cls.Primary))
	pick(specialistRouting[cls.Secondary],
		fmt.Sprintf("Secondary specialist for %s", cls.Secondary))

	if len(selected) == 0 && len(available) > 0 {
		selected = append(selected, available[0])
		reasons[available[0]] = "Default model"
	}

	return selected, reasons
}
