package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/planner.txt
	plannerRaw string

	//go:embed template/evaluator.txt
	evaluatorRaw string

	//go:embed template/synthesizer.txt
	synthesizerRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Classifier  string
	Planner     string
	Evaluator   string
	Synthesizer string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// This is safe to call concurrently; the embed is compile-time, and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier:  strings.TrimSpace(classifierRaw),
		Planner:     strings.TrimSpace(plannerRaw),
		Evaluator:   strings.TrimSpace(evaluatorRaw),
		Synthesizer: strings.TrimSpace(synthesizerRaw),
	}
}
