package reasoning

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/wilfredeveloper/mypa/assistant/contract"
	planx "github.com/wilfredeveloper/mypa/assistant/plan"
)

// Resilient wraps a primary reasoning service with the deterministic
// fallback. Every call tries the primary first; any error degrades to the
// fallback instead of failing the orchestration. The fallback itself never
// errors, so neither does Resilient.
type Resilient struct {
	primary  contractx.ReasoningService
	fallback contractx.ReasoningService
}

var _ contractx.ReasoningService = (*Resilient)(nil)

// NewResilient builds the wrapper. A nil primary means fallback-only mode,
// which is how the assistant runs without model credentials.
func NewResilient(primary contractx.ReasoningService) *Resilient {
	return &Resilient{primary: primary, fallback: Fallback{}}
}

func (r *Resilient) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.Classification, error) {
	if r.primary != nil {
		out, err := r.primary.Classify(ctx, req)
		if err == nil {
			return out, nil
		}
		log.Warn().Err(err).Msg("classification degraded to fallback")
	}
	return r.fallback.Classify(ctx, req)
}

func (r *Resilient) Plan(ctx context.Context, req contractx.PlanRequest) (*planx.Plan, error) {
	if r.primary != nil {
		p, err := r.primary.Plan(ctx, req)
		if err == nil && p != nil {
			if verr := p.Validate(); verr == nil {
				return p, nil
			} else {
				log.Warn().Err(verr).Str("plan_id", p.ID).Msg("model plan failed validation, degraded to fallback")
			}
		} else if err != nil {
			log.Warn().Err(err).Msg("planning degraded to fallback")
		}
	}
	return r.fallback.Plan(ctx, req)
}

func (r *Resilient) EvaluateStep(ctx context.Context, req contractx.EvaluateRequest) (contractx.StepEvaluation, error) {
	if r.primary != nil {
		out, err := r.primary.EvaluateStep(ctx, req)
		if err == nil {
			return out, nil
		}
		log.Warn().Err(err).Msg("step evaluation degraded to fallback")
	}
	return r.fallback.EvaluateStep(ctx, req)
}

func (r *Resilient) Synthesize(ctx context.Context, req contractx.SynthesizeRequest) (string, error) {
	if r.primary != nil {
		out, err := r.primary.Synthesize(ctx, req)
		if err == nil {
			return out, nil
		}
		log.Warn().Err(err).Msg("synthesis degraded to fallback")
	}
	return r.fallback.Synthesize(ctx, req)
}
