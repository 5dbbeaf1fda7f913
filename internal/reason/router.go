package reason

import (
	"github.com/sukru-can1/agent1go/internal/llm"
	"github.com/sukru-can1/agent1go/internal/model"
)

// selectTier implements the 4-tier routing rules from router.py's
// select_model, ported to tier selection rather than model-name selection
// (the model-name lookup per tier lives in llm.TierModels.Resolve).
//
//   - VIP or financial matters always use Pro, regardless of complexity.
//   - Chat messages that need a response use at least Default (so tool use
//     is available), escalating to Pro for complex chat.
//   - Otherwise route purely by classified complexity.
func selectTier(classification model.ClassificationResult, ev *model.Event) llm.Tier {
	if classification.InvolvesVIP || classification.InvolvesFinancial {
		return llm.TierPro
	}

	if ev != nil && ev.Source == model.SourceChat && classification.NeedsResponse {
		if classification.Complexity == model.ComplexityComplex {
			return llm.TierPro
		}
		return llm.TierDefault
	}

	switch classification.Complexity {
	case model.ComplexitySimple:
		return llm.TierFast
	case model.ComplexityComplex:
		return llm.TierPro
	default:
		return llm.TierDefault
	}
}
