package scoring

// WeightTable maps provider name to its nominal confidence weight.
// Nominal weights are configuration and should sum to 1.0 per observable type.
type WeightTable map[string]float64

// Dual-score blend weights: the TIP-sourced overall and the SIEM-rule score
// are tracked independently and combined 40/60.
const (
	TIPBlendWeight   = 0.40
	WazuhBlendWeight = 0.60
)

// AdaptiveSAW computes a simple-additive-weighting overall score with
// failure-aware weight redistribution: the nominal weight of every provider
// that did not contribute is pooled and spread evenly across the providers
// that did, so a partial provider set still produces a fully-weighted score.
type AdaptiveSAW struct {
	weights     WeightTable
	scores      map[string]float64
	contributed map[string]bool
}

// NewAdaptiveSAW creates an engine over one aggregation run's results.
func NewAdaptiveSAW(weights WeightTable, scores map[string]float64, contributed map[string]bool) *AdaptiveSAW {
	return &AdaptiveSAW{
		weights:     weights,
		scores:      scores,
		contributed: contributed,
	}
}

// AdjustedWeights returns the post-redistribution weight table.
// Invariant: the adjusted weights of contributing providers sum to the same
// total as the nominal table (1.0 for a normalized table); non-contributing
// providers get weight 0.
func (s *AdaptiveSAW) AdjustedWeights() WeightTable {
	adjusted := make(WeightTable, len(s.weights))
	failurePool := 0.0
	var successKeys []string

	for name, weight := range s.weights {
		if s.contributed[name] {
			adjusted[name] = weight
			successKeys = append(successKeys, name)
		} else {
			failurePool += weight
			adjusted[name] = 0
		}
	}

	if len(successKeys) > 0 && failurePool > 0 {
		share := failurePool / float64(len(successKeys))
		for _, name := range successKeys {
			adjusted[name] += share
		}
	}

	return adjusted
}

// Overall computes the weighted overall score in [0,100].
// If no provider contributed the result is 0; there is no weight state to
// divide by in that case.
func (s *AdaptiveSAW) Overall() float64 {
	adjusted := s.AdjustedWeights()

	overall := 0.0
	for name, weight := range adjusted {
		if s.contributed[name] {
			overall += s.scores[name] * weight
		}
	}
	return overall
}

// Blend combines the TIP overall score with the SIEM-rule score (both on the
// 0-100 scale). Without a SIEM signal the TIP score stands alone.
func Blend(tipScore, wazuhScore float64, hasWazuh bool) float64 {
	if !hasWazuh {
		return tipScore
	}
	return tipScore*TIPBlendWeight + wazuhScore*WazuhBlendWeight
}
