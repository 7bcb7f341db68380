package scoring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ipWeightTable() WeightTable {
	return WeightTable{
		ProviderVirusTotal: 0.05,
		ProviderBlocklist:  0.25,
		ProviderAbuseIPDB:  0.20,
		ProviderCrowdSec:   0.15,
		ProviderCriminalIP: 0.15,
		ProviderThreatbook: 0.20,
	}
}

func TestAdjustedWeightsSumToOne(t *testing.T) {
	tests := []struct {
		name        string
		contributed map[string]bool
	}{
		{
			name: "all contributed",
			contributed: map[string]bool{
				ProviderVirusTotal: true, ProviderBlocklist: true, ProviderAbuseIPDB: true,
				ProviderCrowdSec: true, ProviderCriminalIP: true, ProviderThreatbook: true,
			},
		},
		{
			name: "half failed",
			contributed: map[string]bool{
				ProviderVirusTotal: false, ProviderBlocklist: true, ProviderAbuseIPDB: true,
				ProviderCrowdSec: false, ProviderCriminalIP: true, ProviderThreatbook: false,
			},
		},
		{
			name: "single survivor",
			contributed: map[string]bool{
				ProviderVirusTotal: false, ProviderBlocklist: false, ProviderAbuseIPDB: true,
				ProviderCrowdSec: false, ProviderCriminalIP: false, ProviderThreatbook: false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saw := NewAdaptiveSAW(ipWeightTable(), map[string]float64{}, tt.contributed)
			adjusted := saw.AdjustedWeights()

			sum := 0.0
			for name, weight := range adjusted {
				if tt.contributed[name] {
					sum += weight
				} else {
					assert.Zero(t, weight, "failed provider %s must carry zero weight", name)
				}
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
		})
	}
}

func TestOverallAllProvidersFailed(t *testing.T) {
	contributed := map[string]bool{}
	for name := range ipWeightTable() {
		contributed[name] = false
	}

	saw := NewAdaptiveSAW(ipWeightTable(), map[string]float64{ProviderAbuseIPDB: 90}, contributed)
	assert.Zero(t, saw.Overall())
}

func TestOverallSingleContributorGetsFullWeight(t *testing.T) {
	contributed := map[string]bool{}
	for name := range ipWeightTable() {
		contributed[name] = false
	}
	contributed[ProviderCrowdSec] = true

	saw := NewAdaptiveSAW(ipWeightTable(), map[string]float64{ProviderCrowdSec: 73.5}, contributed)
	assert.InDelta(t, 73.5, saw.Overall(), 1e-9)
}

func TestOverallOrderIndependent(t *testing.T) {
	weights := ipWeightTable()
	scores := map[string]float64{
		ProviderVirusTotal: 40, ProviderBlocklist: 100, ProviderAbuseIPDB: 85,
		ProviderCrowdSec: 60, ProviderCriminalIP: 31, ProviderThreatbook: 55,
	}
	contributed := map[string]bool{
		ProviderVirusTotal: true, ProviderBlocklist: true, ProviderAbuseIPDB: true,
		ProviderCrowdSec: false, ProviderCriminalIP: true, ProviderThreatbook: true,
	}

	reference := NewAdaptiveSAW(weights, scores, contributed).Overall()

	// Map iteration order is already randomized, but rebuild the inputs in
	// shuffled insertion order anyway to pin the property down.
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	for i := 0; i < 10; i++ {
		rand.Shuffle(len(names), func(a, b int) { names[a], names[b] = names[b], names[a] })

		w := make(WeightTable, len(names))
		s := make(map[string]float64, len(names))
		c := make(map[string]bool, len(names))
		for _, name := range names {
			w[name] = weights[name]
			s[name] = scores[name]
			c[name] = contributed[name]
		}

		got := NewAdaptiveSAW(w, s, c).Overall()
		require.InDelta(t, reference, got, 1e-9)
	}
}

func TestOverallRedistribution(t *testing.T) {
	// Two providers at weight 0.5 each; one fails. The survivor must end up
	// with the full weight, not half of it.
	weights := WeightTable{"a": 0.5, "b": 0.5}
	scores := map[string]float64{"a": 80, "b": 20}
	contributed := map[string]bool{"a": true, "b": false}

	saw := NewAdaptiveSAW(weights, scores, contributed)
	assert.InDelta(t, 80.0, saw.Overall(), 1e-9)
}

func TestBlend(t *testing.T) {
	assert.InDelta(t, 42.0, Blend(42, 95, false), 1e-9)
	assert.InDelta(t, 42*0.4+95*0.6, Blend(42, 95, true), 1e-9)
}
