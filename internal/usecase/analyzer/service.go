package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/noplanalderson/argus/internal/entity"
	"github.com/noplanalderson/argus/internal/usecase/decision"
	"github.com/noplanalderson/argus/internal/usecase/scoring"
)

// Collector gathers raw provider results for an observable.
type Collector interface {
	Collect(ctx context.Context, obs entity.Observable, force bool) ([]entity.ProviderResult, bool, error)
}

// BlockIndex answers local block-set membership for IPs.
type BlockIndex interface {
	Contains(ip string) (bool, error)
}

// DecisionEngine resolves the block decision for a scored run.
type DecisionEngine interface {
	Evaluate(ctx context.Context, in decision.Input) (*decision.Outcome, error)
}

// ObservableStore persists observable identity rows.
type ObservableStore interface {
	GetByValue(ctx context.Context, observable string) (*entity.ObservableInfo, error)
	Upsert(ctx context.Context, info *entity.ObservableInfo) error
}

// Request is one analysis submission.
type Request struct {
	Observable string             `json:"observable"`
	Frequency  int                `json:"frequency"`
	Rule       *scoring.WazuhRule `json:"rule,omitempty"`
	Force      bool               `json:"force"`
}

// Result is the full outcome of one analysis run.
type Result struct {
	Observable    string                `json:"observable"`
	Type          entity.ObservableType `json:"type"`
	SubScores     []entity.SubScore     `json:"sub_scores"`
	Weights       scoring.WeightTable   `json:"adjusted_weights"`
	TIPScore      float64               `json:"tip_score"`
	WazuhScore    float64               `json:"wazuh_score"`
	OverallScore  float64               `json:"overall_score"`
	Decision      entity.Decision       `json:"decision"`
	SuccessSource string                `json:"success_source"` // contributing/total, e.g. "5/6"
	Reused        bool                  `json:"reused"`
	CacheHit      bool                  `json:"cache_hit"`
	Durable       bool                  `json:"durable"`
	AnalyzedAt    time.Time             `json:"analyzed_at"`
}

// Service runs the full analysis pipeline: validate, collect, score,
// decide, persist.
type Service struct {
	collector   Collector
	blockIndex  BlockIndex
	engine      DecisionEngine
	observables ObservableStore
	ipWeights   scoring.WeightTable
	hashWeights scoring.WeightTable
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates an analyzer service.
func NewService(
	collector Collector,
	blockIndex BlockIndex,
	engine DecisionEngine,
	observables ObservableStore,
	ipWeights, hashWeights scoring.WeightTable,
	logger *slog.Logger,
) *Service {
	return &Service{
		collector:   collector,
		blockIndex:  blockIndex,
		engine:      engine,
		observables: observables,
		ipWeights:   ipWeights,
		hashWeights: hashWeights,
		logger:      logger,
		now:         time.Now,
	}
}

// Analyze runs the pipeline for one observable.
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	obs, err := entity.ParseObservable(req.Observable)
	if err != nil {
		return nil, err
	}
	if obs.Type == entity.ObservableIP && !obs.IsPublicIP() {
		return nil, fmt.Errorf("observable %s is not publicly routable", obs.Value)
	}

	results, cacheHit, err := s.collector.Collect(ctx, obs, req.Force)
	if err != nil {
		return nil, fmt.Errorf("collect provider results: %w", err)
	}

	subScores := s.score(obs, results)

	scores := make(map[string]float64, len(subScores))
	contributed := make(map[string]bool, len(subScores))
	succeeded := 0
	for _, sub := range subScores {
		scores[sub.Provider] = sub.Score
		contributed[sub.Provider] = sub.Contributed
		if sub.Contributed {
			succeeded++
		}
	}

	weights := s.ipWeights
	if obs.Type == entity.ObservableHash {
		weights = s.hashWeights
	}

	saw := scoring.NewAdaptiveSAW(weights, scores, contributed)
	tipScore := saw.Overall()

	wazuhScore := 0.0
	hasWazuh := req.Rule != nil
	if hasWazuh {
		wazuhScore = scoring.ScoreWazuhRule(*req.Rule) * 100
	}
	overall := scoring.Blend(tipScore, wazuhScore, hasWazuh)

	info, err := s.resolveObservable(ctx, obs)
	if err != nil {
		return nil, err
	}

	outcome, err := s.engine.Evaluate(ctx, decision.Input{
		Observable:   obs,
		ObservableID: info.ID,
		SubScores:    scores,
		TIPScore:     tipScore,
		WazuhScore:   wazuhScore,
		OverallScore: overall,
		HasWazuh:     hasWazuh,
		Frequency:    req.Frequency,
	})
	if err != nil {
		return nil, err
	}

	s.enrich(ctx, info, obs, results, subScores)

	record := outcome.Record
	s.logger.Info("analysis complete",
		slog.String("observable", obs.Value),
		slog.String("type", string(obs.Type)),
		slog.Float64("overall", record.OverallScore),
		slog.String("blockmode", string(record.Decision.BlockMode)),
		slog.Bool("reused", outcome.Reused),
	)

	return &Result{
		Observable:    obs.Value,
		Type:          obs.Type,
		SubScores:     subScores,
		Weights:       saw.AdjustedWeights(),
		TIPScore:      record.TIPScore,
		WazuhScore:    record.WazuhScore,
		OverallScore:  record.OverallScore,
		Decision:      record.Decision,
		SuccessSource: fmt.Sprintf("%d/%d", succeeded, len(subScores)),
		Reused:        outcome.Reused,
		CacheHit:      cacheHit,
		Durable:       outcome.Durable,
		AnalyzedAt:    s.now().UTC(),
	}, nil
}

// score maps raw provider results to sub-scores, appends the local
// blocklist pseudo-provider for IPs, and treats every scoring failure as a
// non-contribution.
func (s *Service) score(obs entity.Observable, results []entity.ProviderResult) []entity.SubScore {
	var subScores []entity.SubScore

	for _, result := range results {
		fn, ok := scoring.ForProvider(result.Provider)
		if !ok {
			continue
		}

		if !result.Success {
			subScores = append(subScores, entity.SubScore{Provider: result.Provider})
			continue
		}

		sub, err := fn(result.Raw)
		if err != nil {
			s.logger.Debug("provider payload not scorable",
				slog.String("provider", result.Provider),
				slog.String("observable", obs.Value),
				slog.Any("error", err))
			subScores = append(subScores, entity.SubScore{Provider: result.Provider})
			continue
		}
		subScores = append(subScores, sub)
	}

	if obs.Type == entity.ObservableIP && s.blockIndex != nil {
		found, err := s.blockIndex.Contains(obs.Value)
		if err != nil {
			s.logger.Warn("blocklist lookup failed",
				slog.String("observable", obs.Value), slog.Any("error", err))
			subScores = append(subScores, entity.SubScore{Provider: scoring.ProviderBlocklist})
		} else {
			subScores = append(subScores, scoring.ScoreBlocklist(found))
		}
	}

	return subScores
}

// resolveObservable loads or creates the identity row.
func (s *Service) resolveObservable(ctx context.Context, obs entity.Observable) (*entity.ObservableInfo, error) {
	info, err := s.observables.GetByValue(ctx, obs.Value)
	if err != nil {
		return nil, fmt.Errorf("load observable: %w", err)
	}
	if info != nil {
		return info, nil
	}

	now := s.now().UTC()
	info = &entity.ObservableInfo{
		ID:         uuid.Must(uuid.NewV7()),
		Observable: obs.Value,
		Type:       obs.Type,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.observables.Upsert(ctx, info); err != nil {
		return nil, fmt.Errorf("create observable: %w", err)
	}
	return info, nil
}

// enrich refreshes the identity row with provider metadata and the merged
// classification. Enrichment failures only log; the analysis stands.
func (s *Service) enrich(ctx context.Context, info *entity.ObservableInfo, obs entity.Observable, results []entity.ProviderResult, subScores []entity.SubScore) {
	classifications := make(map[string]json.RawMessage)
	for _, sub := range subScores {
		if len(sub.Classification) > 0 {
			classifications[sub.Provider] = sub.Classification
		}
	}
	if len(classifications) > 0 {
		if encoded, err := json.Marshal(classifications); err == nil {
			info.Classification = string(encoded)
		}
	}

	if obs.Type == entity.ObservableIP {
		for _, result := range results {
			if result.Provider == scoring.ProviderAbuseIPDB && result.Success {
				isp, country := scoring.AbuseIPDBMeta(result.Raw)
				if isp != "" {
					info.ISP = isp
				}
				if country != "" {
					info.Location = country
				}
				break
			}
		}
	}

	info.UpdatedAt = s.now().UTC()
	if err := s.observables.Upsert(ctx, info); err != nil {
		s.logger.Warn("enrich observable",
			slog.String("observable", obs.Value), slog.Any("error", err))
	}
}
