package decision

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noplanalderson/argus/internal/entity"
)

// HistoryStore is the persistence surface the engine needs.
type HistoryStore interface {
	GetLatest(ctx context.Context, observable string) (*entity.AnalysisRecord, error)
	Insert(ctx context.Context, record *entity.AnalysisRecord) error
	UpdateScoreDecision(ctx context.Context, record *entity.AnalysisRecord) error
}

// Input carries one scored analysis run into the engine.
type Input struct {
	Observable   entity.Observable
	ObservableID uuid.UUID
	SubScores    map[string]float64
	TIPScore     float64
	WazuhScore   float64 // 0-100 scale
	OverallScore float64
	HasWazuh     bool
	Frequency    int
}

// Outcome is the engine's verdict for one run.
type Outcome struct {
	Record *entity.AnalysisRecord
	// Reused is set when an unexpired prior decision answered the run
	// without any recomputation.
	Reused bool
	// Durable is set when the record reached the history store. A failed
	// write still returns a usable decision; enforcement must not stall on
	// storage.
	Durable bool
}

// Frequency threshold: above it an active block escalates in place, and a
// recomputed decision is raised one tier toward 7d, opening a 3d window
// even on an otherwise clean score.
const frequencyEscalation = 7

// Engine turns blended scores into block decisions against the analysis
// history. Runs for the same observable are serialized with a per-key lock
// so concurrent requests cannot interleave read-decide-write cycles.
type Engine struct {
	store HistoryStore
	log   *slog.Logger
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a decision engine over the given history store.
func NewEngine(store HistoryStore, log *slog.Logger) *Engine {
	return &Engine{
		store: store,
		log:   log,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

func (e *Engine) lockFor(observable string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[observable]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[observable] = lock
	}
	return lock
}

// Evaluate resolves the block decision for one scored run.
//
// State machine per observable:
//   - no history: decide from scores, insert the first record
//   - permanent decision: terminal, always reused
//   - active (unexpired) decision: reused verbatim, unless the SIEM rule
//     fired more than frequencyEscalation times, which escalates the block
//     in place keeping the record's identity and window start
//   - expired decision (including "none", which lapses immediately):
//     recompute and insert a fresh record
func (e *Engine) Evaluate(ctx context.Context, in Input) (*Outcome, error) {
	lock := e.lockFor(in.Observable.Value)
	lock.Lock()
	defer lock.Unlock()

	latest, err := e.store.GetLatest(ctx, in.Observable.Value)
	if err != nil {
		return nil, fmt.Errorf("load analysis history: %w", err)
	}

	now := e.now().UTC()

	if latest != nil && !latest.Expired(now) {
		if in.Frequency > frequencyEscalation && latest.Decision.BlockMode != entity.BlockPermanent {
			return e.escalateInPlace(ctx, latest, in, now)
		}
		return &Outcome{Record: latest, Reused: true, Durable: true}, nil
	}

	priorBlock := latest != nil && latest.Decision.BlockMode != entity.BlockNone
	mode := decide(in, priorBlock)

	record := &entity.AnalysisRecord{
		ID:           uuid.Must(uuid.NewV7()),
		ObservableID: in.ObservableID,
		Observable:   in.Observable.Value,
		Type:         in.Observable.Type,
		SubScores:    in.SubScores,
		TIPScore:     in.TIPScore,
		WazuhScore:   in.WazuhScore,
		OverallScore: in.OverallScore,
		Decision:     entity.NewDecision(mode),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	outcome := &Outcome{Record: record, Durable: true}
	if err := e.store.Insert(ctx, record); err != nil {
		outcome.Durable = false
		e.log.Error("persist analysis record",
			slog.String("observable", in.Observable.Value),
			slog.Any("error", err))
	}
	return outcome, nil
}

// escalateInPlace raises an active block one tier and refreshes its scores
// without opening a new decision window.
func (e *Engine) escalateInPlace(ctx context.Context, latest *entity.AnalysisRecord, in Input, now time.Time) (*Outcome, error) {
	updated := *latest
	updated.SubScores = in.SubScores
	updated.TIPScore = in.TIPScore
	updated.WazuhScore = in.WazuhScore
	updated.OverallScore = in.OverallScore
	updated.Decision.BlockMode = raiseForFrequency(latest.Decision.BlockMode)
	updated.UpdatedAt = now

	outcome := &Outcome{Record: &updated, Durable: true}
	if err := e.store.UpdateScoreDecision(ctx, &updated); err != nil {
		outcome.Durable = false
		e.log.Error("escalate analysis record",
			slog.String("observable", in.Observable.Value),
			slog.Any("error", err))
	}
	return outcome, nil
}

// decide maps blended scores to a block mode. A SIEM-only path covers
// observables the intel providers barely know: when the TIP score alone is
// below the blocking floor and no prior block exists, the rule score picks
// a short tactical block instead.
func decide(in Input, priorBlock bool) entity.BlockMode {
	var mode entity.BlockMode
	if in.HasWazuh && !priorBlock && in.TIPScore < 15 {
		mode = wazuhMode(in.WazuhScore)
	} else {
		mode = overallMode(in.OverallScore)
	}

	if in.Frequency > frequencyEscalation {
		mode = raiseForFrequency(mode)
	}
	return mode
}

func overallMode(overall float64) entity.BlockMode {
	switch {
	case overall < 15:
		return entity.BlockNone
	case overall < 30:
		return entity.Block1d
	case overall < 50:
		return entity.Block3d
	case overall < 70:
		return entity.Block7d
	default:
		return entity.BlockPermanent
	}
}

func wazuhMode(wazuh float64) entity.BlockMode {
	switch {
	case wazuh >= 90:
		return entity.Block8h
	case wazuh >= 80:
		return entity.Block4h
	case wazuh >= 70:
		return entity.Block2h
	case wazuh >= 60:
		return entity.Block1h
	default:
		return entity.Block30m
	}
}

// raiseForFrequency bumps a repeat offender one tier: anything below 3d,
// including an otherwise clean "none", goes to 3d, and 3d goes to 7d.
// 7d and permanent are already past it.
func raiseForFrequency(mode entity.BlockMode) entity.BlockMode {
	switch {
	case mode.Rank() < entity.Block3d.Rank():
		return entity.Block3d
	case mode == entity.Block3d:
		return entity.Block7d
	default:
		return mode
	}
}
