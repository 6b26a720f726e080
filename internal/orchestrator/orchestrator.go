// Package orchestrator routes each query through the deterministic pass
// and, when the result is inconclusive or the text looks obfuscated,
// through retrieval-augmented generative analysis, then fuses the tiers.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/querywarden/querywarden/internal/analysis"
	"github.com/querywarden/querywarden/internal/analyst"
	"github.com/querywarden/querywarden/internal/audit"
	"github.com/querywarden/querywarden/internal/client"
	"github.com/querywarden/querywarden/internal/detect"
	"github.com/querywarden/querywarden/internal/knowledge"
	"github.com/querywarden/querywarden/internal/peer"
	"github.com/querywarden/querywarden/internal/redact"
	"github.com/querywarden/querywarden/internal/telemetry"
)

// endpointTier2 keys the local tier-2 pipeline's circuit breaker.
const endpointTier2 = "tier2_local"

// state tracks one request through the pipeline.
type state string

const (
	stateReceived      state = "RECEIVED"
	stateTier1Done     state = "TIER1_DONE"
	stateRouteDecision state = "ROUTE_DECISION"
	stateTier1Only     state = "TIER1_ONLY"
	stateTier2InFlight state = "TIER2_IN_PROGRESS"
	stateTier2Done     state = "TIER2_DONE"
	stateTier2Failed   state = "TIER2_FAILED"
	stateTier1Fallback state = "TIER1_FALLBACK"
)

// Config bounds orchestration.
type Config struct {
	MaxQueryLength   int
	EscalationLength int // raw-text length that forces escalation
	Tier2Budget      time.Duration
	RetrievalK       int
	BatchConcurrency int
}

// Deps are the collaborators. Analyzer and Peers are both optional; when
// neither is present every escalation degrades to a tier-1 fallback.
type Deps struct {
	Engine    *detect.Engine
	Retriever *knowledge.Retriever
	Analyzer  *analyst.Analyzer
	Peers     *peer.Pool
	Service   *client.Client
	Telemetry *telemetry.Provider
	Audit     *audit.Emitter
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	engine    *detect.Engine
	retriever *knowledge.Retriever
	analyzer  *analyst.Analyzer
	peers     *peer.Pool
	svc       *client.Client
	tel       *telemetry.Provider
	emitter   *audit.Emitter
	cfg       Config
}

func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = 10000
	}
	if cfg.EscalationLength <= 0 {
		cfg.EscalationLength = 500
	}
	if cfg.Tier2Budget <= 0 {
		cfg.Tier2Budget = 10 * time.Second
	}
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = 5
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 4
	}
	return &Orchestrator{
		engine:    deps.Engine,
		retriever: deps.Retriever,
		analyzer:  deps.Analyzer,
		peers:     deps.Peers,
		svc:       deps.Service,
		tel:       deps.Telemetry,
		emitter:   deps.Audit,
		cfg:       cfg,
	}
}

// Analyze runs the full pipeline for one query. The only error it returns
// is an input rejection; tier-2 trouble degrades to a fallback result.
func (o *Orchestrator) Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error) {
	start := time.Now()
	ctx, span := o.tel.Tracer().Start(ctx, "orchestrator.analyze")
	defer span.End()
	step := func(s state) { span.AddEvent(string(s)) }
	step(stateReceived)

	if strings.TrimSpace(req.Query) == "" {
		return analysis.Result{}, analysis.NewError(analysis.CodeInput, "empty query", nil)
	}
	if len(req.Query) > o.cfg.MaxQueryLength {
		return analysis.Result{}, analysis.NewError(analysis.CodeInput,
			fmt.Sprintf("query length %d exceeds limit %d", len(req.Query), o.cfg.MaxQueryLength), nil)
	}

	q := analysis.Query{Text: req.Query, Dialect: req.Dialect}
	tier1 := o.engine.Analyze(q)
	tier1.Tier = analysis.TierOneOnly
	tier1.Confidence = analysis.ConfidenceHigh
	tier1Ms := msSince(start)
	step(stateTier1Done)

	dec := route(q.Text, tier1, o.cfg.EscalationLength)
	step(stateRouteDecision)

	var (
		result  analysis.Result
		tier2Ms float64
	)
	switch {
	case !dec.escalate:
		step(stateTier1Only)
		result = tier1
	case !o.tier2Available():
		step(stateTier1Fallback)
		result = fallback(tier1)
	default:
		step(stateTier2InFlight)
		tier2Start := time.Now()
		tier2, err := o.runTier2(ctx, req, q)
		tier2Ms = msSince(tier2Start)
		if err != nil {
			step(stateTier2Failed)
			step(stateTier1Fallback)
			redact.Logf("orchestrator: tier2 failed (%s), using tier1 fallback: %v", dec.reason, err)
			result = fallback(tier1)
		} else {
			step(stateTier2Done)
			result = fuse(tier1, tier2)
		}
	}

	o.tel.RecordAnalysis(string(result.Tier), string(result.Confidence), result.Vulnerable, tier1Ms, tier2Ms, len(result.Sources))
	o.emitter.Emit(ctx, audit.BuildEvent(req, result, audit.TimingMs{
		Tier1: tier1Ms,
		Tier2: tier2Ms,
		Total: msSince(start),
	}))
	return result, nil
}

func (o *Orchestrator) tier2Available() bool {
	return o.analyzer != nil || !o.peers.Empty()
}

// runTier2 executes retrieval + generation under the wall-clock budget,
// locally when an analyzer is configured, otherwise through analysis peers.
// Peer calls carry their own breaker policy, so only the local pipeline
// goes through the shared service client here.
func (o *Orchestrator) runTier2(ctx context.Context, req analysis.Request, q analysis.Query) (analysis.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Tier2Budget)
	defer cancel()

	if o.analyzer == nil {
		return o.peers.Analyze(ctx, req)
	}

	resp := o.svc.Do(ctx, endpointTier2, func(ctx context.Context) (any, error) {
		var hits []knowledge.Hit
		if o.retriever != nil {
			hits = o.retriever.Search(ctx, q.Text, knowledge.Options{K: o.cfg.RetrievalK})
		}
		a, err := o.analyzer.Analyze(ctx, q, hits)
		if err != nil {
			return nil, err
		}
		return assessmentResult(a), nil
	})
	if !resp.OK() {
		return analysis.Result{}, analysis.NewError(resp.Code, "tier2 pipeline", fmt.Errorf("%s", resp.Error))
	}
	tier2, ok := resp.Data.(analysis.Result)
	if !ok {
		return analysis.Result{}, analysis.NewError(analysis.CodeInternalInconsistency, "tier2 payload shape", nil)
	}
	return tier2, nil
}

// BatchItem is one slot of a batch response; Error is set only for input
// rejections, every other failure mode resolves to a degraded Result.
type BatchItem struct {
	Result analysis.Result `json:"result"`
	Error  string          `json:"error,omitempty"`
}

// BatchAnalyze scores queries concurrently with bounded parallelism.
// Output order matches input order; one query's tier-2 failure never
// touches another slot. A batch deadline on ctx abandons pending tier-2
// work, so late queries still resolve with their tier-1 result.
func (o *Orchestrator) BatchAnalyze(ctx context.Context, reqs []analysis.Request) []BatchItem {
	out := make([]BatchItem, len(reqs))
	sem := make(chan struct{}, o.cfg.BatchConcurrency)
	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			res, err := o.Analyze(ctx, reqs[i])
			if err != nil {
				out[i].Error = err.Error()
				return
			}
			out[i].Result = res
		}(i)
	}
	wg.Wait()
	return out
}

// Health is the aggregate view for the health endpoint.
type Health struct {
	Status          string                            `json:"status"`
	Tier2Available  bool                              `json:"tier2_available"`
	CorpusDocuments int                               `json:"corpus_documents"`
	Endpoints       map[string]analysis.ServiceHealth `json:"endpoints,omitempty"`
}

// HealthCheck reports circuit states for every endpoint seen so far.
// Status degrades when any circuit is not closed.
func (o *Orchestrator) HealthCheck() Health {
	h := Health{Status: "ok", Tier2Available: o.tier2Available()}
	if o.retriever != nil {
		h.CorpusDocuments = o.retriever.CorpusSize()
	}
	if o.svc != nil {
		h.Endpoints = o.svc.Health()
		for _, ep := range h.Endpoints {
			if ep.State != analysis.CircuitClosed {
				h.Status = "degraded"
				break
			}
		}
	}
	return h
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
