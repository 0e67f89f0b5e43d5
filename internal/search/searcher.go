// Package search compiles patterns into execution plans and runs them over
// a corpus in parallel.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"CorpusSearch/internal/engine"
	"CorpusSearch/internal/indexing"
	"CorpusSearch/internal/query"
	"CorpusSearch/internal/sensitivity"
)

var (
	ErrInvalidConfig = errors.New("search: invalid configuration")
	ErrEmptyPattern  = errors.New("search: pattern matches nothing")
)

// Searcher runs patterns against one corpus. It is safe for concurrent use.
type Searcher struct {
	corpus   *indexing.Corpus
	config   Config
	defaults map[string]sensitivity.Sensitivity
	logger   *slog.Logger
}

// NewSearcher creates a Searcher over corpus.
func NewSearcher(corpus *indexing.Corpus, config Config, logger *slog.Logger) (*Searcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	defaults := make(map[string]sensitivity.Sensitivity, len(corpus.Schema.Annotations))
	for _, a := range corpus.Schema.Annotations {
		defaults[a.Name] = a.Sensitivity
	}
	return &Searcher{
		corpus:   corpus,
		config:   config,
		defaults: defaults,
		logger:   logger,
	}, nil
}

// Result is the outcome of a search.
type Result struct {
	PlanID string `json:"plan_id"`
	// Status is "success", or "partial" when a time or work limit stopped
	// some of the workers.
	Status    string       `json:"status"`
	Hits      []engine.Hit `json:"hits"`
	Groups    []string     `json:"groups,omitempty"`
	Truncated bool         `json:"truncated,omitempty"`
	TookMs    int64        `json:"took_ms"`
	Errors    []string     `json:"errors,omitempty"`
}

// Search compiles p and runs it.
func (s *Searcher) Search(ctx context.Context, p query.Pattern) (*Result, error) {
	c, err := s.Compile(p)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, c)
}

// Execute runs a compiled pattern across all documents.
func (s *Searcher) Execute(ctx context.Context, c *Compiled) (*Result, error) {
	start := time.Now()
	s.logger.Debug("executing plan",
		"plan_id", c.ID,
		"plan", c.Plan.String(),
		"decisions", c.Decisions,
	)

	ranges := splitRange(uint32(s.corpus.DocCount()), s.config.Workers)
	results := s.fanOut(ctx, c.Plan, ranges)

	merged := engine.NewHitCollector(s.config.MaxHits)
	var errs []string
	for _, r := range results {
		switch {
		case r.err == nil, errors.Is(r.err, engine.ErrHitLimitExceeded):
		case errors.Is(r.err, engine.ErrQueryTimeout), errors.Is(r.err, engine.ErrStepLimitExceeded):
			errs = append(errs, fmt.Sprintf("docs [%d,%d): %v", r.docs.From, r.docs.To, r.err))
			s.logger.Warn("search stopped early",
				"plan_id", c.ID,
				"from", r.docs.From,
				"to", r.docs.To,
				"error", r.err,
			)
		default:
			return nil, r.err
		}
		merged.Merge(r.hits)
	}

	status := "success"
	if len(errs) > 0 {
		status = "partial"
	}
	res := &Result{
		PlanID:    c.ID,
		Status:    status,
		Hits:      merged.Results(),
		Groups:    c.Groups,
		Truncated: merged.Truncated(),
		TookMs:    time.Since(start).Milliseconds(),
		Errors:    errs,
	}
	s.logger.Debug("plan finished",
		"plan_id", c.ID,
		"hits", len(res.Hits),
		"truncated", res.Truncated,
		"took_ms", res.TookMs,
	)
	return res, nil
}

// rangeResult is an internal type for collecting fan-out results.
type rangeResult struct {
	docs engine.DocRange
	hits *engine.HitCollector
	err  error
}

// fanOut runs the plan over each document range in parallel. Results are
// returned in range order.
func (s *Searcher) fanOut(ctx context.Context, plan *engine.Plan, ranges []engine.DocRange) []rangeResult {
	results := make([]rangeResult, len(ranges))
	docs := s.corpus.Accessor()
	var wg sync.WaitGroup

	for i, r := range ranges {
		wg.Add(1)
		go func(i int, r engine.DocRange) {
			defer wg.Done()
			ec := engine.NewExecutionContext(s.config.Timeout, s.config.MaxSteps)
			coll := engine.NewHitCollector(s.config.MaxHits)
			err := plan.Run(ctx, docs, r, ec, coll)
			results[i] = rangeResult{docs: r, hits: coll, err: err}
		}(i, r)
	}

	wg.Wait()
	return results
}

// splitRange divides [0, n) into at most parts contiguous ranges.
func splitRange(n uint32, parts int) []engine.DocRange {
	if parts < 1 {
		parts = 1
	}
	if uint32(parts) > n {
		parts = int(n)
	}
	if parts == 0 {
		return nil
	}
	out := make([]engine.DocRange, 0, parts)
	size, rest := n/uint32(parts), n%uint32(parts)
	var from uint32
	for i := 0; i < parts; i++ {
		to := from + size
		if uint32(i) < rest {
			to++
		}
		out = append(out, engine.DocRange{From: from, To: to})
		from = to
	}
	return out
}
