package fetcher

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsradar/internal/news"
	"horse.fit/newsradar/internal/reader"
)

const (
	DefaultFirstPassTimeout = 3 * time.Second
	DefaultRetryTimeout     = 5 * time.Second
	DefaultConcurrency      = 10
)

// Outcome classifies one fetch attempt.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeFailed    Outcome = "failed"
)

// Attempt records what happened to one item during one pass. Attempts are
// kept only long enough to build the retry set and the pass statistics.
type Attempt struct {
	Pass    int
	Timeout time.Duration
	Outcome Outcome
	Elapsed time.Duration
	Err     error
}

// PassStats aggregates the attempts of one pass.
type PassStats struct {
	Attempted int
	Succeeded int
	TimedOut  int
	Failed    int
}

// Result reports both passes of one scheduler run.
type Result struct {
	Pass1 PassStats
	Pass2 PassStats
}

// Scheduler retrieves full article pages in two strictly sequential passes:
// a short-timeout pass over every item, then a longer-timeout pass over the
// items the first pass lost to timeouts or errors. No item is attempted more
// than once per pass. A failure only ever affects its own item.
type Scheduler struct {
	firstPassTimeout time.Duration
	retryTimeout     time.Duration
	concurrency      int
	client           *http.Client
	transport        *http.Transport
	logger           zerolog.Logger
}

type SchedulerOptions struct {
	FirstPassTimeout time.Duration
	RetryTimeout     time.Duration
	Concurrency      int
}

// NewScheduler builds a scheduler with its own connection-reuse transport.
// The transport is the run-scoped pooled resource; Close releases it.
func NewScheduler(opts SchedulerOptions, logger zerolog.Logger) *Scheduler {
	firstPassTimeout := opts.FirstPassTimeout
	if firstPassTimeout <= 0 {
		firstPassTimeout = DefaultFirstPassTimeout
	}
	retryTimeout := opts.RetryTimeout
	if retryTimeout <= 0 {
		retryTimeout = DefaultRetryTimeout
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	transport := &http.Transport{
		MaxIdleConns:        concurrency * 2,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Scheduler{
		firstPassTimeout: firstPassTimeout,
		retryTimeout:     retryTimeout,
		concurrency:      concurrency,
		client:           &http.Client{Transport: transport},
		transport:        transport,
		logger:           logger,
	}
}

// Close releases pooled connections. Safe to call once the run is over.
func (s *Scheduler) Close() {
	if s != nil && s.transport != nil {
		s.transport.CloseIdleConnections()
	}
}

// FetchAll mutates items in place, filling Article for every item whose page
// could be retrieved within one of the two passes. Items failing both passes
// keep an empty Article and proceed with title+summary only.
func (s *Scheduler) FetchAll(ctx context.Context, items []news.Item) Result {
	var result Result
	if len(items) == 0 {
		return result
	}

	all := make([]int, len(items))
	for i := range items {
		all[i] = i
	}

	retry := s.runPass(ctx, items, all, 1, s.firstPassTimeout, &result.Pass1)
	if len(retry) > 0 {
		failed := s.runPass(ctx, items, retry, 2, s.retryTimeout, &result.Pass2)
		for _, idx := range failed {
			s.logger.Debug().
				Str("link", items[idx].Link).
				Msg("article fetch failed both passes; keeping title+summary only")
		}
	}

	return result
}

// runPass fetches the given item indices concurrently and returns the
// indices that timed out or failed. Each worker writes only its own slot of
// the attempts slice, so no pass-level state is shared mutably.
func (s *Scheduler) runPass(ctx context.Context, items []news.Item, indices []int, pass int, timeout time.Duration, stats *PassStats) []int {
	attempts := make([]Attempt, len(indices))
	texts := make([]string, len(indices))

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for slot, idx := range indices {
		wg.Add(1)
		go func(slot, idx int) {
			defer wg.Done()

			// Acquire a pool slot for the lifetime of this request only.
			sem <- struct{}{}
			defer func() { <-sem }()

			attemptCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			started := time.Now()
			text, err := reader.FetchArticleText(attemptCtx, s.client, items[idx].Link, reader.Options{})
			elapsed := time.Since(started)

			attempt := Attempt{
				Pass:    pass,
				Timeout: timeout,
				Elapsed: elapsed,
				Err:     err,
			}
			switch {
			case err == nil:
				attempt.Outcome = OutcomeSucceeded
				texts[slot] = text
			case isTimeout(err):
				attempt.Outcome = OutcomeTimedOut
			default:
				attempt.Outcome = OutcomeFailed
			}
			attempts[slot] = attempt
		}(slot, idx)
	}
	wg.Wait()

	var remaining []int
	for slot, idx := range indices {
		attempt := attempts[slot]
		stats.Attempted++
		switch attempt.Outcome {
		case OutcomeSucceeded:
			stats.Succeeded++
			items[idx].Article = texts[slot]
		case OutcomeTimedOut:
			stats.TimedOut++
			remaining = append(remaining, idx)
		default:
			stats.Failed++
			remaining = append(remaining, idx)
		}
		if attempt.Outcome != OutcomeSucceeded {
			s.logger.Debug().
				Err(attempt.Err).
				Int("pass", pass).
				Dur("elapsed", attempt.Elapsed).
				Str("link", items[idx].Link).
				Str("outcome", string(attempt.Outcome)).
				Msg("article fetch attempt did not succeed")
		}
	}
	return remaining
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
