// Package categorize assigns category paths to transactions in sequential
// batches through an Oracle.
package categorize

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cleared-dev/spendlens/internal/category"
	"github.com/cleared-dev/spendlens/internal/logger"
	"github.com/cleared-dev/spendlens/internal/model"
)

const (
	DefaultBatchSize           = 100
	DefaultConfidenceThreshold = 0.70
	DefaultTimeout             = 60 * time.Second
)

// Summary counts the outcome of a run.
type Summary struct {
	Total         int `json:"total"`
	Categorized   int `json:"categorized"`
	Uncategorized int `json:"uncategorized"`
	BatchCount    int `json:"batchCount"`
	// Completed is the number of batches whose answers were applied.
	Completed int `json:"completed"`
}

// Result is the outcome of Categorize.
type Result struct {
	Transactions []model.Transaction
	Categories   []model.Category
	Summary      Summary
}

// Coordinator runs batches one after another against an Oracle. A
// Coordinator may be shared; concurrent Categorize calls are serialized.
type Coordinator struct {
	oracle    Oracle
	batchSize int
	threshold float64
	timeout   time.Duration

	mu sync.Mutex
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBatchSize sets the number of transactions per oracle call.
func WithBatchSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithThreshold sets the minimum accepted confidence (inclusive).
func WithThreshold(v float64) Option {
	return func(c *Coordinator) { c.threshold = v }
}

// WithTimeout bounds each oracle call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.timeout = d }
}

// NewCoordinator creates a Coordinator with default settings.
func NewCoordinator(o Oracle, opts ...Option) *Coordinator {
	c := &Coordinator{
		oracle:    o,
		batchSize: DefaultBatchSize,
		threshold: DefaultConfidenceThreshold,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Categorize sets CategoryPath on every transaction in txns, in place.
//
// Batches run strictly in order and each one sees the categories created by
// the ones before it. If the oracle fails, the returned Result holds the
// work of the completed batches together with an *OracleError; later
// transactions are left untouched. ctx is only checked between batches.
func (c *Coordinator) Categorize(ctx context.Context, txns []model.Transaction, existing []model.Category) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	forest := category.New(existing...)
	res := &Result{Transactions: txns}
	res.Summary.Total = len(txns)
	if len(txns) == 0 {
		res.Categories = forest.List()
		return res, nil
	}

	queue := partition(len(txns), c.batchSize)
	res.Summary.BatchCount = len(queue)
	log := logger.FromContext(ctx)

	var runErr error
	for n := 1; len(queue) > 0; n++ {
		span := queue[0]
		queue = queue[1:]

		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("categorization stopped before batch %d: %w", n, err)
			break
		}

		batch := txns[span.start:span.end]
		resp, err := c.call(ctx, newRequest(batch, forest.List()))
		if err != nil {
			runErr = &OracleError{Batch: n, Err: err}
			log.Error().Err(err).Int("batch", n).Int("size", len(batch)).Msg("oracle call failed")
			break
		}

		categorized := c.apply(forest, batch, resp)
		res.Summary.Categorized += categorized
		res.Summary.Completed++
		log.Info().Int("batch", n).Int("of", res.Summary.BatchCount).
			Int("size", len(batch)).Int("categorized", categorized).Msg("batch categorized")
	}

	res.Summary.Uncategorized = res.Summary.Total - res.Summary.Categorized
	res.Categories = forest.List()
	return res, runErr
}

func (c *Coordinator) call(ctx context.Context, req *Request) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.oracle.Assign(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("oracle returned no response")
	}
	return resp, nil
}

// apply writes the accepted assignments onto batch and grows forest.
func (c *Coordinator) apply(forest *category.Forest, batch []model.Transaction, resp *Response) int {
	byID := make(map[string]Assignment, len(resp.Assignments))
	for _, a := range resp.Assignments {
		byID[a.TransactionID] = a
	}

	categorized := 0
	for i := range batch {
		t := &batch[i]
		a, ok := byID[t.ID]
		segments := category.NormalizePath(a.CategoryPath)
		if !ok || a.Confidence < c.threshold || category.IsUncategorized(segments) {
			t.CategoryPath = model.UncategorizedPath
			continue
		}
		t.CategoryPath = forest.Upsert(segments)
		categorized++
	}
	return categorized
}

type span struct{ start, end int }

func partition(n, size int) []span {
	var out []span
	for start := 0; start < n; start += size {
		out = append(out, span{start, min(start+size, n)})
	}
	return out
}
