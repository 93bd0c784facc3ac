package wordcorr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidSlice is returned when [start, stop) does not fit the listing.
var ErrInvalidSlice = errors.New("invalid vocabulary slice")

// Service runs the correlation batch over a vocabulary slice.
type Service struct {
	cfg     Config
	logger  logrus.FieldLogger
	metrics *Metrics

	progressMu sync.Mutex
	onProgress func(done, total int)
}

// NewService constructs a service. A nil logger discards output and a nil
// metrics collector records nothing.
func NewService(cfg Config, logger logrus.FieldLogger, metrics *Metrics) *Service {
	cfg.ApplyDefaults()
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Service{cfg: cfg, logger: logger, metrics: metrics}
}

// OnProgress registers a callback invoked after every processed word.
// Calls are serialized, so fn needs no locking of its own.
func (s *Service) OnProgress(fn func(done, total int)) {
	s.progressMu.Lock()
	s.onProgress = fn
	s.progressMu.Unlock()
}

// ResolveSlice turns the configured bounds into a concrete [start, stop) over
// a listing of n words. Stop <= 0 selects the end of the listing.
func ResolveSlice(run RunConfig, n int) (int, int, error) {
	start, stop := run.Start, run.Stop
	if stop <= 0 {
		stop = n
	}
	if err := checkSlice(start, stop, n); err != nil {
		return 0, 0, err
	}
	return start, stop, nil
}

func checkSlice(start, stop, n int) error {
	if start < 0 || stop < start || stop > n {
		return fmt.Errorf("%w: [%d, %d) over %d words", ErrInvalidSlice, start, stop, n)
	}
	return nil
}

// Run computes the low, med and high correlations for every word in
// listing[start:stop]. The result has exactly stop-start rows in listing
// order. Words are processed by a pool of workers over contiguous chunks and
// every reduction is local to one word, so the output does not depend on the
// worker count. A cancelled context aborts the run without results.
func (s *Service) Run(ctx context.Context, listing Listing, model Lookup, idx *ReferenceIndex, start, stop int) (*Results, error) {
	if listing == nil || model == nil || idx == nil {
		return nil, errors.New("listing, model and reference index are required")
	}
	if err := checkSlice(start, stop, listing.Len()); err != nil {
		return nil, err
	}
	total := stop - start
	results := &Results{Start: start, Stop: stop, Rows: make([]ResultRow, total)}
	for i := range results.Rows {
		results.Rows[i].Word = listing.Word(start + i)
	}

	s.metrics.observeReference(idx)
	log := s.logger.WithFields(logrus.Fields{"start": start, "stop": stop})
	if idx.OOVCount() > 0 {
		log.WithFields(logrus.Fields{
			"oov_rows":       idx.OOVCount(),
			"reference_rows": idx.Size(),
			"policy":         s.cfg.Scoring.OOVPolicy,
		}).Warn("reference words missing from vocabulary")
	}

	workers := s.workers(total)
	chunk := 0
	if workers > 0 {
		chunk = (total + workers - 1) / workers
	}
	log.WithFields(logrus.Fields{"offset": 0, "workers": workers}).Info("starting slice")

	var done, missing atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, total)
		if lo >= hi {
			break
		}
		g.Go(func() error {
			sims := make([]Similarity, idx.Size())
			corr := NewCorrelator(s.cfg.Scoring.OOVPolicy, idx.Size())
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				row := &results.Rows[i]
				vec, ok := model.Lookup(row.Word)
				if !ok {
					vec = nil
					missing.Add(1)
				}
				sims = idx.Similarities(vec, sims)
				for _, c := range ScoreColumns {
					row.Set(c, corr.Correlate(sims, idx.Scores(c)))
				}
				s.metrics.observeRow(*row, ok)
				s.progress(log, int(done.Add(1)), total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("correlate slice [%d, %d): %w", start, stop, err)
	}

	log.WithFields(logrus.Fields{
		"words":         total,
		"undefined":     results.Undefined(),
		"candidate_oov": missing.Load(),
	}).Info("slice complete")
	return results, nil
}

func (s *Service) workers(total int) int {
	n := s.cfg.Run.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > total {
		n = total
	}
	return n
}

func (s *Service) progress(log logrus.FieldLogger, done, total int) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	if every := s.cfg.Run.ProgressEvery; every > 0 && done%every == 0 && done < total {
		log.WithField("offset", done).Info("progress")
	}
	if s.onProgress != nil {
		s.onProgress(done, total)
	}
}
