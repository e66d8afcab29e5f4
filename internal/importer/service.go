package importer

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/catalogimport/internal/history"
	"github.com/JonMunkholm/catalogimport/internal/lock"
	"github.com/JonMunkholm/catalogimport/internal/logging"
)

// Kind names an import pipeline.
type Kind string

const (
	KindCategories Kind = "categories"
	KindChannels   Kind = "channels"
	KindProducts   Kind = "products"
	KindPriceLists Kind = "price_lists"
)

// Report is a finished run as returned to callers.
type Report struct {
	RunID string `json:"run_id"`
	*Result
}

// Service wraps the importers with run admission, the per-store lock and
// the history record. Every run goes through the same steps: take a limiter
// slot, take the store lock, record the run as running, import, record the
// outcome.
type Service struct {
	Categories *CategoryImporter
	Channels   *ChannelImporter
	Products   *ProductImporter
	PriceLists *PriceListImporter

	Limiter *Limiter
	Locker  lock.Locker
	History history.Store

	// LockKey is the store the runs write to; runs on one store are exclusive.
	LockKey string

	// Timeout bounds one run. Zero means the caller's context alone bounds it.
	Timeout time.Duration

	now func() time.Time
}

// ImportCategories runs the category pipeline.
func (s *Service) ImportCategories(ctx context.Context, r io.Reader) (*Report, error) {
	return s.run(ctx, KindCategories, func(ctx context.Context) *Result {
		return s.Categories.Import(ctx, r)
	})
}

// ImportChannels runs the channel pipeline.
func (s *Service) ImportChannels(ctx context.Context, r io.Reader) (*Report, error) {
	return s.run(ctx, KindChannels, func(ctx context.Context) *Result {
		return s.Channels.Import(ctx, r)
	})
}

// ImportProducts runs the product pipeline over the joined feeds.
func (s *Service) ImportProducts(ctx context.Context, feeds ProductFeeds) (*Report, error) {
	return s.run(ctx, KindProducts, func(ctx context.Context) *Result {
		return s.Products.Import(ctx, feeds)
	})
}

// AssignPriceLists runs the price-list assignment pipeline.
func (s *Service) AssignPriceLists(ctx context.Context, r io.Reader) (*Report, error) {
	return s.run(ctx, KindPriceLists, func(ctx context.Context) *Result {
		return s.PriceLists.Import(ctx, r)
	})
}

// run returns ErrTooManyImports or lock.ErrLocked when the run was not
// admitted. Once admitted, problems are reported on the Result.
func (s *Service) run(ctx context.Context, kind Kind, fn func(context.Context) *Result) (*Report, error) {
	if s.Limiter != nil {
		if err := s.Limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer s.Limiter.Release()
	}

	if s.Locker != nil {
		lease, err := s.Locker.Lock(ctx, s.LockKey)
		if err != nil {
			return nil, err
		}
		defer func() {
			// The run context may be gone; release on a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := lease.Release(releaseCtx); err != nil {
				logging.FromContext(ctx).Warn("failed to release import lock", "key", s.LockKey, "error", err)
			}
		}()
	}

	runID := history.NewRunID()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.WithFields(ctx, "import", kind)

	record := history.Run{
		ID:        runID,
		Kind:      string(kind),
		Status:    history.StatusRunning,
		RequestID: middleware.GetReqID(ctx),
		StartedAt: s.clock(),
	}
	s.save(ctx, record)

	log.Info("import started")

	runCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	res := fn(runCtx)

	finished := s.clock()
	record.Status = string(res.Status)
	record.Message = res.Message
	record.Successful = len(res.Successful)
	record.Failed = len(res.Failed)
	record.FinishedAt = &finished
	if body, err := json.Marshal(res); err == nil {
		record.Result = body
	} else {
		log.Error("failed to encode import result", "error", err)
	}
	s.save(context.WithoutCancel(ctx), record)

	log.Info("import finished",
		"status", res.Status,
		"successful", len(res.Successful),
		"failed", len(res.Failed),
		"errors", len(res.Errors),
		"duration", finished.Sub(record.StartedAt),
	)

	return &Report{RunID: runID, Result: res}, nil
}

// save records a run. History is best effort and never fails an import.
func (s *Service) save(ctx context.Context, run history.Run) {
	if s.History == nil {
		return
	}
	if err := s.History.Save(ctx, run); err != nil {
		logging.FromContext(ctx).Warn("failed to save import history", "status", run.Status, "error", err)
	}
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}
