// Package batch drives a run: it reads every document of a source, extracts
// its starters and hands the records to a sink. Failures stay confined to the
// document they occur in.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/racecard-reader/internal/racecard"
	"github.com/a3tai/racecard-reader/internal/sink"
	"github.com/a3tai/racecard-reader/internal/source"
)

// Result summarises a run
type Result struct {
	RunID     uuid.UUID
	Documents int
	Failed    int
	Starters  int
	Races     int
	Failures  []*DocumentError
	Records   []racecard.Record
	Schema    racecard.Schema
}

// Runner extracts documents with a fixed extractor configuration
type Runner struct {
	extractor *racecard.Extractor
	schema    racecard.Schema
	logger    *zap.Logger
	workers   int
	now       func() time.Time
	extract   func(text string) racecard.Document
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers bounds how many documents are read and extracted at once.
// The default of one processes documents strictly in source order, each to
// completion before the next starts.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// NewRunner creates a runner around the extractor
func NewRunner(extractor *racecard.Extractor, logger *zap.Logger, opts ...Option) *Runner {
	r := &Runner{
		extractor: extractor,
		schema:    racecard.NewSchema(extractor.Years()),
		logger:    logger,
		workers:   1,
		now:       time.Now,
	}
	r.extract = extractor.ExtractDocument
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Schema returns the record layout the runner produces
func (r *Runner) Schema() racecard.Schema {
	return r.schema
}

type outcome struct {
	doc racecard.Document
	err *DocumentError
}

// Extract reads and extracts every document of src. Records keep source
// order, then race and start order within a document. ErrNoRecords is
// returned alongside the result when nothing was extracted.
func (r *Runner) Extract(ctx context.Context, src source.Source) (*Result, error) {
	res := &Result{RunID: uuid.New(), Schema: r.schema}
	log := r.logger.With(zap.String("run_id", res.RunID.String()))

	ids, err := src.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list documents: %w", err)
	}
	res.Documents = len(ids)
	log.Info("run started", zap.Int("documents", len(ids)))

	outcomes := make([]outcome, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = r.process(gctx, src, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	for i, o := range outcomes {
		if o.err != nil {
			res.Failures = append(res.Failures, o.err)
			if o.err.Type.Fatal() {
				res.Failed++
				log.Error("document failed", zap.String("document", ids[i]),
					zap.Stringer("type", o.err.Type), zap.Error(o.err.Err))
			} else {
				log.Warn("document has no races", zap.String("document", ids[i]))
			}
			continue
		}

		r.logDefaults(log, ids[i], o.doc.Starters)
		res.Races += len(o.doc.Races)
		res.Starters += len(o.doc.Starters)
		res.Records = append(res.Records, r.schema.Records(o.doc.Starters)...)
		log.Info("document extracted", zap.String("document", ids[i]),
			zap.Int("starters", len(o.doc.Starters)), zap.Int("races", len(o.doc.Races)))
	}

	if len(res.Records) == 0 {
		log.Error("no records extracted", zap.Int("documents", res.Documents), zap.Int("failed", res.Failed))
		return res, ErrNoRecords
	}

	log.Info(fmt.Sprintf("%d starters | %d races", res.Starters, res.Races),
		zap.Int("documents", res.Documents), zap.Int("failed", res.Failed))
	return res, nil
}

// Run extracts src and writes the records to snk. The date names file
// outputs; without one the current day is used.
func (r *Runner) Run(ctx context.Context, src source.Source, snk sink.Sink, date string) (*Result, error) {
	res, err := r.Extract(ctx, src)
	if err != nil {
		return res, err
	}

	if date == "" {
		date = r.now().Format("2006-01-02")
	}
	b := sink.Batch{RunID: res.RunID.String(), Date: date, Schema: r.schema, Records: res.Records}
	if err := snk.Write(ctx, b); err != nil {
		return res, NewDocumentError(ErrorTypeSink, "", err)
	}
	return res, nil
}

// process reads and extracts one document. A panic while reading makes the
// document unreadable; a panic inside extraction is an extraction panic.
func (r *Runner) process(ctx context.Context, src source.Source, id string) (o outcome) {
	stage := ErrorTypeUnreadable
	defer func() {
		if p := recover(); p != nil {
			o = outcome{err: NewDocumentError(stage, id, fmt.Errorf("panic: %v", p))}
		}
	}()

	text, err := src.Read(ctx, id)
	if err != nil {
		return outcome{err: NewDocumentError(ErrorTypeUnreadable, id, err)}
	}

	stage = ErrorTypeExtractionPanic
	doc := r.extract(text)
	if len(doc.Races) == 0 {
		return outcome{doc: doc, err: NewDocumentError(ErrorTypeNoRaces, id, errors.New("no race header found"))}
	}
	return outcome{doc: doc}
}

func (r *Runner) logDefaults(log *zap.Logger, id string, starters []racecard.Starter) {
	if !log.Core().Enabled(zap.DebugLevel) {
		return
	}
	for _, s := range starters {
		if len(s.Defaults) == 0 {
			continue
		}
		log.Debug("fields defaulted",
			zap.String("document", id),
			zap.Int("race", s.Race.Number),
			zap.Int("start", s.StartNumber),
			zap.Strings("fields", s.Defaults))
	}
}
