package batch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/a3tai/racecard-reader/internal/racecard"
	"github.com/a3tai/racecard-reader/internal/sink"
)

const dortmundCard = `20.02.2026 - Dortmund
1
14:05
2200 m
5.100,00 €
Flach
Preis der Stadt Dortmund
Rennpreis: 5.100 €
1
Box: 4
ML: 4,5
Sunny Boy
4j. br. W (Sea The Stars - Sunny Girl)
Trainer: P. Schiergen
58.5 Besitzer: Stall Ullmann
Züchter: Gestüt Ebbesloh
A. Helfenbein
2025: 7 Starts - 2 Siege - 3 Plätze 12.400 €
2024: 3 Starts - 0 Siege - 1 Platz 1.500 €
28.12 Dortmund 3 57.5 1900 1.200 6,4 A. Helfenbein
2
Box: 1
Lucky Star
3j. F S (Adlerflug - Lucky Lady)
Trainer: M. Weiss
56.0 Besitzer: Gestüt Röttgen
Züchter: Gestüt Röttgen
B. Murzabayev
`

const neussCard = `21.02.2026 - Neuss
3
13:30
1600 m
4.000 €
Sand
Preis von Neuss
Rennpreis: 4.000 €
1
Box: 2
ML: 3,0
Quick Step
4j. F W (Areion - Quick Dance)
Trainer: A. Wöhler
57.0 Besitzer: Stall Ittlingen
Züchter: Gestüt Schlenderhan
E. Pedroza
2025: 5 Starts - 2 Siege - 2 Plätze 9.000 €
`

// memSource serves canned documents; a missing id fails to read
type memSource struct {
	ids   []string
	texts map[string]string
	err   error
}

func (m *memSource) List(context.Context) ([]string, error) {
	return m.ids, m.err
}

func (m *memSource) Read(_ context.Context, id string) (string, error) {
	text, ok := m.texts[id]
	if !ok {
		return "", errors.New("invalid PDF file")
	}
	return text, nil
}

// memSink records what it was given
type memSink struct {
	mu      sync.Mutex
	batches []sink.Batch
	err     error
}

func (m *memSink) Write(_ context.Context, b sink.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, b)
	return nil
}

func (m *memSink) Close() error { return nil }

func newRunner(opts ...Option) *Runner {
	return NewRunner(racecard.NewExtractor(racecard.DefaultYears), zap.NewNop(), opts...)
}

func TestRunner_Extract(t *testing.T) {
	src := &memSource{
		ids:   []string{"dortmund.pdf", "neuss.pdf"},
		texts: map[string]string{"dortmund.pdf": dortmundCard, "neuss.pdf": neussCard},
	}

	res, err := newRunner().Extract(context.Background(), src)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, res.RunID)
	assert.Equal(t, 2, res.Documents)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 3, res.Starters)
	assert.Equal(t, 2, res.Races)
	require.Len(t, res.Records, 3)

	schema := res.Schema
	names := []any{}
	for _, rec := range res.Records {
		names = append(names, schema.Map(rec)["horse_name"])
	}
	assert.Equal(t, []any{"Sunny Boy", "Lucky Star", "Quick Step"}, names)

	quick := schema.Map(res.Records[2])
	assert.Equal(t, "Neuss", quick["venue"])
	assert.Equal(t, 3, quick["race_nr"])
	assert.Equal(t, 1, quick["field_size"])
}

func TestRunner_MalformedDocumentDoesNotAffectOthers(t *testing.T) {
	texts := map[string]string{"dortmund.pdf": dortmundCard, "neuss.pdf": neussCard}
	alone, err := newRunner().Extract(context.Background(), &memSource{ids: []string{"dortmund.pdf"}, texts: texts})
	require.NoError(t, err)

	src := &memSource{
		ids:   []string{"broken.pdf", "dortmund.pdf", "empty.txt", "panics.pdf"},
		texts: map[string]string{"dortmund.pdf": dortmundCard, "empty.txt": "Rennen abgesagt", "panics.pdf": "boom"},
	}
	r := newRunner(WithWorkers(2))
	extract := r.extract
	r.extract = func(text string) racecard.Document {
		if text == "boom" {
			panic("index out of range")
		}
		return extract(text)
	}

	res, err := r.Extract(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, alone.Records, res.Records)
	assert.Equal(t, 4, res.Documents)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Failures, 3)

	assert.Equal(t, ErrorTypeUnreadable, res.Failures[0].Type)
	assert.Equal(t, "broken.pdf", res.Failures[0].DocID)
	assert.Equal(t, ErrorTypeNoRaces, res.Failures[1].Type)
	assert.Equal(t, ErrorTypeExtractionPanic, res.Failures[2].Type)
	assert.Contains(t, res.Failures[2].Error(), "index out of range")
}

// panicSource panics while reading the documents named in corrupt
type panicSource struct {
	*memSource
	corrupt map[string]bool
}

func (p *panicSource) Read(ctx context.Context, id string) (string, error) {
	if p.corrupt[id] {
		panic("malformed xref table")
	}
	return p.memSource.Read(ctx, id)
}

func TestRunner_PanicWhileReadingDoesNotAffectOthers(t *testing.T) {
	src := &panicSource{
		memSource: &memSource{
			ids:   []string{"corrupt.pdf", "dortmund.pdf"},
			texts: map[string]string{"dortmund.pdf": dortmundCard},
		},
		corrupt: map[string]bool{"corrupt.pdf": true},
	}

	res, err := newRunner().Extract(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Documents)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, res.Records, 2)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, ErrorTypeUnreadable, res.Failures[0].Type)
	assert.Equal(t, "corrupt.pdf", res.Failures[0].DocID)
	assert.Contains(t, res.Failures[0].Error(), "malformed xref table")
}

// orderSource records read order and whether two reads ever overlapped
type orderSource struct {
	*memSource
	mu      sync.Mutex
	active  int
	overlap bool
	order   []string
}

func (o *orderSource) Read(ctx context.Context, id string) (string, error) {
	o.mu.Lock()
	o.active++
	if o.active > 1 {
		o.overlap = true
	}
	o.order = append(o.order, id)
	o.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	o.mu.Lock()
	o.active--
	o.mu.Unlock()
	return o.memSource.Read(ctx, id)
}

func TestRunner_DefaultProcessesDocumentsOneAtATime(t *testing.T) {
	ids := []string{"dortmund.pdf", "neuss.pdf", "dortmund-2.pdf", "neuss-2.pdf"}
	src := &orderSource{memSource: &memSource{
		ids: ids,
		texts: map[string]string{
			"dortmund.pdf": dortmundCard, "neuss.pdf": neussCard,
			"dortmund-2.pdf": dortmundCard, "neuss-2.pdf": neussCard,
		},
	}}

	res, err := newRunner().Extract(context.Background(), src)
	require.NoError(t, err)

	assert.False(t, src.overlap)
	assert.Equal(t, ids, src.order)
	assert.Len(t, res.Records, 6)
}

func TestRunner_NoRecords(t *testing.T) {
	tests := []struct {
		name string
		src  *memSource
	}{
		{"no documents", &memSource{}},
		{"every document unreadable", &memSource{ids: []string{"a.pdf", "b.pdf"}}},
		{"no race headers", &memSource{ids: []string{"a.txt"}, texts: map[string]string{"a.txt": "20.02.2026 - Dortmund\n"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newRunner().Extract(context.Background(), tt.src)
			require.ErrorIs(t, err, ErrNoRecords)
			require.NotNil(t, res)
			assert.Empty(t, res.Records)
		})
	}
}

func TestRunner_ListError(t *testing.T) {
	_, err := newRunner().Extract(context.Background(), &memSource{err: errors.New("HTTP 503")})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoRecords)
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestRunner_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &memSource{ids: []string{"dortmund.pdf"}, texts: map[string]string{"dortmund.pdf": dortmundCard}}
	_, err := newRunner().Extract(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_Run(t *testing.T) {
	src := &memSource{ids: []string{"neuss.pdf"}, texts: map[string]string{"neuss.pdf": neussCard}}
	snk := &memSink{}
	r := newRunner()
	r.now = func() time.Time { return time.Date(2026, 2, 21, 9, 0, 0, 0, time.UTC) }

	res, err := r.Run(context.Background(), src, snk, "")
	require.NoError(t, err)

	require.Len(t, snk.batches, 1)
	b := snk.batches[0]
	assert.Equal(t, res.RunID.String(), b.RunID)
	assert.Equal(t, "2026-02-21", b.Date)
	assert.Equal(t, res.Records, b.Records)
	assert.Equal(t, r.Schema().Columns(), b.Schema.Columns())
}

func TestRunner_RunSinkFailure(t *testing.T) {
	src := &memSource{ids: []string{"neuss.pdf"}, texts: map[string]string{"neuss.pdf": neussCard}}

	_, err := newRunner().Run(context.Background(), src, &memSink{err: errors.New("disk full")}, "2026-02-21")

	var docErr *DocumentError
	require.ErrorAs(t, err, &docErr)
	assert.Equal(t, ErrorTypeSink, docErr.Type)
	assert.ErrorIs(t, err, &DocumentError{Type: ErrorTypeSink})
}

func TestRunner_RunNothingWritten(t *testing.T) {
	snk := &memSink{}
	_, err := newRunner().Run(context.Background(), &memSource{}, snk, "2026-02-21")

	assert.ErrorIs(t, err, ErrNoRecords)
	assert.Empty(t, snk.batches)
}

func TestRunner_Logging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := NewRunner(racecard.NewExtractor(racecard.DefaultYears), zap.New(core))
	src := &memSource{
		ids:   []string{"broken.pdf", "dortmund.pdf"},
		texts: map[string]string{"dortmund.pdf": dortmundCard},
	}

	_, err := r.Extract(context.Background(), src)
	require.NoError(t, err)

	failed := logs.FilterMessage("document failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "broken.pdf", failed[0].ContextMap()["document"])
	assert.Equal(t, "Unreadable", failed[0].ContextMap()["type"])

	defaults := logs.FilterMessage("fields defaulted").All()
	require.NotEmpty(t, defaults)

	var summary bool
	for _, e := range logs.All() {
		if strings.HasSuffix(e.Message, "starters | 1 races") {
			summary = true
		}
	}
	assert.True(t, summary)
}

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "Unreadable", ErrorTypeUnreadable.String())
	assert.Equal(t, "NoRaces", ErrorTypeNoRaces.String())
	assert.Equal(t, "ExtractionPanic", ErrorTypeExtractionPanic.String())
	assert.Equal(t, "Sink", ErrorTypeSink.String())
	assert.Equal(t, "Unknown", ErrorType(42).String())
	assert.False(t, ErrorTypeNoRaces.Fatal())
	assert.True(t, ErrorTypeUnreadable.Fatal())
}

func TestDocumentError(t *testing.T) {
	cause := errors.New("invalid PDF file")
	err := NewDocumentError(ErrorTypeUnreadable, "a.pdf", cause)

	assert.Equal(t, "Unreadable [a.pdf]: invalid PDF file", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, &DocumentError{Type: ErrorTypeUnreadable})
	assert.NotErrorIs(t, err, &DocumentError{Type: ErrorTypeSink})
	assert.Equal(t, "Sink: disk full", NewDocumentError(ErrorTypeSink, "", errors.New("disk full")).Error())
}
