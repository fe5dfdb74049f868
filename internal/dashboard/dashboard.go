package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/pders01/newspulse/internal/assistant"
	"github.com/pders01/newspulse/internal/debuglog"
	"github.com/pders01/newspulse/internal/news"
)

// NewsFactKey is the assistant context key under which results are shared.
const (
	NewsFactKey         = "news"
	NewsFactDescription = "The state of the searched news topics"
)

// Searcher fetches the articles for a topic.
type Searcher interface {
	FetchNews(ctx context.Context, topic string) ([]news.Item, error)
}

// HistoryRecorder logs a searched topic.
type HistoryRecorder interface {
	RecordHistory(ctx context.Context, topic string) error
}

// ContextPublisher receives readable context for the assistant.
type ContextPublisher interface {
	Publish(fact assistant.Fact)
}

// State is the observable dashboard state.
type State struct {
	Topic      string
	News       []news.Item
	Loading    bool
	Generation uint64
}

// Request identifies one issued search.
type Request struct {
	Generation uint64
	Topic      string
}

// Status classifies a finished search.
type Status int

const (
	// StatusComplete: results fetched and history recorded.
	StatusComplete Status = iota
	// StatusPartial: results fetched but the history update failed.
	StatusPartial
	// StatusFailed: the search itself failed; results are empty.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusPartial:
		return "partial"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of running a Request.
type Outcome struct {
	Request
	Items      []news.Item
	FetchErr   error
	HistoryErr error
}

func (o Outcome) Status() Status {
	switch {
	case o.FetchErr != nil:
		return StatusFailed
	case o.HistoryErr != nil:
		return StatusPartial
	default:
		return StatusComplete
	}
}

// Dashboard coordinates searches, history logging and the assistant feed.
//
// Submit and Apply mutate state and must be called from a single goroutine
// (the UI loop). Run only reads the collaborators and may run anywhere.
type Dashboard struct {
	searcher  Searcher
	history   HistoryRecorder
	notifier  Notifier
	publisher ContextPublisher
	state     State
	overlay   Overlay
}

func New(searcher Searcher, history HistoryRecorder, notifier Notifier, publisher ContextPublisher) *Dashboard {
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	d := &Dashboard{
		searcher:  searcher,
		history:   history,
		notifier:  notifier,
		publisher: publisher,
		state:     State{News: []news.Item{}},
	}
	d.publish()
	return d
}

// State returns a snapshot of the current state.
func (d *Dashboard) State() State {
	s := d.state
	s.News = append([]news.Item(nil), d.state.News...)
	return s
}

// News returns the current results without copying.
func (d *Dashboard) News() []news.Item { return d.state.News }

func (d *Dashboard) Loading() bool { return d.state.Loading }

func (d *Dashboard) Topic() string { return d.state.Topic }

// SetTopic records edits to the search text.
func (d *Dashboard) SetTopic(topic string) { d.state.Topic = topic }

// Overlay exposes the detail overlay.
func (d *Dashboard) Overlay() *Overlay { return &d.overlay }

// Submit starts a search for raw, which is sent and recorded unchanged. An
// empty or whitespace-only topic emits a warning and returns false without
// touching state.
func (d *Dashboard) Submit(raw string) (Request, bool) {
	if strings.TrimSpace(raw) == "" {
		d.notifier.Notify(Notification{Kind: KindWarn, Text: MsgEmptyTopic})
		return Request{}, false
	}

	d.state.Generation++
	d.state.Loading = true
	d.state.Topic = raw

	debuglog.WithFields(map[string]interface{}{
		"topic":      raw,
		"generation": d.state.Generation,
	}).Infof("search submitted")

	return Request{Generation: d.state.Generation, Topic: raw}, true
}

// Run performs the fetch and the history update for req. The history update
// happens whether or not the fetch succeeded.
func (d *Dashboard) Run(ctx context.Context, req Request) Outcome {
	out := Outcome{Request: req}

	items, err := d.searcher.FetchNews(ctx, req.Topic)
	if err != nil {
		out.FetchErr = err
		out.Items = []news.Item{}
	} else {
		out.Items = items
	}

	if d.history != nil {
		out.HistoryErr = d.history.RecordHistory(ctx, req.Topic)
	}
	return out
}

// Apply commits an outcome. Outcomes of superseded requests are dropped and
// Apply returns false.
func (d *Dashboard) Apply(out Outcome) bool {
	log := debuglog.WithFields(map[string]interface{}{
		"topic":      out.Topic,
		"generation": out.Generation,
		"status":     out.Status().String(),
	})

	if out.Generation != d.state.Generation {
		log.Debugf("discarding stale search, latest is %d", d.state.Generation)
		return false
	}

	d.state.Loading = false
	d.state.News = out.Items
	if d.state.News == nil {
		d.state.News = []news.Item{}
	}
	d.publish()

	switch {
	case errors.Is(out.FetchErr, news.ErrSearchFormat):
		log.Warnf("search failed: %v", out.FetchErr)
		d.notifier.Notify(Notification{Kind: KindError, Text: MsgBadFormat})
	case out.FetchErr != nil:
		log.Warnf("search failed: %v", out.FetchErr)
		d.notifier.Notify(Notification{Kind: KindError, Text: MsgRequestFailed})
	case len(d.state.News) == 0:
		d.notifier.Notify(Notification{Kind: KindInfo, Text: MsgNoResults(out.Topic)})
	}

	if out.HistoryErr != nil {
		log.Errorf("history update failed: %v", out.HistoryErr)
		d.notifier.Notify(Notification{Kind: KindWarn, Text: MsgHistoryFailed})
	}

	return true
}

// Search runs Submit, Run and Apply in sequence.
func (d *Dashboard) Search(ctx context.Context, raw string) (Outcome, bool) {
	req, ok := d.Submit(raw)
	if !ok {
		return Outcome{}, false
	}
	out := d.Run(ctx, req)
	d.Apply(out)
	return out, true
}

func (d *Dashboard) publish() {
	if d.publisher == nil {
		return
	}
	data, err := json.Marshal(d.state.News)
	if err != nil {
		debuglog.Errorf("encoding assistant context: %v", err)
		return
	}
	d.publisher.Publish(assistant.Fact{
		Key:         NewsFactKey,
		Description: NewsFactDescription,
		Value:       string(data),
	})
}
