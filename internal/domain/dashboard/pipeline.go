package dashboard

import (
	"context"
	"time"
)

// Event is one user interaction. Applying it only changes the selection;
// the view is recomputed from scratch afterwards.
type Event interface {
	apply(sel *Selection)
}

type PageSelected struct{ Page Page }

type StatusesChanged struct{ Statuses []string }

type DateRangeChanged struct{ Start, End time.Time }

type CancerSelected struct{ Name string }

type QuestionSubmitted struct{ Question string }

func (e PageSelected) apply(sel *Selection) { sel.Page = e.Page }

func (e StatusesChanged) apply(sel *Selection) {
	sel.Statuses = append([]string(nil), e.Statuses...)
}

func (e DateRangeChanged) apply(sel *Selection) {
	sel.Range = DateRange{Start: e.Start, End: e.End}
}

func (e CancerSelected) apply(sel *Selection) { sel.Cancer = e.Name }

func (e QuestionSubmitted) apply(sel *Selection) { sel.Question = e.Question }

// Pipeline holds one client's selection and turns events into views. It is
// not safe for concurrent use; each client owns its own pipeline.
type Pipeline struct {
	svc *Service
	sel Selection
}

func NewPipeline(svc *Service) *Pipeline {
	return &Pipeline{svc: svc, sel: svc.DefaultSelection()}
}

func (p *Pipeline) Selection() Selection {
	return p.sel
}

// Dispatch applies the events in order, clamps the date range into the
// observed bounds and renders the resulting selection.
func (p *Pipeline) Dispatch(ctx context.Context, events ...Event) (*View, error) {
	for _, ev := range events {
		ev.apply(&p.sel)
	}
	p.sel.Range = NewDateRange(p.sel.Range.Start, p.sel.Range.End, p.svc.sess.Bounds)
	return p.svc.Render(ctx, p.sel)
}
