package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/oncology/dashboard/internal/warehouse"
)

// LeaderboardSize caps the provider and city rankings.
const LeaderboardSize = 20

var ErrCancerRequired = errors.New("cancer name is required")

// Asker answers free-text questions. The bool result is false when no
// question was actually sent.
type Asker interface {
	Ask(ctx context.Context, question string) (string, bool, error)
}

// Session is built once at startup and shared by reference with every
// component that needs the warehouse or the loaded tables. The tables are
// never modified after construction.
type Session struct {
	Tables     *warehouse.Snapshot
	Bounds     DateRange
	Repo       Repository
	Assistant  Asker
	Background string
}

// NewSession derives the selectable date bounds from the loaded encounters.
// With no dated encounter the bounds stay zero and every date mask is empty.
func NewSession(tables *warehouse.Snapshot, repo Repository, assistant Asker, background string) *Session {
	s := &Session{Tables: tables, Repo: repo, Assistant: assistant, Background: background}
	if min, max, ok := tables.ServiceDateBounds(); ok {
		s.Bounds = DateRange{Start: min, End: max}
	}
	return s
}

type Service struct {
	sess   *Session
	logger zerolog.Logger
}

func NewService(sess *Session, logger zerolog.Logger) *Service {
	return &Service{sess: sess, logger: logger.With().Str("component", "dashboard").Logger()}
}

func (s *Service) Session() *Session {
	return s.sess
}

// DefaultSelection is the state of a fresh page load: Overview, no status
// restriction, the full observed date range.
func (s *Service) DefaultSelection() Selection {
	return Selection{Page: PageOverview, Range: s.sess.Bounds}
}

// FilterOptions re-reads the distinct statuses and cancer names on every
// call; the date bounds come from the session.
func (s *Service) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	statuses, err := s.sess.Repo.EncounterStatuses(ctx)
	if err != nil {
		return nil, err
	}
	cancers, err := s.sess.Repo.CancerNames(ctx)
	if err != nil {
		return nil, err
	}
	return &FilterOptions{
		Statuses: statuses,
		MinDate:  s.sess.Bounds.Start,
		MaxDate:  s.sess.Bounds.End,
		Cancers:  cancers,
	}, nil
}

// Overview returns the four headline metrics. Only the encounter count and
// the billed total honour the status selection.
func (s *Service) Overview(ctx context.Context, p StatusPredicate) (*Overview, error) {
	repo := s.sess.Repo
	var (
		o   Overview
		err error
	)
	if o.TotalEncounters, err = repo.CountEncounters(ctx, p); err != nil {
		return nil, err
	}
	if o.TotalBilled, err = repo.SumBilled(ctx, p); err != nil {
		return nil, err
	}
	if o.UniquePatients, err = repo.CountDistinctPatients(ctx); err != nil {
		return nil, err
	}
	if o.AvgBilled, err = repo.AvgBilled(ctx); err != nil {
		return nil, err
	}
	return &o, nil
}

// DailyEncounters is computed from the loaded encounter table, restricted
// by date only.
func (s *Service) DailyEncounters(r DateRange) []DailyCount {
	enc := s.sess.Tables.Encounters
	return DailyCounts(enc, DateMask(enc, r))
}

func (s *Service) ProviderLeaderboard(ctx context.Context) ([]CategoryCount, error) {
	counts, err := s.sess.Repo.ProviderEncounterCounts(ctx)
	if err != nil {
		return nil, err
	}
	return TopN(counts, LeaderboardSize), nil
}

func (s *Service) TopCities(ctx context.Context) ([]CategoryCount, error) {
	counts, err := s.sess.Repo.CityCounts(ctx)
	if err != nil {
		return nil, err
	}
	return TopN(counts, LeaderboardSize), nil
}

// CancerPatients returns the roster for an explicitly named cancer.
func (s *Service) CancerPatients(ctx context.Context, cancer string) ([]PatientRow, error) {
	if cancer == "" {
		return nil, ErrCancerRequired
	}
	return s.sess.Repo.CancerPatients(ctx, cancer)
}

// Ask forwards a question to the completion service. An empty question
// returns immediately without a remote call.
func (s *Service) Ask(ctx context.Context, question string) (string, bool, error) {
	if strings.TrimSpace(question) == "" {
		return "", false, nil
	}
	if s.sess.Assistant == nil {
		return "", false, fmt.Errorf("completion service is not configured")
	}
	return s.sess.Assistant.Ask(ctx, question)
}
