package simulation

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bookshare/lending/lending"
	"github.com/bookshare/lending/lending/workflow"
)

const (
	queryIncomingRequests = "incoming_requests"
	queryBooksOwned       = "books_owned"
	queryAvailableBooks   = "available_books"

	actorPassword = "simulation-password"

	LogMsgSetupFinished = "simulation setup finished"
	LogMsgRoundFinished = "simulation round finished"
	LogMsgRunFinished   = "simulation finished"

	LogAttrRound      = "round"
	LogAttrActors     = "actors"
	LogAttrBooks      = "books"
	LogAttrTransfers  = "transfers"
	LogAttrViolations = "violations"
	LogAttrDurationMS = "duration_ms"
)

// Workflow is the part of the lending workflow a simulation drives.
type Workflow interface {
	RegisterUser(ctx context.Context, input workflow.NewUser) (lending.User, error)
	AddBook(ctx context.Context, input workflow.NewBook) (lending.Book, error)
	ListBook(ctx context.Context, bookID uuid.UUID, callerID uuid.UUID) (lending.Book, error)
	RequestBook(ctx context.Context, bookID uuid.UUID, requesterID uuid.UUID, message string) (lending.RequestEntry, error)
	GrantRequest(ctx context.Context, bookID uuid.UUID, callerID uuid.UUID, newOwnerID uuid.UUID) (lending.Book, error)
	RejectRequest(ctx context.Context, bookID uuid.UUID, callerID uuid.UUID) (lending.Book, error)
	IncomingRequests(ctx context.Context, ownerID uuid.UUID) (lending.RequestEntries, error)
	BooksOwnedBy(ctx context.Context, userID uuid.UUID) (lending.Books, error)
	AvailableBooks(ctx context.Context) (lending.Books, error)
	AuditInvariants(ctx context.Context) ([]workflow.Violation, error)
}

// Report summarizes a finished run.
type Report struct {
	Actors     int                       `json:"actors"`
	Books      int                       `json:"books"`
	Rounds     int                       `json:"rounds"`
	Outcomes   map[string]map[string]int `json:"outcomes"`
	Transfers  int                       `json:"transfers"`
	Violations []workflow.Violation      `json:"violations"`
	DurationMS float64                   `json:"durationMs"`
}

// Option defines a functional option for configuring a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger for progress messages. Info level: setup, rounds and the final result.
func WithLogger(logger lending.Logger) Option {
	return func(s *Simulation) {
		s.logger = logger
	}
}

// Simulation runs concurrent actors against a Workflow.
type Simulation struct {
	workflow Workflow
	cfg      Config
	logger   lending.Logger

	mu       sync.Mutex
	outcomes map[string]map[string]int
}

// New validates cfg and creates a Simulation.
func New(wf Workflow, cfg Config, options ...Option) (*Simulation, error) {
	if wf == nil {
		return nil, fmt.Errorf("%w: workflow must not be nil", ErrInvalidConfig)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		workflow: wf,
		cfg:      cfg,
		outcomes: make(map[string]map[string]int),
	}

	for _, option := range options {
		option(s)
	}

	return s, nil
}

// Run registers the actors, gives each of them listed books and plays all rounds.
// Business failures are counted in the Report; an infrastructure fault ends the run with an error.
func (s *Simulation) Run(ctx context.Context) (Report, error) {
	start := time.Now()

	actors, books, err := s.setup(ctx)
	if err != nil {
		return Report{}, err
	}

	s.logInfo(LogMsgSetupFinished, LogAttrActors, len(actors), LogAttrBooks, books)

	for round := 1; round <= s.cfg.Rounds; round++ {
		roundStart := time.Now()

		if err = s.playRound(ctx, actors); err != nil {
			return Report{}, fmt.Errorf("round %d: %w", round, err)
		}

		s.logInfo(LogMsgRoundFinished, LogAttrRound, round, LogAttrDurationMS, toMilliseconds(time.Since(roundStart)))
	}

	violations, err := s.workflow.AuditInvariants(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Actors:     len(actors),
		Books:      books,
		Rounds:     s.cfg.Rounds,
		Outcomes:   s.snapshotOutcomes(),
		Violations: violations,
		DurationMS: toMilliseconds(time.Since(start)),
	}
	report.Transfers = report.Outcomes[workflow.CommandGrantRequest][lending.OutcomeOK.String()]

	s.logInfo(LogMsgRunFinished,
		LogAttrTransfers, report.Transfers,
		LogAttrViolations, len(report.Violations),
		LogAttrDurationMS, report.DurationMS,
	)

	return report, nil
}

func (s *Simulation) setup(ctx context.Context) ([]*actor, int, error) {
	runID := uuid.NewString()[:8]
	actors := make([]*actor, 0, s.cfg.Actors)
	books := 0

	for i := range s.cfg.Actors {
		user, err := s.workflow.RegisterUser(ctx, workflow.NewUser{
			Name:     fmt.Sprintf("Actor %d", i+1),
			Email:    fmt.Sprintf("actor-%d-%s@example.org", i+1, runID),
			Password: actorPassword,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("registering actor %d: %w", i+1, err)
		}

		for j := range s.cfg.BooksPerActor {
			book, err := s.workflow.AddBook(ctx, workflow.NewBook{
				OwnerID:   user.ID,
				Title:     fmt.Sprintf("Book %d of actor %d", j+1, i+1),
				Author:    "Simulated Author",
				Condition: "good",
			})
			if err != nil {
				return nil, 0, fmt.Errorf("adding book for actor %d: %w", i+1, err)
			}

			if _, err = s.workflow.ListBook(ctx, book.ID, user.ID); err != nil {
				return nil, 0, fmt.Errorf("listing book for actor %d: %w", i+1, err)
			}

			books++
		}

		actors = append(actors, newActor(user.ID, s.cfg.Seed, i))
	}

	return actors, books, nil
}

func (s *Simulation) playRound(ctx context.Context, actors []*actor) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Workers)

	for _, a := range actors {
		group.Go(func() error {
			return a.playRound(groupCtx, s)
		})
	}

	return group.Wait()
}

// do runs one workflow call with the command timeout and records its outcome.
// It returns an error only for infrastructure faults.
func (s *Simulation) do(ctx context.Context, name string, call func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CommandTimeout)
	defer cancel()

	err := call(callCtx)
	outcome := lending.OutcomeOf(err)
	s.record(name, outcome)

	if outcome == lending.OutcomeInfrastructure {
		return fmt.Errorf("%s: %w", name, err)
	}

	return nil
}

func (s *Simulation) record(name string, outcome lending.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byOutcome, ok := s.outcomes[name]
	if !ok {
		byOutcome = make(map[string]int)
		s.outcomes[name] = byOutcome
	}

	byOutcome[outcome.String()]++
}

func (s *Simulation) snapshotOutcomes() map[string]map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]map[string]int, len(s.outcomes))
	for name, byOutcome := range s.outcomes {
		snapshot[name] = maps.Clone(byOutcome)
	}

	return snapshot
}

func (s *Simulation) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func toMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
