package simulation

import (
	"context"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/bookshare/lending/lending"
	"github.com/bookshare/lending/lending/workflow"
)

const requestMessage = "could I borrow this one?"

// actor is one simulated user. It is only ever driven by one goroutine at a time.
type actor struct {
	id  uuid.UUID
	rnd *rand.Rand
}

func newActor(id uuid.UUID, seed uint64, index int) *actor {
	return &actor{
		id:  id,
		rnd: rand.New(rand.NewPCG(seed, uint64(index))), //nolint:gosec // weak random is fine for a simulation
	}
}

// playRound resolves incoming requests, lists some held books and requests one foreign book.
func (a *actor) playRound(ctx context.Context, s *Simulation) error {
	if err := a.resolveRequests(ctx, s); err != nil {
		return err
	}

	if err := a.listBooks(ctx, s); err != nil {
		return err
	}

	return a.requestBook(ctx, s)
}

func (a *actor) resolveRequests(ctx context.Context, s *Simulation) error {
	var entries lending.RequestEntries

	err := s.do(ctx, queryIncomingRequests, func(ctx context.Context) (err error) {
		entries, err = s.workflow.IncomingRequests(ctx, a.id)
		return err
	})
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.Completed {
			continue
		}

		if a.rnd.Float64() < s.cfg.ChanceGrant {
			err = s.do(ctx, workflow.CommandGrantRequest, func(ctx context.Context) error {
				_, grantErr := s.workflow.GrantRequest(ctx, entry.BookID, a.id, entry.RequestedByID)
				return grantErr
			})
		} else {
			err = s.do(ctx, workflow.CommandRejectRequest, func(ctx context.Context) error {
				_, rejectErr := s.workflow.RejectRequest(ctx, entry.BookID, a.id)
				return rejectErr
			})
		}

		if err != nil {
			return err
		}
	}

	return nil
}

func (a *actor) listBooks(ctx context.Context, s *Simulation) error {
	var owned lending.Books

	err := s.do(ctx, queryBooksOwned, func(ctx context.Context) (err error) {
		owned, err = s.workflow.BooksOwnedBy(ctx, a.id)
		return err
	})
	if err != nil {
		return err
	}

	for _, book := range owned {
		if book.Status != lending.StatusOwn || a.rnd.Float64() >= s.cfg.ChanceList {
			continue
		}

		err = s.do(ctx, workflow.CommandListBook, func(ctx context.Context) error {
			_, listErr := s.workflow.ListBook(ctx, book.ID, a.id)
			return listErr
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (a *actor) requestBook(ctx context.Context, s *Simulation) error {
	var available lending.Books

	err := s.do(ctx, queryAvailableBooks, func(ctx context.Context) (err error) {
		available, err = s.workflow.AvailableBooks(ctx)
		return err
	})
	if err != nil {
		return err
	}

	candidates := make(lending.Books, 0, len(available))
	for _, book := range available {
		if !book.IsOwnedBy(a.id) && !book.IsRequested() {
			candidates = append(candidates, book)
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	// The pick may be stale by now. Losing the race is a regular outcome.
	pick := candidates[a.rnd.IntN(len(candidates))]

	return s.do(ctx, workflow.CommandRequestBook, func(ctx context.Context) error {
		_, requestErr := s.workflow.RequestBook(ctx, pick.ID, a.id, requestMessage)
		return requestErr
	})
}
