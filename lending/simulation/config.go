package simulation

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultActors         = 8
	DefaultBooksPerActor  = 2
	DefaultRounds         = 5
	DefaultWorkers        = 4
	DefaultCommandTimeout = 5 * time.Second

	// DefaultChanceGrant is the chance that an owner grants a pending request instead of rejecting it.
	DefaultChanceGrant = 0.7
	// DefaultChanceList is the chance that an owner lists an unlisted book in a round.
	DefaultChanceList = 0.6
)

var ErrInvalidConfig = errors.New("invalid simulation config")

// Config controls the size and behavior of a simulation run.
type Config struct {
	Actors         int
	BooksPerActor  int
	Rounds         int
	Workers        int
	Seed           uint64
	CommandTimeout time.Duration
	ChanceGrant    float64
	ChanceList     float64
}

// DefaultConfig returns a small run that finishes in well under a second on SQLite.
func DefaultConfig() Config {
	return Config{
		Actors:         DefaultActors,
		BooksPerActor:  DefaultBooksPerActor,
		Rounds:         DefaultRounds,
		Workers:        DefaultWorkers,
		Seed:           1,
		CommandTimeout: DefaultCommandTimeout,
		ChanceGrant:    DefaultChanceGrant,
		ChanceList:     DefaultChanceList,
	}
}

func (c Config) validate() error {
	switch {
	case c.Actors < 2:
		return fmt.Errorf("%w: at least 2 actors are needed, got %d", ErrInvalidConfig, c.Actors)
	case c.BooksPerActor < 1:
		return fmt.Errorf("%w: books per actor must be positive, got %d", ErrInvalidConfig, c.BooksPerActor)
	case c.Rounds < 1:
		return fmt.Errorf("%w: rounds must be positive, got %d", ErrInvalidConfig, c.Rounds)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	case c.CommandTimeout <= 0:
		return fmt.Errorf("%w: command timeout must be positive, got %s", ErrInvalidConfig, c.CommandTimeout)
	case c.ChanceGrant < 0 || c.ChanceGrant > 1:
		return fmt.Errorf("%w: grant chance must be within [0,1], got %v", ErrInvalidConfig, c.ChanceGrant)
	case c.ChanceList < 0 || c.ChanceList > 1:
		return fmt.Errorf("%w: list chance must be within [0,1], got %v", ErrInvalidConfig, c.ChanceList)
	}

	return nil
}
