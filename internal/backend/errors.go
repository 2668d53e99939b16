package backend

import (
	"errors"
	"fmt"

	"github.com/roach88/specbuilder/internal/methodspec"
)

// Budget limits how many spec chains an arena will start. A chain is one
// NewBuilder and every object derived from it, so the budget counts
// builders, not steps.
type Budget struct {
	limit int
	used  int
}

// NewBudget creates a budget of limit chains. A limit of zero or less is
// unlimited.
func NewBudget(limit int) *Budget {
	return &Budget{limit: limit}
}

// Take claims one chain for session.
func (b *Budget) Take(session string) error {
	if b.limit <= 0 {
		b.used++
		return nil
	}
	if b.used >= b.limit {
		return &BudgetError{Session: session, Used: b.used, Limit: b.limit}
	}
	b.used++
	return nil
}

// Used returns the number of chains claimed so far.
func (b *Budget) Used() int {
	return b.used
}

// Limit returns the configured limit.
func (b *Budget) Limit() int {
	return b.limit
}

// BudgetError is recorded when NewBuilder would exceed the object budget.
type BudgetError struct {
	Session string
	Used    int
	Limit   int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("session %s exceeded object budget: %d of %d builders in use",
		e.Session, e.Used, e.Limit)
}

// IsBudgetError reports whether err is or wraps a BudgetError.
func IsBudgetError(err error) bool {
	var be *BudgetError
	return errors.As(err, &be)
}

// StaleTokenError is recorded when a protocol step receives a token that
// an earlier step already consumed.
type StaleTokenError struct {
	Token      methodspec.Token
	Op         string
	ConsumedBy string
}

func (e *StaleTokenError) Error() string {
	return fmt.Sprintf("%s: token %d was already consumed by %s", e.Op, e.Token, e.ConsumedBy)
}

// IsStaleTokenError reports whether err is or wraps a StaleTokenError.
func IsStaleTokenError(err error) bool {
	var se *StaleTokenError
	return errors.As(err, &se)
}

// UnknownTokenError is recorded when a step receives a token the arena
// never issued.
type UnknownTokenError struct {
	Token methodspec.Token
	Op    string
}

func (e *UnknownTokenError) Error() string {
	return fmt.Sprintf("%s: unknown token %d", e.Op, e.Token)
}
