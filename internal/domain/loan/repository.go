package loan

import "context"

// Repository reads and replaces the whole loan collection. There are no
// partial-document updates.
type Repository interface {
	// List returns every loan in insertion order; a missing collection is empty.
	List(ctx context.Context) ([]Loan, error)
	// ReplaceAll persists loans as the complete collection.
	ReplaceAll(ctx context.Context, loans []Loan) error
}
