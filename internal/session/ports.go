package session

import "context"

// QuestionRepository returns the full candidate pool for a section.
type QuestionRepository interface {
	FetchPool(ctx context.Context, section Section) ([]Question, error)
}

// AttemptStore durably persists finished attempts.
type AttemptStore interface {
	Persist(ctx context.Context, rec AttemptRecord) error
}

// IdentityProvider resolves an authenticated subject to a taker.
// A nil taker with a nil error means the subject is unknown.
type IdentityProvider interface {
	CurrentTaker(ctx context.Context, id string) (*Taker, error)
}

// QuestionRepositoryFunc adapts a plain function to QuestionRepository.
type QuestionRepositoryFunc func(ctx context.Context, section Section) ([]Question, error)

func (f QuestionRepositoryFunc) FetchPool(ctx context.Context, section Section) ([]Question, error) {
	return f(ctx, section)
}
