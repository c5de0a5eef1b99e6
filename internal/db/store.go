package db

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bullsai/watchlist/internal/models"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("record already exists")
	// ErrUnavailable wraps every driver failure and timeout.
	ErrUnavailable = errors.New("store unavailable")
)

// AddResult is the outcome of a conditional set insert.
type AddResult struct {
	// Applied is false when the member was already present.
	Applied bool
	// Count is the list size after the operation.
	Count int
}

// UserStore persists users and their favourite lists.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	CountUsers(ctx context.Context) (int64, error)

	// ConditionalAddTicker inserts tickerID into the named list only when it
	// is not a member yet. It returns ErrNotFound when the user or the list
	// does not exist.
	ConditionalAddTicker(ctx context.Context, userID, listName, tickerID string) (AddResult, error)
	// RemoveTicker returns applied=false when tickerID was not a member.
	RemoveTicker(ctx context.Context, userID, listName, tickerID string) (bool, error)
	// AddList appends an empty list; ErrConflict when the name is taken.
	AddList(ctx context.Context, userID, listName string) error
	// RemoveList returns matched=false when no such list exists.
	RemoveList(ctx context.Context, userID, listName string) (bool, error)
	// SetAccountType returns matched=false when the user does not exist.
	SetAccountType(ctx context.Context, userID string, accountType models.AccountType) (bool, error)
}

// TickerStore is the read side of the ticker catalog.
type TickerStore interface {
	FindTickerByID(ctx context.Context, tickerID string) (*models.Ticker, error)
	SearchTickers(ctx context.Context, term string, limit int) ([]models.Ticker, error)
}

// GlossaryStore reads glossary terms.
type GlossaryStore interface {
	ListTerms(ctx context.Context) ([]models.GlossaryTerm, error)
	GetTerm(ctx context.Context, termID string) (*models.GlossaryTerm, error)
}

// Store is implemented by every backend.
type Store interface {
	UserStore
	TickerStore
	GlossaryStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

func unavailable(err error, format string, args ...interface{}) error {
	return errors.Wrapf(ErrUnavailable, format+": %v", append(args, err)...)
}
