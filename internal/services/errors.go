package services

import (
	"github.com/pkg/errors"

	"github.com/bullsai/watchlist/internal/db"
)

// Each error kind is distinguishable by the caller through errors.Is.
var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrUserNotFound      = errors.New("user not found")
	ErrListNotFound      = errors.New("list not found")
	ErrDuplicateMember   = errors.New("ticker already exists in the list")
	ErrStoreUnavailable  = errors.New("store unavailable")

	ErrDuplicateList   = errors.New("list already exists")
	ErrInvalidListName = errors.New("invalid list name")
	ErrTickerNotInList = errors.New("ticker not in list")
	ErrTickerNotFound  = errors.New("ticker not found")
	ErrTermNotFound    = errors.New("glossary term not found")
	ErrInvalidLogin    = errors.New("invalid credentials")
)

// Transient reports whether err may succeed on retry.
func Transient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// storeError maps store failures that are not a domain outcome.
func storeError(err error) error {
	if errors.Is(err, db.ErrUnavailable) {
		return errors.WithMessage(ErrStoreUnavailable, err.Error())
	}
	return err
}
