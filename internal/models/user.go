package models

import (
	"time"

	"github.com/dgrijalva/jwt-go"
)

// AccountType is the subscription tier of a user.
type AccountType string

const (
	AccountBasic        AccountType = "Basic"
	AccountProfessional AccountType = "Professional"
)

// Valid reports whether t is a known tier.
func (t AccountType) Valid() bool {
	return t == AccountBasic || t == AccountProfessional
}

type User struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	FirstName      string         `json:"firstName"`
	HashedPassword string         `json:"-"`
	AccountType    AccountType    `json:"accountType"`
	FavoriteLists  []FavoriteList `json:"favoriteLists"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// FindList returns the list named name, or nil.
func (u *User) FindList(name string) *FavoriteList {
	for i := range u.FavoriteLists {
		if u.FavoriteLists[i].ListName == name {
			return &u.FavoriteLists[i]
		}
	}
	return nil
}

// FavoriteList is a named set of ticker ids owned by one user.
type FavoriteList struct {
	ListName string   `json:"listName"`
	Tickers  []string `json:"tickers"`
}

// Contains reports whether tickerID is a member of the list.
func (l FavoriteList) Contains(tickerID string) bool {
	for _, t := range l.Tickers {
		if t == tickerID {
			return true
		}
	}
	return false
}

// Claims for JWT authentication
type Claims struct {
	UserID string `json:"uid"`
	jwt.StandardClaims
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
