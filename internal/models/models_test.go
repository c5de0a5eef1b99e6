package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidID(t *testing.T) {
	assert.True(t, ValidID(NewID()))
	assert.True(t, ValidID("65a1f0c2e4b0a1b2c3d4e5f6"))
	assert.False(t, ValidID(""))
	assert.False(t, ValidID("not-an-id"))
	assert.False(t, ValidID("65a1f0c2e4b0a1b2c3d4e5f"))
	assert.False(t, ValidID("zza1f0c2e4b0a1b2c3d4e5f6"))
}

func TestUserFindList(t *testing.T) {
	u := User{FavoriteLists: []FavoriteList{
		{ListName: "A"},
		{ListName: "B", Tickers: []string{"t9"}},
	}}

	l := u.FindList("B")
	if assert.NotNil(t, l) {
		assert.True(t, l.Contains("t9"))
		assert.False(t, l.Contains("t1"))
	}
	assert.Nil(t, u.FindList("C"))
}

func TestTickerLatest(t *testing.T) {
	var empty Ticker
	_, ok := empty.Latest()
	assert.False(t, ok)

	day := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC)
	tk := Ticker{Transactions: []Transaction{
		{Date: day, AdjustedClose: decimal.RequireFromString("101.5"), Volume: 10},
		{Date: day.AddDate(0, 0, 1), AdjustedClose: decimal.RequireFromString("102.25"), Volume: 20},
	}}
	last, ok := tk.Latest()
	assert.True(t, ok)
	assert.Equal(t, int64(20), last.Volume)
	assert.True(t, last.AdjustedClose.Equal(decimal.RequireFromString("102.25")))
}

func TestAccountTypeValid(t *testing.T) {
	assert.True(t, AccountBasic.Valid())
	assert.True(t, AccountProfessional.Valid())
	assert.False(t, AccountType("Gold").Valid())
}
