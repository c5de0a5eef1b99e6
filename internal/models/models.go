package models

// Message represents a WebSocket message
type Message struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// Event types pushed to websocket clients.
const (
	EventTickerAdded    = "favorite.ticker_added"
	EventTickerRemoved  = "favorite.ticker_removed"
	EventListCreated    = "favorite.list_created"
	EventListDeleted    = "favorite.list_deleted"
	EventAccountUpgrade = "account.upgraded"
)

// FavoriteEvent is the content of favourites related messages.
type FavoriteEvent struct {
	UserID   string `json:"userId"`
	ListName string `json:"listName,omitempty"`
	TickerID string `json:"tickerId,omitempty"`
	Count    int    `json:"count,omitempty"`
}
