package services

import "github.com/bullsai/watchlist/internal/models"

// Selection is the list an add action targets when the caller has not
// picked one. ListName is empty when every list already holds the ticker.
type Selection struct {
	ListName      string   `json:"listName"`
	Eligible      []string `json:"eligible"`
	LastAvailable bool     `json:"lastAvailable"`
}

// Found reports whether any list can still take the ticker.
func (s Selection) Found() bool { return s.ListName != "" }

// EligibleLists returns the names of the lists that do not contain tickerID,
// in stored order.
func EligibleLists(lists []models.FavoriteList, tickerID string) []string {
	names := make([]string, 0, len(lists))
	for i := range lists {
		if !lists[i].Contains(tickerID) {
			names = append(names, lists[i].ListName)
		}
	}
	return names
}

// SelectDefaultList keeps previous while it is still eligible and otherwise
// falls back to the first eligible list.
func SelectDefaultList(lists []models.FavoriteList, tickerID, previous string) Selection {
	eligible := EligibleLists(lists, tickerID)
	sel := Selection{Eligible: eligible, LastAvailable: len(eligible) == 1}
	if len(eligible) == 0 {
		return sel
	}

	sel.ListName = eligible[0]
	for _, name := range eligible {
		if name == previous {
			sel.ListName = previous
			break
		}
	}
	return sel
}
