package models

// SearchOption is an allow-listed search_in key and its display label.
type SearchOption struct {
	Key   string
	Label string
}

// ManageUsersSearchOptions lists the fields that may be searched on the manage users page.
var ManageUsersSearchOptions = []SearchOption{
	{Key: "username", Label: "Username"},
	{Key: "email", Label: "Email Address"},
	{Key: "last_name", Label: "Last Name"},
}

// SearchQuery describes one page of the user management listing.
// The same query value drives both the row count and the page slice.
type SearchQuery struct {
	SearchIn   string // empty when no valid search field was supplied
	SearchFor  string
	ActorLevel Level
	Page       int
	PerPage    int
}

// NewSearchQuery builds a query, discarding searchIn when it is not in the allow-list
// and clamping page to at least 1.
func NewSearchQuery(searchIn, searchFor string, actor Level, page, perPage int) SearchQuery {
	if !IsSearchable(searchIn) {
		searchIn = ""
	}
	if page < 1 {
		page = 1
	}
	return SearchQuery{
		SearchIn:   searchIn,
		SearchFor:  searchFor,
		ActorLevel: actor,
		Page:       page,
		PerPage:    perPage,
	}
}

// IsSearchable reports whether key is an allow-listed search field.
func IsSearchable(key string) bool {
	for _, opt := range ManageUsersSearchOptions {
		if opt.Key == key {
			return true
		}
	}
	return false
}

// Searching reports whether the query filters on a field.
func (q SearchQuery) Searching() bool {
	return q.SearchIn != "" && q.SearchFor != ""
}

// Offset returns the row offset of the current page.
func (q SearchQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PerPage
}
