package cache

import "strings"

// EventsListKey identifies one public listing. Search wins over category and category
// over sort, so only the winning parameter is part of the key.
func EventsListKey(search, category, sort string) string {
	s := strings.ToLower(strings.TrimSpace(search))
	c := strings.TrimSpace(category)

	switch {
	case s != "":
		return "events:list:v1:search=" + s
	case c != "":
		return "events:list:v1:category=" + c
	default:
		return "events:list:v1:sort=" + strings.ToLower(strings.TrimSpace(sort))
	}
}

const (
	SummaryKey    = "events:summary:v1"
	CategoriesKey = "events:categories:v1"
	CalendarKey   = "events:calendar:v1"
)
