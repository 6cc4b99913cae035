package enums

import "strings"

// FeedStatus filters the live query feed.
type FeedStatus string

const (
	FeedStatusAnswered FeedStatus = "answered"
	FeedStatusPending  FeedStatus = "pending"
	FeedStatusAll      FeedStatus = "all"
)

// ParseFeedStatus maps a request value to a status. Empty input means pending;
// unrecognized input falls back to all.
func ParseFeedStatus(value string) FeedStatus {
	switch FeedStatus(strings.ToLower(strings.TrimSpace(value))) {
	case "", FeedStatusPending:
		return FeedStatusPending
	case FeedStatusAnswered:
		return FeedStatusAnswered
	default:
		return FeedStatusAll
	}
}
