package enums

import "strings"

// ArchiveTimeframe selects how far back the archive view reaches.
type ArchiveTimeframe string

const (
	ArchiveTimeframeWeek  ArchiveTimeframe = "week"
	ArchiveTimeframeMonth ArchiveTimeframe = "month"
	ArchiveTimeframeAll   ArchiveTimeframe = "all"
)

// ParseArchiveTimeframe defaults to week; unknown values mean all.
func ParseArchiveTimeframe(value string) ArchiveTimeframe {
	switch ArchiveTimeframe(strings.ToLower(strings.TrimSpace(value))) {
	case "", ArchiveTimeframeWeek:
		return ArchiveTimeframeWeek
	case ArchiveTimeframeMonth:
		return ArchiveTimeframeMonth
	default:
		return ArchiveTimeframeAll
	}
}
