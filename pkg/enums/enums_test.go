package enums

import "testing"

func TestParsePackaging(t *testing.T) {
	if p, err := ParsePackaging("dokładne odcinki"); err != nil || p != PackagingExactCuts {
		t.Fatalf("expected exact cuts, got %q err=%v", p, err)
	}
	if _, err := ParsePackaging("bęben"); err == nil {
		t.Fatal("expected error for unknown packaging")
	}
}

func TestParseFeedStatus(t *testing.T) {
	tests := map[string]FeedStatus{
		"":         FeedStatusPending,
		"pending":  FeedStatusPending,
		"ANSWERED": FeedStatusAnswered,
		"all":      FeedStatusAll,
		"whatever": FeedStatusAll,
	}
	for in, want := range tests {
		if got := ParseFeedStatus(in); got != want {
			t.Fatalf("ParseFeedStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseArchiveTimeframe(t *testing.T) {
	if ParseArchiveTimeframe("") != ArchiveTimeframeWeek {
		t.Fatal("empty timeframe should default to week")
	}
	if ParseArchiveTimeframe("month") != ArchiveTimeframeMonth {
		t.Fatal("expected month")
	}
	if ParseArchiveTimeframe("forever") != ArchiveTimeframeAll {
		t.Fatal("unknown timeframe should mean all")
	}
}

func TestSaleStatusFlagRoundTrip(t *testing.T) {
	for _, raw := range []string{"won", "lost", "pending", "true", "false", "null"} {
		status, err := ParseSaleStatus(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if back := SaleStatusFromFlag(status.Flag()); back != status {
			t.Fatalf("round trip %q: got %q", status, back)
		}
	}
	if _, err := ParseSaleStatus("maybe"); err == nil {
		t.Fatal("expected error")
	}
}
