package reports

import (
	"fmt"

	"github.com/angelmondragon/cablequotes-backend/pkg/timeutil"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet    = "Podsumowanie"
	unansweredSheet = "Bez odpowiedzi"

	// WorkbookContentType is the MIME type of Workbook output.
	WorkbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WorkbookName returns the attachment file name for a report range.
func WorkbookName(stats *Stats) string {
	return fmt.Sprintf("raport_kable_%s_%s.xlsx",
		timeutil.ToLocal(stats.StartDate).Format(timeutil.DateLayout),
		timeutil.ToLocal(stats.EndDate).Format(timeutil.DateLayout),
	)
}

// Workbook renders stats as an xlsx document with a summary sheet and the unanswered
// drill-down.
func Workbook(stats *Stats) ([]byte, error) {
	if stats == nil {
		return nil, fmt.Errorf("stats required")
	}

	xl := excelize.NewFile()
	defer xl.Close()

	if err := xl.SetSheetName(xl.GetSheetName(0), summarySheet); err != nil {
		return nil, fmt.Errorf("rename summary sheet: %w", err)
	}

	summary := [][]any{
		{"Okres od", timeutil.ToLocal(stats.StartDate).Format(timeutil.DateLayout)},
		{"Okres do", timeutil.ToLocal(stats.EndDate).Format(timeutil.DateLayout)},
		{"Wszystkie zapytania", stats.TotalQueries},
		{"Sprzedane", stats.SoldQueries},
		{"Przegrane", stats.LostQueries},
		{"W toku", stats.PendingQueries},
		{"Bez odpowiedzi", len(stats.UnansweredQueries)},
		{"Średni czas odpowiedzi (h)", stats.AvgResponseTime},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := xl.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write summary row: %w", err)
		}
	}

	if _, err := xl.NewSheet(unansweredSheet); err != nil {
		return nil, fmt.Errorf("create unanswered sheet: %w", err)
	}
	header := []string{"Handlowiec", "Rynek", "Klient", "Data zapytania", "Kable", "Godziny oczekiwania"}
	if err := xl.SetSheetRow(unansweredSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write unanswered header: %w", err)
	}
	for i, u := range stats.UnansweredQueries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			u.Name,
			u.Market,
			u.Client,
			u.SubmittedAt.Format("2006-01-02 15:04"),
			u.Cables,
			u.HoursWaiting,
		}
		if err := xl.SetSheetRow(unansweredSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write unanswered row: %w", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
