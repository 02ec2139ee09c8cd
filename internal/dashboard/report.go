package dashboard

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	activitySheet = "Activity"
)

// WriteReport renders d as an XLSX workbook with a Summary and an Activity
// sheet.
func WriteReport(w io.Writer, d Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(activitySheet); err != nil {
		return fmt.Errorf("create activity sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	rows := [][]any{
		{"Student", d.DisplayName},
		{"Student ID", d.StudentID},
		{"Generated", d.GeneratedAt.Format("2006-01-02 15:04")},
		{"Readiness", d.Progress.Readiness},
		{"Status", d.Progress.Label},
		{"Rank", d.Progress.Rank},
		{"Daily minutes", d.Progress.DailyMinutes},
		{"Daily goal (minutes)", d.Progress.DailyGoalMinutes},
		{"Daily progress (%)", d.Progress.DailyProgressPct},
	}
	if d.Mission != nil {
		rows = append(rows,
			[]any{"Mission", d.Mission.Title},
			[]any{"Mission details", d.Mission.Description},
			[]any{"Reward points", d.Mission.RewardPoints},
		)
	}

	subjects := make([]string, 0, len(d.Progress.SubjectMastery))
	for s := range d.Progress.SubjectMastery {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	if len(subjects) > 0 {
		rows = append(rows, []any{}, []any{"Subject", "Mastery (%)"})
		for _, s := range subjects {
			rows = append(rows, []any{s, d.Progress.SubjectMastery[s]})
		}
	}

	if err := writeRows(f, summarySheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "B", 28); err != nil {
		return fmt.Errorf("size summary columns: %w", err)
	}

	activityRows := [][]any{{"When", "Type", "Details"}}
	for _, e := range d.Recent {
		activityRows = append(activityRows, []any{
			e.CreatedAt.Format("2006-01-02 15:04"),
			string(e.Kind),
			describe(e.Payload),
		})
	}
	if err := writeRows(f, activitySheet, activityRows); err != nil {
		return err
	}
	if err := f.SetCellStyle(activitySheet, "A1", "C1", bold); err != nil {
		return fmt.Errorf("style activity header: %w", err)
	}
	if err := f.SetColWidth(activitySheet, "A", "C", 24); err != nil {
		return fmt.Errorf("size activity columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// describe flattens a payload into "k: v; k: v" in key order.
func describe(payload map[string]string) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if payload[k] == "" {
			continue
		}
		parts = append(parts, k+": "+payload[k])
	}
	return strings.Join(parts, "; ")
}
