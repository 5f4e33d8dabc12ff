// Package export serializes live vote data into a multi-sheet XLSX
// workbook. Everything is recomputed per call; there is no caching.
package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"gamevote-backend/models"
	"gamevote-backend/store"
)

// Filename is the attachment name served on download.
const Filename = "tg_votes_db.xlsx"

type Exporter struct {
	store store.Store
}

func NewExporter(st store.Store) *Exporter {
	return &Exporter{store: st}
}

// Build creates the workbook: one standings sheet per category, the raw
// vote and reference listings, and a summary sheet of counts.
func (e *Exporter) Build(ctx context.Context) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	categories, err := e.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	used := map[string]bool{}
	for _, category := range categories {
		standings, err := e.store.CategoryStandings(ctx, category.ID)
		if err != nil {
			return nil, fmt.Errorf("standings for category %d: %w", category.ID, err)
		}
		name := sheetName(category.Name, category.ID, used)
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}
		if err := writeStandings(f, name, standings); err != nil {
			return nil, err
		}
	}

	votes, err := e.store.AllVotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	if _, err := f.NewSheet("All Votes"); err != nil {
		return nil, fmt.Errorf("create votes sheet: %w", err)
	}
	if err := writeVotes(f, "All Votes", votes); err != nil {
		return nil, err
	}

	for _, ref := range []struct {
		sheet string
		kind  string
	}{
		{"Games", models.KindGame},
		{"Publishers", models.KindPublisher},
	} {
		entries, err := e.store.AllEntries(ctx, ref.kind)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", ref.sheet, err)
		}
		if _, err := f.NewSheet(ref.sheet); err != nil {
			return nil, fmt.Errorf("create %s sheet: %w", ref.sheet, err)
		}
		if err := writeEntries(f, ref.sheet, entries); err != nil {
			return nil, err
		}
	}

	counts, err := e.store.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count summary: %w", err)
	}
	if _, err := f.NewSheet("Summary"); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}
	if err := writeSummary(f, "Summary", counts); err != nil {
		return nil, err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf, nil
}

func writeStandings(f *excelize.File, sheet string, standings []models.Standing) error {
	if err := writeRow(f, sheet, 1, []any{"rank", "selection", "total_points", "voter_count", "avg_rank"}); err != nil {
		return err
	}
	for i, st := range standings {
		row := []any{i + 1, st.Selection, st.TotalPoints, st.VoterCount, st.AvgRank}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeVotes(f *excelize.File, sheet string, votes []models.VoteWithCategory) error {
	if err := writeRow(f, sheet, 1, []any{"id", "voter_name", "category", "rank", "selection", "points", "timestamp"}); err != nil {
		return err
	}
	for i, v := range votes {
		row := []any{v.ID, v.VoterName, v.CategoryName, v.Rank, v.Selection, v.Points, v.Timestamp.Format("2006-01-02 15:04:05")}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeEntries(f *excelize.File, sheet string, entries []models.ReferenceEntry) error {
	if err := writeRow(f, sheet, 1, []any{"id", "name", "created_at"}); err != nil {
		return err
	}
	for i, e := range entries {
		row := []any{e.ID, e.Name, e.CreatedAt.Format("2006-01-02 15:04:05")}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, sheet string, c models.Counts) error {
	rows := [][]any{
		{"metric", "value"},
		{"voters", c.Voters},
		{"votes", c.Votes},
		{"categories", c.Categories},
		{"games", c.Games},
		{"publishers", c.Publishers},
	}
	for i, row := range rows {
		if err := writeRow(f, sheet, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("cell coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("write cell %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// sheetName fits a category name into the XLSX 31-char limit, strips
// forbidden characters, and keeps names unique across categories.
func sheetName(name string, id int, used map[string]bool) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return -1
		}
		return r
	}, name)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		cleaned = fmt.Sprintf("Category %d", id)
	}
	runes := []rune(cleaned)
	if len(runes) > 31 {
		cleaned = string(runes[:31])
	}
	if used[cleaned] {
		suffix := fmt.Sprintf(" (%d)", id)
		runes = []rune(cleaned)
		if len(runes)+len(suffix) > 31 {
			cleaned = string(runes[:31-len(suffix)])
		}
		cleaned += suffix
	}
	used[cleaned] = true
	return cleaned
}
