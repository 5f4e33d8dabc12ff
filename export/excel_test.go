package export

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"gamevote-backend/models"
	"gamevote-backend/store"
)

func TestBuildWorkbook(t *testing.T) {
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "votes.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.Init(ctx); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	if err := st.SeedCategories(ctx, []models.Category{
		{Name: "Best Games", DisplayOrder: 1, IsRanked: true, Kind: models.KindGame},
		{Name: "Best Publisher", DisplayOrder: 2, IsRanked: false, Kind: models.KindPublisher},
	}); err != nil {
		t.Fatalf("failed to seed categories: %v", err)
	}

	rows := []models.Vote{
		{CategoryID: 1, Rank: 1, Selection: "G1", Points: 5},
		{CategoryID: 1, Rank: 2, Selection: "G2", Points: 4},
		{CategoryID: 1, Rank: 3, Selection: "G3", Points: 3},
		{CategoryID: 1, Rank: 4, Selection: "G4", Points: 2},
		{CategoryID: 1, Rank: 5, Selection: "G5", Points: 1},
		{CategoryID: 2, Rank: 1, Selection: "Pub1", Points: 5},
	}
	suggestions := map[string][]string{
		models.KindGame:      {"G1", "G2", "G3", "G4", "G5"},
		models.KindPublisher: {"Pub1"},
	}
	if err := st.InsertBallot(ctx, "alice", rows, suggestions); err != nil {
		t.Fatalf("failed to insert ballot: %v", err)
	}

	buf, err := NewExporter(st).Build(ctx)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("workbook does not parse: %v", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	want := map[string]bool{
		"Best Games":     false,
		"Best Publisher": false,
		"All Votes":      false,
		"Games":          false,
		"Publishers":     false,
		"Summary":        false,
	}
	for _, sheet := range sheets {
		if _, ok := want[sheet]; ok {
			want[sheet] = true
		}
		if sheet == "Sheet1" {
			t.Fatal("default sheet should have been removed")
		}
	}
	for sheet, found := range want {
		if !found {
			t.Fatalf("missing sheet %q (have %v)", sheet, sheets)
		}
	}

	// Top of the ranked standings sheet.
	leader, err := wb.GetCellValue("Best Games", "B2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if leader != "G1" {
		t.Fatalf("expected G1 at the top of Best Games, got %q", leader)
	}

	votersCell, err := wb.GetCellValue("Summary", "B2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if votersCell != "1" {
		t.Fatalf("expected 1 voter in summary, got %q", votersCell)
	}
}

func TestSheetNameLimits(t *testing.T) {
	used := map[string]bool{}

	long := sheetName("A category with a very long name indeed", 1, used)
	if len([]rune(long)) > 31 {
		t.Fatalf("sheet name exceeds 31 chars: %q", long)
	}

	stripped := sheetName(`Bad[]:name*?`, 2, used)
	for _, r := range `:\/?*[]` {
		if bytes.ContainsRune([]byte(stripped), r) {
			t.Fatalf("forbidden char %q left in sheet name %q", r, stripped)
		}
	}

	first := sheetName("Duplicate", 3, used)
	second := sheetName("Duplicate", 4, used)
	if first == second {
		t.Fatalf("duplicate category names must produce distinct sheets, both %q", first)
	}
}
