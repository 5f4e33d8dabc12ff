package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"gamevote-backend/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "votes.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return st
}

func seedCategory(t *testing.T, st *SQLiteStore, c models.Category) int {
	t.Helper()
	id, err := st.CreateCategory(context.Background(), c)
	if err != nil {
		t.Fatalf("failed to create category: %v", err)
	}
	return id
}

func TestDeleteCategoryGuard(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	emptyID := seedCategory(t, st, models.Category{Name: "Empty", Kind: models.KindGame})
	votedID := seedCategory(t, st, models.Category{Name: "Voted", IsRanked: false, Kind: models.KindGame})

	rows := []models.Vote{{CategoryID: votedID, Rank: 1, Selection: "G1", Points: 5}}
	if err := st.InsertBallot(ctx, "alice", rows, nil); err != nil {
		t.Fatalf("failed to insert ballot: %v", err)
	}

	if err := st.DeleteCategory(ctx, emptyID); err != nil {
		t.Fatalf("deleting an unreferenced category should succeed: %v", err)
	}

	err := st.DeleteCategory(ctx, votedID)
	if !errors.Is(err, ErrCategoryInUse) {
		t.Fatalf("deleting a referenced category: got %v, want ErrCategoryInUse", err)
	}

	// The category row must be intact after the failed delete.
	if _, err := st.GetCategory(ctx, votedID); err != nil {
		t.Fatalf("category should still exist: %v", err)
	}
}

func TestInsertBallotDuplicateVoter(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	catID := seedCategory(t, st, models.Category{Name: "Single", Kind: models.KindGame})
	rows := []models.Vote{{CategoryID: catID, Rank: 1, Selection: "G1", Points: 5}}

	if err := st.InsertBallot(ctx, "alice", rows, nil); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := st.InsertBallot(ctx, "alice", rows, nil); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("second insert: got %v, want ErrAlreadyVoted", err)
	}
}

func TestInsertBallotUpsertsSuggestions(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	catID := seedCategory(t, st, models.Category{Name: "Single", Kind: models.KindGame})
	if _, err := st.CreateEntry(ctx, models.KindGame, "Existing"); err != nil {
		t.Fatalf("failed to pre-create entry: %v", err)
	}

	rows := []models.Vote{{CategoryID: catID, Rank: 1, Selection: "Existing", Points: 5}}
	suggestions := map[string][]string{models.KindGame: {"Existing", "Novel"}}
	if err := st.InsertBallot(ctx, "alice", rows, suggestions); err != nil {
		t.Fatalf("insert with suggestions failed: %v", err)
	}

	entries, err := st.AllEntries(ctx, models.KindGame)
	if err != nil {
		t.Fatalf("failed to list entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after idempotent upsert, got %d", len(entries))
	}
}

func TestCreateEntryIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first, err := st.CreateEntry(ctx, models.KindPublisher, "Nintendo")
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := st.CreateEntry(ctx, models.KindPublisher, "Nintendo")
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if first != second {
		t.Fatalf("idempotent create returned different ids: %d vs %d", first, second)
	}
}

func TestRenameEntryConflicts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id, err := st.CreateEntry(ctx, models.KindGame, "Hades")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := st.CreateEntry(ctx, models.KindGame, "Celeste"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := st.RenameEntry(ctx, models.KindGame, id, "Celeste"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("rename onto existing name: got %v, want ErrDuplicateName", err)
	}
	if err := st.RenameEntry(ctx, models.KindGame, 9999, "Unused"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rename unknown id: got %v, want ErrNotFound", err)
	}
	if err := st.RenameEntry(ctx, models.KindGame, id, "Hades II"); err != nil {
		t.Fatalf("valid rename failed: %v", err)
	}
}

func TestSearchEntriesCaseInsensitive(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Elden Ring", "ELDENWOOD", "Hades"} {
		if _, err := st.CreateEntry(ctx, models.KindGame, name); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	entries, err := st.SearchEntries(ctx, models.KindGame, "elden", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 case-insensitive matches, got %d", len(entries))
	}
}

func TestTablePage(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		if _, err := st.CreateEntry(ctx, models.KindGame, fmt.Sprintf("Game %03d", i)); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	page, err := st.TablePage(ctx, "games", 1, "")
	if err != nil {
		t.Fatalf("page 1 failed: %v", err)
	}
	if page.TotalRows != 120 || page.Pages != 3 || len(page.Rows) != PageSize {
		t.Fatalf("page 1: total=%d pages=%d rows=%d", page.TotalRows, page.Pages, len(page.Rows))
	}

	last, err := st.TablePage(ctx, "games", 3, "")
	if err != nil {
		t.Fatalf("page 3 failed: %v", err)
	}
	if len(last.Rows) != 20 {
		t.Fatalf("page 3: expected 20 rows, got %d", len(last.Rows))
	}

	filtered, err := st.TablePage(ctx, "games", 1, "game 00")
	if err != nil {
		t.Fatalf("filtered page failed: %v", err)
	}
	if filtered.TotalRows != 10 {
		t.Fatalf("filtered: expected 10 matches, got %d", filtered.TotalRows)
	}

	if _, err := st.TablePage(ctx, "users; DROP TABLE votes", 1, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("non-allow-listed table: got %v, want ErrNotFound", err)
	}
}

func TestTablePageVotesJoinsCategoryName(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	catID := seedCategory(t, st, models.Category{Name: "Best Publisher", Kind: models.KindPublisher})
	rows := []models.Vote{{CategoryID: catID, Rank: 1, Selection: "P1", Points: 5}}
	if err := st.InsertBallot(ctx, "alice", rows, nil); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	page, err := st.TablePage(ctx, "votes", 1, "")
	if err != nil {
		t.Fatalf("votes page failed: %v", err)
	}
	if len(page.Rows) != 1 {
		t.Fatalf("expected 1 vote row, got %d", len(page.Rows))
	}
	if page.Rows[0][2] != "Best Publisher" {
		t.Fatalf("expected joined category name, got %v", page.Rows[0][2])
	}

	// Search matches the joined category name too.
	byCategory, err := st.TablePage(ctx, "votes", 1, "publisher")
	if err != nil {
		t.Fatalf("votes search failed: %v", err)
	}
	if byCategory.TotalRows != 1 {
		t.Fatalf("search by category name: expected 1 row, got %d", byCategory.TotalRows)
	}
}

func TestCounts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	catID := seedCategory(t, st, models.Category{Name: "Single", Kind: models.KindGame})
	for _, voter := range []string{"alice", "bob"} {
		rows := []models.Vote{{CategoryID: catID, Rank: 1, Selection: "G1", Points: 5}}
		if err := st.InsertBallot(ctx, voter, rows, map[string][]string{models.KindGame: {"G1"}}); err != nil {
			t.Fatalf("insert for %s failed: %v", voter, err)
		}
	}

	counts, err := st.Counts(ctx)
	if err != nil {
		t.Fatalf("counts failed: %v", err)
	}
	want := models.Counts{Voters: 2, Votes: 2, Categories: 1, Games: 1, Publishers: 0}
	if counts != want {
		t.Fatalf("counts = %+v, want %+v", counts, want)
	}
}
