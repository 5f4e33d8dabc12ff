package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"gamevote-backend/models"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database file at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single pooled connection avoids
	// SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			name_ar TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			display_order INTEGER NOT NULL DEFAULT 0,
			is_ranked INTEGER NOT NULL DEFAULT 0,
			kind TEXT NOT NULL DEFAULT 'game' CHECK (kind IN ('game', 'publisher'))
		)`,
		`CREATE TABLE IF NOT EXISTS games (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS publishers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS votes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			voter_name TEXT NOT NULL,
			category_id INTEGER NOT NULL REFERENCES categories(id),
			rank INTEGER NOT NULL,
			selection TEXT NOT NULL,
			points INTEGER NOT NULL,
			timestamp TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (voter_name, category_id, rank)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_voter ON votes (voter_name)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_selection ON votes (category_id, selection)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) SeedCategories(ctx context.Context, categories []models.Category) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, c := range categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name, name_ar, description, display_order, is_ranked, kind)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.Name, c.NameAr, c.Description, c.DisplayOrder, boolToInt(c.IsRanked), c.Kind); err != nil {
			return fmt.Errorf("seed category %q: %w", c.Name, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) SeedEntries(ctx context.Context, kind string, names []string) error {
	table, err := entryTable(kind)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil {
		return fmt.Errorf("count %s: %w", table, err)
	}
	if count > 0 {
		return nil
	}

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO `+table+` (name) VALUES (?) ON CONFLICT (name) DO NOTHING
		`, name); err != nil {
			return fmt.Errorf("seed %s %q: %w", table, name, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, name_ar, description, display_order, is_ranked, kind
		FROM categories
		ORDER BY display_order ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		c, err := scanSQLiteCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *SQLiteStore) GetCategory(ctx context.Context, id int) (models.Category, error) {
	var c models.Category
	var ranked int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, name_ar, description, display_order, is_ranked, kind
		FROM categories WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.NameAr, &c.Description, &c.DisplayOrder, &ranked, &c.Kind)
	if err == sql.ErrNoRows {
		return models.Category{}, ErrNotFound
	}
	if err != nil {
		return models.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	c.IsRanked = ranked != 0
	return c, nil
}

func (s *SQLiteStore) CreateCategory(ctx context.Context, c models.Category) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, name_ar, description, display_order, is_ranked, kind)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.Name, c.NameAr, c.Description, c.DisplayOrder, boolToInt(c.IsRanked), c.Kind)
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("category insert id: %w", err)
	}
	return int(id), nil
}

func (s *SQLiteStore) UpdateCategory(ctx context.Context, c models.Category) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories
		SET name = ?, name_ar = ?, description = ?, display_order = ?
		WHERE id = ?
	`, c.Name, c.NameAr, c.Description, c.DisplayOrder, c.ID)
	if err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) DeleteCategory(ctx context.Context, id int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	var refs int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE category_id = ?`, id).Scan(&refs); err != nil {
		return fmt.Errorf("count category references: %w", err)
	}
	if refs > 0 {
		return ErrCategoryInUse
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) SearchEntries(ctx context.Context, kind, search string, limit int) ([]models.ReferenceEntry, error) {
	table, err := entryTable(kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, name, created_at FROM ` + table
	args := []any{}
	if search != "" {
		query += ` WHERE LOWER(name) LIKE LOWER(?)`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", table, err)
	}
	defer rows.Close()

	entries := make([]models.ReferenceEntry, 0)
	for rows.Next() {
		var e models.ReferenceEntry
		var created string
		if err := rows.Scan(&e.ID, &e.Name, &created); err != nil {
			return nil, fmt.Errorf("scan %s entry: %w", table, err)
		}
		e.CreatedAt = parseSQLiteTime(created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) CreateEntry(ctx context.Context, kind, name string) (int, error) {
	table, err := entryTable(kind)
	if err != nil {
		return 0, err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO `+table+` (name) VALUES (?) ON CONFLICT (name) DO NOTHING
	`, name); err != nil {
		return 0, fmt.Errorf("create %s entry: %w", table, err)
	}

	var id int
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup %s entry: %w", table, err)
	}
	return id, nil
}

func (s *SQLiteStore) RenameEntry(ctx context.Context, kind string, id int, name string) error {
	table, err := entryTable(kind)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE `+table+` SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("rename %s %d: %w", table, id, err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) DeleteEntry(ctx context.Context, kind string, id int) error {
	table, err := entryTable(kind)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", table, id, err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) VoterExists(ctx context.Context, voterName string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM votes WHERE voter_name = ?)
	`, voterName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check voter: %w", err)
	}
	return exists != 0, nil
}

func (s *SQLiteStore) InsertBallot(ctx context.Context, voterName string, ballotRows []models.Vote, suggestions map[string][]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ballot transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM votes WHERE voter_name = ?)
	`, voterName).Scan(&exists); err != nil {
		return fmt.Errorf("check prior ballot: %w", err)
	}
	if exists != 0 {
		return ErrAlreadyVoted
	}

	for kind, names := range suggestions {
		table, err := entryTable(kind)
		if err != nil {
			return err
		}
		for _, name := range names {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO `+table+` (name) VALUES (?) ON CONFLICT (name) DO NOTHING
			`, name); err != nil {
				return fmt.Errorf("upsert %s %q: %w", table, name, err)
			}
		}
	}

	for _, v := range ballotRows {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO votes (voter_name, category_id, rank, selection, points)
			VALUES (?, ?, ?, ?, ?)
		`, voterName, v.CategoryID, v.Rank, v.Selection, v.Points); err != nil {
			if isSQLiteUniqueViolation(err) {
				return ErrAlreadyVoted
			}
			return fmt.Errorf("insert vote category=%d rank=%d: %w", v.CategoryID, v.Rank, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) VotesByVoter(ctx context.Context, voterName string) ([]models.VoteWithCategory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.voter_name, v.category_id, v.rank, v.selection, v.points, v.timestamp, c.name
		FROM votes v
		JOIN categories c ON c.id = v.category_id
		WHERE v.voter_name = ?
		ORDER BY c.display_order ASC, v.rank ASC
	`, voterName)
	if err != nil {
		return nil, fmt.Errorf("query voter ballot: %w", err)
	}
	defer rows.Close()

	votes := make([]models.VoteWithCategory, 0)
	for rows.Next() {
		var v models.VoteWithCategory
		var ts string
		if err := rows.Scan(&v.ID, &v.VoterName, &v.CategoryID, &v.Rank, &v.Selection, &v.Points, &ts, &v.CategoryName); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		v.Timestamp = parseSQLiteTime(ts)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func (s *SQLiteStore) AllVotes(ctx context.Context) ([]models.VoteWithCategory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.voter_name, v.category_id, v.rank, v.selection, v.points, v.timestamp, c.name
		FROM votes v
		JOIN categories c ON c.id = v.category_id
		ORDER BY v.timestamp DESC, v.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all votes: %w", err)
	}
	defer rows.Close()

	votes := make([]models.VoteWithCategory, 0)
	for rows.Next() {
		var v models.VoteWithCategory
		var ts string
		if err := rows.Scan(&v.ID, &v.VoterName, &v.CategoryID, &v.Rank, &v.Selection, &v.Points, &ts, &v.CategoryName); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		v.Timestamp = parseSQLiteTime(ts)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func (s *SQLiteStore) AllEntries(ctx context.Context, kind string) ([]models.ReferenceEntry, error) {
	table, err := entryTable(kind)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM `+table+` ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	entries := make([]models.ReferenceEntry, 0)
	for rows.Next() {
		var e models.ReferenceEntry
		var created string
		if err := rows.Scan(&e.ID, &e.Name, &created); err != nil {
			return nil, fmt.Errorf("scan %s entry: %w", table, err)
		}
		e.CreatedAt = parseSQLiteTime(created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) GetVote(ctx context.Context, id int) (models.Vote, error) {
	var v models.Vote
	var ts string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, voter_name, category_id, rank, selection, points, timestamp
		FROM votes WHERE id = ?
	`, id).Scan(&v.ID, &v.VoterName, &v.CategoryID, &v.Rank, &v.Selection, &v.Points, &ts)
	if err == sql.ErrNoRows {
		return models.Vote{}, ErrNotFound
	}
	if err != nil {
		return models.Vote{}, fmt.Errorf("get vote %d: %w", id, err)
	}
	v.Timestamp = parseSQLiteTime(ts)
	return v, nil
}

func (s *SQLiteStore) UpdateVote(ctx context.Context, v models.Vote) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE votes SET selection = ?, rank = ?, points = ? WHERE id = ?
	`, v.Selection, v.Rank, v.Points, v.ID)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("update vote %d: %w", v.ID, err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) DeleteVote(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM votes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete vote %d: %w", id, err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) CategoryStandings(ctx context.Context, categoryID int) ([]models.Standing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT selection,
		       SUM(points) AS total_points,
		       COUNT(DISTINCT voter_name) AS voter_count,
		       ROUND(AVG(rank), 2) AS avg_rank
		FROM votes
		WHERE category_id = ?
		GROUP BY selection
		ORDER BY total_points DESC, selection ASC
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("query standings: %w", err)
	}
	defer rows.Close()

	standings := make([]models.Standing, 0)
	for rows.Next() {
		var st models.Standing
		if err := rows.Scan(&st.Selection, &st.TotalPoints, &st.VoterCount, &st.AvgRank); err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		standings = append(standings, st)
	}
	return standings, rows.Err()
}

func (s *SQLiteStore) TablePage(ctx context.Context, table string, page int, search string) (models.TablePage, error) {
	if !AdminTables[table] {
		return models.TablePage{}, ErrNotFound
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * PageSize

	var (
		countQuery string
		dataQuery  string
		args       []any
	)

	switch table {
	case "categories":
		where := ""
		if search != "" {
			where = ` WHERE LOWER(name) LIKE LOWER(?) OR LOWER(name_ar) LIKE LOWER(?)`
			args = append(args, "%"+search+"%", "%"+search+"%")
		}
		countQuery = `SELECT COUNT(*) FROM categories` + where
		dataQuery = `SELECT id, name, name_ar, description, display_order, is_ranked, kind FROM categories` + where +
			` ORDER BY id ASC LIMIT ? OFFSET ?`
	case "votes":
		where := ""
		if search != "" {
			where = ` WHERE LOWER(v.voter_name) LIKE LOWER(?) OR LOWER(v.selection) LIKE LOWER(?) OR LOWER(c.name) LIKE LOWER(?)`
			args = append(args, "%"+search+"%", "%"+search+"%", "%"+search+"%")
		}
		countQuery = `SELECT COUNT(*) FROM votes v JOIN categories c ON c.id = v.category_id` + where
		dataQuery = `SELECT v.id, v.voter_name, c.name, v.rank, v.selection, v.points, v.timestamp
			FROM votes v JOIN categories c ON c.id = v.category_id` + where +
			` ORDER BY v.id ASC LIMIT ? OFFSET ?`
	default: // games, publishers; membership already checked
		where := ""
		if search != "" {
			where = ` WHERE LOWER(name) LIKE LOWER(?)`
			args = append(args, "%"+search+"%")
		}
		countQuery = `SELECT COUNT(*) FROM ` + table + where
		dataQuery = `SELECT id, name, created_at FROM ` + table + where +
			` ORDER BY id ASC LIMIT ? OFFSET ?`
	}

	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return models.TablePage{}, fmt.Errorf("count %s rows: %w", table, err)
	}

	args = append(args, PageSize, offset)
	rows, err := s.db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return models.TablePage{}, fmt.Errorf("query %s page: %w", table, err)
	}
	defer rows.Close()

	result := models.TablePage{
		Table:     table,
		Columns:   tableColumns(table),
		Rows:      make([][]any, 0),
		TotalRows: total,
		Page:      page,
		Pages:     Pages(total),
	}

	for rows.Next() {
		row, err := scanSQLiteTableRow(table, rows)
		if err != nil {
			return models.TablePage{}, err
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) CountVoters(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT voter_name) FROM votes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count voters: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Counts(ctx context.Context) (models.Counts, error) {
	var c models.Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(DISTINCT voter_name) FROM votes),
			(SELECT COUNT(*) FROM votes),
			(SELECT COUNT(*) FROM categories),
			(SELECT COUNT(*) FROM games),
			(SELECT COUNT(*) FROM publishers)
	`).Scan(&c.Voters, &c.Votes, &c.Categories, &c.Games, &c.Publishers)
	if err != nil {
		return models.Counts{}, fmt.Errorf("count summary: %w", err)
	}
	return c, nil
}

func scanSQLiteCategory(rows *sql.Rows) (models.Category, error) {
	var c models.Category
	var ranked int
	if err := rows.Scan(&c.ID, &c.Name, &c.NameAr, &c.Description, &c.DisplayOrder, &ranked, &c.Kind); err != nil {
		return models.Category{}, fmt.Errorf("scan category: %w", err)
	}
	c.IsRanked = ranked != 0
	return c, nil
}

func scanSQLiteTableRow(table string, rows *sql.Rows) ([]any, error) {
	switch table {
	case "categories":
		c, err := scanSQLiteCategory(rows)
		if err != nil {
			return nil, err
		}
		return []any{c.ID, c.Name, c.NameAr, c.Description, c.DisplayOrder, c.IsRanked, c.Kind}, nil
	case "votes":
		var v models.VoteWithCategory
		var ts string
		if err := rows.Scan(&v.ID, &v.VoterName, &v.CategoryName, &v.Rank, &v.Selection, &v.Points, &ts); err != nil {
			return nil, fmt.Errorf("scan votes row: %w", err)
		}
		return []any{v.ID, v.VoterName, v.CategoryName, v.Rank, v.Selection, v.Points, ts}, nil
	default:
		var e models.ReferenceEntry
		var created string
		if err := rows.Scan(&e.ID, &e.Name, &created); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		return []any{e.ID, e.Name, created}, nil
	}
}

// parseSQLiteTime parses CURRENT_TIMESTAMP text ("2006-01-02 15:04:05").
func parseSQLiteTime(value string) time.Time {
	t, err := time.Parse(timeFormat, value)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Store = (*SQLiteStore)(nil)
