package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"gamevote-backend/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS categories (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	name_ar TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	display_order INTEGER NOT NULL DEFAULT 0,
	is_ranked BOOLEAN NOT NULL DEFAULT FALSE,
	kind TEXT NOT NULL DEFAULT 'game' CHECK (kind IN ('game', 'publisher'))
);

CREATE TABLE IF NOT EXISTS games (
	id SERIAL PRIMARY KEY,
	name TEXT UNIQUE NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS publishers (
	id SERIAL PRIMARY KEY,
	name TEXT UNIQUE NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS votes (
	id SERIAL PRIMARY KEY,
	voter_name TEXT NOT NULL,
	category_id INTEGER NOT NULL REFERENCES categories(id),
	rank INTEGER NOT NULL,
	selection TEXT NOT NULL,
	points INTEGER NOT NULL,
	timestamp TIMESTAMP NOT NULL DEFAULT NOW(),
	UNIQUE (voter_name, category_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_votes_voter ON votes (voter_name);
CREATE INDEX IF NOT EXISTS idx_votes_selection ON votes (category_id, selection);
CREATE INDEX IF NOT EXISTS idx_games_name ON games (name);
CREATE INDEX IF NOT EXISTS idx_publishers_name ON publishers (name);
`

func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) SeedCategories(ctx context.Context, categories []models.Category) error {
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
			VALUES ($1, $2, $3, $4, $5, $6)
		`, c.Name, c.NameAr, c.Description, c.DisplayOrder, c.IsRanked, c.Kind); err != nil {
			return fmt.Errorf("seed category %q: %w", c.Name, err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) SeedEntries(ctx context.Context, kind string, names []string) error {
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
			INSERT INTO `+table+` (name) VALUES ($1) ON CONFLICT (name) DO NOTHING
		`, name); err != nil {
			return fmt.Errorf("seed %s %q: %w", table, name, err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]models.Category, error) {
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
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.NameAr, &c.Description, &c.DisplayOrder, &c.IsRanked, &c.Kind); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *PostgresStore) GetCategory(ctx context.Context, id int) (models.Category, error) {
	var c models.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, name_ar, description, display_order, is_ranked, kind
		FROM categories WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.NameAr, &c.Description, &c.DisplayOrder, &c.IsRanked, &c.Kind)
	if err == sql.ErrNoRows {
		return models.Category{}, ErrNotFound
	}
	if err != nil {
		return models.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (s *PostgresStore) CreateCategory(ctx context.Context, c models.Category) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, name_ar, description, display_order, is_ranked, kind)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, c.Name, c.NameAr, c.Description, c.DisplayOrder, c.IsRanked, c.Kind).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdateCategory(ctx context.Context, c models.Category) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories
		SET name = $1, name_ar = $2, description = $3, display_order = $4
		WHERE id = $5
	`, c.Name, c.NameAr, c.Description, c.DisplayOrder, c.ID)
	if err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return requireRow(res)
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, id int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	var refs int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE category_id = $1`, id).Scan(&refs); err != nil {
		return fmt.Errorf("count category references: %w", err)
	}
	if refs > 0 {
		return ErrCategoryInUse
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) SearchEntries(ctx context.Context, kind, search string, limit int) ([]models.ReferenceEntry, error) {
	table, err := entryTable(kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT id, name, created_at FROM ` + table
	args := []any{}
	if search != "" {
		query += ` WHERE name ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += fmt.Sprintf(` ORDER BY name ASC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", table, err)
	}
	defer rows.Close()

	entries := make([]models.ReferenceEntry, 0)
	for rows.Next() {
		var e models.ReferenceEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s entry: %w", table, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) CreateEntry(ctx context.Context, kind, name string) (int, error) {
	table, err := entryTable(kind)
	if err != nil {
		return 0, err
	}

	var id int
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO `+table+` (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id
	`, name).Scan(&id)
	if err == sql.ErrNoRows {
		// Already present; creation is idempotent.
		err = s.db.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE name = $1`, name).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("create %s entry: %w", table, err)
	}
	return id, nil
}

func (s *PostgresStore) RenameEntry(ctx context.Context, kind string, id int, name string) error {
	table, err := entryTable(kind)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE `+table+` SET name = $1 WHERE id = $2`, name, id)
	if err != nil {
		if isPQUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("rename %s %d: %w", table, id, err)
	}
	return requireRow(res)
}

func (s *PostgresStore) DeleteEntry(ctx context.Context, kind string, id int) error {
	table, err := entryTable(kind)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", table, id, err)
	}
	return requireRow(res)
}

func (s *PostgresStore) VoterExists(ctx context.Context, voterName string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM votes WHERE voter_name = $1)
	`, voterName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check voter: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) InsertBallot(ctx context.Context, voterName string, ballotRows []models.Vote, suggestions map[string][]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ballot transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM votes WHERE voter_name = $1)
	`, voterName).Scan(&exists); err != nil {
		return fmt.Errorf("check prior ballot: %w", err)
	}
	if exists {
		return ErrAlreadyVoted
	}

	for kind, names := range suggestions {
		table, err := entryTable(kind)
		if err != nil {
			return err
		}
		for _, name := range names {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO `+table+` (name) VALUES ($1) ON CONFLICT (name) DO NOTHING
			`, name); err != nil {
				return fmt.Errorf("upsert %s %q: %w", table, name, err)
			}
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO votes (voter_name, category_id, rank, selection, points)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("prepare vote insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range ballotRows {
		if _, err := stmt.ExecContext(ctx, voterName, v.CategoryID, v.Rank, v.Selection, v.Points); err != nil {
			// A concurrent submission under the same name hits the
			// unique key on (voter_name, category_id, rank).
			if isPQUniqueViolation(err) {
				return ErrAlreadyVoted
			}
			return fmt.Errorf("insert vote category=%d rank=%d: %w", v.CategoryID, v.Rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isPQUniqueViolation(err) {
			return ErrAlreadyVoted
		}
		return fmt.Errorf("commit ballot: %w", err)
	}
	return nil
}

func (s *PostgresStore) VotesByVoter(ctx context.Context, voterName string) ([]models.VoteWithCategory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.voter_name, v.category_id, v.rank, v.selection, v.points, v.timestamp, c.name
		FROM votes v
		JOIN categories c ON c.id = v.category_id
		WHERE v.voter_name = $1
		ORDER BY c.display_order ASC, v.rank ASC
	`, voterName)
	if err != nil {
		return nil, fmt.Errorf("query voter ballot: %w", err)
	}
	defer rows.Close()

	return scanJoinedVotes(rows)
}

func (s *PostgresStore) AllVotes(ctx context.Context) ([]models.VoteWithCategory, error) {
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

	return scanJoinedVotes(rows)
}

func (s *PostgresStore) AllEntries(ctx context.Context, kind string) ([]models.ReferenceEntry, error) {
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
		if err := rows.Scan(&e.ID, &e.Name, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s entry: %w", table, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) GetVote(ctx context.Context, id int) (models.Vote, error) {
	var v models.Vote
	err := s.db.QueryRowContext(ctx, `
		SELECT id, voter_name, category_id, rank, selection, points, timestamp
		FROM votes WHERE id = $1
	`, id).Scan(&v.ID, &v.VoterName, &v.CategoryID, &v.Rank, &v.Selection, &v.Points, &v.Timestamp)
	if err == sql.ErrNoRows {
		return models.Vote{}, ErrNotFound
	}
	if err != nil {
		return models.Vote{}, fmt.Errorf("get vote %d: %w", id, err)
	}
	return v, nil
}

func (s *PostgresStore) UpdateVote(ctx context.Context, v models.Vote) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE votes SET selection = $1, rank = $2, points = $3 WHERE id = $4
	`, v.Selection, v.Rank, v.Points, v.ID)
	if err != nil {
		if isPQUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("update vote %d: %w", v.ID, err)
	}
	return requireRow(res)
}

func (s *PostgresStore) DeleteVote(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM votes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete vote %d: %w", id, err)
	}
	return requireRow(res)
}

func (s *PostgresStore) CategoryStandings(ctx context.Context, categoryID int) ([]models.Standing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT selection,
		       SUM(points) AS total_points,
		       COUNT(DISTINCT voter_name) AS voter_count,
		       ROUND(AVG(rank)::numeric, 2) AS avg_rank
		FROM votes
		WHERE category_id = $1
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

func (s *PostgresStore) TablePage(ctx context.Context, table string, page int, search string) (models.TablePage, error) {
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
			where = ` WHERE name ILIKE $1 OR name_ar ILIKE $1`
			args = append(args, "%"+search+"%")
		}
		countQuery = `SELECT COUNT(*) FROM categories` + where
		dataQuery = `SELECT id, name, name_ar, description, display_order, is_ranked, kind FROM categories` + where +
			fmt.Sprintf(` ORDER BY id ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	case "votes":
		where := ""
		if search != "" {
			where = ` WHERE v.voter_name ILIKE $1 OR v.selection ILIKE $1 OR c.name ILIKE $1`
			args = append(args, "%"+search+"%")
		}
		countQuery = `SELECT COUNT(*) FROM votes v JOIN categories c ON c.id = v.category_id` + where
		dataQuery = `SELECT v.id, v.voter_name, c.name, v.rank, v.selection, v.points, v.timestamp
			FROM votes v JOIN categories c ON c.id = v.category_id` + where +
			fmt.Sprintf(` ORDER BY v.id ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	default: // games, publishers; membership already checked
		where := ""
		if search != "" {
			where = ` WHERE name ILIKE $1`
			args = append(args, "%"+search+"%")
		}
		countQuery = `SELECT COUNT(*) FROM ` + table + where
		dataQuery = `SELECT id, name, created_at FROM ` + table + where +
			fmt.Sprintf(` ORDER BY id ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
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
		row, err := scanTableRow(table, rows)
		if err != nil {
			return models.TablePage{}, err
		}
		result.Rows = append(result.Rows, row)
	}
	return result, rows.Err()
}

func (s *PostgresStore) CountVoters(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT voter_name) FROM votes`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count voters: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Counts(ctx context.Context) (models.Counts, error) {
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

func scanJoinedVotes(rows *sql.Rows) ([]models.VoteWithCategory, error) {
	votes := make([]models.VoteWithCategory, 0)
	for rows.Next() {
		var v models.VoteWithCategory
		if err := rows.Scan(&v.ID, &v.VoterName, &v.CategoryID, &v.Rank, &v.Selection, &v.Points, &v.Timestamp, &v.CategoryName); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func scanTableRow(table string, rows *sql.Rows) ([]any, error) {
	switch table {
	case "categories":
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.NameAr, &c.Description, &c.DisplayOrder, &c.IsRanked, &c.Kind); err != nil {
			return nil, fmt.Errorf("scan categories row: %w", err)
		}
		return []any{c.ID, c.Name, c.NameAr, c.Description, c.DisplayOrder, c.IsRanked, c.Kind}, nil
	case "votes":
		var v models.VoteWithCategory
		if err := rows.Scan(&v.ID, &v.VoterName, &v.CategoryName, &v.Rank, &v.Selection, &v.Points, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("scan votes row: %w", err)
		}
		return []any{v.ID, v.VoterName, v.CategoryName, v.Rank, v.Selection, v.Points, v.Timestamp.Format(timeFormat)}, nil
	default:
		var e models.ReferenceEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		return []any{e.ID, e.Name, e.CreatedAt.Format(timeFormat)}, nil
	}
}

func isPQUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

var _ Store = (*PostgresStore)(nil)
