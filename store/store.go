package store

import (
	"context"
	"errors"

	"gamevote-backend/models"
)

// Sentinel errors shared by both backends.
var (
	// ErrAlreadyVoted is returned by InsertBallot when any vote row
	// already exists for the voter, including the case where a
	// concurrent submission wins the race and the unique key on
	// (voter_name, category_id, rank) rejects ours.
	ErrAlreadyVoted = errors.New("voter has already submitted a ballot")

	// ErrCategoryInUse blocks category deletion while votes reference it.
	ErrCategoryInUse = errors.New("category is referenced by votes")

	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned when a reference entry or category
	// rename collides with an existing unique name.
	ErrDuplicateName = errors.New("name already exists")
)

// PageSize is the fixed admin table page size.
const PageSize = 50

// AdminTables is the allow-list of table names admins may page through.
// Table names are interpolated into SQL, so every implementation must
// check membership here before building a query.
var AdminTables = map[string]bool{
	"categories": true,
	"votes":      true,
	"games":      true,
	"publishers": true,
}

// Store is the persistence port. Two implementations exist (postgres,
// sqlite); one is selected at startup and never branched per call.
type Store interface {
	Close() error

	// Schema and seed data.
	Init(ctx context.Context) error
	SeedCategories(ctx context.Context, categories []models.Category) error
	SeedEntries(ctx context.Context, kind string, names []string) error

	// Categories.
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id int) (models.Category, error)
	CreateCategory(ctx context.Context, c models.Category) (int, error)
	UpdateCategory(ctx context.Context, c models.Category) error
	DeleteCategory(ctx context.Context, id int) error

	// Reference entries (games, publishers), routed by kind.
	SearchEntries(ctx context.Context, kind, search string, limit int) ([]models.ReferenceEntry, error)
	CreateEntry(ctx context.Context, kind, name string) (int, error)
	RenameEntry(ctx context.Context, kind string, id int, name string) error
	DeleteEntry(ctx context.Context, kind string, id int) error

	// Votes.
	VoterExists(ctx context.Context, voterName string) (bool, error)
	InsertBallot(ctx context.Context, voterName string, rows []models.Vote, suggestions map[string][]string) error
	VotesByVoter(ctx context.Context, voterName string) ([]models.VoteWithCategory, error)
	AllVotes(ctx context.Context) ([]models.VoteWithCategory, error)
	AllEntries(ctx context.Context, kind string) ([]models.ReferenceEntry, error)
	GetVote(ctx context.Context, id int) (models.Vote, error)
	UpdateVote(ctx context.Context, v models.Vote) error
	DeleteVote(ctx context.Context, id int) error

	// Aggregation.
	CategoryStandings(ctx context.Context, categoryID int) ([]models.Standing, error)
	TablePage(ctx context.Context, table string, page int, search string) (models.TablePage, error)
	CountVoters(ctx context.Context) (int, error)
	Counts(ctx context.Context) (models.Counts, error)
}

// Pages computes the 1-indexed total page count for a row count.
func Pages(totalRows int) int {
	return (totalRows + PageSize - 1) / PageSize
}
