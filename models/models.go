package models

import "time"

// Category kinds decide which reference table backs autocomplete
// suggestions for the category.
const (
	KindGame      = "game"
	KindPublisher = "publisher"
)

type Category struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	NameAr       string `json:"name_ar"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
	IsRanked     bool   `json:"is_ranked"`
	Kind         string `json:"kind"`
}

// RequiredSelections is 5 for ranked categories, 1 for single-choice.
func (c Category) RequiredSelections() int {
	if c.IsRanked {
		return 5
	}
	return 1
}

// ReferenceEntry is an autocomplete-only record (a game or publisher
// name); it plays no role in scoring.
type ReferenceEntry struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Vote struct {
	ID         int       `json:"id"`
	VoterName  string    `json:"voter_name"`
	CategoryID int       `json:"category_id"`
	Rank       int       `json:"rank"`
	Selection  string    `json:"selection"`
	Points     int       `json:"points"`
	Timestamp  time.Time `json:"timestamp"`
}

// VoteWithCategory joins the category display name onto a vote row for
// admin table views and per-voter results.
type VoteWithCategory struct {
	Vote
	CategoryName string `json:"category_name"`
}

// Standing is one row of a category's aggregated ranking.
type Standing struct {
	Selection   string  `json:"selection"`
	TotalPoints int     `json:"total_points"`
	VoterCount  int     `json:"voter_count"`
	AvgRank     float64 `json:"avg_rank"`
}

// TablePage is one page of an admin table view.
type TablePage struct {
	Table     string   `json:"table"`
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	TotalRows int      `json:"total_rows"`
	Page      int      `json:"page"`
	Pages     int      `json:"pages"`
}

// Counts is the summary block of the spreadsheet export.
type Counts struct {
	Voters     int `json:"voters"`
	Votes      int `json:"votes"`
	Categories int `json:"categories"`
	Games      int `json:"games"`
	Publishers int `json:"publishers"`
}

// CategoryResults groups a voter's rows for one category.
type CategoryResults struct {
	CategoryID   int    `json:"category_id"`
	CategoryName string `json:"category_name"`
	Votes        []Vote `json:"votes"`
}
