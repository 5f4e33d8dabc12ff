package voting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"gamevote-backend/models"
	"gamevote-backend/store"
)

// Service validates and scores ballots and answers aggregate queries.
// All persistence goes through the store port; the submission itself is
// atomic inside the store transaction.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// SubmitBallot validates the full ballot as a unit, scores it, and
// persists all rows atomically. A nil return means the ballot was
// committed.
func (s *Service) SubmitBallot(ctx context.Context, voterName string, ballot map[int][]string) *Error {
	voterName = Sanitize(voterName)
	if voterName == "" {
		return newError(KindInvalidInput, "Name is required")
	}
	if len(ballot) == 0 {
		return newError(KindInvalidInput, "Ballot is empty")
	}

	categoryIDs := make([]int, 0, len(ballot))
	for id := range ballot {
		categoryIDs = append(categoryIDs, id)
	}
	sort.Ints(categoryIDs)

	rows := make([]models.Vote, 0)
	suggestions := make(map[string][]string)

	for _, categoryID := range categoryIDs {
		category, err := s.store.GetCategory(ctx, categoryID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return newError(KindNotFound, fmt.Sprintf("unknown category %d", categoryID))
			}
			log.Println("submit: load category failed:", err)
			return storeFailure(err)
		}

		selections := ballot[categoryID]
		required := category.RequiredSelections()
		if len(selections) != required {
			return newError(KindInvalidBallotShape,
				fmt.Sprintf("عدد الاختيارات غير صحيح للفئة %s: المطلوب %d", categoryLabel(category), required))
		}

		for i, selection := range selections {
			cleaned := Sanitize(selection)
			if cleaned == "" {
				return newError(KindEmptySelection,
					fmt.Sprintf("empty selection for category %s at position %d", categoryLabel(category), i+1))
			}

			rank := i + 1
			points, err := Points(rank, category.IsRanked)
			if err != nil {
				// Unreachable after the shape check; kept as a guard.
				return newError(KindInvalidBallotShape, err.Error())
			}

			rows = append(rows, models.Vote{
				CategoryID: categoryID,
				Rank:       rank,
				Selection:  cleaned,
				Points:     points,
			})
			suggestions[category.Kind] = append(suggestions[category.Kind], cleaned)
		}
	}

	if err := s.store.InsertBallot(ctx, voterName, rows, suggestions); err != nil {
		if errors.Is(err, store.ErrAlreadyVoted) {
			return newError(KindAlreadyVoted, "You have already voted")
		}
		log.Println("submit: insert ballot failed:", err)
		return storeFailure(err)
	}
	return nil
}

// VoterResults returns a voter's rows grouped per category, ordered by
// category display order then rank. Empty slice means no ballot yet.
func (s *Service) VoterResults(ctx context.Context, voterName string) ([]models.CategoryResults, *Error) {
	voterName = Sanitize(voterName)
	if voterName == "" {
		return nil, newError(KindInvalidInput, "Name is required")
	}

	votes, err := s.store.VotesByVoter(ctx, voterName)
	if err != nil {
		log.Println("voter results: query failed:", err)
		return nil, storeFailure(err)
	}

	results := make([]models.CategoryResults, 0)
	for _, v := range votes {
		if n := len(results); n == 0 || results[n-1].CategoryID != v.CategoryID {
			results = append(results, models.CategoryResults{
				CategoryID:   v.CategoryID,
				CategoryName: v.CategoryName,
			})
		}
		last := &results[len(results)-1]
		last.Votes = append(last.Votes, v.Vote)
	}
	return results, nil
}

// CategoryStandings returns the aggregated ranking for one category,
// points descending with a lexicographic tie-break.
func (s *Service) CategoryStandings(ctx context.Context, categoryID int) ([]models.Standing, *Error) {
	if _, err := s.store.GetCategory(ctx, categoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindNotFound, fmt.Sprintf("unknown category %d", categoryID))
		}
		log.Println("standings: load category failed:", err)
		return nil, storeFailure(err)
	}

	standings, err := s.store.CategoryStandings(ctx, categoryID)
	if err != nil {
		log.Println("standings: query failed:", err)
		return nil, storeFailure(err)
	}
	return standings, nil
}

// EditVote is the admin single-row edit. Points are recomputed with the
// same policy as submission; out-of-range ranks are rejected, never
// clamped to zero.
func (s *Service) EditVote(ctx context.Context, voteID int, selection string, rank int) *Error {
	selection = Sanitize(selection)
	if selection == "" {
		return newError(KindInvalidInput, "Selection is required")
	}

	vote, err := s.store.GetVote(ctx, voteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newError(KindNotFound, fmt.Sprintf("unknown vote %d", voteID))
		}
		log.Println("edit vote: load failed:", err)
		return storeFailure(err)
	}

	category, err := s.store.GetCategory(ctx, vote.CategoryID)
	if err != nil {
		log.Println("edit vote: load category failed:", err)
		return storeFailure(err)
	}

	points, err := Points(rank, category.IsRanked)
	if err != nil {
		return newError(KindInvalidInput, err.Error())
	}

	vote.Selection = selection
	vote.Rank = rank
	vote.Points = points
	if err := s.store.UpdateVote(ctx, vote); err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			return newError(KindInvalidInput, "voter already has a vote at that rank in this category")
		}
		log.Println("edit vote: update failed:", err)
		return storeFailure(err)
	}

	// Keep the reference table in sync with the edited selection.
	if _, err := s.store.CreateEntry(ctx, category.Kind, selection); err != nil {
		log.Println("edit vote: reference upsert failed:", err)
	}
	return nil
}

func categoryLabel(c models.Category) string {
	if c.NameAr != "" {
		return c.NameAr
	}
	return c.Name
}
