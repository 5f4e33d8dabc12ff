package controllers

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"gamevote-backend/config"
	"gamevote-backend/models"
	"gamevote-backend/store"
	"gamevote-backend/voting"
)

const defaultSuggestionLimit = 20

type PublicController struct {
	store store.Store
	svc   *voting.Service
	cfg   config.Config
}

func NewPublicController(st store.Store, svc *voting.Service, cfg config.Config) *PublicController {
	return &PublicController{store: st, svc: svc, cfg: cfg}
}

func (pc *PublicController) GetCategories(c *fiber.Ctx) error {
	categories, err := pc.store.ListCategories(c.Context())
	if err != nil {
		log.Println("list categories failed:", err)
		return storeError(c)
	}
	return c.JSON(categories)
}

func (pc *PublicController) GetGames(c *fiber.Ctx) error {
	return pc.searchEntries(c, models.KindGame)
}

func (pc *PublicController) GetPublishers(c *fiber.Ctx) error {
	return pc.searchEntries(c, models.KindPublisher)
}

func (pc *PublicController) searchEntries(c *fiber.Ctx, kind string) error {
	search := voting.Sanitize(c.Query("search"))
	limit := parseLimit(c.Query("limit"))

	entries, err := pc.store.SearchEntries(c.Context(), kind, search, limit)
	if err != nil {
		log.Println("search entries failed:", err)
		return storeError(c)
	}
	return c.JSON(entries)
}

// GetSuggestions routes the autocomplete search to the reference table
// declared by the category's kind.
func (pc *PublicController) GetSuggestions(c *fiber.Ctx) error {
	categoryID, err := strconv.Atoi(c.Query("category_id"))
	if err != nil || categoryID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid category id"})
	}

	category, err := pc.store.GetCategory(c.Context(), categoryID)
	if err != nil {
		if err == store.ErrNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": "error", "message": "Category not found"})
		}
		log.Println("load category failed:", err)
		return storeError(c)
	}

	search := voting.Sanitize(c.Query("search"))
	limit := parseLimit(c.Query("limit"))

	entries, err := pc.store.SearchEntries(c.Context(), category.Kind, search, limit)
	if err != nil {
		log.Println("search suggestions failed:", err)
		return storeError(c)
	}
	return c.JSON(entries)
}

// CheckName classifies a submitted name as the admin account, a voter
// who already has a ballot, or a new voter.
func (pc *PublicController) CheckName(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid JSON"})
	}

	name := voting.Sanitize(req.Name)
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Name is required"})
	}
	if name == pc.cfg.AdminUsername {
		return c.JSON(fiber.Map{"status": "admin"})
	}

	exists, err := pc.store.VoterExists(c.Context(), name)
	if err != nil {
		log.Println("check name failed:", err)
		return storeError(c)
	}
	if exists {
		return c.JSON(fiber.Map{"status": "exists"})
	}
	return c.JSON(fiber.Map{"status": "new"})
}

func (pc *PublicController) CheckVote(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid JSON"})
	}

	name := voting.Sanitize(req.Name)
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Name is required"})
	}

	votes, err := pc.store.VotesByVoter(c.Context(), name)
	if err != nil {
		log.Println("check vote failed:", err)
		return storeError(c)
	}
	if len(votes) == 0 {
		return c.JSON(fiber.Map{"status": "new"})
	}
	return c.JSON(fiber.Map{
		"status":     "exists",
		"vote_count": len(votes),
		"votes":      votes,
	})
}

// Submit accepts a full ballot keyed by category id.
func (pc *PublicController) Submit(c *fiber.Ctx) error {
	var req struct {
		Name  string              `json:"name"`
		Votes map[string][]string `json:"votes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid JSON"})
	}

	ballot := make(map[int][]string, len(req.Votes))
	for key, selections := range req.Votes {
		categoryID, err := strconv.Atoi(key)
		if err != nil || categoryID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid category id " + key})
		}
		ballot[categoryID] = selections
	}

	if verr := pc.svc.SubmitBallot(c.Context(), req.Name, ballot); verr != nil {
		return votingError(c, verr)
	}
	return c.JSON(fiber.Map{"status": "success"})
}

func (pc *PublicController) UserResults(c *fiber.Ctx) error {
	username := c.Params("username")

	results, verr := pc.svc.VoterResults(c.Context(), username)
	if verr != nil {
		return votingError(c, verr)
	}

	totalVoters, err := pc.store.CountVoters(c.Context())
	if err != nil {
		log.Println("count voters failed:", err)
		return storeError(c)
	}

	return c.JSON(fiber.Map{
		"status":       "success",
		"username":     voting.Sanitize(username),
		"results":      results,
		"total_voters": totalVoters,
		"timestamp":    time.Now().Format("2006-01-02 15:04:05"),
	})
}

func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultSuggestionLimit
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func votingError(c *fiber.Ctx, verr *voting.Error) error {
	return c.Status(verr.HTTPStatus()).JSON(fiber.Map{"status": "error", "message": verr.Message})
}

func storeError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "internal storage error"})
}
