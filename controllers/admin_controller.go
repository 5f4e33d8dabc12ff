package controllers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"gamevote-backend/config"
	"gamevote-backend/export"
	"gamevote-backend/middleware"
	"gamevote-backend/models"
	"gamevote-backend/store"
	"gamevote-backend/voting"
)

type AdminController struct {
	store    store.Store
	svc      *voting.Service
	exporter *export.Exporter
	cfg      config.Config
}

func NewAdminController(st store.Store, svc *voting.Service, exporter *export.Exporter, cfg config.Config) *AdminController {
	return &AdminController{store: st, svc: svc, exporter: exporter, cfg: cfg}
}

// Login compares the shared admin secret and, on success, issues a
// signed expiring session token in an HttpOnly cookie.
func (ac *AdminController) Login(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid JSON"})
	}

	if !ac.passwordMatches(req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "fail", "message": "كلمة المرور غير صحيحة"})
	}

	expiry := time.Now().Add(ac.cfg.SessionTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"admin": true,
		"exp":   expiry.Unix(),
	})
	signed, err := token.SignedString([]byte(ac.cfg.JWTSecret))
	if err != nil {
		log.Println("sign admin token failed:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Failed to create session"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.AdminCookie,
		Value:    signed,
		Expires:  expiry,
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return c.JSON(fiber.Map{"status": "success"})
}

func (ac *AdminController) passwordMatches(password string) bool {
	if ac.cfg.AdminPasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(ac.cfg.AdminPasswordHash), []byte(password)) == nil
	}
	return password != "" && password == ac.cfg.AdminPassword
}

func (ac *AdminController) ViewTable(c *fiber.Ctx) error {
	table := c.Query("table", "games")
	if !store.AdminTables[table] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid table"})
	}

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	search := voting.Sanitize(c.Query("search"))

	result, err := ac.store.TablePage(c.Context(), table, page, search)
	if err != nil {
		log.Println("view table failed:", err)
		return storeError(c)
	}

	return c.JSON(fiber.Map{
		"status":         "success",
		"table":          result.Table,
		"columns":        result.Columns,
		"rows":           result.Rows,
		"total_rows":     result.TotalRows,
		"page":           result.Page,
		"pages":          result.Pages,
		"has_pagination": result.TotalRows > store.PageSize,
	})
}

func (ac *AdminController) AddGame(c *fiber.Ctx) error {
	return ac.addEntry(c, models.KindGame)
}

func (ac *AdminController) AddPublisher(c *fiber.Ctx) error {
	return ac.addEntry(c, models.KindPublisher)
}

func (ac *AdminController) addEntry(c *fiber.Ctx, kind string) error {
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

	id, err := ac.store.CreateEntry(c.Context(), kind, name)
	if err != nil {
		log.Println("create entry failed:", err)
		return storeError(c)
	}
	return c.JSON(fiber.Map{"status": "success", "id": id})
}

func (ac *AdminController) EditGame(c *fiber.Ctx) error {
	return ac.renameEntry(c, models.KindGame)
}

func (ac *AdminController) EditPublisher(c *fiber.Ctx) error {
	return ac.renameEntry(c, models.KindPublisher)
}

func (ac *AdminController) renameEntry(c *fiber.Ctx, kind string) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid id"})
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid JSON"})
	}

	name := voting.Sanitize(req.Name)
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "New name required"})
	}

	switch err := ac.store.RenameEntry(c.Context(), kind, id, name); {
	case err == nil:
		return c.JSON(fiber.Map{"status": "success"})
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": "error", "message": "Not found"})
	case errors.Is(err, store.ErrDuplicateName):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"status": "error", "message": "Name already exists"})
	default:
		log.Println("rename entry failed:", err)
		return storeError(c)
	}
}

func (ac *AdminController) DeleteGame(c *fiber.Ctx) error {
	return ac.deleteEntry(c, models.KindGame)
}

func (ac *AdminController) DeletePublisher(c *fiber.Ctx) error {
	return ac.deleteEntry(c, models.KindPublisher)
}

func (ac *AdminController) deleteEntry(c *fiber.Ctx, kind string) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid id"})
	}

	switch err := ac.store.DeleteEntry(c.Context(), kind, id); {
	case err == nil:
		return c.JSON(fiber.Map{"status": "success"})
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": "error", "message": "Not found"})
	default:
		log.Println("delete entry failed:", err)
		return storeError(c)
	}
}

type categoryRequest struct {
	Name         string `json:"name"`
	NameAr       string `json:"name_ar"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
	IsRanked     bool   `json:"is_ranked"`
	Kind         string `json:"kind"`
}

func (ac *AdminController) AddCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid JSON"})
	}

	name := voting.Sanitize(req.Name)
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Name is required"})
	}
	if req.Kind != models.KindGame && req.Kind != models.KindPublisher {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "kind must be game or publisher"})
	}

	id, err := ac.store.CreateCategory(c.Context(), models.Category{
		Name:         name,
		NameAr:       voting.Sanitize(req.NameAr),
		Description:  voting.Sanitize(req.Description),
		DisplayOrder: req.DisplayOrder,
		IsRanked:     req.IsRanked,
		Kind:         req.Kind,
	})
	if err != nil {
		log.Println("create category failed:", err)
		return storeError(c)
	}
	return c.JSON(fiber.Map{"status": "success", "id": id})
}

// EditCategory renames and reorders; variant and kind are immutable
// once the category exists.
func (ac *AdminController) EditCategory(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid id"})
	}

	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid JSON"})
	}

	name := voting.Sanitize(req.Name)
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Name is required"})
	}

	switch err := ac.store.UpdateCategory(c.Context(), models.Category{
		ID:           id,
		Name:         name,
		NameAr:       voting.Sanitize(req.NameAr),
		Description:  voting.Sanitize(req.Description),
		DisplayOrder: req.DisplayOrder,
	}); {
	case err == nil:
		return c.JSON(fiber.Map{"status": "success"})
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": "error", "message": "Category not found"})
	default:
		log.Println("update category failed:", err)
		return storeError(c)
	}
}

func (ac *AdminController) DeleteCategory(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid id"})
	}

	switch err := ac.store.DeleteCategory(c.Context(), id); {
	case err == nil:
		return c.JSON(fiber.Map{"status": "success"})
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": "error", "message": "Category not found"})
	case errors.Is(err, store.ErrCategoryInUse):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"status": "error", "message": "Category has votes and cannot be deleted"})
	default:
		log.Println("delete category failed:", err)
		return storeError(c)
	}
}

func (ac *AdminController) EditVote(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid id"})
	}

	var req struct {
		Selection string `json:"selection"`
		Rank      int    `json:"rank"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid JSON"})
	}

	if verr := ac.svc.EditVote(c.Context(), id, req.Selection, req.Rank); verr != nil {
		return votingError(c, verr)
	}
	return c.JSON(fiber.Map{"status": "success"})
}

func (ac *AdminController) DeleteVote(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": "error", "message": "Invalid id"})
	}

	switch err := ac.store.DeleteVote(c.Context(), id); {
	case err == nil:
		return c.JSON(fiber.Map{"status": "success"})
	case errors.Is(err, store.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"status": "error", "message": "Vote not found"})
	default:
		log.Println("delete vote failed:", err)
		return storeError(c)
	}
}

func (ac *AdminController) DownloadExcel(c *fiber.Ctx) error {
	buf, err := ac.exporter.Build(c.Context())
	if err != nil {
		log.Println("excel export failed:", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "message": "Export failed"})
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+export.Filename+`"`)
	return c.Send(buf.Bytes())
}

func parseID(c *fiber.Ctx) (int, error) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
