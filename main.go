package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gamevote-backend/config"
	"gamevote-backend/controllers"
	"gamevote-backend/export"
	"gamevote-backend/routes"
	"gamevote-backend/store"
	"gamevote-backend/voting"
)

func main() {
	// Load env vars from .env file
	if os.Getenv("RENDER") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, continuing with system environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatal("Failed to open store: ", err)
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.Init(ctx); err != nil {
		log.Fatal("Failed to initialize schema: ", err)
	}
	if err := seed(ctx, st, cfg); err != nil {
		log.Fatal("Failed to seed store: ", err)
	}
	log.Println("Connected to " + cfg.Backend + " store")

	svc := voting.NewService(st)
	exporter := export.NewExporter(st)
	pub := controllers.NewPublicController(st, svc, cfg)
	admin := controllers.NewAdminController(st, svc, exporter, cfg)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Setup routes
	routes.Register(app, pub, admin, cfg.JWTSecret)

	// Start server
	log.Println("Server running on port " + cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

// openStore selects the backend once at startup; nothing downstream
// branches on it again.
func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return store.NewSQLiteStore(cfg.SQLitePath)
	default:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, err
		}
		return store.NewPostgresStore(db), nil
	}
}
