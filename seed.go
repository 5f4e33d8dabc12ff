package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"gamevote-backend/config"
	"gamevote-backend/models"
	"gamevote-backend/store"
)

// defaultCategories are inserted on first startup when the categories
// table is empty.
var defaultCategories = []models.Category{
	{Name: "Best Games", NameAr: "أفضل الألعاب", Description: "Top 5 games of the year", DisplayOrder: 1, IsRanked: true, Kind: models.KindGame},
	{Name: "Best Publisher", NameAr: "أفضل ناشر", Description: "Publisher of the year", DisplayOrder: 2, IsRanked: false, Kind: models.KindPublisher},
}

func seed(ctx context.Context, st store.Store, cfg config.Config) error {
	if err := st.SeedCategories(ctx, defaultCategories); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	for _, src := range []struct {
		kind string
		path string
	}{
		{models.KindGame, cfg.GamesSeedFile},
		{models.KindPublisher, cfg.PublishersSeedFile},
	} {
		names, err := loadNames(src.path)
		if err != nil {
			return fmt.Errorf("read seed file %s: %w", src.path, err)
		}
		if len(names) == 0 {
			continue
		}
		if err := st.SeedEntries(ctx, src.kind, names); err != nil {
			return fmt.Errorf("seed %s entries: %w", src.kind, err)
		}
	}
	return nil
}

// loadNames reads one name per line; a missing file just means no seed
// data for that table.
func loadNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Println("Seed file " + path + " not found, skipping")
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, scanner.Err()
}
