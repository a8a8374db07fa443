// contentdb imports spell, creature and item templates from YAML into a
// SQLite or PostgreSQL content database, or exports them back out as a count
// check.
//
// Usage:
//
//	go run ./cmd/contentdb -db data/content.db
//	go run ./cmd/contentdb -driver postgres -dsn "host=localhost user=castcore dbname=castcore sslmode=disable" -replace
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/lawnchairsociety/castcore/internal/content"
	"github.com/lawnchairsociety/castcore/internal/database"
)

func main() {
	driver := flag.String("driver", "sqlite", "Database driver: sqlite or postgres")
	dbFile := flag.String("db", "data/content.db", "Path to SQLite database")
	dsn := flag.String("dsn", "", "PostgreSQL connection string")
	spellsFile := flag.String("spells", "data/spells.yaml", "Path to spells YAML file")
	creaturesFile := flag.String("creatures", "data/creatures.yaml", "Path to creatures YAML file")
	itemsFile := flag.String("items", "data/items.yaml", "Path to items YAML file")
	replace := flag.Bool("replace", false, "Replace templates that already exist")
	verify := flag.Bool("verify", true, "Load the database back and compare template counts")
	flag.Parse()

	log.Println("castcore content import")

	store, err := content.LoadYAML(*spellsFile, *creaturesFile, *itemsFile)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}
	log.Printf("Loaded %d spells, %d creatures, %d items from YAML", store.Spells.Len(), store.Creatures(), store.Items())

	cfg := database.DefaultConfig(*dbFile)
	if *driver == "postgres" {
		pg := database.DefaultPostgresConfig()
		pg.DSN = *dsn
		cfg = database.Config{Driver: "postgres", Postgres: pg}
		log.Println("Opening PostgreSQL database")
	} else {
		log.Printf("Opening SQLite database: %s", *dbFile)
	}
	db, err := database.OpenWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	stats, err := db.SaveContent(ctx, store, *replace)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	log.Printf("Imported %s", stats)

	if !*verify {
		return
	}
	loaded, err := db.LoadContent(ctx)
	if err != nil {
		log.Fatalf("Verification load failed: %v", err)
	}
	if loaded.Spells.Len() < store.Spells.Len() || loaded.Creatures() < store.Creatures() || loaded.Items() < store.Items() {
		log.Fatalf("Verification failed: database holds %d spells, %d creatures, %d items",
			loaded.Spells.Len(), loaded.Creatures(), loaded.Items())
	}
	log.Printf("Verified: database holds %d spells, %d creatures, %d items",
		loaded.Spells.Len(), loaded.Creatures(), loaded.Items())
}
