package handlers

import (
	"encoding/json"
	"fmt"
	"os"

	"dealerstudio/internal/config"
	"dealerstudio/internal/core"
	"dealerstudio/internal/persistence"
	"dealerstudio/internal/pipeline"
)

// inventoryFile is the JSON layout accepted by --inventory
type inventoryFile struct {
	Dealer core.DealerContext `json:"dealer"`
	Cars   []core.Car         `json:"cars"`
}

// loadInventory reads a dealer and its cars from a JSON file
func loadInventory(path string) (*pipeline.StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}
	var inv inventoryFile
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse inventory file %s: %w", path, err)
	}
	if inv.Dealer.BusinessName == "" {
		return nil, fmt.Errorf("inventory file %s has no dealer.business_name", path)
	}
	for i := range inv.Cars {
		if inv.Cars[i].DealerID == "" {
			inv.Cars[i].DealerID = inv.Dealer.ID
		}
	}
	return &pipeline.StaticSource{Dealer: inv.Dealer, Cars: inv.Cars}, nil
}

// openDatabase connects to PostgreSQL using the database config section
func openDatabase(cfg *config.Config) (*persistence.PostgresDB, error) {
	if cfg.Database.ConnectionString == "" {
		return nil, fmt.Errorf("database connection string not configured. " +
			"Set DATABASE_URL or database.connection_string in .dealerstudio.yaml")
	}
	db, err := persistence.NewPostgresDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
