package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"pi42dash/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage defines the interface for data persistence
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance
func NewStorage() (*Storage, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DB path: %w", err)
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.ContractInfo{}, &domain.AppConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "Pi42Dash", "data", "pi42dash.db"), nil
}

// ======================================================================================
// Contract Operations
// ======================================================================================

// UpsertContract creates or updates contract metadata
func (s *Storage) UpsertContract(contract *domain.ContractInfo) error {
	return s.db.Save(contract).Error
}

// GetContract retrieves contract metadata by symbol
func (s *Storage) GetContract(symbol string) (*domain.ContractInfo, error) {
	var contract domain.ContractInfo
	err := s.db.First(&contract, "symbol = ?", symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &contract, err
}

// GetAllContracts retrieves all contracts
func (s *Storage) GetAllContracts() ([]domain.ContractInfo, error) {
	var contracts []domain.ContractInfo
	err := s.db.Find(&contracts).Error
	return contracts, err
}

// ToggleFavorite toggles the favorite status of a contract
func (s *Storage) ToggleFavorite(symbol string) (bool, error) {
	var contract domain.ContractInfo
	if err := s.db.First(&contract, "symbol = ?", symbol).Error; err != nil {
		return false, err
	}

	contract.IsFavorite = !contract.IsFavorite
	err := s.db.Save(&contract).Error
	return contract.IsFavorite, err
}

// DeleteContract deletes a contract from the database
func (s *Storage) DeleteContract(symbol string) error {
	return s.db.Where("symbol = ?", symbol).Delete(&domain.ContractInfo{}).Error
}

// ======================================================================================
// Config Operations
// ======================================================================================

// SaveConfig saves a user configuration
func (s *Storage) SaveConfig(key, value string) error {
	config := domain.AppConfig{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&config).Error
}

// LoadConfigMap loads all user configurations as a map
func (s *Storage) LoadConfigMap() (map[string]string, error) {
	var configs []domain.AppConfig
	if err := s.db.Find(&configs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, cfg := range configs {
		result[cfg.Key] = cfg.Value
	}
	return result, nil
}
