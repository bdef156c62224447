package services

import (
	"errors"

	"github.com/godprim3/intelligent-email-assistant/internal/database/models"
	"gorm.io/gorm"
)

// ErrPreferencesNotFound indicates no preferences row exists for the account
var ErrPreferencesNotFound = errors.New("preferences not found")

// PreferencesStore handles persistence of per-account settings
type PreferencesStore struct {
	db *gorm.DB
}

// NewPreferencesStore creates a new PreferencesStore instance
func NewPreferencesStore(db *gorm.DB) *PreferencesStore {
	return &PreferencesStore{db: db}
}

// Get returns the preferences for an account, or ErrPreferencesNotFound
func (s *PreferencesStore) Get(accountID string) (*models.Preferences, error) {
	var prefs models.Preferences
	err := s.db.Where("account_id = ?", accountID).First(&prefs).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPreferencesNotFound
		}
		return nil, err
	}
	return &prefs, nil
}

// GetOrDefault returns stored preferences, or defaults when none exist.
// The bool reports whether a stored row was found.
func (s *PreferencesStore) GetOrDefault(accountID string) (*models.Preferences, bool, error) {
	prefs, err := s.Get(accountID)
	if err == nil {
		return prefs, true, nil
	}
	if errors.Is(err, ErrPreferencesNotFound) {
		return &models.Preferences{
			AccountID:            accountID,
			ReplyStyle:           "professional",
			ResponseDelayMinutes: 5,
			Timezone:             "UTC",
			DefaultProvider:      "openai",
			ConfidenceThreshold:  0.7,
		}, false, nil
	}
	return nil, false, err
}

// Exists reports whether the account has stored preferences
func (s *PreferencesStore) Exists(accountID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Preferences{}).
		Where("account_id = ?", accountID).Count(&count).Error
	return count > 0, err
}

// Put creates or replaces the account's preferences
func (s *PreferencesStore) Put(prefs *models.Preferences) error {
	existing, err := s.Get(prefs.AccountID)
	if err != nil {
		if errors.Is(err, ErrPreferencesNotFound) {
			return s.db.Create(prefs).Error
		}
		return err
	}
	prefs.ID = existing.ID
	prefs.CreatedAt = existing.CreatedAt
	return s.db.Save(prefs).Error
}
