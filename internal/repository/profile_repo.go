package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/survey"
)

// ProfileRepository stores one profile document per user.
type ProfileRepository interface {
	Get(ctx context.Context, uid string) (*models.UserProfile, error)
	Put(ctx context.Context, profile *models.UserProfile) error
	Update(ctx context.Context, uid string, fields map[string]interface{}) error
}

type profileRepository struct {
	db       *gorm.DB
	validate *documentValidator
	now      func() time.Time
}

// NewProfileRepository constructs a profile repository backed by GORM.
func NewProfileRepository(db *gorm.DB, catalog *survey.Catalog) (ProfileRepository, error) {
	validator, err := newDocumentValidator(catalog)
	if err != nil {
		return nil, err
	}
	return &profileRepository{db: db, validate: validator, now: time.Now}, nil
}

func (r *profileRepository) Get(ctx context.Context, uid string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", uid).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if err := r.validate.profile(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// profileOverwriteColumns are rewritten when Put hits an existing user;
// created_at keeps the first write.
var profileOverwriteColumns = []string{"display_name", "student_id", "course", "email", "photo_url", "login_method", "updated_at"}

// Put overwrites the whole document except its creation time.
func (r *profileRepository) Put(ctx context.Context, profile *models.UserProfile) error {
	now := r.now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(profileOverwriteColumns),
		}).
		Create(profile).Error
	if err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// Update merges fields into an existing document.
func (r *profileRepository) Update(ctx context.Context, uid string, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["updated_at"] = r.now().UTC()

	result := r.db.WithContext(ctx).
		Model(&models.UserProfile{}).
		Where("user_id = ?", uid).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
