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

// SurveyRepository stores the latest survey response of each user.
type SurveyRepository interface {
	Get(ctx context.Context, uid string) (*models.SurveyResponse, error)
	Put(ctx context.Context, resp *models.SurveyResponse) error
}

type surveyRepository struct {
	db       *gorm.DB
	validate *documentValidator
	now      func() time.Time
}

// NewSurveyRepository constructs a survey repository backed by GORM.
func NewSurveyRepository(db *gorm.DB, catalog *survey.Catalog) (SurveyRepository, error) {
	validator, err := newDocumentValidator(catalog)
	if err != nil {
		return nil, err
	}
	return &surveyRepository{db: db, validate: validator, now: time.Now}, nil
}

func (r *surveyRepository) Get(ctx context.Context, uid string) (*models.SurveyResponse, error) {
	var resp models.SurveyResponse
	err := r.db.WithContext(ctx).Where("user_id = ?", uid).First(&resp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		// A JSON column that does not scan is a corrupt document, not an outage.
		if isScanError(err) {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return nil, fmt.Errorf("load survey response: %w", err)
	}
	if err := r.validate.response(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Put replaces the previous response; the last write wins.
func (r *surveyRepository) Put(ctx context.Context, resp *models.SurveyResponse) error {
	resp.UpdatedAt = r.now().UTC()
	if resp.CompletedAt.IsZero() {
		resp.CompletedAt = resp.UpdatedAt
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(resp).Error
	if err != nil {
		return fmt.Errorf("write survey response: %w", err)
	}
	return nil
}
