package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/survey"
)

type mongoProfileRepository struct {
	collection *mongo.Collection
	validate   *documentValidator
	now        func() time.Time
}

// NewMongoProfileRepository stores profiles in the users collection.
func NewMongoProfileRepository(db *mongo.Database, catalog *survey.Catalog) (ProfileRepository, error) {
	validator, err := newDocumentValidator(catalog)
	if err != nil {
		return nil, err
	}
	return &mongoProfileRepository{
		collection: db.Collection(models.UserProfile{}.TableName()),
		validate:   validator,
		now:        time.Now,
	}, nil
}

func (r *mongoProfileRepository) Get(ctx context.Context, uid string) (*models.UserProfile, error) {
	res := r.collection.FindOne(ctx, bson.M{"_id": uid})
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	var profile models.UserProfile
	if err := res.Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := r.validate.profile(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *mongoProfileRepository) Put(ctx context.Context, profile *models.UserProfile) error {
	now := r.now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	update := bson.M{
		"$set": bson.M{
			"display_name": profile.DisplayName,
			"student_id":   profile.StudentID,
			"course":       profile.Course,
			"email":        profile.Email,
			"photo_url":    profile.PhotoURL,
			"login_method": profile.LoginMethod,
			"updated_at":   profile.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": profile.CreatedAt},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": profile.UserID}, update, opts); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

func (r *mongoProfileRepository) Update(ctx context.Context, uid string, fields map[string]interface{}) error {
	set := bson.M{"updated_at": r.now().UTC()}
	for k, v := range fields {
		set[k] = v
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type mongoSurveyRepository struct {
	collection *mongo.Collection
	validate   *documentValidator
	now        func() time.Time
}

// NewMongoSurveyRepository stores survey responses in the surveys collection.
func NewMongoSurveyRepository(db *mongo.Database, catalog *survey.Catalog) (SurveyRepository, error) {
	validator, err := newDocumentValidator(catalog)
	if err != nil {
		return nil, err
	}
	return &mongoSurveyRepository{
		collection: db.Collection(models.SurveyResponse{}.TableName()),
		validate:   validator,
		now:        time.Now,
	}, nil
}

func (r *mongoSurveyRepository) Get(ctx context.Context, uid string) (*models.SurveyResponse, error) {
	res := r.collection.FindOne(ctx, bson.M{"_id": uid})
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load survey response: %w", err)
	}

	var resp models.SurveyResponse
	if err := res.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := r.validate.response(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *mongoSurveyRepository) Put(ctx context.Context, resp *models.SurveyResponse) error {
	resp.UpdatedAt = r.now().UTC()
	if resp.CompletedAt.IsZero() {
		resp.CompletedAt = resp.UpdatedAt
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": resp.UserID}, resp, opts); err != nil {
		return fmt.Errorf("write survey response: %w", err)
	}
	return nil
}
