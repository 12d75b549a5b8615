package models

import (
	"time"

	"gorm.io/datatypes"
)

// SurveyResponse is the per-user survey document. Answers maps row id to the
// selected column value; score fields are denormalized at submit time.
type SurveyResponse struct {
	UserID         string            `gorm:"primaryKey;size:64" json:"user_id" bson:"_id"`
	Answers        datatypes.JSONMap `gorm:"type:json" json:"answers" bson:"answers"`
	ScoreTotal     int               `gorm:"not null" json:"score_total" bson:"score_total"`
	ScoreGrade     string            `gorm:"size:16;not null" json:"score_grade" bson:"score_grade"`
	CatalogVersion string            `gorm:"size:64" json:"catalog_version" bson:"catalog_version"`
	CompletedAt    time.Time         `json:"completed_at" bson:"completed_at"`
	UpdatedAt      time.Time         `json:"updated_at" bson:"updated_at"`
}

// TableName keeps the collection name shared with the mongo backend.
func (SurveyResponse) TableName() string {
	return "surveys"
}

// AnswerValues converts the stored answers into a plain string map, skipping
// entries that are not strings.
func (r SurveyResponse) AnswerValues() map[string]string {
	out := make(map[string]string, len(r.Answers))
	for k, v := range r.Answers {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// SetAnswers stores a string map into the JSON column.
func (r *SurveyResponse) SetAnswers(answers map[string]string) {
	r.Answers = datatypes.JSONMap{}
	for k, v := range answers {
		r.Answers[k] = v
	}
}
