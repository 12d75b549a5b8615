package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/survey"
)

// documentValidator checks documents read from the store against the catalog
// they were written for.
type documentValidator struct {
	catalog *survey.Catalog
	answers *jsonschema.Schema
}

func newDocumentValidator(catalog *survey.Catalog) (*documentValidator, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}

	enum := catalog.ColumnValues()
	properties := make(map[string]interface{}, len(catalog.Rows))
	for _, id := range catalog.RowIDs() {
		properties[id] = map[string]interface{}{"type": "string", "enum": enum}
	}
	schema := map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"required":             catalog.RowIDs(),
		"additionalProperties": false,
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode answers schema: %w", err)
	}
	url := "https://schemas.gema.local/survey/answers-" + catalog.Version + ".json"
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(url, strings.NewReader(string(raw))); err != nil {
		return nil, fmt.Errorf("load answers schema: %w", err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile answers schema: %w", err)
	}
	return &documentValidator{catalog: catalog, answers: compiled}, nil
}

func (v *documentValidator) profile(profile *models.UserProfile) error {
	if profile.UserID == "" {
		return fmt.Errorf("%w: profile without user id", ErrDecode)
	}
	if !models.ValidLoginMethod(profile.LoginMethod) {
		return fmt.Errorf("%w: unknown login method %q", ErrDecode, profile.LoginMethod)
	}
	return nil
}

func (v *documentValidator) response(resp *models.SurveyResponse) error {
	if err := v.answers.Validate(map[string]interface{}(resp.Answers)); err != nil {
		return fmt.Errorf("%w: answers: %v", ErrDecode, err)
	}
	if _, ok := v.catalog.BandOf(survey.Grade(resp.ScoreGrade)); !ok {
		return fmt.Errorf("%w: unknown grade %q", ErrDecode, resp.ScoreGrade)
	}
	if resp.ScoreTotal < 0 || resp.ScoreTotal > v.catalog.MaxScore() {
		return fmt.Errorf("%w: score %d out of range", ErrDecode, resp.ScoreTotal)
	}
	return nil
}
