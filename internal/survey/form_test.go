package survey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormRejectsUnansweredRows(t *testing.T) {
	form := NewForm(AIAttitude, Answers{"q1": "4"})

	err := form.Validate()
	require.Error(t, err)

	var fieldErrs FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Contains(t, fieldErrs, FieldAnswers)
	require.Len(t, form.Unanswered(), 14)
}

func TestFormClearsAnswersErrorOnceComplete(t *testing.T) {
	form := NewForm(AIAttitude, nil)
	require.Error(t, form.Validate())

	for _, row := range AIAttitude.Rows[:14] {
		form.SetAnswer(row.ID, "2")
	}
	require.Contains(t, form.Errors(), FieldAnswers)

	form.SetAnswer("q15", "3")
	require.NotContains(t, form.Errors(), FieldAnswers)
	require.NoError(t, form.Validate())
}

func TestFormStudentInfoErrorsClearIncrementally(t *testing.T) {
	form := NewForm(AIAttitude, uniformAnswers("2"))
	form.CollectStudentInfo = true

	err := form.Validate()
	require.Error(t, err)
	errs := form.Errors()
	require.Contains(t, errs, FieldStudentID)
	require.Contains(t, errs, FieldDisplayName)
	require.NotContains(t, errs, FieldAnswers)

	form.SetStudentID("  ")
	require.Contains(t, form.Errors(), FieldStudentID)

	form.SetStudentID("20241234")
	require.NotContains(t, form.Errors(), FieldStudentID)
	require.Contains(t, form.Errors(), FieldDisplayName)

	form.SetDisplayName("김하늘")
	require.Empty(t, form.Errors())
	require.NoError(t, form.Validate())
}

func TestFormIgnoresUnknownRowsAndValues(t *testing.T) {
	form := NewForm(AIAttitude, Answers{"q99": "4", "q1": "3"})
	form.SetAnswer("q2", "7")
	form.SetAnswer("bogus", "1")

	require.Equal(t, Answers{"q1": "3"}, form.Answers())
}

func TestFormSeededFromPriorResponse(t *testing.T) {
	prior := uniformAnswers("4")
	form := NewForm(AIAttitude, prior)
	require.NoError(t, form.Validate())

	answers := form.Answers()
	answers["q1"] = "1"
	require.Equal(t, "4", form.Answers()["q1"], "returned answers must be a copy")
}

func TestValidateIdentity(t *testing.T) {
	err := ValidateIdentity("", "홍길동", true)
	var fieldErrs FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Contains(t, fieldErrs, FieldStudentID)
	require.NotContains(t, fieldErrs, FieldDisplayName)

	require.NoError(t, ValidateIdentity("", "홍길동", false))

	err = ValidateIdentity("2024", " ", false)
	require.ErrorAs(t, err, &fieldErrs)
	require.Contains(t, fieldErrs, FieldDisplayName)
}
