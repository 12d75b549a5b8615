package survey

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func uniformAnswers(value string) Answers {
	answers := Answers{}
	for _, row := range AIAttitude.Rows {
		answers[row.ID] = value
	}
	return answers
}

func TestScoreAllFourIsHigh(t *testing.T) {
	result := Score(AIAttitude, uniformAnswers("4"))
	require.Equal(t, 60, result.Total)
	require.Equal(t, 60, result.MaxScore)
	require.Equal(t, GradeHigh, result.Grade)
	require.Equal(t, "AI 동행자", result.Title)
	require.NotEmpty(t, result.Description)
}

func TestScoreAllOneIsLow(t *testing.T) {
	result := Score(AIAttitude, uniformAnswers("1"))
	require.Equal(t, 15, result.Total)
	require.Equal(t, GradeLow, result.Grade)
	require.Equal(t, "AI 관찰자", result.Title)
}

func TestScoreMixedFortyFiveIsMid(t *testing.T) {
	// 15 rows at 3 points each.
	result := Score(AIAttitude, uniformAnswers("3"))
	require.Equal(t, 45, result.Total)
	require.Equal(t, GradeMid, result.Grade)

	mixed := uniformAnswers("3")
	mixed["q1"] = "4"
	mixed["q2"] = "2"
	result = Score(AIAttitude, mixed)
	require.Equal(t, 45, result.Total)
	require.Equal(t, GradeMid, result.Grade)
}

func TestScoreBandBoundaries(t *testing.T) {
	cases := []struct {
		total int
		grade Grade
	}{
		{0, GradeLow},
		{39, GradeLow},
		{40, GradeMid},
		{49, GradeMid},
		{50, GradeHigh},
		{60, GradeHigh},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("total_%d", tc.total), func(t *testing.T) {
			require.Equal(t, tc.grade, AIAttitude.BandFor(tc.total).Grade)
		})
	}
}

func TestScoreMissingAndUnknownValuesCountZero(t *testing.T) {
	answers := Answers{"q1": "4", "q2": "9", "q99": "4"}
	result := Score(AIAttitude, answers)
	require.Equal(t, 4, result.Total)
	require.Equal(t, GradeLow, result.Grade)

	require.Equal(t, 0, Score(AIAttitude, nil).Total)
}

func TestScoreSumsRandomCompleteMatrices(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := AIAttitude.ColumnValues()

	for i := 0; i < 200; i++ {
		answers := Answers{}
		expected := 0
		for _, row := range AIAttitude.Rows {
			pick := rng.Intn(len(values))
			answers[row.ID] = values[pick]
			expected += pick + 1
		}

		result := Score(AIAttitude, answers)
		require.Equal(t, expected, result.Total)
		require.GreaterOrEqual(t, result.Total, 0)
		require.LessOrEqual(t, result.Total, result.MaxScore)

		again := Score(AIAttitude, answers.Clone())
		require.Equal(t, result, again)
		require.Equal(t, AIAttitude.BandFor(result.Total).Title, result.Title)
	}
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog("dup", "", []Row{{ID: "q1"}, {ID: "q1"}}, AIAttitude.Columns, AIAttitude.Bands, nil)
	require.Error(t, err)

	_, err = NewCatalog("empty", "", nil, AIAttitude.Columns, AIAttitude.Bands, nil)
	require.Error(t, err)
}

func TestCatalogBandsOrderedDescending(t *testing.T) {
	bands := []Band{{Grade: GradeLow, Min: 0}, {Grade: GradeHigh, Min: 30}, {Grade: GradeMid, Min: 20}}
	c, err := NewCatalog("ten", "", AIAttitude.Rows[:10], AIAttitude.Columns, bands, nil)
	require.NoError(t, err)
	require.Equal(t, 40, c.MaxScore())
	require.Equal(t, GradeHigh, c.BandFor(30).Grade)
	require.Equal(t, GradeMid, c.BandFor(29).Grade)
	require.Equal(t, GradeLow, c.BandFor(19).Grade)
}
