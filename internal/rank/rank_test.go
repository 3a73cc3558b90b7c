package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rankgrid/internal/model"
)

func TestExtractUsesMatchingRecordRank(t *testing.T) {
	target := model.TargetBusiness{PlaceID: "ChIJ123"}
	records := []model.ResultRecord{
		{RankGroup: 3, Title: "Other One"},
		{RankGroup: 1, PlaceID: "ChIJ123", Title: "Target"},
		{RankGroup: 2, Title: "Other Two"},
	}

	got := Extract(records, target)
	require.NotNil(t, got)
	// The matching record's own rank field, not its position in the list.
	assert.Equal(t, 1, *got)
}

func TestExtractPrefersRankGroupOverAbsolute(t *testing.T) {
	target := model.TargetBusiness{PlaceID: "ChIJ123"}
	records := []model.ResultRecord{
		{RankGroup: 4, RankAbsolute: 7, PlaceID: "ChIJ123"},
	}

	got := Extract(records, target)
	require.NotNil(t, got)
	assert.Equal(t, 4, *got)
}

func TestExtractFallsBackToAbsoluteThenPosition(t *testing.T) {
	target := model.TargetBusiness{PlaceID: "ChIJ123"}

	got := Extract([]model.ResultRecord{
		{RankAbsolute: 6, PlaceID: "ChIJ123"},
	}, target)
	require.NotNil(t, got)
	assert.Equal(t, 6, *got)

	got = Extract([]model.ResultRecord{
		{Title: "miss"},
		{PlaceID: "ChIJ123"},
	}, target)
	require.NotNil(t, got)
	assert.Equal(t, 2, *got, "1-based position when both rank fields absent")
}

func TestExtractFirstMatchWins(t *testing.T) {
	target := model.TargetBusiness{Name: "Acme Plumbing"}
	records := []model.ResultRecord{
		{RankGroup: 2, Title: "Acme Plumbing LLC"},
		{RankGroup: 9, Title: "Acme Plumbing"},
	}

	got := Extract(records, target)
	require.NotNil(t, got)
	assert.Equal(t, 2, *got)
}

func TestExtractNotFound(t *testing.T) {
	target := model.TargetBusiness{PlaceID: "ChIJ123"}

	assert.Nil(t, Extract(nil, target))
	assert.Nil(t, Extract([]model.ResultRecord{}, target))
	assert.Nil(t, Extract([]model.ResultRecord{{Title: "nope"}, {Title: "also nope"}}, target))
}

func TestExtractNoTargetSignal(t *testing.T) {
	records := []model.ResultRecord{{RankGroup: 1, Title: "Top Result"}}
	assert.Nil(t, Extract(records, model.TargetBusiness{}))
}

func TestCorrectDiscoversDeeperMatch(t *testing.T) {
	target := model.TargetBusiness{PlaceID: "ChIJ123"}
	deeper := []model.ResultRecord{
		{RankGroup: 1, Title: "Other"},
		{RankGroup: 12, PlaceID: "ChIJ123"},
	}

	got, changed := Correct(nil, deeper, target)
	require.NotNil(t, got)
	assert.True(t, changed)
	assert.Equal(t, 12, *got)
}

func TestCorrectIdempotent(t *testing.T) {
	target := model.TargetBusiness{PlaceID: "ChIJ123"}
	records := []model.ResultRecord{
		{RankGroup: 4, PlaceID: "ChIJ123"},
	}

	first, changed := Correct(nil, records, target)
	require.NotNil(t, first)
	assert.True(t, changed)
	assert.Equal(t, 4, *first)

	second, changed := Correct(first, records, target)
	require.NotNil(t, second)
	assert.False(t, changed, "repeating the same fetch never changes a corrected rank")
	assert.Equal(t, 4, *second)
}

func TestCorrectKeepsRankWhenAbsentFromDetail(t *testing.T) {
	target := model.TargetBusiness{PlaceID: "ChIJ123"}
	current := 7

	got, changed := Correct(&current, []model.ResultRecord{{Title: "nothing relevant"}}, target)
	require.NotNil(t, got)
	assert.False(t, changed)
	assert.Equal(t, 7, *got)
}
