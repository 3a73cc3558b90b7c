package job

import (
	"github.com/sells-group/rankgrid/internal/match"
	"github.com/sells-group/rankgrid/internal/model"
	"github.com/sells-group/rankgrid/pkg/dataforseo"
)

// Record converts one provider item into the domain result record.
func Record(it dataforseo.Item) model.ResultRecord {
	rec := model.ResultRecord{
		RankGroup:    it.RankGroup,
		RankAbsolute: it.RankAbsolute,
		Title:        it.Title,
		PlaceID:      it.PlaceID,
		CID:          it.CID,
		Phone:        it.Phone,
		WebsiteHost:  match.NormalizeHost(it.Website()),
		Address:      it.DisplayAddress(),
	}
	if it.Rating != nil {
		rec.Rating = it.Rating.Value
		rec.RatingCount = it.Rating.VotesCount
	}
	return rec
}

// Records converts a provider item list. Order is preserved: the
// provider's order encodes its own ranking.
func Records(items []dataforseo.Item) []model.ResultRecord {
	recs := make([]model.ResultRecord, len(items))
	for i, it := range items {
		recs[i] = Record(it)
	}
	return recs
}
