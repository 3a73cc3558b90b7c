// Package export renders competitor lists for display and CSV download.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rankgrid/internal/model"
)

// Competitor is the compact listing view of one result record.
type Competitor struct {
	Rank        *int    `json:"rank"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Rating      float64 `json:"rating,omitempty"`
	RatingCount int     `json:"rating_count,omitempty"`
	Website     string  `json:"website,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	PlaceID     string  `json:"place_id,omitempty"`
	CID         string  `json:"cid,omitempty"`
}

// placeholder fills empty display slots.
const placeholder = "—"

// csvColumns defines the ordered competitor CSV output columns.
var csvColumns = []string{
	"Rank",
	"Name",
	"Address",
	"Rating",
	"Rating Count",
	"Website",
}

// FromRecords maps up to limit result records to competitors. A limit
// of zero or less takes everything.
func FromRecords(records []model.ResultRecord, limit int) []Competitor {
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}

	out := make([]Competitor, 0, limit)
	for _, rec := range records[:limit] {
		c := Competitor{
			Name:        rec.Title,
			Address:     rec.Address,
			Rating:      rec.Rating,
			RatingCount: rec.RatingCount,
			Website:     rec.WebsiteHost,
			Phone:       rec.Phone,
			PlaceID:     rec.PlaceID,
			CID:         rec.CID,
		}
		switch {
		case rec.RankGroup > 0:
			r := rec.RankGroup
			c.Rank = &r
		case rec.RankAbsolute > 0:
			r := rec.RankAbsolute
			c.Rank = &r
		}
		out = append(out, c)
	}
	return out
}

// PadTop returns exactly n entries, filling missing slots with
// placeholders so the display always shows a fixed-height list.
func PadTop(items []Competitor, n int) []Competitor {
	if len(items) >= n {
		return items[:n]
	}
	out := make([]Competitor, n)
	copy(out, items)
	for i := len(items); i < n; i++ {
		out[i] = Competitor{Name: placeholder}
	}
	return out
}

// WriteCSV writes competitors as a CSV with a header row.
func WriteCSV(w io.Writer, items []Competitor) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvColumns); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, it := range items {
		if err := cw.Write(buildRow(it)); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush")
}

// WriteCSVFile writes competitors to a CSV file at the given path.
func WriteCSVFile(path string, items []Competitor) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	defer f.Close()

	return WriteCSV(f, items)
}

func buildRow(it Competitor) []string {
	rank := ""
	if it.Rank != nil {
		rank = strconv.Itoa(*it.Rank)
	}
	rating := ""
	if it.Rating > 0 {
		rating = strconv.FormatFloat(it.Rating, 'f', -1, 64)
	}
	count := ""
	if it.RatingCount > 0 {
		count = strconv.Itoa(it.RatingCount)
	}
	return []string{rank, it.Name, it.Address, rating, count, it.Website}
}
