package explain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tytac116/PropMatch/internal/domain"
)

// Point count caps from the reply contract. Overlong lists are
// truncated rather than rejected.
const (
	maxPositivePoints = 4
	maxNegativePoints = 3
)

// listingID tolerates models echoing ids as JSON numbers.
type listingID string

func (id *listingID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*id = listingID(v)
		return nil
	}
	*id = listingID(strings.TrimSpace(string(data)))
	return nil
}

// rerankRow is one listing's entry in a model reply.
type rerankRow struct {
	ID             listingID                 `json:"id"`
	Score          float64                   `json:"score"`
	PositivePoints []domain.ExplanationPoint `json:"positive_points"`
	NegativePoints []domain.ExplanationPoint `json:"negative_points"`
	Summary        string                    `json:"summary"`
}

// parseBatch decodes a batch rerank reply. The array is lifted out by
// bracket bounds, so fenced or prose-wrapped replies still parse. Rows
// without an id are dropped; a reply with no usable rows is malformed.
func parseBatch(content string) ([]rerankRow, error) {
	raw, err := extract(content, '[', ']')
	if err != nil {
		return nil, err
	}
	var rows []rerankRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return nil, fmt.Errorf("decode rerank reply: %w: %w", domain.ErrLLMMalformedResponse, err)
	}
	usable := make([]rerankRow, 0, len(rows))
	for _, r := range rows {
		if r.ID == "" {
			continue
		}
		usable = append(usable, r)
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("no usable rows in rerank reply: %w", domain.ErrLLMMalformedResponse)
	}
	return usable, nil
}

// parseSingle decodes a standalone explanation reply.
func parseSingle(content string) (rerankRow, error) {
	raw, err := extract(content, '{', '}')
	if err != nil {
		return rerankRow{}, err
	}
	var row rerankRow
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		return rerankRow{}, fmt.Errorf("decode explanation reply: %w: %w", domain.ErrLLMMalformedResponse, err)
	}
	if row.Summary == "" && len(row.PositivePoints) == 0 {
		return rerankRow{}, fmt.Errorf("empty explanation reply: %w", domain.ErrLLMMalformedResponse)
	}
	return row, nil
}

// extract lifts the outermost from..to span out of a reply, tolerating
// markdown fences and surrounding prose.
func extract(s string, from, to byte) (string, error) {
	start := strings.IndexByte(s, from)
	end := strings.LastIndexByte(s, to)
	if start < 0 || end <= start {
		return "", fmt.Errorf("no json payload in reply: %w", domain.ErrLLMMalformedResponse)
	}
	return s[start : end+1], nil
}

// explanationFromRow shapes a parsed row into the cacheable
// explanation, clamping the score and the point counts.
func explanationFromRow(row rerankRow, listingID string, now time.Time) *domain.Explanation {
	return &domain.Explanation{
		ListingID:      listingID,
		MatchScore:     int(math.Round(clampScore(row.Score))),
		PositivePoints: cleanPoints(row.PositivePoints, maxPositivePoints),
		NegativePoints: cleanPoints(row.NegativePoints, maxNegativePoints),
		Summary:        strings.TrimSpace(row.Summary),
		CachedAt:       now,
	}
}

func cleanPoints(pts []domain.ExplanationPoint, limit int) []domain.ExplanationPoint {
	if len(pts) == 0 {
		return nil
	}
	out := make([]domain.ExplanationPoint, 0, limit)
	for _, p := range pts {
		p.Claim = strings.TrimSpace(p.Claim)
		p.Detail = strings.TrimSpace(p.Detail)
		if p.Claim == "" {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
