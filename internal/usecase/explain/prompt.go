package explain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tytac116/PropMatch/internal/domain"
)

// systemMessage frames every explanation conversation. The impossible
// query clause matters: without it models score fantasy queries like
// ordinary ones.
const systemMessage = "You are an expert Cape Town property analyst with deep understanding of " +
	"South African real estate, geography, and user needs. You excel at detecting " +
	"impossible queries and providing nuanced, realistic scoring."

// scoringRules is shared by the batch and single-listing prompts.
const scoringRules = `Scoring rules (0-100):
- 95-100: perfectly matches every stated requirement
- 85-94: matches most criteria very well, minor compromises
- 75-84: matches the key criteria, missing some desired features
- 60-74: adequate, meets basic requirements with significant compromises
- 30-59: poor match, fails multiple criteria
- 15-29: completely unsuitable

Impossible query handling (overrides everything above):
- underwater, floating, or flying properties: 15-25 maximum
- locations outside Cape Town or South Africa: 20-35 maximum
- physically impossible features (50+ bedrooms and similar): 15-30 maximum
- realistic query but nothing truly matches: stay within 40-65

Context: "walking distance" means 800m or less, "near" means within 2km.
"Affordable" means under R2M. Luxury areas include Camps Bay, Clifton,
Constantia and Bantry Bay. UCT means the Rondebosch/Observatory area.

Use natural scores such as 67, 82, 91 and avoid multiples of 5 or 10.`

const (
	maxPromptFeatures    = 8
	maxPromptPOIs        = 5
	maxPromptDescription = 500
	maxEchoedReply       = 2000
)

// batchPrompt renders the re-rank request for one batch of candidates.
// The reply contract is a JSON array with one object per listing.
func batchPrompt(query string, cands []domain.ScoredCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User query: %q\n", query)
	b.WriteString("Dataset: Cape Town properties only (Western Cape, South Africa).\n")
	b.WriteString("\nListings to analyze:\n")
	for _, c := range cands {
		b.WriteString(candidateBlock(c.Listing))
	}
	b.WriteByte('\n')
	b.WriteString(scoringRules)
	b.WriteString("\n\nRespond with only a JSON object holding a \"results\" array, one entry per listing, in this exact shape:\n")
	b.WriteString(`{"results": [{"id": "<listing id>", "score": 87, "positive_points": [{"claim": "...", "detail": "..."}], "negative_points": [{"claim": "...", "detail": "..."}], "summary": "..."}]}`)
	b.WriteString("\n\nEach entry needs 2-4 positive_points, 0-3 negative_points, and a summary of at ")
	b.WriteString("most two sentences grounded in the listing facts above. Points must cite concrete ")
	b.WriteString("attributes, never the scoring process. Include every listing exactly once, keyed by its id.")
	return b.String()
}

// singlePrompt renders the standalone explanation request for one
// listing. The reply contract is a single JSON object.
func singlePrompt(query string, l *domain.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User query: %q\n", query)
	b.WriteString("Dataset: Cape Town properties only (Western Cape, South Africa).\n")
	b.WriteString("\nListing to analyze:\n")
	b.WriteString(candidateBlock(l))
	b.WriteByte('\n')
	b.WriteString(scoringRules)
	b.WriteString("\n\nRespond with only a JSON object in this exact shape:\n")
	fmt.Fprintf(&b, `{"id": %q, "score": 87, "positive_points": [{"claim": "...", "detail": "..."}], "negative_points": [{"claim": "...", "detail": "..."}], "summary": "..."}`, l.ID)
	b.WriteString("\n\nUse 2-4 positive_points, 0-3 negative_points, and a summary of at most two ")
	b.WriteString("sentences grounded in the listing facts above.")
	return b.String()
}

func candidateBlock(l *domain.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nListing %s: %s, %d bed, %g bath\n", l.ID, l.PropertyType, l.Bedrooms, l.Bathrooms)
	fmt.Fprintf(&b, "Price: %s\n", priceContext(l.Price, l.AreaSqm))
	fmt.Fprintf(&b, "Location: %s, %s", l.Neighborhood, l.City)
	if l.AreaSqm > 0 {
		fmt.Fprintf(&b, " | Size: %gm²", l.AreaSqm)
	}
	b.WriteByte('\n')
	if len(l.Features) > 0 {
		fmt.Fprintf(&b, "Features: %s\n", strings.Join(capped(l.Features, maxPromptFeatures), ", "))
	}
	if len(l.POIs) > 0 {
		b.WriteString("Nearby: ")
		for i, p := range l.POIs {
			if i == maxPromptPOIs {
				break
			}
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s (%s, %s)", p.Name, p.Category, p.Distance)
		}
		b.WriteByte('\n')
	}
	if l.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", truncateAtWord(l.Description, maxPromptDescription))
	}
	return b.String()
}

// priceContext renders a price with its Cape Town market band, so the
// model can judge "affordable" or "luxury" without guessing.
func priceContext(price, areaSqm float64) string {
	if price <= 0 {
		return "Price on application"
	}
	s := formatRand(price) + " (" + marketBand(price)
	if areaSqm > 0 {
		s += ", " + formatRand(price/areaSqm) + "/m²"
	}
	return s + ")"
}

func marketBand(price float64) string {
	switch {
	case price < 1_500_000:
		return "entry-level/affordable"
	case price < 3_000_000:
		return "mid-market"
	case price < 6_000_000:
		return "upper-mid market"
	case price < 12_000_000:
		return "premium/luxury"
	default:
		return "ultra-luxury/high-end"
	}
}

func formatRand(v float64) string {
	n := int64(math.Round(v))
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) > 3 {
		var b strings.Builder
		lead := len(s) % 3
		if lead > 0 {
			b.WriteString(s[:lead])
		}
		for i := lead; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-R" + s
	}
	return "R" + s
}

func capped(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func truncateAtWord(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := strings.LastIndexByte(s[:n], ' ')
	if cut <= 0 {
		cut = n
	}
	return s[:cut] + "..."
}

// retryMessages extends a failed conversation with the model's raw
// reply and a clarifying instruction. One retry only.
func retryMessages(msgs []domain.ChatMessage, reply string) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(msgs)+2)
	out = append(out, msgs...)
	out = append(out,
		domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: truncateAtWord(reply, maxEchoedReply)},
		domain.ChatMessage{
			Role: domain.ChatRoleUser,
			Content: "Your previous reply could not be parsed. Respond again with only the JSON " +
				"in the exact shape requested earlier. No prose, no markdown fences.",
		},
	)
	return out
}
