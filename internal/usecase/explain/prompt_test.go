package explain

import (
	"strings"
	"testing"

	"github.com/tytac116/PropMatch/internal/domain"
)

func TestBatchPrompt_CoversEveryListing(t *testing.T) {
	cands := rankedCandidates(t, 82.3, 75.1, 60.4)

	prompt := batchPrompt("family home near good schools", cands)

	for _, id := range []string{"prop_001", "prop_002", "prop_003"} {
		if !strings.Contains(prompt, "Listing "+id) {
			t.Errorf("prompt missing listing %s", id)
		}
	}
	if !strings.Contains(prompt, `"family home near good schools"`) {
		t.Error("prompt missing the quoted user query")
	}
	if !strings.Contains(prompt, `"results"`) {
		t.Error("prompt missing the results array contract")
	}
	if !strings.Contains(prompt, "R3,200,000 (upper-mid market") {
		t.Error("prompt missing formatted price with market band")
	}
	if !strings.Contains(prompt, "Garden, Garage, Braai Area") {
		t.Error("prompt missing the feature list")
	}
	if !strings.Contains(prompt, "Cavendish Square (shopping, 800m)") {
		t.Error("prompt missing the nearby POI line")
	}
	if !strings.Contains(prompt, "avoid multiples of 5 or 10") {
		t.Error("prompt missing the natural score instruction")
	}
}

func TestSinglePrompt_ObjectContract(t *testing.T) {
	l := testListings()["prop_002"]

	prompt := singlePrompt("apartment with sea views", l)

	if !strings.Contains(prompt, `"id": "prop_002"`) {
		t.Error("prompt missing the listing id in the reply shape")
	}
	if !strings.Contains(prompt, "JSON object") {
		t.Error("prompt missing the object contract")
	}
	if strings.Contains(prompt, `"results"`) {
		t.Error("single prompt must not ask for the batch array shape")
	}
}

func TestMarketBand(t *testing.T) {
	cases := []struct {
		price float64
		want  string
	}{
		{950_000, "entry-level/affordable"},
		{1_499_999, "entry-level/affordable"},
		{1_500_000, "mid-market"},
		{2_999_999, "mid-market"},
		{3_000_000, "upper-mid market"},
		{5_999_999, "upper-mid market"},
		{6_000_000, "premium/luxury"},
		{11_999_999, "premium/luxury"},
		{12_000_000, "ultra-luxury/high-end"},
		{45_000_000, "ultra-luxury/high-end"},
	}
	for _, tc := range cases {
		if got := marketBand(tc.price); got != tc.want {
			t.Errorf("marketBand(%.0f) = %q, want %q", tc.price, got, tc.want)
		}
	}
}

func TestFormatRand(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{999, "R999"},
		{1_000, "R1,000"},
		{950_000, "R950,000"},
		{2_400_000, "R2,400,000"},
		{18_500_000, "R18,500,000"},
		{1_234_567.4, "R1,234,567"},
	}
	for _, tc := range cases {
		if got := formatRand(tc.in); got != tc.want {
			t.Errorf("formatRand(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPriceContext(t *testing.T) {
	if got := priceContext(0, 0); got != "Price on application" {
		t.Errorf("priceContext(0) = %q", got)
	}
	got := priceContext(2_400_000, 85)
	if !strings.Contains(got, "R2,400,000") || !strings.Contains(got, "mid-market") {
		t.Errorf("priceContext() = %q, missing price or band", got)
	}
	if !strings.Contains(got, "R28,235/m²") {
		t.Errorf("priceContext() = %q, missing price per square metre", got)
	}
	if got := priceContext(2_400_000, 0); strings.Contains(got, "/m²") {
		t.Errorf("priceContext() = %q, square metre rate without an area", got)
	}
}

func TestCandidateBlock_TruncatesDescription(t *testing.T) {
	l := &domain.Listing{
		ID: "prop_x", PropertyType: domain.TypeHouse,
		Bedrooms: 4, Bathrooms: 3, Price: 5_000_000,
		City: "Cape Town", Neighborhood: "Constantia",
		Description: strings.Repeat("spacious wine estate living ", 40),
	}

	block := candidateBlock(l)

	if !strings.Contains(block, "...") {
		t.Error("long description was not truncated")
	}
	if len(block) > 1200 {
		t.Errorf("block is %d bytes, truncation did not bound it", len(block))
	}
}

func TestRetryMessages(t *testing.T) {
	orig := []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: systemMessage},
		{Role: domain.ChatRoleUser, Content: "rank these"},
	}

	msgs := retryMessages(orig, "I refuse to answer in JSON.")

	if len(msgs) != 4 {
		t.Fatalf("retryMessages() returned %d messages, want 4", len(msgs))
	}
	if msgs[2].Role != domain.ChatRoleAssistant || msgs[2].Content != "I refuse to answer in JSON." {
		t.Errorf("msgs[2] = %+v, want the echoed bad reply", msgs[2])
	}
	if msgs[3].Role != domain.ChatRoleUser || !strings.Contains(msgs[3].Content, "could not be parsed") {
		t.Errorf("msgs[3] = %+v, want the clarifying instruction", msgs[3])
	}
	if len(orig) != 2 {
		t.Error("retryMessages() mutated the original conversation")
	}
}
