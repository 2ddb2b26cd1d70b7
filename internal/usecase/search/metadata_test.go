package search

import (
	"reflect"
	"testing"

	"github.com/tytac116/PropMatch/internal/domain"
)

func TestParse_FullQuery(t *testing.T) {
	m := newTestMatcher(t, testListings())

	c := m.Parse("3 bedroom house under R2 million in Claremont with a garden")

	if c.Bedrooms == nil || *c.Bedrooms != 3 {
		t.Errorf("bedrooms = %v, expected 3", c.Bedrooms)
	}
	if c.PropertyType == nil || *c.PropertyType != domain.TypeHouse {
		t.Errorf("type = %v, expected house", c.PropertyType)
	}
	if c.PriceCeiling == nil || *c.PriceCeiling != 2_000_000 {
		t.Errorf("ceiling = %v, expected 2000000", c.PriceCeiling)
	}
	if !reflect.DeepEqual(c.Locations, []string{"claremont"}) {
		t.Errorf("locations = %v, expected [claremont]", c.Locations)
	}
	if !reflect.DeepEqual(c.Features, []string{"garden"}) {
		t.Errorf("features = %v, expected [garden]", c.Features)
	}
}

func TestParseBedrooms(t *testing.T) {
	tests := []struct {
		query string
		want  int
		none  bool
	}{
		{"3 bedroom house", 3, false},
		{"three-bed flat", 3, false},
		{"2 beds please", 2, false},
		{"10 bedrooms", 10, false},
		{"a big house", 0, true},
		{"bedroom with a view", 0, true},
	}
	for _, tt := range tests {
		got := parseBedrooms(domain.NormalizeQuery(tt.query))
		if tt.none {
			if got != nil {
				t.Errorf("%q: expected no bedroom constraint, got %d", tt.query, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("%q: expected %d, got %v", tt.query, tt.want, got)
		}
	}
}

func TestParsePropertyType_Synonyms(t *testing.T) {
	tests := []struct {
		query string
		want  domain.PropertyType
		none  bool
	}{
		{"modern flat in town", domain.TypeApartment, false},
		{"family home", domain.TypeHouse, false},
		{"penthouse with views", domain.TypeApartment, false},
		{"duplex for sale", domain.TypeTownhouse, false},
		{"villa by the beach", domain.TypeVilla, false},
		{"somewhere to live", "", true},
	}
	for _, tt := range tests {
		got := parsePropertyType(domain.NormalizeQuery(tt.query))
		if tt.none {
			if got != nil {
				t.Errorf("%q: expected no type, got %s", tt.query, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("%q: expected %s, got %v", tt.query, tt.want, got)
		}
	}
}

func TestParsePriceCeiling(t *testing.T) {
	tests := []struct {
		query string
		want  float64
		none  bool
	}{
		{"under R2 million", 2_000_000, false},
		{"below 1.5m", 1_500_000, false},
		{"less than R900k", 900_000, false},
		{"max R2 500 000", 2_500_000, false},
		{"up to 2,300,000 rand", 2_300_000, false},
		{"budget of R3 million", 3_000_000, false},
		{"under 2", 2_000_000, false},
		{"a nice place", 0, true},
	}
	for _, tt := range tests {
		got, ambiguous := parsePriceCeiling(domain.NormalizeQuery(tt.query))
		if ambiguous {
			t.Errorf("%q: unexpectedly ambiguous", tt.query)
			continue
		}
		if tt.none {
			if got != nil {
				t.Errorf("%q: expected no ceiling, got %v", tt.query, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.query, tt.want, got)
		}
	}
}

func TestParsePriceCeiling_ContradictionIsAmbiguous(t *testing.T) {
	_, ambiguous := parsePriceCeiling(domain.NormalizeQuery("under R2 million but below R1 million"))
	if !ambiguous {
		t.Error("expected contradictory ceilings to be ambiguous")
	}

	// The same value stated twice is not a contradiction.
	got, ambiguous := parsePriceCeiling(domain.NormalizeQuery("under R2 million, max 2m"))
	if ambiguous {
		t.Error("repeated identical ceiling must not be ambiguous")
	}
	if got == nil || *got != 2_000_000 {
		t.Errorf("expected 2000000, got %v", got)
	}
}

func TestParse_AmbiguousPriceDropsOnlyPrice(t *testing.T) {
	m := newTestMatcher(t, testListings())

	c := m.Parse("3 bedroom house under R2 million but below R1 million")

	if c.PriceCeiling != nil {
		t.Errorf("expected ambiguous ceiling dropped, got %v", *c.PriceCeiling)
	}
	if c.Bedrooms == nil || *c.Bedrooms != 3 {
		t.Errorf("bedroom constraint must survive, got %v", c.Bedrooms)
	}
	if c.PropertyType == nil || *c.PropertyType != domain.TypeHouse {
		t.Errorf("type constraint must survive, got %v", c.PropertyType)
	}
}

func TestParse_AreaAliasExpandsToSuburbs(t *testing.T) {
	m := newTestMatcher(t, testListings())

	c := m.Parse("apartment on the atlantic seaboard")

	want := map[string]bool{"sea point": true, "camps bay": true, "clifton": true}
	found := 0
	for _, loc := range c.Locations {
		if want[loc] {
			found++
		}
	}
	if found < 3 {
		t.Errorf("expected atlantic seaboard suburbs in %v", c.Locations)
	}
}

func TestParse_Features(t *testing.T) {
	m := newTestMatcher(t, testListings())

	c := m.Parse("pet friendly apartment with aircon, a swimming pool and sea view")

	want := map[string]bool{"pet friendly": true, "aircon": true, "pool": true, "sea view": true}
	if len(c.Features) != len(want) {
		t.Fatalf("expected %d features, got %v", len(want), c.Features)
	}
	for _, f := range c.Features {
		if !want[f] {
			t.Errorf("unexpected feature %q in %v", f, c.Features)
		}
	}
}

func TestParse_NothingExtractable(t *testing.T) {
	m := newTestMatcher(t, testListings())

	for _, query := range []string{"", "   ", "underwater castle with dragons"} {
		if c := m.Parse(query); !c.Empty() {
			t.Errorf("%q: expected empty constraints, got %+v", query, c)
		}
	}
}

func TestAdjust_Bedrooms(t *testing.T) {
	m := newTestMatcher(t, testListings())
	w := domain.DefaultScoringWeights()
	three := 3

	tests := []struct {
		bedrooms int
		want     float64
	}{
		{3, w.BedroomBonus},
		{2, w.BedroomBonus / 2},
		{4, w.BedroomBonus / 2},
		{5, 0},
		{0, 0},
	}
	for _, tt := range tests {
		l := &domain.Listing{ID: "l1", Bedrooms: tt.bedrooms}
		got := m.Adjust(Constraints{Bedrooms: &three}, l)
		if got.Bonus != tt.want {
			t.Errorf("bedrooms=%d: bonus = %v, expected %v", tt.bedrooms, got.Bonus, tt.want)
		}
	}
}

func TestAdjust_TypeMismatchIsNeutral(t *testing.T) {
	m := newTestMatcher(t, testListings())
	w := domain.DefaultScoringWeights()
	house := domain.TypeHouse

	match := m.Adjust(Constraints{PropertyType: &house}, &domain.Listing{ID: "l1", PropertyType: domain.TypeHouse})
	if match.Bonus != w.TypeBonus {
		t.Errorf("type match bonus = %v, expected %v", match.Bonus, w.TypeBonus)
	}

	mismatch := m.Adjust(Constraints{PropertyType: &house}, &domain.Listing{ID: "l2", PropertyType: domain.TypeApartment})
	if mismatch.Bonus != 0 {
		t.Errorf("type mismatch must be neutral, got %v", mismatch.Bonus)
	}
}

func TestAdjust_Price(t *testing.T) {
	m := newTestMatcher(t, testListings())
	w := domain.DefaultScoringWeights()
	ceiling := 2_000_000.0

	tests := []struct {
		name  string
		price float64
		check func(t *testing.T, bonus float64)
	}{
		{"well under", 1_000_000, func(t *testing.T, b float64) {
			if b <= w.PriceBonusScale/2 {
				t.Errorf("expected more than half scale for big headroom, got %v", b)
			}
		}},
		{"exactly at ceiling", 2_000_000, func(t *testing.T, b float64) {
			if b != w.PriceBonusScale/2 {
				t.Errorf("expected half scale at the ceiling, got %v", b)
			}
		}},
		{"within tolerance", 2_300_000, func(t *testing.T, b float64) {
			if b != 0 {
				t.Errorf("expected neutral within tolerance, got %v", b)
			}
		}},
		{"over tolerance", 3_000_000, func(t *testing.T, b float64) {
			if b != -w.PriceBonusScale/2 {
				t.Errorf("expected mild penalty, got %v", b)
			}
		}},
		{"no price on record", 0, func(t *testing.T, b float64) {
			if b != 0 {
				t.Errorf("expected neutral for missing price, got %v", b)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Adjust(Constraints{PriceCeiling: &ceiling}, &domain.Listing{ID: "l1", Price: tt.price})
			tt.check(t, got.Bonus)
		})
	}
}

func TestAdjust_UnderBudgetBeatsOverBudget(t *testing.T) {
	m := newTestMatcher(t, testListings())
	ceiling := 2_000_000.0

	under := m.Adjust(Constraints{PriceCeiling: &ceiling}, &domain.Listing{ID: "a", Price: 1_800_000})
	over := m.Adjust(Constraints{PriceCeiling: &ceiling}, &domain.Listing{ID: "b", Price: 3_000_000})

	if under.Bonus <= over.Bonus {
		t.Errorf("under-budget bonus (%v) must exceed over-budget (%v)", under.Bonus, over.Bonus)
	}
}

func TestAdjust_LocationAndFeatures(t *testing.T) {
	m := newTestMatcher(t, testListings())
	w := domain.DefaultScoringWeights()

	c := Constraints{
		Locations: []string{"claremont"},
		Features:  []string{"garden", "garage"},
	}
	l := &domain.Listing{
		ID:           "l1",
		Neighborhood: "Claremont",
		City:         "Cape Town",
		Features:     []string{"Landscaped Garden", "Double Garage"},
	}

	got := m.Adjust(c, l)
	want := w.LocationBonus + 2*w.FeatureBonusPerTag
	if got.Bonus != want {
		t.Errorf("bonus = %v, expected %v (signals %v)", got.Bonus, want, got.Signals)
	}
	if len(got.Signals) != 3 {
		t.Errorf("expected 3 signals, got %v", got.Signals)
	}
}

func TestAdjust_EmptyConstraintsZero(t *testing.T) {
	m := newTestMatcher(t, testListings())

	got := m.Adjust(Constraints{}, testListings()[0])
	if got.Bonus != 0 || got.Signals != nil {
		t.Errorf("expected zero adjustments, got %+v", got)
	}
}
