package search

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tytac116/PropMatch/internal/domain"
)

// Constraints are the structured requirements extracted from a
// free-text query. Nil and empty fields mean the query stated nothing.
type Constraints struct {
	Bedrooms     *int
	PropertyType *domain.PropertyType
	PriceCeiling *float64
	Locations    []string
	Features     []string
}

// Empty reports whether no constraint was extracted at all.
func (c Constraints) Empty() bool {
	return c.Bedrooms == nil && c.PropertyType == nil && c.PriceCeiling == nil &&
		len(c.Locations) == 0 && len(c.Features) == 0
}

// MetadataResult is the per-listing outcome of constraint matching.
type MetadataResult struct {
	Bonus   float64
	Signals []string
}

func (r *MetadataResult) add(bonus float64, signal string) {
	r.Bonus += bonus
	r.Signals = append(r.Signals, signal)
}

// MetadataMatcher extracts structured constraints from query text and
// scores listings against them. Parsing is never fatal: an ambiguous
// constraint is dropped and logged, leaving the rest in force.
type MetadataMatcher struct {
	corpus  *Corpus
	weights domain.ScoringWeights
	logger  *zap.Logger
}

// NewMetadataMatcher creates a matcher using the corpus gazetteer for
// location recognition.
func NewMetadataMatcher(corpus *Corpus, weights domain.ScoringWeights, logger *zap.Logger) *MetadataMatcher {
	return &MetadataMatcher{corpus: corpus, weights: weights, logger: logger}
}

// Parse extracts bedroom count, property type, price ceiling, named
// locations and feature tags from the query.
func (m *MetadataMatcher) Parse(query string) Constraints {
	text := domain.NormalizeQuery(query)
	if text == "" {
		return Constraints{}
	}

	c := Constraints{
		Bedrooms:     parseBedrooms(text),
		PropertyType: parsePropertyType(text),
		Features:     parseFeatures(text),
		Locations:    m.parseLocations(text),
	}

	ceiling, ambiguous := parsePriceCeiling(text)
	if ambiguous {
		m.logger.Warn("Contradictory price ceilings in query, price constraint dropped",
			zap.String("query", text),
			zap.Error(domain.ErrMetadataParseAmbiguous))
	} else {
		c.PriceCeiling = ceiling
	}

	return c
}

// Adjust scores one listing against the constraints. Bonuses are
// additive; the only negative adjustment is the over-budget penalty.
func (m *MetadataMatcher) Adjust(c Constraints, l *domain.Listing) MetadataResult {
	var res MetadataResult
	if l == nil || c.Empty() {
		return res
	}
	w := m.weights

	if c.Bedrooms != nil {
		switch absInt(l.Bedrooms - *c.Bedrooms) {
		case 0:
			res.add(w.BedroomBonus, "bedrooms_exact")
		case 1:
			res.add(w.BedroomBonus/2, "bedrooms_close")
		}
	}

	// A type mismatch is never a standalone penalty.
	if c.PropertyType != nil && l.PropertyType == *c.PropertyType {
		res.add(w.TypeBonus, "type_match")
	}

	if c.PriceCeiling != nil {
		m.adjustPrice(&res, *c.PriceCeiling, l.Price)
	}

	if len(c.Locations) > 0 && listingInLocations(l, c.Locations) {
		res.add(w.LocationBonus, "location_match")
	}

	for _, f := range c.Features {
		if l.HasFeature(f) {
			res.add(w.FeatureBonusPerTag, "feature_"+strings.ReplaceAll(f, " ", "_"))
		}
	}

	return res
}

// adjustPrice rewards headroom under the stated ceiling and penalizes
// prices more than the tolerance margin over it. Within the margin is
// neutral.
func (m *MetadataMatcher) adjustPrice(res *MetadataResult, ceiling, price float64) {
	w := m.weights
	switch {
	case price <= 0 || ceiling <= 0:
	case price <= ceiling:
		headroom := (ceiling - price) / ceiling
		res.add(w.PriceBonusScale*(0.5+0.5*headroom), "under_budget")
	case price > ceiling*(1+w.PriceTolerance):
		res.add(-w.PriceBonusScale/2, "over_budget")
	}
}

var bedroomRe = regexp.MustCompile(`\b(\d+|one|two|three|four|five|six|seven|eight|nine|ten)[ -]?bed(?:room)?s?\b`)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

func parseBedrooms(text string) *int {
	match := bedroomRe.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	if n, ok := numberWords[match[1]]; ok {
		return &n
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n < 0 || n > 20 {
		return nil
	}
	return &n
}

func parsePropertyType(text string) *domain.PropertyType {
	for _, tok := range strings.Fields(cleanText(text)) {
		if t, ok := domain.ParsePropertyType(tok); ok {
			return &t
		}
	}
	return nil
}

// priceCeilingRe matches ceiling phrases like "under R2 million",
// "below 1.5m", "less than R900k", "max R2 500 000". The amount
// alternation prefers space- or comma-grouped thousands over a plain
// number so "2 500 000" parses whole.
var priceCeilingRe = regexp.MustCompile(
	`(?:under|below|less than|max(?:imum)?|up to|budget(?: of)?|no more than|cheaper than)` +
		`\s+r?\s?(\d{1,3}(?:[ ,]\d{3})+|\d+(?:\.\d+)?)\s*(million|thousand|mil|k|m)?\b`)

// parsePriceCeiling returns the stated ceiling in rand, or ambiguous
// when the query states more than one distinct ceiling.
func parsePriceCeiling(text string) (*float64, bool) {
	matches := priceCeilingRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, false
	}

	var values []float64
	for _, m := range matches {
		if v, ok := parseAmount(m[1], m[2]); ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, false
	}

	first := values[0]
	for _, v := range values[1:] {
		if v != first {
			return nil, true
		}
	}
	return &first, false
}

func parseAmount(num, unit string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == ',' {
			return -1
		}
		return r
	}, num)

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v <= 0 {
		return 0, false
	}

	switch unit {
	case "k", "thousand":
		v *= 1e3
	case "m", "mil", "million":
		v *= 1e6
	default:
		// A bare small number is shorthand for millions of rand.
		if v < 1000 {
			v *= 1e6
		}
	}
	return v, true
}

// areaAliases expands well-known Cape Town area names into the suburbs
// they cover, so "atlantic seaboard" matches Sea Point listings.
var areaAliases = map[string][]string{
	"atlantic seaboard": {
		"sea point", "green point", "mouille point", "three anchor bay",
		"bantry bay", "clifton", "camps bay", "fresnaye", "hout bay",
	},
	"southern suburbs": {
		"claremont", "rondebosch", "newlands", "kenilworth", "wynberg",
		"constantia", "bishopscourt", "tokai", "plumstead", "mowbray",
	},
	"city bowl": {
		"cape town city centre", "gardens", "tamboerskloof", "oranjezicht",
		"vredehoek", "bo kaap", "de waterkant", "zonnebloem",
	},
	"northern suburbs": {
		"bellville", "durbanville", "parow", "brackenfell", "goodwood",
		"kraaifontein",
	},
	"west coast": {
		"bloubergstrand", "milnerton", "table view", "melkbosstrand",
		"sunningdale", "parklands",
	},
}

func (m *MetadataMatcher) parseLocations(text string) []string {
	set := make(map[string]struct{})
	for _, loc := range m.corpus.MatchLocations(text) {
		set[loc] = struct{}{}
	}

	padded := " " + cleanText(text) + " "
	for area, suburbs := range areaAliases {
		if strings.Contains(padded, " "+area+" ") {
			for _, s := range suburbs {
				set[s] = struct{}{}
			}
		}
	}

	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for loc := range set {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

func listingInLocations(l *domain.Listing, locs []string) bool {
	hood := cleanText(l.Neighborhood)
	city := cleanText(l.City)
	for _, loc := range locs {
		if loc == hood || loc == city {
			return true
		}
	}
	return false
}

// featureSynonyms maps query phrases to canonical feature tags, longer
// phrases first so "swimming pool" wins over "pool".
var featureSynonyms = []struct {
	term      string
	canonical string
}{
	{"swimming pool", "pool"},
	{"pool", "pool"},
	{"garden", "garden"},
	{"garage", "garage"},
	{"carport", "garage"},
	{"security", "security"},
	{"secure", "security"},
	{"sea view", "sea view"},
	{"ocean view", "sea view"},
	{"mountain view", "mountain view"},
	{"balcony", "balcony"},
	{"parking", "parking"},
	{"furnished", "furnished"},
	{"pet friendly", "pet friendly"},
	{"pets allowed", "pet friendly"},
	{"solar", "solar"},
	{"fibre", "fibre"},
	{"fiber", "fibre"},
	{"gym", "gym"},
	{"aircon", "aircon"},
	{"air conditioning", "aircon"},
	{"braai", "braai"},
	{"patio", "patio"},
	{"study", "study"},
	{"fireplace", "fireplace"},
}

func parseFeatures(text string) []string {
	padded := " " + cleanText(text) + " "

	seen := make(map[string]struct{})
	var out []string
	for _, fs := range featureSynonyms {
		if _, ok := seen[fs.canonical]; ok {
			continue
		}
		if strings.Contains(padded, " "+fs.term+" ") {
			seen[fs.canonical] = struct{}{}
			out = append(out, fs.canonical)
		}
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
