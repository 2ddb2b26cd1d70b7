package listing

import (
	"encoding/json"
	"fmt"

	"github.com/tytac116/PropMatch/internal/domain"
)

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanListing maps one properties row onto the domain type. Array-valued
// columns (features, points_of_interest, images) are stored as JSONB.
func scanListing(row rowScanner) (*domain.Listing, error) {
	var (
		l            domain.Listing
		propertyType string
		status       string
		featuresRaw  []byte
		poisRaw      []byte
		imagesRaw    []byte
	)

	err := row.Scan(
		&l.ID, &l.Title, &l.Description, &l.Bedrooms, &l.Bathrooms, &propertyType,
		&l.Price, &l.AreaSqm, &status, &l.City, &l.Neighborhood, &l.Street,
		&featuresRaw, &poisRaw, &imagesRaw,
	)
	if err != nil {
		return nil, err
	}

	l.PropertyType = domain.PropertyType(propertyType)
	l.Status = domain.ListingStatus(status)

	if l.Features, err = decodeStrings(featuresRaw); err != nil {
		return nil, fmt.Errorf("decode features for %s: %w", l.ID, err)
	}
	if l.Images, err = decodeStrings(imagesRaw); err != nil {
		return nil, fmt.Errorf("decode images for %s: %w", l.ID, err)
	}
	if l.POIs, err = decodePOIs(poisRaw); err != nil {
		return nil, fmt.Errorf("decode points of interest for %s: %w", l.ID, err)
	}

	return &l, nil
}

func decodeStrings(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// poiDTO mirrors the JSONB shape written by the ingestion side.
type poiDTO struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Distance string `json:"distance_str"`
}

func decodePOIs(raw []byte) ([]domain.PointOfInterest, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var dtos []poiDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, err
	}
	pois := make([]domain.PointOfInterest, len(dtos))
	for i, d := range dtos {
		pois[i] = domain.PointOfInterest{
			Name:     d.Name,
			Category: d.Category,
			Distance: d.Distance,
		}
	}
	return pois, nil
}
