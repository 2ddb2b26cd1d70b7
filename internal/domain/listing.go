package domain

import (
	"fmt"
	"strings"
)

// PropertyType enumerates supported listing types.
type PropertyType string

// Property type constants.
const (
	TypeHouse     PropertyType = "house"
	TypeApartment PropertyType = "apartment"
	TypeCondo     PropertyType = "condo"
	TypeVilla     PropertyType = "villa"
	TypeTownhouse PropertyType = "townhouse"
)

// ListingStatus enumerates listing availability states.
type ListingStatus string

// Listing status constants.
const (
	StatusForSale ListingStatus = "for_sale"
	StatusForRent ListingStatus = "for_rent"
)

// PointOfInterest is a nearby amenity attached to a listing.
type PointOfInterest struct {
	Name     string
	Category string
	Distance string
}

// Listing is an immutable-per-search snapshot of a property record.
// Created by the listing store; read-only to the ranking pipeline.
type Listing struct {
	ID           string
	Title        string
	Description  string
	Bedrooms     int
	Bathrooms    float64
	PropertyType PropertyType
	Price        float64
	AreaSqm      float64
	Status       ListingStatus
	City         string
	Neighborhood string
	Street       string
	Features     []string
	POIs         []PointOfInterest
	Images       []string
}

// SearchText concatenates the listing's textual fields into a single
// document used for lexical scoring. Structured attributes are rendered
// as phrases so queries like "3 bedroom house" match on terms.
func (l *Listing) SearchText() string {
	var b strings.Builder
	b.WriteString(l.Title)
	b.WriteByte(' ')
	b.WriteString(l.Description)
	b.WriteByte(' ')
	b.WriteString(string(l.PropertyType))
	b.WriteByte(' ')
	fmt.Fprintf(&b, "%d bedroom %g bathroom", l.Bedrooms, l.Bathrooms)
	b.WriteByte(' ')
	b.WriteString(l.Neighborhood)
	b.WriteByte(' ')
	b.WriteString(l.City)
	for _, f := range l.Features {
		b.WriteByte(' ')
		b.WriteString(f)
	}
	for _, p := range l.POIs {
		b.WriteByte(' ')
		b.WriteString(p.Name)
	}
	return b.String()
}

// Location renders the human-readable location of the listing.
func (l *Listing) Location() string {
	parts := make([]string, 0, 2)
	if l.Neighborhood != "" {
		parts = append(parts, l.Neighborhood)
	}
	if l.City != "" {
		parts = append(parts, l.City)
	}
	return strings.Join(parts, ", ")
}

// HasFeature reports whether the listing carries a feature tag, matched
// case-insensitively with substring semantics ("garden" matches
// "Landscaped Garden").
func (l *Listing) HasFeature(name string) bool {
	needle := strings.ToLower(name)
	for _, f := range l.Features {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// ParsePropertyType maps a raw string (including common synonyms) to a
// PropertyType. Returns false when the word names no known type.
func ParsePropertyType(s string) (PropertyType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "house", "home":
		return TypeHouse, true
	case "apartment", "flat", "penthouse", "studio":
		return TypeApartment, true
	case "condo", "condominium":
		return TypeCondo, true
	case "villa":
		return TypeVilla, true
	case "townhouse", "duplex":
		return TypeTownhouse, true
	default:
		return "", false
	}
}
