package issues

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category classifies what kind of civic problem an issue reports.
type Category string

const (
	CategoryRoad     Category = "road"
	CategoryLighting Category = "lighting"
	CategoryWaste    Category = "waste"
	CategorySafety   Category = "safety"
	CategoryWater    Category = "water"
	CategoryOther    Category = "other"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryRoad, CategoryLighting, CategoryWaste, CategorySafety, CategoryWater, CategoryOther:
		return true
	}
	return false
}

// Status tracks an issue through its lifecycle.
type Status string

const (
	StatusReported   Status = "reported"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

func (s Status) Valid() bool {
	switch s {
	case StatusReported, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Location is a GeoJSON point. Coordinates are ordered [lng, lat].
type Location struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

func NewLocation(lng, lat float64) Location {
	return Location{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

func (l Location) Lng() float64 { return l.Coordinates[0] }
func (l Location) Lat() float64 { return l.Coordinates[1] }

func (l Location) Valid() bool {
	return l.Type == "Point" &&
		l.Lng() >= -180 && l.Lng() <= 180 &&
		l.Lat() >= -90 && l.Lat() <= 90
}

// Issue is a citizen-reported civic problem.
type Issue struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      Category  `json:"category"`
	Location      Location  `json:"location"`
	Address       string    `json:"address"`
	Status        Status    `json:"status"`
	Images        []string  `json:"images"`
	ReporterID    string    `json:"reporterId"`
	AIScore       int       `json:"aiScore"`
	AISuggestions []string  `json:"aiSuggestions"`
	VotesCount    int       `json:"votesCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// BBox is a geographic bounding box parsed from the query string.
type BBox struct {
	MinLng, MinLat, MaxLng, MaxLat float64
}

func (b BBox) Contains(l Location) bool {
	return l.Lng() >= b.MinLng && l.Lng() <= b.MaxLng &&
		l.Lat() >= b.MinLat && l.Lat() <= b.MaxLat
}

// ParseBBox parses "minLng,minLat,maxLng,maxLat". Anything other than four
// in-range numbers is an error.
func ParseBBox(raw string) (*BBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must be minLng,minLat,maxLng,maxLat")
	}
	nums := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bbox component %d is not a number", i+1)
		}
		nums[i] = v
	}
	box := &BBox{MinLng: nums[0], MinLat: nums[1], MaxLng: nums[2], MaxLat: nums[3]}
	if box.MinLng < -180 || box.MaxLng > 180 || box.MinLat < -90 || box.MaxLat > 90 {
		return nil, fmt.Errorf("bbox out of range")
	}
	if box.MinLng > box.MaxLng || box.MinLat > box.MaxLat {
		return nil, fmt.Errorf("bbox min exceeds max")
	}
	return box, nil
}

// SortOrder is a validated sort directive for listings.
type SortOrder struct {
	Field      string
	Descending bool
}

var sortFields = map[string]struct{}{
	"createdAt":  {},
	"aiScore":    {},
	"votesCount": {},
}

// DefaultSort lists newest first.
var DefaultSort = SortOrder{Field: "createdAt", Descending: true}

// ParseSort accepts a whitelisted field name, optionally prefixed with '-'
// for descending order. Unknown values fall back to DefaultSort.
func ParseSort(raw string) SortOrder {
	field := strings.TrimSpace(raw)
	desc := false
	if strings.HasPrefix(field, "-") {
		desc = true
		field = field[1:]
	}
	if _, ok := sortFields[field]; !ok {
		return DefaultSort
	}
	return SortOrder{Field: field, Descending: desc}
}

// Filter narrows and orders a listing. Zero values mean "no constraint".
type Filter struct {
	Category Category
	Status   Status
	BBox     *BBox
	Sort     SortOrder
}
