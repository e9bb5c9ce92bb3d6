package issues

import "testing"

func TestParseBBox(t *testing.T) {
	box, err := ParseBBox("-74.10,40.60,-73.70,40.90")
	if err != nil {
		t.Fatalf("ParseBBox: %v", err)
	}
	if box.MinLng != -74.10 || box.MaxLat != 40.90 {
		t.Fatalf("unexpected box: %+v", box)
	}
	if !box.Contains(NewLocation(-73.98, 40.75)) {
		t.Fatal("expected point inside box")
	}
	if box.Contains(NewLocation(-118.24, 34.05)) {
		t.Fatal("expected point outside box")
	}

	bad := []string{
		"-74,40.6,-73.7",   // three components
		"a,b,c,d",          // not numbers
		"200,40,210,41",    // longitude out of range
		"-73.7,40.6,-74,41", // min exceeds max
		"",
	}
	for _, raw := range bad {
		if _, err := ParseBBox(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParseSort(t *testing.T) {
	cases := map[string]SortOrder{
		"":            DefaultSort,
		"createdAt":   {Field: "createdAt"},
		"-createdAt":  {Field: "createdAt", Descending: true},
		"-aiScore":    {Field: "aiScore", Descending: true},
		"votesCount":  {Field: "votesCount"},
		"unknown":     DefaultSort,
		"-unknown":    DefaultSort,
		"reporterId":  DefaultSort, // not in the whitelist
	}
	for raw, want := range cases {
		if got := ParseSort(raw); got != want {
			t.Fatalf("ParseSort(%q) = %+v, want %+v", raw, got, want)
		}
	}
}

func TestLocationValid(t *testing.T) {
	if !NewLocation(-73.98, 40.75).Valid() {
		t.Fatal("expected valid location")
	}
	if (Location{Type: "Polygon", Coordinates: [2]float64{0, 0}}).Valid() {
		t.Fatal("only points are valid")
	}
	if NewLocation(181, 0).Valid() || NewLocation(0, 91).Valid() {
		t.Fatal("out-of-range coordinates must be invalid")
	}
}
