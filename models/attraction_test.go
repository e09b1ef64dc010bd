package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseAttractionType(t *testing.T) {
	tests := []struct {
		raw    string
		want   AttractionType
		wantOK bool
	}{
		{"activity", TypeActivity, true},
		{"restaurant", TypeRestaurant, true},
		{"mall", TypeMall, true},
		{"store_chain", TypeStoreChain, true},
		{"castle", "", false},
		{"", "", false},
		{"Restaurant", "", false},
	}

	for _, tt := range tests {
		got, err := ParseAttractionType(tt.raw)
		if (err == nil) != tt.wantOK || got != tt.want {
			t.Errorf("ParseAttractionType(%q) = (%q, %v); want (%q, ok=%v)", tt.raw, got, err, tt.want, tt.wantOK)
		}
	}
}

func TestHoursEntryJSON(t *testing.T) {
	closed, err := json.Marshal(HoursEntry{Closed: true})
	if err != nil {
		t.Fatal(err)
	}
	if string(closed) != `"closed"` {
		t.Errorf("closed day = %s; want %q", closed, `"closed"`)
	}

	open, err := json.Marshal(HoursEntry{Open: "09:00", Close: "18:00"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(open), `"open":"09:00"`) {
		t.Errorf("open day = %s; want open/close object", open)
	}

	var back HoursEntry
	if err := json.Unmarshal(closed, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Closed {
		t.Error("round-tripped closed day lost its flag")
	}

	if err := json.Unmarshal([]byte(`"open all day"`), &back); err == nil {
		t.Error("unexpected hours string accepted")
	}
}

func TestUnmarshalAttractionRestoresVariant(t *testing.T) {
	lat := 32.0853
	lng := 34.7818
	original := &Restaurant{
		BaseAttraction: BaseAttraction{
			Name:      "HaKosem",
			Type:      TypeRestaurant,
			City:      "Tel Aviv",
			SourceURL: "https://www.google.com/maps/place/HaKosem",
			Lat:       &lat,
			Lng:       &lng,
			Hours: map[string]HoursEntry{
				"sunday":   {Open: "10:00", Close: "22:00"},
				"saturday": {Closed: true},
			},
		},
		Category:       "Falafel restaurant",
		PriceRange:     PriceCheap,
		DietaryOptions: []string{"vegan", "kosher"},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}

	back, err := UnmarshalAttraction(data)
	if err != nil {
		t.Fatalf("UnmarshalAttraction() error: %v", err)
	}

	r, ok := back.(*Restaurant)
	if !ok {
		t.Fatalf("UnmarshalAttraction() concrete type = %T; want *Restaurant", back)
	}
	if r.Name != "HaKosem" || r.PriceRange != PriceCheap {
		t.Errorf("round-trip lost fields: %+v", r)
	}
	if len(r.DietaryOptions) != 2 {
		t.Errorf("dietary options = %v; want 2 entries", r.DietaryOptions)
	}
	if !r.Hours["saturday"].Closed {
		t.Error("closed saturday lost in round-trip")
	}
	if r.Lat == nil || *r.Lat != lat {
		t.Error("latitude lost in round-trip")
	}
}

func TestUnmarshalAttractionRejectsUnknownType(t *testing.T) {
	_, err := UnmarshalAttraction([]byte(`{"name": "X", "type": "castle"}`))
	if err == nil {
		t.Fatal("unknown type accepted")
	}
}

func TestResultSetRoundTrip(t *testing.T) {
	rs := NewResultSet()
	rs.Add(&Activity{
		BaseAttraction:  BaseAttraction{Name: "Park HaYarkon", Type: TypeActivity, SourceURL: "https://www.google.com/maps/place/park"},
		DurationMinutes: 120,
	})
	rs.Add(&Mall{
		BaseAttraction: BaseAttraction{Name: "Azrieli", Type: TypeMall, SourceURL: "https://www.google.com/maps/place/azrieli"},
	})
	rs.AddFailed("https://www.google.com/maps/place/broken", "navigation failed")

	data, err := json.Marshal(rs)
	if err != nil {
		t.Fatal(err)
	}

	var back ResultSet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := rs.Stats()
	got := back.Stats()
	if got.Successful != want.Successful || got.Failed != want.Failed || got.Total != want.Total {
		t.Errorf("stats after round-trip = %+v; want %+v", got, want)
	}

	activity, ok := back.Attractions["activities"][0].(*Activity)
	if !ok {
		t.Fatalf("activity variant lost: %T", back.Attractions["activities"][0])
	}
	if activity.DurationMinutes != 120 {
		t.Errorf("duration = %d; want 120", activity.DurationMinutes)
	}

	urls := back.ProcessedURLs()
	if len(urls) != 2 {
		t.Errorf("ProcessedURLs() = %v; want both source urls", urls)
	}
}
