package services

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"attractions-scraper/models"
)

func TestBuildVariants(t *testing.T) {
	v := NewValidator(zap.NewNop())

	tests := []struct {
		name string
		raw  models.RawFields
		want models.AttractionType
	}{
		{
			name: "activity with duration",
			raw: models.RawFields{
				models.FieldType:     "activity",
				models.FieldName:     "Park HaYarkon",
				models.FieldDuration: 120,
			},
			want: models.TypeActivity,
		},
		{
			name: "restaurant with dietary options",
			raw: models.RawFields{
				models.FieldType:           "restaurant",
				models.FieldName:           "HaKosem",
				models.FieldDietaryOptions: []string{"vegan", "kosher"},
				models.FieldPriceRange:     "cheap",
			},
			want: models.TypeRestaurant,
		},
		{
			name: "mall",
			raw: models.RawFields{
				models.FieldType:     "mall",
				models.FieldName:     "Azrieli",
				models.FieldCategory: "Shopping mall",
			},
			want: models.TypeMall,
		},
		{
			name: "store chain",
			raw: models.RawFields{
				models.FieldType: "store_chain",
				models.FieldName: "Super-Pharm",
			},
			want: models.TypeStoreChain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := v.Build(tt.raw)
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			if record.Base().Type != tt.want {
				t.Errorf("Build() type = %q; want %q", record.Base().Type, tt.want)
			}
		})
	}
}

func TestBuildRejections(t *testing.T) {
	v := NewValidator(zap.NewNop())

	tests := []struct {
		name    string
		raw     models.RawFields
		wantErr error
	}{
		{
			name:    "missing type",
			raw:     models.RawFields{models.FieldName: "Somewhere"},
			wantErr: ErrMissingType,
		},
		{
			name:    "unknown type",
			raw:     models.RawFields{models.FieldType: "castle", models.FieldName: "Somewhere"},
			wantErr: models.ErrUnknownType,
		},
		{
			name:    "missing name",
			raw:     models.RawFields{models.FieldType: "activity"},
			wantErr: ErrMissingName,
		},
		{
			name:    "whitespace name",
			raw:     models.RawFields{models.FieldType: "activity", models.FieldName: "   "},
			wantErr: ErrMissingName,
		},
		{
			name: "dietary options on activity",
			raw: models.RawFields{
				models.FieldType:           "activity",
				models.FieldName:           "Park",
				models.FieldDietaryOptions: []string{"vegan"},
			},
			wantErr: ErrFieldNotAllowed,
		},
		{
			name: "duration on restaurant",
			raw: models.RawFields{
				models.FieldType:     "restaurant",
				models.FieldName:     "HaKosem",
				models.FieldDuration: 60,
			},
			wantErr: ErrFieldNotAllowed,
		},
		{
			name: "price range on mall",
			raw: models.RawFields{
				models.FieldType:       "mall",
				models.FieldName:       "Azrieli",
				models.FieldPriceRange: "cheap",
			},
			wantErr: ErrFieldNotAllowed,
		},
		{
			name: "invalid price range value",
			raw: models.RawFields{
				models.FieldType:       "activity",
				models.FieldName:       "Park",
				models.FieldPriceRange: "moderate",
			},
			wantErr: ErrInvalidPriceRange,
		},
		{
			name: "latitude out of range",
			raw: models.RawFields{
				models.FieldType: "activity",
				models.FieldName: "Park",
				models.FieldLat:  91.0,
				models.FieldLng:  0.0,
			},
			wantErr: ErrCoordinateRange,
		},
		{
			name: "longitude out of range",
			raw: models.RawFields{
				models.FieldType: "activity",
				models.FieldName: "Park",
				models.FieldLat:  0.0,
				models.FieldLng:  181.0,
			},
			wantErr: ErrCoordinateRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Build(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v; want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildKeepsValidCoordinates(t *testing.T) {
	v := NewValidator(zap.NewNop())

	record, err := v.Build(models.RawFields{
		models.FieldType: "activity",
		models.FieldName: "Park HaYarkon",
		models.FieldLat:  32.0853,
		models.FieldLng:  34.7818,
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	base := record.Base()
	if base.Lat == nil || base.Lng == nil {
		t.Fatal("coordinates were dropped")
	}
	if *base.Lat != 32.0853 || *base.Lng != 34.7818 {
		t.Errorf("coordinates = (%v, %v); want (32.0853, 34.7818)", *base.Lat, *base.Lng)
	}
}

func TestBuildDropsUnpairedCoordinate(t *testing.T) {
	v := NewValidator(zap.NewNop())

	for _, field := range []string{models.FieldLat, models.FieldLng} {
		record, err := v.Build(models.RawFields{
			models.FieldType: "activity",
			models.FieldName: "Park HaYarkon",
			field:            32.0853,
		})
		if err != nil {
			t.Fatalf("Build() with only %s: %v", field, err)
		}
		base := record.Base()
		if base.Lat != nil || base.Lng != nil {
			t.Errorf("only %s present: coordinates = (%v, %v); want both dropped", field, base.Lat, base.Lng)
		}
	}
}
