package storage

import "attractions-scraper/models"

// RecordWriter is the interface any persistence backend must satisfy.
type RecordWriter interface {
	Write(attractions []models.Attraction) error
	Close() error
}
