package store

import (
	"context"

	"github.com/restroom-access/restroom-cli/internal/model"
)

// Filter specifies criteria for listing restrooms. A non-positive Limit
// means no limit; maintenance passes read the whole table.
type Filter struct {
	Zip    string `json:"zip,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Stats summarizes the dataset for the status command.
type Stats struct {
	Total      int `json:"total"`
	Located    int `json:"located"`
	WithHours  int `json:"with_hours"`
	UnknownZip int `json:"unknown_zip"`
}

// Store defines the persistence interface for the restroom directory.
type Store interface {
	// Restrooms
	CreateRestroom(ctx context.Context, r *model.Restroom) (*model.Restroom, error)
	BulkCreateRestrooms(ctx context.Context, rs []model.Restroom) (int64, error)
	GetRestroom(ctx context.Context, id int64) (*model.Restroom, error)
	UpdateRestroom(ctx context.Context, r *model.Restroom) error
	UpdateFields(ctx context.Context, id int64, fields map[string]any) error
	DeleteRestrooms(ctx context.Context, ids []int64) (int64, error)
	ListRestrooms(ctx context.Context, filter Filter) ([]model.Restroom, error)
	ListLocated(ctx context.Context) ([]model.Restroom, error)
	ListWithinBounds(ctx context.Context, minLat, minLon, maxLat, maxLon float64, limit int) ([]model.Restroom, error)
	CountRestrooms(ctx context.Context) (int, error)
	Stats(ctx context.Context) (*Stats, error)

	// Import log
	RecordImport(ctx context.Context, rec model.ImportRecord) error
	ListImports(ctx context.Context, limit int) ([]model.ImportRecord, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// restroomColumns are the columns accepted by UpdateFields. Partial updates
// build SQL from field names, so anything outside this set is rejected.
var restroomColumns = map[string]bool{
	"name":      true,
	"address":   true,
	"zip":       true,
	"latitude":  true,
	"longitude": true,
	"hours":     true,
	"remarks":   true,
}
