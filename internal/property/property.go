package property

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suPer8Hu/estate-chat/internal/query"
	"gorm.io/datatypes"
)

// Property is one listing. Prices are whole rupees, areas are square feet.
type Property struct {
	ID             uint64                      `gorm:"primaryKey;autoIncrement" json:"id" db:"id"`
	Title          string                      `gorm:"type:varchar(255);not null" json:"title" db:"title"`
	PriceMin       int64                       `gorm:"index;not null" json:"price_min" db:"price_min"`
	PriceMax       int64                       `gorm:"not null" json:"price_max" db:"price_max"`
	Location       string                      `gorm:"type:varchar(255);index" json:"location" db:"location"`
	BedroomsMin    int                         `gorm:"not null" json:"bedrooms_min" db:"bedrooms_min"`
	BedroomsMax    int                         `gorm:"not null" json:"bedrooms_max" db:"bedrooms_max"`
	AreaMin        float64                     `json:"area_min" db:"area_min"`
	AreaMax        float64                     `json:"area_max" db:"area_max"`
	Latitude       *float64                    `json:"latitude,omitempty" db:"latitude"`
	Longitude      *float64                    `json:"longitude,omitempty" db:"longitude"`
	Developer      string                      `gorm:"type:varchar(255)" json:"developer" db:"developer"`
	ReraID         string                      `gorm:"column:rera_id;type:varchar(64)" json:"rera_id" db:"rera_id"`
	LaunchDate     *time.Time                  `json:"launch_date,omitempty" db:"launch_date"`
	PossessionDate *time.Time                  `json:"possession_date,omitempty" db:"possession_date"`
	Description    string                      `gorm:"type:text" json:"description" db:"description"`
	Amenities      datatypes.JSONSlice[string] `json:"amenities" db:"amenities"`
	Overview       string                      `gorm:"type:text" json:"overview,omitempty" db:"overview"`
	CreatedAt      time.Time                   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at" db:"updated_at"`
}

func (Property) TableName() string { return "properties" }

var ErrNotFound = errors.New("property not found")

// FetchError reports that the backing store could not be queried. The caller
// may retry; nothing retries automatically.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("property %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Finder runs a structured lookup. Results are ordered deterministically.
type Finder interface {
	Find(ctx context.Context, c query.Criteria, limit, offset int) ([]Property, error)
}

// Store is a Finder that also owns single-row reads and the overview field.
type Store interface {
	Finder
	Get(ctx context.Context, id uint64) (*Property, error)
	PatchOverview(ctx context.Context, id uint64, overview string) error
}
