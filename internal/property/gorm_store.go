package property

import (
	"context"
	"errors"
	"strings"

	"github.com/suPer8Hu/estate-chat/internal/query"
	"gorm.io/gorm"
)

// GormStore serves any gorm dialect. Terms match title, description and
// location with a case-insensitive LIKE; any term is enough.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Property{})
}

func (s *GormStore) Create(ctx context.Context, p *Property) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *GormStore) Find(ctx context.Context, c query.Criteria, limit, offset int) ([]Property, error) {
	q := s.db.WithContext(ctx).Model(&Property{})

	if c.Bedrooms != nil {
		q = q.Where("bedrooms_min <= ? AND bedrooms_max >= ?", *c.Bedrooms, *c.Bedrooms)
	}
	if c.PriceMax != nil {
		q = q.Where("price_min <= ?", *c.PriceMax)
	}
	if len(c.Terms) > 0 {
		var (
			parts []string
			args  []any
		)
		for _, t := range c.Terms {
			like := "%" + strings.ToLower(t) + "%"
			parts = append(parts, "LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(location) LIKE ?")
			args = append(args, like, like, like)
		}
		q = q.Where("("+strings.Join(parts, " OR ")+")", args...)
	}

	var out []Property
	err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) Get(ctx context.Context, id uint64) (*Property, error) {
	var p Property
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) PatchOverview(ctx context.Context, id uint64, overview string) error {
	res := s.db.WithContext(ctx).Model(&Property{}).
		Where("id = ?", id).
		Update("overview", overview)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
