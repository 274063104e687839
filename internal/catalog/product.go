// Package catalog manages the incense products offered by the storefront and
// resolves the price of a product in a given size.
package catalog

import (
	"context"
	"time"
)

// SizeOption is one purchasable size of a product, e.g. "Vừa (10g)".
type SizeOption struct {
	Size          string `json:"size" validate:"required"`
	Price         int64  `json:"price" validate:"gte=0"`
	OriginalPrice *int64 `json:"original_price,omitempty" validate:"omitempty,gte=0"`
	Stock         int    `json:"stock" validate:"gte=0"`
}

// Product is a catalog entry. When SizeOptions is non-empty the product can
// only be bought in one of those sizes.
type Product struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	NameEN           string            `json:"name_en,omitempty"`
	Description      string            `json:"description"`
	DescriptionEN    string            `json:"description_en,omitempty"`
	Price            int64             `json:"price"`
	OriginalPrice    *int64            `json:"original_price,omitempty"`
	ImageURL         string            `json:"image_url"`
	AdditionalImages []string          `json:"additional_images"`
	Category         string            `json:"category"`
	Stock            int               `json:"stock"`
	Featured         bool              `json:"featured"`
	SizeOptions      []SizeOption      `json:"size_options"`
	Specifications   map[string]string `json:"specifications"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// SizeOption returns the option labelled size.
func (p *Product) SizeOption(size string) (SizeOption, bool) {
	for _, o := range p.SizeOptions {
		if o.Size == size {
			return o, true
		}
	}
	return SizeOption{}, false
}

// ProductInput is the payload for creating a product.
type ProductInput struct {
	Name             string            `json:"name" validate:"required"`
	NameEN           string            `json:"name_en"`
	Description      string            `json:"description" validate:"required"`
	DescriptionEN    string            `json:"description_en"`
	Price            int64             `json:"price" validate:"gt=0"`
	OriginalPrice    *int64            `json:"original_price" validate:"omitempty,gte=0"`
	ImageURL         string            `json:"image_url" validate:"required"`
	AdditionalImages []string          `json:"additional_images"`
	Category         string            `json:"category" validate:"required"`
	Stock            int               `json:"stock" validate:"gte=0"`
	Featured         bool              `json:"featured"`
	SizeOptions      []SizeOption      `json:"size_options" validate:"dive"`
	Specifications   map[string]string `json:"specifications"`
}

// ProductUpdate is a partial update; nil fields are left unchanged.
type ProductUpdate struct {
	Name           *string            `json:"name" validate:"omitempty,min=1"`
	Description    *string            `json:"description"`
	Price          *int64             `json:"price" validate:"omitempty,gt=0"`
	OriginalPrice  *int64             `json:"original_price" validate:"omitempty,gte=0"`
	ImageURL       *string            `json:"image_url"`
	Category       *string            `json:"category"`
	Stock          *int               `json:"stock" validate:"omitempty,gte=0"`
	Featured       *bool              `json:"featured"`
	SizeOptions    *[]SizeOption      `json:"size_options"`
	Specifications *map[string]string `json:"specifications"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Featured *bool
	Category string
}

// Pricing is what a cart line needs to know about a product in one size.
type Pricing struct {
	ProductID     string
	Name          string
	Image         string
	Size          string
	UnitPrice     int64
	OriginalPrice *int64
	Stock         int
}

// Repository persists products.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
