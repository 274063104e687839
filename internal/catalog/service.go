package catalog

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dukerupert/tramhuong/internal/domain"
)

// Service is the product catalog.
type Service struct {
	repo     Repository
	validate *validator.Validate
	now      func() time.Time
}

// NewService returns a catalog backed by repo.
func NewService(repo Repository) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{repo: repo, validate: v, now: time.Now}
}

// List returns products matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Product, error) {
	products, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, domain.Internal(err, "catalog.list", "failed to list products")
	}
	return products, nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "catalog.get", "failed to load product")
	}
	return p, nil
}

// Create validates in and stores it as a new product.
func (s *Service) Create(ctx context.Context, in ProductInput) (*Product, error) {
	if err := s.check("catalog.create", in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &Product{
		ID:               uuid.NewString(),
		Name:             in.Name,
		NameEN:           in.NameEN,
		Description:      in.Description,
		DescriptionEN:    in.DescriptionEN,
		Price:            in.Price,
		OriginalPrice:    in.OriginalPrice,
		ImageURL:         in.ImageURL,
		AdditionalImages: in.AdditionalImages,
		Category:         in.Category,
		Stock:            in.Stock,
		Featured:         in.Featured,
		SizeOptions:      in.SizeOptions,
		Specifications:   in.Specifications,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	normalize(p)

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, domain.Internal(err, "catalog.create", "failed to save product")
	}
	return p, nil
}

// Update applies the non-nil fields of upd to the product.
func (s *Service) Update(ctx context.Context, id string, upd ProductUpdate) (*Product, error) {
	const op = "catalog.update"

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.wrap(err, op, "failed to load product")
	}

	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.OriginalPrice != nil {
		p.OriginalPrice = upd.OriginalPrice
	}
	if upd.ImageURL != nil {
		p.ImageURL = *upd.ImageURL
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.Stock != nil {
		p.Stock = *upd.Stock
	}
	if upd.Featured != nil {
		p.Featured = *upd.Featured
	}
	if upd.SizeOptions != nil {
		p.SizeOptions = *upd.SizeOptions
	}
	if upd.Specifications != nil {
		p.Specifications = *upd.Specifications
	}

	if err := s.check(op, inputFrom(p)); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()
	normalize(p)

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, s.wrap(err, op, "failed to save product")
	}
	return p, nil
}

// Delete removes a product.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.wrap(err, "catalog.delete", "failed to delete product")
	}
	return nil
}

// PriceFor resolves the unit price and stock of productID in size. Products
// with size options must be bought in one of them; products without options
// are sold by their base price with an empty size.
func (s *Service) PriceFor(ctx context.Context, productID, size string) (Pricing, error) {
	const op = "catalog.price_for"

	p, err := s.repo.Get(ctx, productID)
	if err != nil {
		return Pricing{}, s.wrap(err, op, "failed to load product")
	}

	pr := Pricing{
		ProductID: p.ID,
		Name:      p.Name,
		Image:     p.ImageURL,
		Size:      size,
	}

	if len(p.SizeOptions) == 0 {
		if size != "" {
			return Pricing{}, sizeNotFound(op, size)
		}
		pr.UnitPrice = p.Price
		pr.OriginalPrice = p.OriginalPrice
		pr.Stock = p.Stock
		return pr, nil
	}

	opt, ok := p.SizeOption(size)
	if !ok {
		return Pricing{}, sizeNotFound(op, size)
	}
	pr.UnitPrice = opt.Price
	pr.OriginalPrice = opt.OriginalPrice
	pr.Stock = opt.Stock
	return pr, nil
}

func sizeNotFound(op, size string) error {
	return &domain.Error{
		Code:    domain.ErrSizeNotFound.Code,
		Op:      op,
		Message: domain.ErrSizeNotFound.Message + ": " + size,
	}
}

// check runs struct validation and converts failures to a ValidationError
// keyed by JSON field name.
func (s *Service) check(op string, in ProductInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Internal(err, op, "product validation failed")
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if _, rest, ok := strings.Cut(ns, "."); ok {
			ns = rest
		}
		fields[ns] = "failed " + fe.Tag() + " check"
	}
	return &domain.ValidationError{Op: op, Fields: fields}
}

// wrap keeps domain errors from the repository intact and hides the rest.
func (s *Service) wrap(err error, op, message string) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.Internal(err, op, message)
}

func inputFrom(p *Product) ProductInput {
	return ProductInput{
		Name:             p.Name,
		NameEN:           p.NameEN,
		Description:      p.Description,
		DescriptionEN:    p.DescriptionEN,
		Price:            p.Price,
		OriginalPrice:    p.OriginalPrice,
		ImageURL:         p.ImageURL,
		AdditionalImages: p.AdditionalImages,
		Category:         p.Category,
		Stock:            p.Stock,
		Featured:         p.Featured,
		SizeOptions:      p.SizeOptions,
		Specifications:   p.Specifications,
	}
}

// normalize replaces nil collections so JSON renders [] and {}.
func normalize(p *Product) {
	if p.AdditionalImages == nil {
		p.AdditionalImages = []string{}
	}
	if p.SizeOptions == nil {
		p.SizeOptions = []SizeOption{}
	}
	if p.Specifications == nil {
		p.Specifications = map[string]string{}
	}
}
