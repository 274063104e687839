package catalog_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/tramhuong/internal/catalog"
	"github.com/dukerupert/tramhuong/internal/domain"
)

// fakeRepo is an in-memory Repository.
type fakeRepo struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	order    []string
	failNext error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{products: map[string]catalog.Product{}}
}

func (r *fakeRepo) List(_ context.Context, f catalog.Filter) ([]catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []catalog.Product
	for i := len(r.order) - 1; i >= 0; i-- {
		p := r.products[r.order[i]]
		if f.Featured != nil && p.Featured != *f.Featured {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *fakeRepo) Get(_ context.Context, id string) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (r *fakeRepo) Create(_ context.Context, p *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failNext; err != nil {
		r.failNext = nil
		return err
	}
	r.products[p.ID] = *p
	r.order = append(r.order, p.ID)
	return nil
}

func (r *fakeRepo) Update(_ context.Context, p *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return domain.ErrProductNotFound
	}
	r.products[p.ID] = *p
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *fakeRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.products), nil
}

func seeded(t *testing.T) (*catalog.Service, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	svc := catalog.NewService(repo)
	n, err := svc.SeedSamples(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, n)
	return svc, repo
}

func findByName(t *testing.T, svc *catalog.Service, name string) catalog.Product {
	t.Helper()
	all, err := svc.List(context.Background(), catalog.Filter{})
	require.NoError(t, err)
	for _, p := range all {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("product %q not found", name)
	return catalog.Product{}
}

func TestSeedSamples_OnlyWhenEmpty(t *testing.T) {
	svc, _ := seeded(t)

	n, err := svc.SeedSamples(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestList_Filters(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()
	featured := true

	all, err := svc.List(ctx, catalog.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	feat, err := svc.List(ctx, catalog.Filter{Featured: &featured})
	require.NoError(t, err)
	assert.Len(t, feat, 3)

	byCat, err := svc.List(ctx, catalog.Filter{Category: "Sáng"})
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, "Trầm Hương Sáng", byCat[0].Name)
}

func TestCreate_Validates(t *testing.T) {
	svc := catalog.NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), catalog.ProductInput{Name: "x", Price: 0})

	require.Error(t, err)
	fields := domain.GetValidationFields(err)
	assert.Contains(t, fields, "price")
	assert.Contains(t, fields, "description")
	assert.Contains(t, fields, "image_url")
	assert.Contains(t, fields, "category")
}

func TestCreate_NormalizesCollections(t *testing.T) {
	svc := catalog.NewService(newFakeRepo())

	p, err := svc.Create(context.Background(), catalog.ProductInput{
		Name: "Nụ trầm", Description: "d", Price: 150000, ImageURL: "/i.jpg", Category: "Nụ",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.NotNil(t, p.SizeOptions)
	assert.NotNil(t, p.AdditionalImages)
	assert.NotNil(t, p.Specifications)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestCreate_RepositoryFailureIsInternal(t *testing.T) {
	repo := newFakeRepo()
	repo.failNext = errors.New("disk full")
	svc := catalog.NewService(repo)

	_, err := svc.Create(context.Background(), catalog.Samples()[3])

	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}

func TestUpdate_Partial(t *testing.T) {
	svc, _ := seeded(t)
	p := findByName(t, svc, "Trầm Hương Sáng")
	stock := 3
	price := int64(650000)

	updated, err := svc.Update(context.Background(), p.ID, catalog.ProductUpdate{Stock: &stock, Price: &price})

	require.NoError(t, err)
	assert.Equal(t, 3, updated.Stock)
	assert.Equal(t, int64(650000), updated.Price)
	assert.Equal(t, p.Name, updated.Name)
	assert.Equal(t, p.Description, updated.Description)
}

func TestUpdate_RejectsInvalidResult(t *testing.T) {
	svc, _ := seeded(t)
	p := findByName(t, svc, "Trầm Hương Sáng")
	empty := ""

	_, err := svc.Update(context.Background(), p.ID, catalog.ProductUpdate{Category: &empty})

	assert.Contains(t, domain.GetValidationFields(err), "category")
}

func TestGetAndDelete_NotFound(t *testing.T) {
	svc := catalog.NewService(newFakeRepo())

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	err = svc.Delete(context.Background(), "missing")
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestPriceFor(t *testing.T) {
	svc, _ := seeded(t)
	kyNam := findByName(t, svc, "Trầm Hương Kỳ Nam Cao Cấp")
	sang := findByName(t, svc, "Trầm Hương Sáng")

	tests := []struct {
		name      string
		productID string
		size      string
		wantPrice int64
		wantStock int
		wantOrig  *int64
		wantCode  string
	}{
		{name: "size option", productID: kyNam.ID, size: "Vừa (10g)", wantPrice: 2500000, wantStock: 5, wantOrig: ptr(3000000)},
		{name: "other size option", productID: kyNam.ID, size: "Lớn (20g)", wantPrice: 4800000, wantStock: 2, wantOrig: ptr(5800000)},
		{name: "unknown size", productID: kyNam.ID, size: "XXL", wantCode: domain.EINVALID},
		{name: "sized product needs a size", productID: kyNam.ID, size: "", wantCode: domain.EINVALID},
		{name: "base price without options", productID: sang.ID, size: "", wantPrice: 600000, wantStock: 15},
		{name: "size on product without options", productID: sang.ID, size: "Nhỏ (5g)", wantCode: domain.EINVALID},
		{name: "missing product", productID: "nope", wantCode: domain.ENOTFOUND},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr, err := svc.PriceFor(context.Background(), tt.productID, tt.size)

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, domain.ErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrice, pr.UnitPrice)
			assert.Equal(t, tt.wantStock, pr.Stock)
			assert.Equal(t, tt.size, pr.Size)
			assert.Equal(t, tt.wantOrig, pr.OriginalPrice)
			assert.NotEmpty(t, pr.Name)
		})
	}
}

func ptr(v int64) *int64 { return &v }
