package catalog

import (
	"context"

	"github.com/dukerupert/tramhuong/internal/domain"
)

func vnd(v int64) *int64 { return &v }

// Samples is the starter catalog inserted into an empty store.
func Samples() []ProductInput {
	return []ProductInput{
		{
			Name:          "Trầm Hương Kỳ Nam Cao Cấp",
			NameEN:        "Premium Kynam Agarwood",
			Description:   "Trầm hương Kỳ Nam đặc biệt với hương thơm nồng nàn, quý hiếm. Sản phẩm cao cấp từ rừng tự nhiên.",
			DescriptionEN: "Premium Kynam Agarwood with intense fragrance, rare and precious. High-quality product from natural forests.",
			Price:         2500000,
			OriginalPrice: vnd(3000000),
			ImageURL:      "https://images.unsplash.com/photo-1613750255797-7d4f877615df",
			Category:      "Kỳ Nam",
			Stock:         5,
			Featured:      true,
			SizeOptions: []SizeOption{
				{Size: "Nhỏ (5g)", Price: 1300000, OriginalPrice: vnd(1600000), Stock: 3},
				{Size: "Vừa (10g)", Price: 2500000, OriginalPrice: vnd(3000000), Stock: 5},
				{Size: "Lớn (20g)", Price: 4800000, OriginalPrice: vnd(5800000), Stock: 2},
			},
			Specifications: map[string]string{
				"Xuất xứ":    "Khánh Hòa, Việt Nam",
				"Loại trầm":  "Kỳ Nam",
				"Độ tuổi":    "Trên 20 năm",
				"Hương thơm": "Nồng nàn, ngọt sâu",
			},
		},
		{
			Name:          "Trầm Hương Tự Nhiên",
			NameEN:        "Natural Agarwood",
			Description:   "Trầm hương tự nhiên chất lượng cao, hương thơm tinh tế và bền lâu. Phù hợp cho thưởng thức hàng ngày.",
			DescriptionEN: "High-quality natural agarwood with delicate and long-lasting fragrance. Perfect for daily enjoyment.",
			Price:         800000,
			OriginalPrice: vnd(1000000),
			ImageURL:      "https://images.unsplash.com/photo-1652719647182-094f5c442abc",
			Category:      "Tự Nhiên",
			Stock:         10,
			Featured:      true,
			SizeOptions: []SizeOption{
				{Size: "Nhỏ (5g)", Price: 450000, OriginalPrice: vnd(550000), Stock: 10},
				{Size: "Vừa (10g)", Price: 800000, OriginalPrice: vnd(1000000), Stock: 10},
			},
		},
		{
			Name:          "Trầm Hương Truyền Thống",
			NameEN:        "Traditional Agarwood",
			Description:   "Trầm hương theo phương pháp truyền thống, được chế biến cẩn thận với hương thơm đậm đà.",
			DescriptionEN: "Traditional agarwood processed with care, featuring rich and deep fragrance.",
			Price:         1200000,
			ImageURL:      "https://images.pexels.com/photos/14146722/pexels-photo-14146722.jpeg",
			Category:      "Truyền Thống",
			Stock:         8,
		},
		{
			Name:          "Trầm Hương Sáng",
			NameEN:        "Light Agarwood",
			Description:   "Trầm hương sáng với hương thơm nhẹ nhàng, thanh thoát. Lý tưởng cho không gian yên tĩnh.",
			DescriptionEN: "Light agarwood with gentle, pure fragrance. Ideal for peaceful spaces.",
			Price:         600000,
			ImageURL:      "https://images.unsplash.com/photo-1600122646819-75abc00c88a6",
			Category:      "Sáng",
			Stock:         15,
			Featured:      true,
		},
	}
}

// SeedSamples inserts Samples when the catalog is empty and reports how many
// products were created.
func (s *Service) SeedSamples(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, domain.Internal(err, "catalog.seed", "failed to count products")
	}
	if n > 0 {
		return 0, nil
	}

	created := 0
	for _, in := range Samples() {
		if _, err := s.Create(ctx, in); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
