package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/ikkim/storefront-backend/config"
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/catalog"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/ikkim/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

const usage = `Usage:
  go run cmd/seed/main.go import <xlsx_file_path>   import or update products from a catalog sheet
  go run cmd/seed/main.go template <xlsx_file_path> write a sample catalog sheet
  go run cmd/seed/main.go coupons                   create demo coupons
  go run cmd/seed/main.go token <user_id> [role]    print a development access token`

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	switch os.Args[1] {
	case "template":
		if len(os.Args) < 3 {
			log.Fatal(usage)
		}
		if err := catalog.WriteXLSX(os.Args[2], sampleProducts(), cfg.Checkout.CurrencySymbol); err != nil {
			log.Fatal("Failed to write XLSX:", err)
		}
		fmt.Printf("Sample catalog written to %s\n", os.Args[2])
		return
	case "token":
		printToken(cfg, os.Args[2:])
		return
	case "import", "coupons":
	default:
		log.Fatal(usage)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if os.Args[1] == "coupons" {
		seedCoupons(repository.NewCouponRepository(db.GetDB()))
		return
	}

	if len(os.Args) < 3 {
		log.Fatal(usage)
	}
	filePath := os.Args[2]

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	result, err := catalog.ReadXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	for _, rowErr := range result.Skipped {
		fmt.Printf("  skipped %v\n", rowErr)
	}
	fmt.Printf("Total products to import: %d (skipped rows: %d)\n", len(result.Products), len(result.Skipped))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	created, updated, err := importProducts(repository.NewProductRepository(db.GetDB()), result.Products)
	if err != nil {
		log.Fatal("Failed to import products:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Created: %d, updated: %d\n", created, updated)
}

// importProducts upserts by product name so the sheet can be re-imported after edits.
func importProducts(repo repository.ProductRepository, products []model.Product) (created, updated int, err error) {
	for i := range products {
		p := products[i]

		existing, err := repo.FindByName(p.Name)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := repo.Create(&p); err != nil {
				return created, updated, fmt.Errorf("create %q: %w", p.Name, err)
			}
			created++
		case err != nil:
			return created, updated, err
		default:
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
			if err := repo.Update(&p); err != nil {
				return created, updated, fmt.Errorf("update %q: %w", p.Name, err)
			}
			updated++
		}
	}
	return created, updated, nil
}

// printToken mints a token the way the identity service would, for local testing.
func printToken(cfg *config.Config, args []string) {
	if len(args) < 1 {
		log.Fatal(usage)
	}
	userID, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || userID == 0 {
		log.Fatal("Invalid user ID:", args[0])
	}
	role := string(model.RoleUser)
	if len(args) > 1 {
		role = args[1]
	}
	if role != string(model.RoleUser) && role != string(model.RoleAdmin) {
		log.Fatal("Role must be user or admin")
	}

	email := fmt.Sprintf("user%d@example.com", userID)
	tokens, err := util.GenerateTokenPair(uint(userID), email, role, cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)
	if err != nil {
		log.Fatal("Failed to sign token:", err)
	}
	fmt.Println(tokens.AccessToken)
}

func seedCoupons(repo repository.CouponRepository) {
	coupons := []model.Coupon{
		{
			Code:             "WELCOME10",
			Description:      "10% off your order, up to $20.00",
			DiscountType:     model.DiscountPercentage,
			Value:            10,
			MaxDiscountCents: 2000,
			Active:           true,
		},
		{
			Code:             "SAVE5",
			Description:      "$5.00 off orders of $50.00 or more",
			DiscountType:     model.DiscountFixed,
			Value:            500,
			MinSubtotalCents: 5000,
			Active:           true,
		},
		{
			Code:         "FIRST100",
			Description:  "15% off for the first 100 orders",
			DiscountType: model.DiscountPercentage,
			Value:        15,
			UsageLimit:   100,
			Active:       true,
		},
	}

	for i := range coupons {
		c := coupons[i]
		if _, err := repo.FindByCode(c.Code); err == nil {
			fmt.Printf("Coupon %s already exists, skipping\n", c.Code)
			continue
		}
		if err := repo.Create(&c); err != nil {
			log.Fatalf("Failed to create coupon %s: %v", c.Code, err)
		}
		fmt.Printf("Created coupon %s\n", c.Code)
	}
}

func sampleProducts() []model.Product {
	shirtShipping := int64(599)
	mugShipping := int64(450)
	return []model.Product{
		{
			Name:                  "Linen Shirt",
			Description:           "Relaxed fit, washed linen",
			Category:              model.CategoryApparel,
			PriceCents:            4900,
			DiscountCents:         500,
			StockQuantity:         25,
			ShippingCharge:        &shirtShipping,
			FreeShippingThreshold: 7500,
			ImageURL:              "https://example.com/images/linen-shirt.jpg",
		},
		{
			Name:          "Canvas Tote",
			Description:   "Heavy cotton canvas",
			Category:      model.CategoryAccessories,
			PriceCents:    1800,
			StockQuantity: 60,
		},
		{
			Name:                    "Ceramic Mug",
			Description:             "Stoneware, 350ml",
			Category:                model.CategoryHome,
			PriceCents:              1200,
			StockQuantity:           40,
			ShippingCharge:          &mugShipping,
			FreeShippingMinQuantity: 4,
		},
		{
			Name:          "Cold Brew Coffee",
			Description:   "Single-origin, 500g bag",
			Category:      model.CategoryGrocery,
			PriceCents:    1650,
			StockQuantity: 100,
		},
	}
}
