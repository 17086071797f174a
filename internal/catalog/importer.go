// Package catalog loads product fixtures from spreadsheets. Price columns hold display
// labels such as "$50.00" and are converted to cents on the way in.
package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/pricing"
	"github.com/xuri/excelize/v2"
)

// Header is the expected first row of a catalog sheet.
var Header = []string{
	"name", "description", "category", "price", "discount", "stock",
	"shipping", "free_shipping_over", "free_shipping_min_qty", "image_url",
}

const (
	colName = iota
	colDescription
	colCategory
	colPrice
	colDiscount
	colStock
	colShipping
	colFreeOver
	colFreeMinQty
	colImageURL
)

var ErrEmptySheet = errors.New("catalog sheet has no rows")

// RowError reports a rejected spreadsheet row. Line is 1-based as shown in spreadsheet apps.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

type Result struct {
	Products []model.Product
	Skipped  []*RowError
}

// ReadXLSX parses the first sheet of the workbook at path.
func ReadXLSX(path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return ParseRows(rows)
}

// ParseRows converts sheet rows (header first) into products, collecting bad rows
// instead of failing the whole import.
func ParseRows(rows [][]string) (*Result, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	result := &Result{}
	seen := make(map[string]bool)

	for i, row := range rows[1:] {
		line := i + 2
		if isBlank(row) {
			continue
		}

		product, err := ParseRow(row)
		if err != nil {
			result.Skipped = append(result.Skipped, &RowError{Line: line, Err: err})
			continue
		}

		key := strings.ToLower(product.Name)
		if seen[key] {
			result.Skipped = append(result.Skipped, &RowError{Line: line, Err: fmt.Errorf("duplicate product %q", product.Name)})
			continue
		}
		seen[key] = true
		result.Products = append(result.Products, product)
	}

	return result, nil
}

// ParseRow converts a single catalog row.
func ParseRow(row []string) (model.Product, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	name := cell(colName)
	if name == "" {
		return model.Product{}, errors.New("name is required")
	}

	price, err := pricing.ParsePriceLabel(cell(colPrice))
	if err != nil {
		return model.Product{}, fmt.Errorf("price: %w", err)
	}

	product := model.Product{
		Name:          name,
		Description:   cell(colDescription),
		Category:      model.ProductCategory(strings.ToLower(cell(colCategory))),
		PriceCents:    int64(price),
		ImageURL:      cell(colImageURL),
		StockQuantity: 0,
	}

	if label := cell(colDiscount); label != "" {
		discount, err := pricing.ParsePriceLabel(label)
		if err != nil {
			return model.Product{}, fmt.Errorf("discount: %w", err)
		}
		if discount > price {
			return model.Product{}, fmt.Errorf("discount %s exceeds price %s", discount, price)
		}
		product.DiscountCents = int64(discount)
	}

	if stock := cell(colStock); stock != "" {
		n, err := strconv.Atoi(stock)
		if err != nil || n < 0 {
			return model.Product{}, fmt.Errorf("stock: invalid quantity %q", stock)
		}
		product.StockQuantity = n
	}

	if label := cell(colShipping); label != "" {
		charge, err := pricing.ParsePriceLabel(label)
		if err != nil {
			return model.Product{}, fmt.Errorf("shipping: %w", err)
		}
		c := int64(charge)
		product.ShippingCharge = &c
	}

	if label := cell(colFreeOver); label != "" {
		threshold, err := pricing.ParsePriceLabel(label)
		if err != nil {
			return model.Product{}, fmt.Errorf("free_shipping_over: %w", err)
		}
		product.FreeShippingThreshold = int64(threshold)
	}

	if qty := cell(colFreeMinQty); qty != "" {
		n, err := strconv.Atoi(qty)
		if err != nil || n < 0 {
			return model.Product{}, fmt.Errorf("free_shipping_min_qty: invalid quantity %q", qty)
		}
		product.FreeShippingMinQuantity = n
	}

	return product, nil
}

// WriteXLSX writes products as a catalog workbook that ReadXLSX accepts.
func WriteXLSX(path string, products []model.Product, currencySymbol string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, p := range products {
		row := []interface{}{
			p.Name,
			p.Description,
			string(p.Category),
			pricing.FormatCents(pricing.Cents(p.PriceCents), currencySymbol),
			"",
			p.StockQuantity,
			"",
			"",
			"",
			p.ImageURL,
		}
		if p.DiscountCents > 0 {
			row[colDiscount] = pricing.FormatCents(pricing.Cents(p.DiscountCents), currencySymbol)
		}
		if p.ShippingCharge != nil {
			row[colShipping] = pricing.FormatCents(pricing.Cents(*p.ShippingCharge), currencySymbol)
		}
		if p.FreeShippingThreshold > 0 {
			row[colFreeOver] = pricing.FormatCents(pricing.Cents(p.FreeShippingThreshold), currencySymbol)
		}
		if p.FreeShippingMinQuantity > 0 {
			row[colFreeMinQty] = p.FreeShippingMinQuantity
		}

		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cellRef, &row); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
