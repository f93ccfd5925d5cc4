package transport

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/apperrors"
	"storefront/internal/service"

	"github.com/gocarina/gocsv"
)

// productCSVRow is one line of a CSV catalog import. Columns are matched by
// header name; missing optional columns are left empty.
type productCSVRow struct {
	Name            string `csv:"name"`
	Slug            string `csv:"slug"`
	Description     string `csv:"description"`
	Category        string `csv:"category"`
	Dosage          string `csv:"dosage"`
	Volume          string `csv:"volume"`
	RetailPrice     string `csv:"retailPrice"`
	WholesalePrice  string `csv:"wholesalePrice"`
	WholesaleMinQty string `csv:"wholesaleMinQty"`
	Status          string `csv:"status"`
	ImageURL        string `csv:"imageUrl"`
}

// decodeProductCSV reads a CSV import body. Cells that cannot be converted
// are reported with the same products[i].field paths as a JSON import.
func decodeProductCSV(body io.Reader) ([]service.ProductInput, error) {
	var rows []*productCSVRow
	if err := gocsv.Unmarshal(body, &rows); err != nil {
		return nil, apperrors.NewValidationError("invalid CSV: " + err.Error())
	}

	inputs := make([]service.ProductInput, 0, len(rows))
	var details []apperrors.ValidationDetail

	for i, row := range rows {
		input, rowDetails := row.toInput(i)
		details = append(details, rowDetails...)
		inputs = append(inputs, input)
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details...)
	}
	return inputs, nil
}

func (row *productCSVRow) toInput(index int) (service.ProductInput, []apperrors.ValidationDetail) {
	var details []apperrors.ValidationDetail
	invalid := func(field, message string) {
		details = append(details, apperrors.ValidationDetail{
			Field:   fmt.Sprintf("products[%d].%s", index, field),
			Message: message,
		})
	}

	input := service.ProductInput{
		Name:        strings.TrimSpace(row.Name),
		Slug:        strings.TrimSpace(row.Slug),
		Description: optionalCell(row.Description),
		Category:    optionalCell(row.Category),
		Dosage:      optionalCell(row.Dosage),
		Volume:      optionalCell(row.Volume),
		Status:      optionalCell(row.Status),
		ImageURL:    optionalCell(row.ImageURL),
	}

	if v, err := parsePriceCell(row.RetailPrice); err != nil {
		invalid("retailPrice", "Must be a number")
	} else {
		input.RetailPrice = v
	}

	if v, err := parsePriceCell(row.WholesalePrice); err != nil {
		invalid("wholesalePrice", "Must be a number")
	} else {
		input.WholesalePrice = v
	}

	if cell := strings.TrimSpace(row.WholesaleMinQty); cell != "" {
		qty, err := strconv.Atoi(cell)
		if err != nil {
			invalid("wholesaleMinQty", "Must be a whole number")
		} else {
			input.WholesaleMinQty = &qty
		}
	}

	return input, details
}

// parsePriceCell accepts "12.50" and "12,50"
func parsePriceCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, nil
	}
	if !strings.Contains(cell, ".") {
		cell = strings.Replace(cell, ",", ".", 1)
	}
	return strconv.ParseFloat(cell, 64)
}

func optionalCell(cell string) *string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	return &cell
}
