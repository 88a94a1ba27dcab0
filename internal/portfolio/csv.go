package portfolio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/portfolio-tracker/internal/apperrors"
	"github.com/ndewijer/portfolio-tracker/internal/model"
)

// Header is the portfolio file header, in the only accepted order.
var Header = []string{"Ticker", "Quantity", "Dividends", "TransactionCost", "TargetAllocation", "CashBalance"}

const (
	colTicker = iota
	colQuantity
	colDividends
	colTransactionCost
	colTargetAllocation
	colCashBalance
)

// DecodeCSV parses a portfolio file into typed records. Any malformed row
// fails the whole decode with a ValidationError naming the row and field;
// no partially parsed result is returned.
//
// CashBalance may be blank on any row. Range checks beyond "is a number"
// are left to Store.Load.
func DecodeCSV(r io.Reader) ([]model.PositionRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &apperrors.ValidationError{Field: "header", Message: "file is empty, header row is required"}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToReadPortfolio, err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var records []model.PositionRecord
	row := 0
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, &apperrors.ValidationError{Row: row, Message: err.Error()}
		}
		if blankRow(fields) {
			row--
			continue
		}
		if len(fields) != len(Header) {
			return nil, &apperrors.ValidationError{
				Row:     row,
				Field:   missingField(len(fields)),
				Message: fmt.Sprintf("expected %d columns, got %d", len(Header), len(fields)),
			}
		}

		rec, err := decodeRow(row, fields)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if records == nil {
		records = []model.PositionRecord{}
	}
	return records, nil
}

// EncodeCSV writes the portfolio in the file format DecodeCSV reads, with
// the cash balance repeated on every row. A portfolio without positions
// produces only the header.
func EncodeCSV(w io.Writer, p model.Portfolio) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToWritePortfolio, err)
	}

	cash := formatNumber(p.CashBalance)
	for _, pos := range p.Positions {
		record := []string{
			pos.Ticker,
			formatNumber(pos.Quantity),
			formatNumber(pos.Dividends),
			formatNumber(pos.TransactionCost),
			formatNumber(pos.TargetAllocation),
			cash,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("%w: %w", apperrors.ErrFailedToWritePortfolio, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToWritePortfolio, err)
	}
	return nil
}

// ReadFile decodes the portfolio file at path.
func ReadFile(path string) ([]model.PositionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrFailedToReadPortfolio, err)
	}
	defer f.Close()
	return DecodeCSV(f)
}

// WriteFile writes the portfolio to path through a temporary file in the
// same directory, so a failed write never leaves a truncated file behind.
func WriteFile(path string, p model.Portfolio) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".portfolio-*.csv")
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToWritePortfolio, err)
	}
	defer os.Remove(tmp.Name())

	if err := EncodeCSV(tmp, p); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToWritePortfolio, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrFailedToWritePortfolio, err)
	}
	return nil
}

func checkHeader(header []string) error {
	for i, want := range Header {
		if i >= len(header) {
			return &apperrors.ValidationError{
				Field:   want,
				Message: fmt.Sprintf("%v: missing column %s", apperrors.ErrInvalidCSVHeaders, want),
			}
		}
		got := strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
		if got != want {
			return &apperrors.ValidationError{
				Field:   want,
				Message: fmt.Sprintf("%v: expected column %d to be %s, got %q", apperrors.ErrInvalidCSVHeaders, i+1, want, got),
			}
		}
	}
	if len(header) > len(Header) {
		return &apperrors.ValidationError{
			Field:   header[len(Header)],
			Message: fmt.Sprintf("%v: unexpected column %q", apperrors.ErrInvalidCSVHeaders, header[len(Header)]),
		}
	}
	return nil
}

func decodeRow(row int, fields []string) (model.PositionRecord, error) {
	rec := model.PositionRecord{Row: row}

	ticker := strings.TrimSpace(fields[colTicker])
	if ticker == "" {
		return rec, &apperrors.ValidationError{Row: row, Field: "Ticker", Message: "is required"}
	}

	numbers := make([]float64, colCashBalance)
	for col := colQuantity; col < colCashBalance; col++ {
		v, err := parseNumber(fields[col])
		if err != nil {
			return rec, &apperrors.ValidationError{Row: row, Field: Header[col], Message: err.Error()}
		}
		numbers[col] = v
	}

	rec.Position = model.Position{
		Ticker:           ticker,
		Quantity:         numbers[colQuantity],
		Dividends:        numbers[colDividends],
		TransactionCost:  numbers[colTransactionCost],
		TargetAllocation: numbers[colTargetAllocation],
	}

	if raw := strings.TrimSpace(fields[colCashBalance]); raw != "" {
		v, err := parseNumber(raw)
		if err != nil {
			return rec, &apperrors.ValidationError{Row: row, Field: "CashBalance", Message: err.Error()}
		}
		rec.CashBalance = &v
	}
	return rec, nil
}

func parseNumber(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("value is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	return d.InexactFloat64(), nil
}

func formatNumber(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func blankRow(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// missingField names the first column absent from a short row.
func missingField(n int) string {
	if n < len(Header) {
		return Header[n]
	}
	return ""
}
