package fetcher

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/htmlindex"
)

// UsageOptions configures monthly usage import.
type UsageOptions struct {
	// Delimiter is the CSV separator. Zero picks ';' or ',' from the first line.
	Delimiter rune
	// Charset names the CSV encoding, e.g. "windows-1250". Empty means UTF-8.
	Charset string
	// Column is the header of the kWh column. Empty auto-detects.
	Column string
	// SheetName selects an XLSX sheet. Empty reads the first one.
	SheetName string
}

// UsageSummary is the result of reading one month per row.
type UsageSummary struct {
	Months            int     `json:"months"`
	TotalKWh          float64 `json:"total_kwh"`
	MonthlyAverageKWh float64 `json:"monthly_average_kwh"`
}

var usageHeaderHints = []string{"kwh", "usage", "consumption", "zużycie", "zuzycie"}

// ReadUsageCSV reads a utility export with one row per month and returns the
// monthly average.
func ReadUsageCSV(r io.Reader, opts UsageOptions) (UsageSummary, error) {
	if opts.Charset != "" {
		enc, err := htmlindex.Get(opts.Charset)
		if err != nil {
			return UsageSummary{}, eris.Wrapf(err, "usage: unknown charset %q", opts.Charset)
		}
		r = enc.NewDecoder().Reader(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return UsageSummary{}, eris.Wrap(err, "usage: read csv")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = opts.Delimiter
	if reader.Comma == 0 {
		reader.Comma = sniffDelimiter(data)
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return UsageSummary{}, eris.Wrap(err, "usage: parse csv")
	}
	return summarizeUsage(rows, opts.Column)
}

// ReadUsageXLSX reads the same layout from a workbook.
func ReadUsageXLSX(r io.Reader, opts UsageOptions) (UsageSummary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return UsageSummary{}, eris.Wrap(err, "usage: read xlsx")
	}
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return UsageSummary{}, eris.Wrap(err, "usage: open xlsx")
	}

	var sheet *xlsx.Sheet
	switch {
	case opts.SheetName != "":
		s, ok := f.Sheet[opts.SheetName]
		if !ok {
			return UsageSummary{}, eris.Errorf("usage: sheet %q not found", opts.SheetName)
		}
		sheet = s
	case len(f.Sheets) > 0:
		sheet = f.Sheets[0]
	default:
		return UsageSummary{}, eris.New("usage: workbook has no sheets")
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return summarizeUsage(rows, opts.Column)
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func summarizeUsage(rows [][]string, column string) (UsageSummary, error) {
	rows = dropBlank(rows)
	if len(rows) == 0 {
		return UsageSummary{}, eris.New("usage: no rows")
	}

	col := -1
	start := 0
	if isHeader(rows[0]) {
		col = headerColumn(rows[0], column)
		if col < 0 && column != "" {
			return UsageSummary{}, eris.Errorf("usage: column %q not found", column)
		}
		start = 1
	}
	if col < 0 && start < len(rows) {
		col = lastNumericColumn(rows[start])
	}
	if col < 0 {
		return UsageSummary{}, eris.New("usage: no kWh column")
	}

	var sum UsageSummary
	for i, row := range rows[start:] {
		if col >= len(row) || strings.TrimSpace(row[col]) == "" {
			continue
		}
		v, err := parseNumber(row[col])
		if err != nil {
			return UsageSummary{}, eris.Errorf("usage: row %d: invalid kWh %q", start+i+1, row[col])
		}
		if v < 0 {
			return UsageSummary{}, eris.Errorf("usage: row %d: negative kWh", start+i+1)
		}
		sum.Months++
		sum.TotalKWh += v
	}
	if sum.Months == 0 {
		return UsageSummary{}, eris.New("usage: no monthly readings")
	}
	sum.MonthlyAverageKWh = sum.TotalKWh / float64(sum.Months)
	return sum, nil
}

func dropBlank(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, r := range rows {
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// isHeader treats a row with no numeric cell as a header.
func isHeader(row []string) bool {
	return lastNumericColumn(row) < 0
}

func headerColumn(header []string, want string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if want != "" {
			if h == strings.ToLower(strings.TrimSpace(want)) {
				return i
			}
			continue
		}
		for _, hint := range usageHeaderHints {
			if strings.Contains(h, hint) {
				return i
			}
		}
	}
	return -1
}

func lastNumericColumn(row []string) int {
	for i := len(row) - 1; i >= 0; i-- {
		if _, err := parseNumber(row[i]); err == nil {
			return i
		}
	}
	return -1
}

// parseNumber accepts "1234.5", "1 234,5" and "1.234,5".
func parseNumber(s string) (float64, error) {
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\u202f' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	comma := strings.LastIndexByte(s, ',')
	dot := strings.LastIndexByte(s, '.')
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}
