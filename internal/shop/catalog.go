package shop

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var catalogHeader = []string{"product_id", "title", "qty", "price"}

// LoadCSV reads a catalog with the header product_id,title,qty,price.
// Column order follows the header; extra columns are ignored.
func LoadCSV(r io.Reader) ([]Product, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catalog: empty file")
		}
		return nil, fmt.Errorf("catalog: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, h := range catalogHeader {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("catalog: missing column %q", h)
		}
	}

	var out []Product
	seen := make(map[string]struct{})
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: line %d: %w", line, err)
		}
		field := func(name string) string {
			i := col[name]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		p := Product{ID: field("product_id"), Title: field("title")}
		if p.ID == "" {
			return nil, fmt.Errorf("catalog: line %d: empty product_id", line)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("catalog: line %d: duplicate product_id %q", line, p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.Qty, err = strconv.Atoi(field("qty")); err != nil || p.Qty < 0 {
			return nil, fmt.Errorf("catalog: line %d: invalid qty %q", line, field("qty"))
		}
		if p.Price, err = strconv.Atoi(field("price")); err != nil || p.Price < 0 {
			return nil, fmt.Errorf("catalog: line %d: invalid price %q", line, field("price"))
		}
		out = append(out, p)
	}
	return out, nil
}

// LoadCSVFile opens path and calls LoadCSV.
func LoadCSVFile(path string) ([]Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSV(f)
}

func matches(title, keyword string) bool {
	return strings.Contains(strings.ToLower(title), strings.ToLower(strings.TrimSpace(keyword)))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
