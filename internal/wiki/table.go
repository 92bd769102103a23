package wiki

import (
	"errors"
	"fmt"
	"strings"

	"lendingops/internal/telemetry"
	"lendingops/lib/htmlutil"
	"lendingops/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrSectionNotFound = errors.New("release table not found")
	ErrRowNotFound     = errors.New("no row for environment")
)

// ReleaseTable holds the header and the environment row of the table that
// follows a "Revolving loan - <INSTITUTION>" heading.
type ReleaseTable struct {
	Header []string
	Row    []string
}

// Map zips header names with row values, empty header names are skipped
// and missing trailing values leave their key out.
func (t ReleaseTable) Map() map[string]string {
	out := map[string]string{}
	for i, name := range t.Header {
		if name == "" || i >= len(t.Row) {
			continue
		}
		out[name] = t.Row[i]
	}
	return out
}

// Value returns the row value under the header named column, header names
// compare case and whitespace insensitive.
func (t ReleaseTable) Value(column string) string {
	for i, name := range t.Header {
		if i < len(t.Row) && textutil.SameName(name, column) {
			return t.Row[i]
		}
	}
	return ""
}

func Heading(institution string) string {
	return "Revolving loan - " + strings.ToUpper(institution)
}

func cells(row *goquery.Selection, selector string) []string {
	var out []string
	row.Find(selector).Each(func(_ int, cell *goquery.Selection) {
		out = append(out, htmlutil.CleanText(cell))
	})
	return out
}

// ExtractReleaseTable finds the section of `institution` in the storage
// body of a page and picks the first row mentioning `env` (upper cased).
// Several matching rows are reported as a warning.
func ExtractReleaseTable(tel telemetry.API, storage, institution, env string) (ReleaseTable, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(storage))
	if err != nil {
		return ReleaseTable{}, err
	}

	heading := Heading(institution)
	var table *goquery.Selection
	inSection := false
	doc.Find("*").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		switch goquery.NodeName(sel) {
		case "h1":
			inSection = htmlutil.CleanText(sel) == heading
		case "table":
			if inSection {
				table = sel
				return false
			}
		}
		return true
	})
	if table == nil {
		return ReleaseTable{}, fmt.Errorf("%w: no table after heading %q", ErrSectionNotFound, heading)
	}

	rows := table.Find("tr")
	if rows.Length() == 0 {
		return ReleaseTable{}, fmt.Errorf("%w: table after %q has no rows", ErrSectionNotFound, heading)
	}

	result := ReleaseTable{Header: cells(rows.First(), "th")}
	if len(result.Header) == 0 {
		result.Header = cells(rows.First(), "td")
	}

	tag := strings.ToUpper(env)
	var matches []*goquery.Selection
	rows.Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
		if strings.Contains(htmlutil.CleanText(row), tag) {
			matches = append(matches, row)
		}
	})
	if len(matches) == 0 {
		return result, fmt.Errorf("%w %q under %q", ErrRowNotFound, tag, heading)
	}
	if len(matches) > 1 {
		tel.ReportWarning(
			"release-table.ambiguous-row",
			"heading", heading,
			"env", tag,
			"matches", len(matches),
		)
	}
	result.Row = cells(matches[0], "td")
	return result, nil
}
