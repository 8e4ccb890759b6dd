package fieldmap

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/geo-format-converter/internal/types"
)

// =============================================================================
// XLSX ALIAS TEMPLATES
// =============================================================================
//
// TEMPLATE STRUCTURE (first sheet, header row first):
//
//   | Column A      | Column B | Column C | Column D |
//   |---------------|----------|----------|----------|
//   | Canonical Key | XML      | KML      | GeoJSON  |
//   | address       | adr      |          |          |
//   | phone         | tel      | phone    | phone    |
//
// Empty cells mean "same as canonical".

// TemplateColumns describes where each alias lives in the workbook.
type TemplateColumns struct {
	CanonicalColumn int
	XMLColumn       int
	KMLColumn       int
	GeoJSONColumn   int

	// DataStartRow is the first row holding aliases (0-based).
	// Default: 1 (Row 2)
	DataStartRow int
}

// DefaultTemplateColumns returns the default column configuration.
func DefaultTemplateColumns() TemplateColumns {
	return TemplateColumns{
		CanonicalColumn: 0, // Column A
		XMLColumn:       1, // Column B
		KMLColumn:       2, // Column C
		GeoJSONColumn:   3, // Column D
		DataStartRow:    1, // Row 2
	}
}

// LoadTemplate reads aliases from an XLSX workbook using the default layout.
func LoadTemplate(path string) (*Map, error) {
	return LoadTemplateWithColumns(path, DefaultTemplateColumns())
}

// LoadTemplateWithColumns reads aliases from an XLSX workbook.
func LoadTemplateWithColumns(path string, columns TemplateColumns) (*Map, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open field map template")
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.Newf("field map template %s has no sheets", path)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read rows")
	}

	m := New()
	for i := columns.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		cell := func(index int) string {
			if index >= 0 && index < len(row) {
				return strings.TrimSpace(row[index])
			}
			return ""
		}

		canonical := cell(columns.CanonicalColumn)
		if canonical == "" {
			continue
		}
		for format, col := range map[types.Format]int{
			types.FormatXML:     columns.XMLColumn,
			types.FormatKML:     columns.KMLColumn,
			types.FormatGeoJSON: columns.GeoJSONColumn,
		} {
			if key := cell(col); key != "" && !strings.EqualFold(key, canonical) {
				m.Set(canonical, format, key)
			}
		}
	}

	return m, nil
}
