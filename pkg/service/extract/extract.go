package extract

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/m-mizutani/goerr/v2"

	"github.com/formulary-lab/rxquery/pkg/domain/model"
)

// drugTableSelector matches the formulary drug tables in the scraped page
const drugTableSelector = "table.table-responsive"

// Parse converts the scraped formulary HTML into drug records, one per
// table row. Each drug table takes its category from the nearest h2
// heading preceding it in document order (empty string if none). The
// header row is skipped, and rows with fewer than 4 cells are silently
// dropped.
//
// Parse touches no network or filesystem and is deterministic for
// identical input.
func Parse(html io.Reader) ([]*model.DrugRecord, error) {
	doc, err := goquery.NewDocumentFromReader(html)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse HTML document")
	}

	var records []*model.DrugRecord
	var category string

	// Walk headings and drug tables in document order so each table
	// picks up the nearest h2 before it.
	doc.Find("h2, " + drugTableSelector).Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) == "h2" {
			category = strings.TrimSpace(sel.Text())
			return
		}

		records = append(records, parseTable(sel, category)...)
	})

	return records, nil
}

func parseTable(table *goquery.Selection, category string) []*model.DrugRecord {
	var records []*model.DrugRecord

	table.Find("tr").Each(func(row int, tr *goquery.Selection) {
		if row == 0 {
			return // header row
		}

		cells := tr.Find("td")
		if cells.Length() < 4 {
			return
		}

		records = append(records, &model.DrugRecord{
			Category:     category,
			Status:       cellText(cells, 0),
			Name:         cellText(cells, 1),
			Code:         cellText(cells, 2),
			Manufacturer: cellText(cells, 3),
		})
	})

	return records
}

func cellText(cells *goquery.Selection, i int) string {
	return strings.TrimSpace(cells.Eq(i).Text())
}
