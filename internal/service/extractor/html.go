package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kapu/game-character-etl/internal/util"
)

// infobox returns the text of the value div of a portable infobox entry.
func infobox(doc *goquery.Document, source string) (string, bool) {
	value := infoboxValue(doc, source)
	if value == nil {
		return "", false
	}
	return util.CleanText(value.Text()), true
}

// infoboxFirstLine returns only the first text line of an infobox value,
// dropping trailing version notes rendered on their own line.
func infoboxFirstLine(doc *goquery.Document, source string) (string, bool) {
	value := infoboxValue(doc, source)
	if value == nil {
		return "", false
	}
	return firstTextLine(value), true
}

func infoboxValue(doc *goquery.Document, source string) *goquery.Selection {
	entry := doc.Find(fmt.Sprintf(`div[data-source=%q]`, source)).First()
	if entry.Length() == 0 {
		return nil
	}
	value := entry.Find("div").First()
	if value.Length() == 0 {
		return nil
	}
	return value
}

func firstTextLine(sel *goquery.Selection) string {
	var line string
	var walk func(*goquery.Selection) bool
	walk = func(s *goquery.Selection) bool {
		found := false
		s.Contents().EachWithBreak(func(_ int, child *goquery.Selection) bool {
			if goquery.NodeName(child) == "#text" {
				for _, part := range strings.Split(child.Text(), "\n") {
					if trimmed := strings.TrimSpace(part); trimmed != "" {
						line = trimmed
						found = true
						return false
					}
				}
				return true
			}
			if walk(child) {
				found = true
				return false
			}
			return true
		})
		return found
	}
	walk(sel)
	return util.CleanText(line)
}

// tableRows returns the data rows of the index-th tbody, header row excluded.
func tableRows(doc *goquery.Document, index int) ([]*goquery.Selection, bool) {
	body := doc.Find("tbody").Eq(index)
	if body.Length() == 0 {
		return nil, false
	}
	rows := make([]*goquery.Selection, 0)
	body.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		rows = append(rows, row)
	})
	return rows, true
}

func cellTexts(row *goquery.Selection) []string {
	cells := make([]string, 0)
	row.Find("td").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, util.CleanText(cell.Text()))
	})
	return cells
}

// cellAt indexes cells, counting from the end when i is negative.
func cellAt(cells []string, i int) string {
	if i < 0 {
		i += len(cells)
	}
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}
