package stats

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/alan-saberi/lotomax-canada/internal/lotto"
)

const (
	frequencyTableSelector = `table[style="background:#dFdAbD;width:600px;margin-left:auto;margin-right:auto"]`
	groupRowSelector       = `tr[style="text-align:center;background:#FFFADD"]`

	// frequencyHeaderRows precede the number rows of the frequency table.
	frequencyHeaderRows = 2
)

var frequencyCellPattern = regexp.MustCompile(`^(\d+)\s+(\d+)`)

// ParseFrequencyTable reads the per-number draw counts from the frequency
// statistics page.
func ParseFrequencyTable(r io.Reader) (lotto.FrequencyTable, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse frequency page: %w", err)
	}

	table := doc.Find(frequencyTableSelector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("frequency table not found")
	}

	freq := make(lotto.FrequencyTable, lotto.MaxNumber)
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i < frequencyHeaderRows {
			return
		}
		number, count, ok := parseFrequencyRow(row.Find("td"))
		if !ok || number < lotto.MinNumber || number > lotto.MaxNumber {
			return
		}
		freq[number] = count
	})

	if len(freq) == 0 {
		return nil, fmt.Errorf("frequency table has no rows")
	}
	return freq, nil
}

// parseFrequencyRow accepts both "<number> <count>" in the first cell and the
// number and count in two separate cells.
func parseFrequencyRow(cells *goquery.Selection) (int, int, bool) {
	if cells.Length() == 0 {
		return 0, 0, false
	}
	first := strings.TrimSpace(cells.First().Text())
	if m := frequencyCellPattern.FindStringSubmatch(first); m != nil {
		number, _ := strconv.Atoi(m[1])
		count, _ := strconv.Atoi(m[2])
		return number, count, true
	}
	if cells.Length() < 2 {
		return 0, 0, false
	}
	number, err := strconv.Atoi(first)
	if err != nil {
		return 0, 0, false
	}
	count, err := strconv.Atoi(strings.TrimSpace(cells.Eq(1).Text()))
	if err != nil {
		return 0, 0, false
	}
	return number, count, true
}

// ParseGroupPool reads the common groups of one statistics page. Rows that
// do not yield exactly size numbers are reported in skipped and left out.
func ParseGroupPool(r io.Reader, size int) (pool lotto.GroupPool, skipped []string, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse group page: %w", err)
	}

	doc.Find(groupRowSelector).Each(func(i int, row *goquery.Selection) {
		numbers, err := parseGroupNumbers(row.Find("table.results").First())
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("row %d: %v", i, err))
			return
		}
		if len(numbers) != size {
			skipped = append(skipped, fmt.Sprintf("row %d: got %d numbers, want %d", i, len(numbers), size))
			return
		}

		group := lotto.Group{Numbers: numbers}
		if f := strings.TrimSpace(row.Find("td.f20").First().Text()); f != "" {
			if n, err := strconv.Atoi(strings.ReplaceAll(f, ",", "")); err == nil {
				group.Frequency = n
			}
		}
		pool = append(pool, group)
	})

	return pool, skipped, nil
}

func parseGroupNumbers(table *goquery.Selection) ([]int, error) {
	if table.Length() == 0 {
		return nil, fmt.Errorf("results table not found")
	}
	var (
		numbers []int
		err     error
	)
	table.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		text := ownText(cell)
		if text == "" {
			return true
		}
		var n int
		if n, err = strconv.Atoi(text); err != nil {
			err = fmt.Errorf("cell %q is not a number", text)
			return false
		}
		numbers = append(numbers, n)
		return true
	})
	return numbers, err
}

// ownText joins the text nodes directly under s, ignoring nested elements.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, node *goquery.Selection) {
		if goquery.NodeName(node) == "#text" {
			b.WriteString(node.Text())
		}
	})
	return strings.TrimSpace(b.String())
}
