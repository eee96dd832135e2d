package sheets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// HTMLSource reads a sheet published to the web as an HTML table. Hyperlinks
// survive publication as anchor tags inside the cells, which is all the
// import parser needs.
type HTMLSource struct {
	url    string
	client *http.Client
}

func NewHTMLSource(url string) *HTMLSource {
	return &HTMLSource{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTMLSource) Rows(ctx context.Context) ([]Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build sheet request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sheet: status %d", resp.StatusCode)
	}
	return parseHTMLGrid(resp.Body)
}

// parseHTMLGrid extracts the first table in the document into rows of
// (text, hyperlink) cells.
func parseHTMLGrid(r io.Reader) ([]Row, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse sheet html: %w", err)
	}

	var rows []Row
	doc.Find("table").First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row Row
		tr.Find("td, th").Each(func(_ int, td *goquery.Selection) {
			cell := Cell{Text: strings.TrimSpace(td.Text())}
			if href, ok := td.Find("a").First().Attr("href"); ok {
				cell.Hyperlink = href
			}
			row = append(row, cell)
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})
	return rows, nil
}
