package scraper

import (
	"fmt"
	"io"
	"strings"

	"freeproxy_pool/internal/shared/logger"

	"github.com/PuerkitoBio/goquery"
)

// PlainTableParser 解析页面中第一个 (ip, port) 表格，例如 free-proxy-list.net。
type PlainTableParser struct {
	Scheme string
}

// Parse skips the header row and turns every remaining row into
// "scheme://col0:col1".
func (p *PlainTableParser) Parse(r io.Reader) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Scraper")

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse HTML: %v", ErrUnexpectedMarkup, err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: no table found", ErrUnexpectedMarkup)
	}

	scheme := p.Scheme
	if scheme == "" {
		scheme = "http"
	}

	var proxies []string
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header
		}
		cells := row.Children().Filter("td, th")
		if cells.Length() < 2 {
			return
		}
		ip := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		if ip == "" || port == "" {
			l.Debug().Int("row", i).Msg("Skipping row with empty ip/port.")
			return
		}
		proxies = append(proxies, fmt.Sprintf("%s://%s:%s", scheme, ip, port))
	})

	return proxies, nil
}
