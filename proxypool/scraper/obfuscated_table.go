package scraper

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"freeproxy_pool/internal/shared/logger"
	"freeproxy_pool/proxypool/decoder"

	"github.com/PuerkitoBio/goquery"
)

const (
	// encodedPortOffset 是端口脚本中 `document.write("<font class=spy2>:<\/font>"+` 的长度。
	encodedPortOffset = 44
	rowSelector       = "tr.spy1xx, tr.spy1x"
)

var quotedLiteralRe = regexp.MustCompile(`'(.*?)'`)

// ObfuscatedTableParser 解析 spys.one 风格的页面：端口号被编码为一段
// 引用脚本变量的算术表达式，需要先用 Decoder 还原变量表。
type ObfuscatedTableParser struct {
	Scheme  string
	Decoder *decoder.Decoder
}

// Parse decodes the cipher script and every data row. Document-level drift
// fails the whole source; a single undecodable row is skipped.
func (p *ObfuscatedTableParser) Parse(r io.Reader) ([]string, error) {
	l := logger.WithComponent("ProxyPool/Scraper")

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse HTML: %v", ErrUnexpectedMarkup, err)
	}

	script := doc.Find(`script[type="text/javascript"]`).First()
	if script.Length() == 0 {
		return nil, fmt.Errorf("%w: cipher script not found", ErrUnexpectedMarkup)
	}
	literals := quotedLiteralRe.FindAllStringSubmatch(script.Text(), -1)
	if len(literals) < 3 {
		return nil, fmt.Errorf("%w: cipher script has %d quoted literals, need 3", ErrUnexpectedMarkup, len(literals))
	}
	rawFormula := literals[len(literals)-3][1]
	rawVars := literals[len(literals)-2][1]

	dec := p.Decoder
	if dec == nil {
		dec = decoder.New(0)
	}
	table, err := dec.Decode(rawVars, rawFormula)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cipher table: %w", err)
	}

	rows := doc.Find(rowSelector)
	if rows.Length() == 0 {
		return nil, fmt.Errorf("%w: no rows match %q", ErrUnexpectedMarkup, rowSelector)
	}

	scheme := p.Scheme
	if scheme == "" {
		scheme = "http"
	}

	var proxies []string
	var failed int
	rows.Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header
		}
		ip, port, err := decodeRow(row, table)
		if err != nil {
			failed++
			l.Warn().Err(err).Int("row", i).Msg("Failed to decode row, skipping.")
			return
		}
		proxies = append(proxies, fmt.Sprintf("%s://%s:%s", scheme, ip, port))
	})

	if len(proxies) == 0 && failed > 0 {
		return nil, fmt.Errorf("%w: all %d rows failed to decode", ErrUnexpectedMarkup, failed)
	}
	return proxies, nil
}

// decodeRow reads `<td><font>IP<script>document.write(...+ENCODED)</script></font></td>`.
func decodeRow(row *goquery.Selection, table decoder.CipherTable) (string, string, error) {
	holder := row.Children().First().Children().First()
	if holder.Length() == 0 {
		return "", "", fmt.Errorf("%w: row has no address element", ErrUnexpectedMarkup)
	}
	contents := holder.Contents()
	if contents.Length() < 2 {
		return "", "", fmt.Errorf("%w: address element has %d children, need 2", ErrUnexpectedMarkup, contents.Length())
	}

	ip := strings.TrimSpace(contents.First().Text())
	if ip == "" {
		return "", "", fmt.Errorf("%w: empty ip", ErrUnexpectedMarkup)
	}

	portScript := []rune(contents.Eq(1).Text())
	if len(portScript) <= encodedPortOffset {
		return "", "", fmt.Errorf("%w: port script too short (%d chars)", ErrUnexpectedMarkup, len(portScript))
	}
	encoded := string(portScript[encodedPortOffset : len(portScript)-1])

	port, err := decoder.DecodePort(encoded, table)
	if err != nil {
		return "", "", err
	}
	return ip, port, nil
}
