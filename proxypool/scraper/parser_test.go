package scraper

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"freeproxy_pool/proxypool/decoder"
)

const plainDoc = `<html><body>
<table class="table">
<thead><tr><th>IP Address</th><th>Port</th></tr></thead>
<tbody><tr><td>1.2.3.4</td><td>8080</td></tr></tbody>
</table>
</body></html>`

// The cipher script decodes to x=4, y=3.
const obfuscatedDoc = `<html><head>
<script type="text/javascript">eval(function(p,r,o,x,y,s){return p}('a=b^c;d=e^f;',60,60,'x^5^1^y^3^0'.split('^'),0,{}))</script>
</head><body><table>
<tr class="spy1xx"><td>Proxy address:port</td></tr>
<tr class="spy1x"><td colspan=1><font class="spy14">1.2.3.4<script type="text/javascript">document.write("<font class=spy2>:<\/font>"+(x)+(y))</script></font></td><td>HTTPS</td></tr>
<tr class="spy1xx"><td colspan=1><font class="spy14">5.6.7.8<script type="text/javascript">document.write("<font class=spy2>:<\/font>"+(x*1000)+(y^1))</script></font></td></tr>
</table></body></html>`

func TestPlainTableParser_SingleRow(t *testing.T) {
	p := &PlainTableParser{}
	got, err := p.Parse(strings.NewReader(plainDoc))
	if err != nil {
		t.Fatalf("Parse() returned an error: %v", err)
	}
	want := []string{"http://1.2.3.4:8080"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse() = %v, want %v", got, want)
	}
}

func TestPlainTableParser_SkipsIncompleteRows(t *testing.T) {
	doc := `<table>
<tr><th>IP Address</th><th>Port</th></tr>
<tr><td>1.2.3.4</td><td>8080</td><td>US</td></tr>
<tr><td colspan="2">footer</td></tr>
<tr><td></td><td>80</td></tr>
<tr><td>5.6.7.8</td><td>3128</td></tr>
</table>`
	got, err := (&PlainTableParser{Scheme: "socks5"}).Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() returned an error: %v", err)
	}
	want := []string{"socks5://1.2.3.4:8080", "socks5://5.6.7.8:3128"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse() = %v, want %v", got, want)
	}
}

func TestPlainTableParser_NoTable(t *testing.T) {
	_, err := (&PlainTableParser{}).Parse(strings.NewReader("<html><body><p>maintenance</p></body></html>"))
	if !errors.Is(err, ErrUnexpectedMarkup) {
		t.Fatalf("Parse() error = %v, want ErrUnexpectedMarkup", err)
	}
}

func TestObfuscatedTableParser_DecodesPorts(t *testing.T) {
	p := &ObfuscatedTableParser{Decoder: decoder.New(0)}
	got, err := p.Parse(strings.NewReader(obfuscatedDoc))
	if err != nil {
		t.Fatalf("Parse() returned an error: %v", err)
	}
	want := []string{"http://1.2.3.4:7", "http://5.6.7.8:4002"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse() = %v, want %v", got, want)
	}
}

func TestObfuscatedTableParser_MissingScript(t *testing.T) {
	_, err := (&ObfuscatedTableParser{}).Parse(strings.NewReader(plainDoc))
	if !errors.Is(err, ErrUnexpectedMarkup) {
		t.Fatalf("Parse() error = %v, want ErrUnexpectedMarkup", err)
	}
}

func TestObfuscatedTableParser_TooFewLiterals(t *testing.T) {
	doc := `<script type="text/javascript">var a='x';</script><table><tr class="spy1x"><td></td></tr></table>`
	_, err := (&ObfuscatedTableParser{}).Parse(strings.NewReader(doc))
	if !errors.Is(err, ErrUnexpectedMarkup) {
		t.Fatalf("Parse() error = %v, want ErrUnexpectedMarkup", err)
	}
}

func TestObfuscatedTableParser_CipherErrorsPropagate(t *testing.T) {
	doc := strings.Replace(obfuscatedDoc, "'x^5^1^y^3^0'", "'x^5'", 1)
	_, err := (&ObfuscatedTableParser{}).Parse(strings.NewReader(doc))
	if !errors.Is(err, decoder.ErrMalformedCipherInput) {
		t.Fatalf("Parse() error = %v, want ErrMalformedCipherInput", err)
	}
}

func TestObfuscatedTableParser_NoRows(t *testing.T) {
	doc := strings.ReplaceAll(obfuscatedDoc, "spy1x", "renamed")
	_, err := (&ObfuscatedTableParser{}).Parse(strings.NewReader(doc))
	if !errors.Is(err, ErrUnexpectedMarkup) {
		t.Fatalf("Parse() error = %v, want ErrUnexpectedMarkup", err)
	}
}

func TestObfuscatedTableParser_BadRowIsSkipped(t *testing.T) {
	doc := strings.Replace(obfuscatedDoc,
		`<td colspan=1><font class="spy14">5.6.7.8<script`,
		`<td colspan=1><font class="spy14">5.6.7.8</font><script`, 1)
	got, err := (&ObfuscatedTableParser{}).Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() returned an error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"http://1.2.3.4:7"}) {
		t.Errorf("Parse() = %v", got)
	}
}

func TestObfuscatedTableParser_AllRowsBad(t *testing.T) {
	doc := strings.ReplaceAll(obfuscatedDoc, `document.write(`, `dw(`)
	_, err := (&ObfuscatedTableParser{}).Parse(strings.NewReader(doc))
	if !errors.Is(err, ErrUnexpectedMarkup) {
		t.Fatalf("Parse() error = %v, want ErrUnexpectedMarkup", err)
	}
}
