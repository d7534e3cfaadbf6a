package decoder

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrMalformedCipherInput 表示公式引用了比变量片段更多的占位符。
	ErrMalformedCipherInput = errors.New("malformed cipher input")
	// ErrEvaluation 表示算术表达式无法求值。
	ErrEvaluation = errors.New("evaluation error")
)

const (
	// 变量片段之间的分隔符
	varsDelimiter = "^"
	// DefaultCacheSize 是 Decoder 默认缓存的 cipher table 数量。
	DefaultCacheSize = 64
)

// placeholders 是公式中占位符字母的固定枚举顺序：a-z 然后 A-Z。
var placeholders = func() []string {
	letters := make([]string, 0, 52)
	for c := 'a'; c <= 'z'; c++ {
		letters = append(letters, string(c))
	}
	for c := 'A'; c <= 'Z'; c++ {
		letters = append(letters, string(c))
	}
	return letters
}()

var placeholderRe = regexp.MustCompile(`[a-zA-Z]`)

// CipherTable maps a decoded variable name to its integer value.
type CipherTable map[string]int64

// CacheRecorder receives cache hit/miss notifications. *metrics.Collector
// satisfies it.
type CacheRecorder interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// Decoder reverses the variable-substitution + arithmetic obfuscation used to
// hide port numbers. It is safe for concurrent use.
type Decoder struct {
	cache    *tableCache
	recorder CacheRecorder
}

// New creates a Decoder whose cache holds at most size tables.
// A size <= 0 uses DefaultCacheSize.
func New(size int) *Decoder {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Decoder{cache: newTableCache(size)}
}

// SetRecorder attaches a cache metrics recorder.
func (d *Decoder) SetRecorder(r CacheRecorder) {
	d.recorder = r
}

// Decode builds the cipher table for one (rawVars, rawFormula) pair. Results
// are cached by the literal pair; callers must not mutate the returned table.
func (d *Decoder) Decode(rawVars, rawFormula string) (CipherTable, error) {
	key := cacheKey{vars: rawVars, formula: rawFormula}
	if table, ok := d.cache.get(key); ok {
		if d.recorder != nil {
			d.recorder.RecordCacheHit()
		}
		return table, nil
	}
	if d.recorder != nil {
		d.recorder.RecordCacheMiss()
	}

	table, err := decipher(rawVars, rawFormula)
	if err != nil {
		return nil, err
	}
	d.cache.put(key, table)
	return table, nil
}

// decipher substitutes placeholders with their fragments in one pass and
// evaluates the resulting assignment program.
func decipher(rawVars, rawFormula string) (CipherTable, error) {
	fragments := make(map[string]string, len(placeholders))
	i := 0
	for _, v := range strings.Split(rawVars, varsDelimiter) {
		if v == "" {
			continue
		}
		if i >= len(placeholders) {
			break
		}
		fragments[placeholders[i]] = v
		i++
	}

	var missing string
	formula := placeholderRe.ReplaceAllStringFunc(strings.Trim(rawFormula, ";"), func(letter string) string {
		frag, ok := fragments[letter]
		if !ok {
			if missing == "" {
				missing = letter
			}
			return letter
		}
		return frag
	})
	if missing != "" {
		return nil, fmt.Errorf("%w: placeholder %q has no fragment (%d fragments)", ErrMalformedCipherInput, missing, len(fragments))
	}

	return Evaluate(formula)
}

// DecodePort replaces every table key in encoded (longest keys first), splits
// the result on '+' and returns the decimal sum of the evaluated parts.
func DecodePort(encoded string, table CipherTable) (string, error) {
	substituted := encoded
	if len(table) > 0 {
		keys := make([]string, 0, len(table))
		for k := range table {
			keys = append(keys, regexp.QuoteMeta(k))
		}
		sort.Slice(keys, func(i, j int) bool {
			if len(keys[i]) != len(keys[j]) {
				return len(keys[i]) > len(keys[j])
			}
			return keys[i] < keys[j]
		})
		re, err := regexp.Compile(strings.Join(keys, "|"))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrEvaluation, err)
		}
		substituted = re.ReplaceAllStringFunc(encoded, func(k string) string {
			return strconv.FormatInt(table[k], 10)
		})
	}

	var port int64
	for _, part := range strings.Split(substituted, "+") {
		if strings.TrimSpace(part) == "" {
			return "", fmt.Errorf("%w: empty segment in %q", ErrEvaluation, encoded)
		}
		v, err := evalExpr(part, nil)
		if err != nil {
			return "", fmt.Errorf("decoding port %q: %w", encoded, err)
		}
		port += v
	}
	return strconv.FormatInt(port, 10), nil
}
