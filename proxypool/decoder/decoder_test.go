package decoder

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

type countingRecorder struct {
	mu     sync.Mutex
	hits   int
	misses int
}

func (r *countingRecorder) RecordCacheHit() {
	r.mu.Lock()
	r.hits++
	r.mu.Unlock()
}

func (r *countingRecorder) RecordCacheMiss() {
	r.mu.Lock()
	r.misses++
	r.mu.Unlock()
}

func TestEvaluate_ChainedAssignments(t *testing.T) {
	table, err := Evaluate("x=1+2;y=x+3")
	if err != nil {
		t.Fatalf("Evaluate() returned an error: %v", err)
	}
	want := CipherTable{"x": 3, "y": 6}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("Evaluate() = %v, want %v", table, want)
	}
}

func TestEvaluate_Operators(t *testing.T) {
	tests := []struct {
		program string
		name    string
		want    int64
	}{
		{"a=2*3+4", "a", 10},
		{"a=2*(3+4)", "a", 14},
		{"a=10-2-3", "a", 5},
		{"a=-4+10", "a", 6},
		{"a=5^3", "a", 6},
		{"a=1+4^2", "a", 7},
		{"k1o5=7;z2=k1o5*2 ; ", "z2", 14},
	}
	for _, tt := range tests {
		table, err := Evaluate(tt.program)
		if err != nil {
			t.Errorf("Evaluate(%q) returned an error: %v", tt.program, err)
			continue
		}
		if table[tt.name] != tt.want {
			t.Errorf("Evaluate(%q)[%s] = %d, want %d", tt.program, tt.name, table[tt.name], tt.want)
		}
	}
}

func TestEvaluate_Errors(t *testing.T) {
	for _, program := range []string{
		"x=y+1",      // unknown identifier
		"x=1+",       // truncated
		"x=(1+2",     // unbalanced
		"x=1 2",      // trailing token
		"x=1/2",      // unsupported operator
		"=3",         // no name
		"justnumber", // no assignment
		"1x=3",       // bad name
	} {
		if _, err := Evaluate(program); !errors.Is(err, ErrEvaluation) {
			t.Errorf("Evaluate(%q) error = %v, want ErrEvaluation", program, err)
		}
	}
}

func TestDecoder_Decode(t *testing.T) {
	d := New(0)
	// a..e -> x,1,2,y,3 gives "x=1+2;y=x+3"
	table, err := d.Decode("x^1^2^y^3", "a=b+c;d=a+e;")
	if err != nil {
		t.Fatalf("Decode() returned an error: %v", err)
	}
	want := CipherTable{"x": 3, "y": 6}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("Decode() = %v, want %v", table, want)
	}
}

func TestDecoder_SubstitutionIsSinglePass(t *testing.T) {
	d := New(0)
	// "a" expands to "b1", which must not be rescanned into "c1".
	table, err := d.Decode("b1^c^5", "a=c")
	if err != nil {
		t.Fatalf("Decode() returned an error: %v", err)
	}
	want := CipherTable{"b1": 5}
	if !reflect.DeepEqual(table, want) {
		t.Errorf("Decode() = %v, want %v", table, want)
	}
}

func TestDecoder_EmptyFragmentsAreSkipped(t *testing.T) {
	table, err := New(0).Decode("^^x^^7^", "a=b")
	if err != nil {
		t.Fatalf("Decode() returned an error: %v", err)
	}
	if table["x"] != 7 {
		t.Errorf("Expected x=7, got %v", table)
	}
}

func TestDecoder_MalformedCipherInput(t *testing.T) {
	_, err := New(0).Decode("x^1", "a=b+c")
	if !errors.Is(err, ErrMalformedCipherInput) {
		t.Fatalf("Decode() error = %v, want ErrMalformedCipherInput", err)
	}
}

func TestDecoder_EvaluationError(t *testing.T) {
	_, err := New(0).Decode("x^q", "a=b")
	if !errors.Is(err, ErrEvaluation) {
		t.Fatalf("Decode() error = %v, want ErrEvaluation", err)
	}
}

func TestDecoder_CacheDeterminism(t *testing.T) {
	d := New(4)
	rec := &countingRecorder{}
	d.SetRecorder(rec)

	first, err := d.Decode("x^1^2^y^3", "a=b+c;d=a+e")
	if err != nil {
		t.Fatalf("Decode() returned an error: %v", err)
	}
	second, err := d.Decode("x^1^2^y^3", "a=b+c;d=a+e")
	if err != nil {
		t.Fatalf("Decode() returned an error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Decode() not deterministic: %v vs %v", first, second)
	}
	if rec.hits != 1 || rec.misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %d hits %d misses", rec.hits, rec.misses)
	}

	// A fresh decoder computes the same table without the cache.
	fresh, err := New(1).Decode("x^1^2^y^3", "a=b+c;d=a+e")
	if err != nil {
		t.Fatalf("Decode() returned an error: %v", err)
	}
	if !reflect.DeepEqual(first, fresh) {
		t.Errorf("Cached table %v differs from fresh %v", first, fresh)
	}
}

func TestDecoder_CacheIsBounded(t *testing.T) {
	d := New(2)
	for _, v := range []string{"x^1", "x^2", "x^3"} {
		if _, err := d.Decode(v, "a=b"); err != nil {
			t.Fatalf("Decode(%q) returned an error: %v", v, err)
		}
	}
	if n := d.cache.len(); n != 2 {
		t.Errorf("Expected cache to hold 2 entries, got %d", n)
	}
	if _, ok := d.cache.get(cacheKey{vars: "x^1", formula: "a=b"}); ok {
		t.Error("Expected oldest entry to be evicted")
	}
}

func TestDecoder_ConcurrentUse(t *testing.T) {
	d := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table, err := d.Decode("x^1^2^y^3", "a=b+c;d=a+e")
			if err != nil || table["y"] != 6 {
				t.Errorf("Decode() = %v, %v", table, err)
			}
		}()
	}
	wg.Wait()
}

func TestDecodePort(t *testing.T) {
	table := CipherTable{"x": 3, "y": 6}
	port, err := DecodePort("x+y", table)
	if err != nil {
		t.Fatalf("DecodePort() returned an error: %v", err)
	}
	if port != "9" {
		t.Errorf("DecodePort() = %q, want \"9\"", port)
	}
}

func TestDecodePort_LongestKeyFirst(t *testing.T) {
	table := CipherTable{"a": 1, "ab": 100}
	port, err := DecodePort("(ab)+(a^0)", table)
	if err != nil {
		t.Fatalf("DecodePort() returned an error: %v", err)
	}
	if port != "101" {
		t.Errorf("DecodePort() = %q, want \"101\"", port)
	}
}

func TestDecodePort_InvariantToTableInstance(t *testing.T) {
	a := CipherTable{"x": 3, "y": 6, "z1": 8080}
	b := CipherTable{}
	for k, v := range a {
		b[k] = v
	}
	pa, errA := DecodePort("(z1)+(x^y)", a)
	pb, errB := DecodePort("(z1)+(x^y)", b)
	if errA != nil || errB != nil {
		t.Fatalf("DecodePort() errors: %v, %v", errA, errB)
	}
	if pa != pb {
		t.Errorf("DecodePort() differs between equal tables: %q vs %q", pa, pb)
	}
}

func TestDecodePort_Errors(t *testing.T) {
	table := CipherTable{"x": 3}
	for _, encoded := range []string{"x+q", "x+", "(x", ""} {
		if _, err := DecodePort(encoded, table); !errors.Is(err, ErrEvaluation) {
			t.Errorf("DecodePort(%q) error = %v, want ErrEvaluation", encoded, err)
		}
	}
}
