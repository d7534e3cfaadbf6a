package model

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"http://1.2.3.4:8080", "http://1.2.3.4:8080"},
		{"1.2.3.4:3128", "http://1.2.3.4:3128"},
		{" HTTP://Proxy.Example.COM:80 ", "http://proxy.example.com:80"},
		{"socks5://10.0.0.1:1080", "socks5://10.0.0.1:1080"},
		{"http://[::1]:8080", "http://[::1]:8080"},
	}
	for _, tt := range tests {
		ep, err := ParseEndpoint(tt.raw)
		if err != nil {
			t.Errorf("ParseEndpoint(%q) returned an error: %v", tt.raw, err)
			continue
		}
		if ep.String() != tt.want {
			t.Errorf("ParseEndpoint(%q) = %q, want %q", tt.raw, ep.String(), tt.want)
		}
	}
}

func TestParseEndpoint_Invalid(t *testing.T) {
	for _, raw := range []string{"", "ftp://1.2.3.4:21", "http://1.2.3.4", "http://1.2.3.4:0", "http://1.2.3.4:70000", "http://:80", "http://1.2.3.4:abc"} {
		if _, err := ParseEndpoint(raw); !errors.Is(err, ErrInvalidEndpoint) {
			t.Errorf("ParseEndpoint(%q) error = %v, want ErrInvalidEndpoint", raw, err)
		}
	}
}

func TestEndpoint_EqualityByNormalizedForm(t *testing.T) {
	a, _ := ParseEndpoint("http://1.2.3.4:8080")
	b, _ := ParseEndpoint("1.2.3.4:8080")
	if a != b {
		t.Errorf("Expected %v and %v to be equal", a, b)
	}
	set := map[Endpoint]struct{}{a: {}, b: {}}
	if len(set) != 1 {
		t.Errorf("Expected one map entry, got %d", len(set))
	}
	if a.URL().String() != "http://1.2.3.4:8080" {
		t.Errorf("Unexpected URL: %s", a.URL())
	}
}

func TestStatus_String(t *testing.T) {
	if StatusWorking.String() != "working" || StatusBroken.String() != "broken" || StatusTimedOut.String() != "timed_out" {
		t.Error("Unexpected status names")
	}
	if !(ValidationOutcome{Status: StatusWorking}).Working() {
		t.Error("Expected Working() to be true")
	}
}

func TestInterleave(t *testing.T) {
	spys := CandidateBatch{Source: "spys", Priority: 0, Candidates: []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7"}}
	ssl := CandidateBatch{Source: "ssl", Priority: 1, Candidates: []string{"p1", "p2", "p3", "p4", "p5", "p6"}}

	// Input order must not matter; priority decides.
	got := Interleave([]CandidateBatch{ssl, spys}, 5)
	want := []string{
		"s1", "s2", "s3", "s4", "s5",
		"p1", "p2", "p3", "p4", "p5",
		"s6", "s7",
		"p6",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Interleave() = %v, want %v", got, want)
	}
}

func TestInterleave_ShortBatches(t *testing.T) {
	a := CandidateBatch{Candidates: []string{"a1"}}
	b := CandidateBatch{Priority: 1}
	got := Interleave([]CandidateBatch{a, b}, 5)
	if !reflect.DeepEqual(got, []string{"a1"}) {
		t.Errorf("Interleave() = %v", got)
	}
}
