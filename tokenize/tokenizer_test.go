package tokenize

import (
	"reflect"
	"strings"
	"testing"
)

func termsOf(toks []Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Term
	}
	return out
}

func TestTokenizeBasic(t *testing.T) {
	toks := Tokenize("Rust error_handling, v2!")
	got := termsOf(toks)
	want := []string{"rust", "error_handling", "v2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTokenizeCaseFolding(t *testing.T) {
	a := termsOf(Tokenize("RUST Error"))
	b := termsOf(Tokenize("rust error"))
	if !reflect.DeepEqual(a, b) {
		t.Errorf("case folding mismatch: %v vs %v", a, b)
	}
}

func TestTokenizeOffsetsMatchSource(t *testing.T) {
	text := "foo bar"
	toks := Tokenize(text)
	if len(toks) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(toks))
	}
	if toks[0].Offset != 0 || toks[1].Offset != 4 {
		t.Errorf("unexpected offsets: %+v", toks)
	}
}

func TestTokenizeSymmetricRoundTrip(t *testing.T) {
	text := "rust error handling in async code"
	first := termsOf(Tokenize(text))
	rejoined := strings.Join(first, " ")
	second := termsOf(Tokenize(rejoined))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("round-trip mismatch: %v vs %v", first, second)
	}
}

func TestTokenizeNoStemming(t *testing.T) {
	toks := termsOf(Tokenize("running runs run"))
	want := []string{"running", "runs", "run"}
	if !reflect.DeepEqual(toks, want) {
		t.Errorf("expected no stemming, got %v", toks)
	}
}

func TestTokenizeUnicode(t *testing.T) {
	toks := termsOf(Tokenize("café déjà-vu"))
	want := []string{"café", "déjà", "vu"}
	if !reflect.DeepEqual(toks, want) {
		t.Errorf("got %v, want %v", toks, want)
	}
}
