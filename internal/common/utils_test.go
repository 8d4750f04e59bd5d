package common

import (
	"reflect"
	"testing"
)

func TestNormalizeTerm(t *testing.T) {
	if got := NormalizeTerm("  Sydney NSW \t"); got != "sydney nsw" {
		t.Fatalf("unexpected normalized term %q", got)
	}
}

func TestQueryWords(t *testing.T) {
	got := QueryWords(" Perth, Western  Australia ")
	want := []string{"perth", "western", "australia"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if words := QueryWords("   "); len(words) != 0 {
		t.Fatalf("expected no words, got %v", words)
	}
}

func TestRoundCoordinate(t *testing.T) {
	if got := RoundCoordinate(-32.5269123); got != -32.52691 {
		t.Fatalf("got %v", got)
	}
	if got := RoundCoordinate(115.722159); got != 115.72216 {
		t.Fatalf("got %v", got)
	}
}

func TestHasAny(t *testing.T) {
	if !HasAny("host=db dbname=weather", "dbname=") {
		t.Fatalf("expected match")
	}
	if HasAny("weather.db", "host=", "dbname=") {
		t.Fatalf("expected no match")
	}
}
