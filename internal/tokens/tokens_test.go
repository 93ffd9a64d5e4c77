// internal/tokens/tokens_test.go
package tokens

import "testing"

func TestCount(t *testing.T) {
	est, err := New("gpt-4")
	if err != nil {
		t.Fatal(err)
	}
	if got := est.Count(""); got != 0 {
		t.Errorf("empty string: expected 0 tokens, got %d", got)
	}
	if got := est.Count("hello world"); got == 0 {
		t.Error("expected non-zero token count")
	}
	a := est.Count("short")
	b := est.Count("a considerably longer sentence with many more words in it")
	if b <= a {
		t.Errorf("longer text should count more tokens: %d vs %d", a, b)
	}
}

func TestUnknownModelFallsBack(t *testing.T) {
	est, err := New("claude-sonnet-4-20250514")
	if err != nil {
		t.Fatalf("expected cl100k_base fallback, got error: %v", err)
	}
	if est.Count("hello") == 0 {
		t.Error("fallback encoding should still count tokens")
	}
}
