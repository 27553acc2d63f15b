package validators

import "testing"

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  respuesta.txt  ", 0); got != "respuesta.txt" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if got := SanitizeString("averylongfilename.txt", 8); got != "averylon" {
		t.Fatalf("expected truncation to 8 runes, got %q", got)
	}
	if got := SanitizeString("", 128); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}
