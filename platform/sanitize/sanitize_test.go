package sanitize

import "testing"

func TestTextStripsMarkupAndKeepsLines(t *testing.T) {
	in := "<b>Called</b>   back\n\n  asked for  &lt;script&gt;quote&lt;/script&gt; "
	want := "Called back\n\nasked for quote"
	if got := Text(in); got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}
}

func TestLineCollapsesWhitespace(t *testing.T) {
	if got := Line("  Jan \n de   <i>Vries</i> "); got != "Jan de Vries" {
		t.Fatalf("Line() = %q", got)
	}
	if LinePtr(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
}
