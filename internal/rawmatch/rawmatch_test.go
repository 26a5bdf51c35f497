package rawmatch

import "testing"

func TestMatchStringBasic(t *testing.T) {
	m, err := Compile("wor.d", Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	ok, err := m.MatchString("hello world")
	if err != nil {
		t.Fatalf("MatchString: %v", err)
	}
	if !ok {
		t.Fatal("expected a match")
	}
}

func TestFindSpansMultipleLines(t *testing.T) {
	m, err := Compile("foo", Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	content := "foo bar\nbaz foo\nnothing here\nfoo foo"
	spans, err := m.FindSpans(content)
	if err != nil {
		t.Fatalf("FindSpans: %v", err)
	}
	if len(spans) != 4 {
		t.Fatalf("expected 4 spans, got %d: %+v", len(spans), spans)
	}
	if spans[0].Line != 0 || spans[0].Col != 0 {
		t.Fatalf("unexpected first span: %+v", spans[0])
	}
	if spans[1].Line != 1 || spans[1].Col != 4 {
		t.Fatalf("unexpected second span: %+v", spans[1])
	}
	if spans[3].Line != 3 || spans[3].Col != 4 {
		t.Fatalf("unexpected fourth span: %+v", spans[3])
	}
}

func TestBackreferenceSupported(t *testing.T) {
	m, err := Compile(`(\w+) \1`, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	ok, err := m.MatchString("hello hello world")
	if err != nil {
		t.Fatalf("MatchString: %v", err)
	}
	if !ok {
		t.Fatal("expected the backreference pattern to match a repeated word")
	}
}

func TestIgnoreCaseOption(t *testing.T) {
	m, err := Compile("HELLO", Options{IgnoreCase: true})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	ok, err := m.MatchString("say hello there")
	if err != nil {
		t.Fatalf("MatchString: %v", err)
	}
	if !ok {
		t.Fatal("expected a case-insensitive match")
	}
}
