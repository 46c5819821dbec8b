package xmlsrc

import "testing"

func TestParseIncludeDirectivesExtractsNonEmptyPaths(t *testing.T) {
	t.Parallel()
	source := `
<!-- include: a.script.xml -->
<!-- include:   nested/b.script.xml   -->
<!-- include:    -->
<script name="main"></script>
`
	got := ParseIncludeDirectives(source)
	want := []string{"a.script.xml", "nested/b.script.xml"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestParseDocumentBuildsTreeWithAttributesAndText(t *testing.T) {
	t.Parallel()
	source := `<script name="main"><text id="t1">Hello</text></script>`
	doc, err := ParseDocument(source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Root.Name != "script" {
		t.Fatalf("root name = %q, want script", doc.Root.Name)
	}
	if doc.Root.Attributes["name"] != "main" {
		t.Fatalf("root name attr = %q, want main", doc.Root.Attributes["name"])
	}
	children := Elements(doc.Root)
	if len(children) != 1 || children[0].Name != "text" {
		t.Fatalf("expected one <text> child, got %#v", children)
	}
	if children[0].Attributes["id"] != "t1" {
		t.Fatalf("text id attr = %q, want t1", children[0].Attributes["id"])
	}
	if InlineTextContent(children[0]) != "Hello" {
		t.Fatalf("inline text = %q, want Hello", InlineTextContent(children[0]))
	}
}

func TestParseDocumentDropsWhitespaceOnlyText(t *testing.T) {
	t.Parallel()
	source := "<script name=\"main\">\n  <text>Hi</text>\n</script>"
	doc, err := ParseDocument(source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Root.Children) != 1 {
		t.Fatalf("expected whitespace-only text to be dropped, got %d children", len(doc.Root.Children))
	}
}

func TestParseDocumentMissingRootFails(t *testing.T) {
	t.Parallel()
	_, err := ParseDocument("   ")
	if err == nil {
		t.Fatal("expected an error for a document with no root element")
	}
}

func TestSplitByTopLevelComma(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"simple", "a, b, c", []string{"a", "b", "c"}},
		{"nested parens ignored", "foo(a, b), c", []string{"foo(a, b)", "c"}},
		{"quoted comma ignored", `"a, b", c`, []string{`"a, b"`, "c"}},
		{"empty input", "", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitByTopLevelComma(tc.raw)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestParseBoolAttr(t *testing.T) {
	t.Parallel()
	el := &Element{Name: "option", Attributes: map[string]string{"once": "true", "bad": "nope"}}

	got, err := ParseBoolAttr(el, "once", false)
	if err != nil || !got {
		t.Fatalf("ParseBoolAttr(once) = %v, %v", got, err)
	}

	got, err = ParseBoolAttr(el, "missing", true)
	if err != nil || !got {
		t.Fatalf("ParseBoolAttr(missing) = %v, %v, want default true", got, err)
	}

	if _, err := ParseBoolAttr(el, "bad", false); err == nil {
		t.Fatal("expected XML_ATTR_BOOL_INVALID")
	}
}
