package analyzer

import "testing"

func TestExtractText(t *testing.T) {
	body := []byte(`<!doctype html>
<html>
<head><title>  Otters
 of the river </title><style>p { color: red }</style></head>
<body>
  <script>track("visit")</script>
  <h1>River otters</h1>
  <p>They   hunt at <b>dusk</b>.</p><p>They sleep in holts.</p>
  <noscript>enable javascript</noscript>
  <ul><li>fish</li><li>frogs</li></ul>
</body>
</html>`)

	doc, err := ExtractText(body)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}

	if doc.Title != "Otters of the river" {
		t.Errorf("unexpected title %q", doc.Title)
	}

	want := "River otters\nThey hunt at dusk.\nThey sleep in holts.\nfish\nfrogs"
	if doc.Text != want {
		t.Errorf("unexpected text:\n%q\nwant:\n%q", doc.Text, want)
	}
}

func TestExtractTextPlain(t *testing.T) {
	doc, err := ExtractText([]byte("just some text"))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if doc.Text != "just some text" || doc.Title != "" {
		t.Errorf("unexpected document %+v", doc)
	}
}
