package templates

import (
	"strings"
	"testing"
	"time"
)

func TestRenderEveryTemplate(t *testing.T) {
	data := ToMap(NewEmailData("Ann", "ann@x.com",
		WithAppName("Acme"),
		WithSupportURL("https://help.example.com"),
		WithTime(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)),
	))
	for _, name := range Names {
		t.Run(name, func(t *testing.T) {
			subject, text, html, err := Render(name, data)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if subject == "" || strings.Contains(subject, "\n") {
				t.Fatalf("bad subject %q", subject)
			}
			if !strings.Contains(text, "ann@x.com") || !strings.Contains(html, "ann@x.com") {
				t.Fatal("recipient email missing from body")
			}
			if strings.Contains(text, "<no value>") {
				t.Fatalf("unresolved field in text:\n%s", text)
			}
		})
	}
}

func TestRenderDefaults(t *testing.T) {
	subject, text, _, err := Render(Welcome, map[string]any{"Email": "bo@x.com"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if subject != "Welcome to our service" {
		t.Fatalf("subject = %q", subject)
	}
	if !strings.HasPrefix(text, "Hi there,") {
		t.Fatalf("text = %q", text)
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, _, _, err := Render("nope", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestHTMLEscapes(t *testing.T) {
	_, _, html, err := Render(Welcome, map[string]any{"Name": "<script>", "Email": "a@x.com"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("name not escaped")
	}
}
