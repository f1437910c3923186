package payloadschema

import (
	"encoding/json"
	"testing"
)

func validPayload() string {
	return `{
		"source": "BBC",
		"title": "Storm hits coastline",
		"link": "https://example.com/storm",
		"published": "2026-08-20T14:30:00Z",
		"summary": "Heavy winds reported."
	}`
}

func TestValidateRawItemAccepted(t *testing.T) {
	t.Parallel()

	item, err := ValidateRawItem(json.RawMessage(validPayload()))
	if err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
	if item.Source != "BBC" || item.Title != "Storm hits coastline" {
		t.Fatalf("unexpected decoded item: %+v", item)
	}

	converted, err := item.ToNewsItem()
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if converted.Published.IsZero() {
		t.Fatalf("published not parsed")
	}
}

func TestValidateRawItemNullableLocation(t *testing.T) {
	t.Parallel()

	payload := `{
		"source": "BBC",
		"title": "Storm hits coastline",
		"link": "https://example.com/storm",
		"published": "2026-08-20T14:30:00Z",
		"summary": "Heavy winds reported.",
		"location": null
	}`
	item, err := ValidateRawItem(json.RawMessage(payload))
	if err != nil {
		t.Fatalf("null location rejected: %v", err)
	}
	if item.Location != nil {
		t.Fatalf("expected nil location, got %v", *item.Location)
	}
}

func TestValidateRawItemRejections(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing required field": `{
			"source": "BBC",
			"title": "Storm",
			"link": "https://example.com/storm",
			"summary": "s"
		}`,
		"unknown field": `{
			"source": "BBC",
			"title": "Storm",
			"link": "https://example.com/storm",
			"published": "2026-08-20T14:30:00Z",
			"summary": "s",
			"extra": true
		}`,
		"blank source": `{
			"source": "   ",
			"title": "Storm",
			"link": "https://example.com/storm",
			"published": "2026-08-20T14:30:00Z",
			"summary": "s"
		}`,
		"relative link": `{
			"source": "BBC",
			"title": "Storm",
			"link": "/storm",
			"published": "2026-08-20T14:30:00Z",
			"summary": "s"
		}`,
		"bad timestamp": `{
			"source": "BBC",
			"title": "Storm",
			"link": "https://example.com/storm",
			"published": "yesterday",
			"summary": "s"
		}`,
		"wrong type":       `{"source": 1}`,
		"not an object":    `"just a string"`,
		"empty payload":    ``,
		"trailing content": `{} {}`,
	}

	for name, payload := range cases {
		if _, err := ValidateRawItem(json.RawMessage(payload)); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}
