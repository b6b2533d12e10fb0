package feed

import (
	"errors"
	"testing"
)

const testJSONFeed = `{
  "version": "https://jsonfeed.org/version/1.1",
  "title": "Test Feed",
  "language": "fr",
  "items": [
    {
      "id": "1",
      "url": "https://example.com/notes/1",
      "title": "First note",
      "content_text": "Hello @world",
      "date_published": "2023-07-03T10:00:00Z",
      "tags": ["go", "posse"],
      "attachments": [
        {"url": "https://example.com/a.jpg", "mime_type": "image/jpeg", "_alt_text": "A cat", "_width": 800},
        {"url": "https://example.com/a.mp3", "mime_type": "audio/mpeg"}
      ]
    },
    {
      "id": "2",
      "title": "No url"
    },
    {
      "id": "3",
      "url": "https://example.com/notes/3",
      "content_html": "<p>Third</p>",
      "language": "de"
    }
  ]
}`

func TestParseJSONFeed(t *testing.T) {
	parser := NewParser()
	parsed, err := parser.Run([]byte(testJSONFeed))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if parsed.Title != "Test Feed" {
		t.Errorf("Expected title 'Test Feed', got: %s", parsed.Title)
	}
	if parsed.Language != "fr" {
		t.Errorf("Expected language 'fr', got: %s", parsed.Language)
	}

	// Item without url is skipped
	if len(parsed.Items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(parsed.Items))
	}

	item := parsed.Items[0]
	if item.URL != "https://example.com/notes/1" {
		t.Errorf("Expected url 'https://example.com/notes/1', got: %s", item.URL)
	}
	if item.ContentText != "Hello @world" {
		t.Errorf("Expected content text 'Hello @world', got: %s", item.ContentText)
	}
	if len(item.Attachments) != 2 {
		t.Fatalf("Expected 2 attachments, got: %d", len(item.Attachments))
	}
	if item.Attachments[0].AltText != "A cat" {
		t.Errorf("Expected alt text 'A cat', got: %s", item.Attachments[0].AltText)
	}
	if len(item.ImageAttachments()) != 1 {
		t.Errorf("Expected 1 image attachment, got: %d", len(item.ImageAttachments()))
	}

	if parsed.Items[1].Language != "de" {
		t.Errorf("Expected item language 'de', got: %s", parsed.Items[1].Language)
	}
}

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <language>en-us</language>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <description>Test Item 1 Description</description>
      <guid>item-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <enclosure url="https://example.com/photo.png" length="1234" type="image/png" />
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
      <description>Test Item 2 Description</description>
      <guid>item-2</guid>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	parsed, err := parser.Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if parsed.Language != "en-us" {
		t.Errorf("Expected language 'en-us', got: %s", parsed.Language)
	}
	if len(parsed.Items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(parsed.Items))
	}

	item1 := parsed.Items[0]
	if item1.URL != "https://example.com/item1" {
		t.Errorf("Expected url 'https://example.com/item1', got: %s", item1.URL)
	}
	if item1.ID != "item-1" {
		t.Errorf("Expected id 'item-1', got: %s", item1.ID)
	}
	if item1.ContentHTML != "Test Item 1 Description" {
		t.Errorf("Expected description as html content, got: %s", item1.ContentHTML)
	}
	if item1.DatePublished != "2023-07-03T10:00:00Z" {
		t.Errorf("Expected normalized date '2023-07-03T10:00:00Z', got: %s", item1.DatePublished)
	}
	if item1.Language != "en-us" {
		t.Errorf("Expected item language from channel, got: %s", item1.Language)
	}
	if len(item1.Attachments) != 1 {
		t.Fatalf("Expected 1 attachment, got: %d", len(item1.Attachments))
	}
	if item1.Attachments[0].SizeInBytes != 1234 {
		t.Errorf("Expected size 1234, got: %d", item1.Attachments[0].SizeInBytes)
	}
	if !item1.Attachments[0].IsImage() {
		t.Error("Expected enclosure to be an image")
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <id>urn:uuid:feed</id>
  <updated>2023-07-03T12:00:00Z</updated>
  <entry>
    <title>Atom Entry</title>
    <link href="https://example.com/atom1"/>
    <id>urn:uuid:entry-1</id>
    <updated>2023-07-03T12:00:00Z</updated>
    <published>2023-07-02T12:00:00Z</published>
    <content type="html">&lt;p&gt;Body&lt;/p&gt;</content>
  </entry>
</feed>`

	parser := NewParser()
	parsed, err := parser.Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(parsed.Items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(parsed.Items))
	}
	if parsed.Items[0].URL != "https://example.com/atom1" {
		t.Errorf("Expected url 'https://example.com/atom1', got: %s", parsed.Items[0].URL)
	}
	if parsed.Items[0].DatePublished != "2023-07-02T12:00:00Z" {
		t.Errorf("Expected published date, got: %s", parsed.Items[0].DatePublished)
	}
}

func TestParseUnknownFeed(t *testing.T) {
	parser := NewParser()

	_, err := parser.Run([]byte("this is not a feed"))
	if !errors.Is(err, ErrUnknownFeedType) {
		t.Errorf("Expected ErrUnknownFeedType, got: %v", err)
	}
}

func TestParseInvalidJSON(t *testing.T) {
	parser := NewParser()

	_, err := parser.Run([]byte(`{"items": [`))
	if err == nil {
		t.Error("Expected error for truncated JSON feed")
	}
}

func TestParseJSONFeedNumericFields(t *testing.T) {
	parser := NewParser()

	parsed, err := parser.Run([]byte(`{
  "items": [
    {
      "id": 42,
      "url": "https://blog.example/a",
      "attachments": [{"url": "https://blog.example/a.png", "mime_type": "image/png", "size_in_bytes": 1234.0}]
    },
    {"id": "b", "url": "https://blog.example/b"}
  ]
}`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(parsed.Items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(parsed.Items))
	}
	if parsed.Items[0].ID != "42" {
		t.Errorf("Expected id '42', got: %s", parsed.Items[0].ID)
	}
	if parsed.Items[0].Attachments[0].SizeInBytes != 1234 {
		t.Errorf("Expected size 1234, got: %d", parsed.Items[0].Attachments[0].SizeInBytes)
	}
	if parsed.Items[1].ID != "b" {
		t.Errorf("Expected id 'b', got: %s", parsed.Items[1].ID)
	}
}
