package feed

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"
)

var ErrUnknownFeedType = errors.New("unknown feed type")

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Feed, error) {
	var (
		feed *Feed
		err  error
	)

	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeJSON:
		feed, err = p.parseJSON(data)
	case gofeed.FeedTypeRSS, gofeed.FeedTypeAtom:
		feed, err = p.parseXML(data)
	default:
		return nil, ErrUnknownFeedType
	}
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.URL == "" {
			slog.Warn("Feed item without url, skipping", "id", item.ID, "title", item.Title)
			continue
		}
		items = append(items, item)
	}
	feed.Items = items

	return feed, nil
}

func (p *Parser) parseJSON(data []byte) (*Feed, error) {
	var doc struct {
		Title    string `json:"title"`
		Language string `json:"language"`
		Items    []Item `json:"items"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON feed: %w", err)
	}

	return &Feed{
		Title:    doc.Title,
		Language: doc.Language,
		Items:    doc.Items,
	}, nil
}

func (p *Parser) parseXML(data []byte) (*Feed, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	feed := &Feed{
		Title:    parsed.Title,
		Language: parsed.Language,
		Items:    make([]Item, 0, len(parsed.Items)),
	}
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		feed.Items = append(feed.Items, p.normalizeItem(item, parsed.Language))
	}

	return feed, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item, language string) Item {
	normalized := Item{
		ID:          LenientString(item.GUID),
		URL:         cmp.Or(item.Link, item.GUID),
		Title:       item.Title,
		ContentHTML: cmp.Or(item.Content, item.Description),
		Language:    language,
	}

	if item.PublishedParsed != nil {
		normalized.DatePublished = item.PublishedParsed.UTC().Format(time.RFC3339)
	} else {
		normalized.DatePublished = item.Published
	}

	for _, enclosure := range item.Enclosures {
		if enclosure == nil || enclosure.URL == "" {
			continue
		}
		attachment := Attachment{
			URL:      enclosure.URL,
			MimeType: enclosure.Type,
		}
		if enclosure.Length != "" {
			if length, err := strconv.ParseInt(enclosure.Length, 10, 64); err == nil {
				attachment.SizeInBytes = LenientInt(length)
			}
		}
		normalized.Attachments = append(normalized.Attachments, attachment)
	}

	return normalized
}
