package publisher

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/language"

	"github.com/lysyi3m/feed-posse/app/feed"
)

const (
	InstanceTypeMastodon = "mastodon"
	InstanceTypePixelfed = "pixelfed"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

type ComposerOptions struct {
	Visibility      string
	InstanceType    string
	DefaultLanguage string
	TestMode        bool
}

// Composer turns a feed item into the status to publish.
type Composer struct {
	opts ComposerOptions
}

func NewComposer(opts ComposerOptions) *Composer {
	return &Composer{opts: opts}
}

func (c *Composer) Run(item feed.Item, feedLanguage string) Status {
	status := Status{
		Text:     c.text(item),
		Language: normalizeLanguage(item.Language, feedLanguage, c.opts.DefaultLanguage),
	}

	// Pixelfed rejects the visibility parameter
	if c.opts.InstanceType != InstanceTypePixelfed {
		status.Visibility = c.opts.Visibility
	}

	if c.opts.TestMode {
		status.Text = strings.ReplaceAll(status.Text, "@", "$")
	}

	return status
}

func (c *Composer) text(item feed.Item) string {
	if text := strings.TrimSpace(item.ContentText); text != "" {
		return text
	}
	if item.ContentHTML != "" {
		if text := htmlToText(item.ContentHTML); text != "" {
			return text
		}
	}
	if text := strings.TrimSpace(item.Summary); text != "" {
		return text
	}
	return strings.TrimSpace(item.Title + "\n\n" + item.URL)
}

func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		slog.Debug("Failed to parse item HTML", "error", err)
		return ""
	}

	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li, blockquote, pre, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n\n")
	})

	text := strings.ReplaceAll(doc.Text(), "\r\n", "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// normalizeLanguage returns the ISO 639 base of the first valid tag.
func normalizeLanguage(candidates ...string) string {
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}

		tag, err := language.Parse(candidate)
		if err != nil {
			slog.Debug("Ignoring invalid language tag", "language", candidate, "error", err)
			continue
		}

		base, confidence := tag.Base()
		if confidence == language.No {
			continue
		}
		return base.String()
	}
	return ""
}
