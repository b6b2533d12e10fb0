package feed

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

type Feed struct {
	Title    string
	Language string
	Items    []Item
}

// Item mirrors a JSON Feed item. Keys without a typed field are kept in
// extra and written back unchanged.
type Item struct {
	ID            LenientString `json:"id,omitempty"`
	URL           string        `json:"url"`
	Title         string        `json:"title,omitempty"`
	ContentText   string        `json:"content_text,omitempty"`
	ContentHTML   string        `json:"content_html,omitempty"`
	Summary       string        `json:"summary,omitempty"`
	Language      string        `json:"language,omitempty"`
	DatePublished string        `json:"date_published,omitempty"`
	Attachments   []Attachment  `json:"attachments,omitempty"`

	extra map[string]json.RawMessage
}

type Attachment struct {
	URL         string     `json:"url"`
	MimeType    string     `json:"mime_type,omitempty"`
	Title       string     `json:"title,omitempty"`
	AltText     string     `json:"_alt_text,omitempty"`
	SizeInBytes LenientInt `json:"size_in_bytes,omitempty"`

	extra map[string]json.RawMessage
}

// LenientString decodes a JSON string or number. Feeds in the wild emit
// numeric item ids; they are kept in their decimal form. Other values decode
// to "", which leaves the raw value in the item's extra keys.
type LenientString string

func (s *LenientString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = LenientString(v)
		return nil
	}

	*s = ""
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = LenientString(n.String())
	}
	return nil
}

// LenientInt decodes integers, floats and numeric strings. Anything else
// decodes to zero, which leaves the raw value in the item's extra keys.
type LenientInt int64

func (n *LenientInt) UnmarshalJSON(data []byte) error {
	*n = 0

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = LenientInt(f)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			*n = LenientInt(v)
		}
	}
	return nil
}

type itemFields Item

type attachmentFields Attachment

func (i *Item) UnmarshalJSON(data []byte) error {
	var fields itemFields
	extra, err := splitJSON(data, &fields)
	if err != nil {
		return err
	}
	*i = Item(fields)
	i.extra = extra
	return nil
}

func (i Item) MarshalJSON() ([]byte, error) {
	return mergeJSON(itemFields(i), i.extra)
}

func (a *Attachment) UnmarshalJSON(data []byte) error {
	var fields attachmentFields
	extra, err := splitJSON(data, &fields)
	if err != nil {
		return err
	}
	*a = Attachment(fields)
	a.extra = extra
	return nil
}

func (a Attachment) MarshalJSON() ([]byte, error) {
	return mergeJSON(attachmentFields(a), a.extra)
}

// PublishedAt parses DatePublished. The second result is false for
// missing or unparsable dates.
func (i Item) PublishedAt() (time.Time, bool) {
	if strings.TrimSpace(i.DatePublished) == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(i.DatePublished)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (i Item) ImageAttachments() []Attachment {
	var images []Attachment
	for _, a := range i.Attachments {
		if a.IsImage() {
			images = append(images, a)
		}
	}
	return images
}

func (a Attachment) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(a.MimeType), "image/")
}

// Description is the media description sent along with an upload.
func (a Attachment) Description() string {
	if a.AltText != "" {
		return a.AltText
	}
	return a.Title
}

// splitJSON decodes data into known and returns the keys known did not consume.
func splitJSON(data []byte, known any) (map[string]json.RawMessage, error) {
	if err := json.Unmarshal(data, known); err != nil {
		return nil, err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}

	consumed, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	var present map[string]json.RawMessage
	if err := json.Unmarshal(consumed, &present); err != nil {
		return nil, err
	}
	for key := range present {
		delete(all, key)
	}

	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

func mergeJSON(known any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range extra {
		if _, ok := merged[key]; !ok {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}
