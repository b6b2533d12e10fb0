package publisher

import (
	"cmp"
	"context"
	"fmt"
	"io"

	"github.com/mattn/go-mastodon"
)

type Status struct {
	Text       string
	Language   string
	Visibility string // empty leaves the server default
	MediaIDs   []string
}

// Client is the part of the publishing API the bot needs.
type Client interface {
	UploadMedia(ctx context.Context, file io.Reader, description string) (string, error)
	CreateStatus(ctx context.Context, status Status) (string, error)
}

var _ Client = (*MastodonClient)(nil)

type MastodonClient struct {
	client *mastodon.Client
}

func NewMastodonClient(instance, accessToken string) *MastodonClient {
	return &MastodonClient{
		client: mastodon.NewClient(&mastodon.Config{
			Server:      instance,
			AccessToken: accessToken,
		}),
	}
}

func (c *MastodonClient) UploadMedia(ctx context.Context, file io.Reader, description string) (string, error) {
	attachment, err := c.client.UploadMediaFromMedia(ctx, &mastodon.Media{
		File:        file,
		Description: description,
	})
	if err != nil {
		return "", err
	}
	return string(attachment.ID), nil
}

// CreateStatus posts the status and returns its canonical URI.
func (c *MastodonClient) CreateStatus(ctx context.Context, status Status) (string, error) {
	toot := &mastodon.Toot{
		Status:     status.Text,
		Language:   status.Language,
		Visibility: status.Visibility,
	}
	for _, id := range status.MediaIDs {
		toot.MediaIDs = append(toot.MediaIDs, mastodon.ID(id))
	}

	created, err := c.client.PostStatus(ctx, toot)
	if err != nil {
		return "", err
	}
	if created == nil {
		return "", fmt.Errorf("empty response")
	}
	return cmp.Or(created.URI, created.URL), nil
}
