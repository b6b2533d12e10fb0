package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/feed-posse/app/failure"
	"github.com/lysyi3m/feed-posse/app/feed"
)

type Publisher struct {
	client      Client
	downloader  *Downloader
	composer    *Composer
	instanceURL string
	maxParallel int
}

func NewPublisher(client Client, downloader *Downloader, composer *Composer, instanceURL string, maxParallel int) *Publisher {
	return &Publisher{
		client:      client,
		downloader:  downloader,
		composer:    composer,
		instanceURL: strings.TrimRight(instanceURL, "/"),
		maxParallel: maxParallel,
	}
}

// Run publishes item and returns the canonical URL of the created post.
// Either every image attachment is uploaded and the post is created, or an
// error is returned.
func (p *Publisher) Run(ctx context.Context, item feed.Item, feedLanguage string) (string, error) {
	status := p.composer.Run(item, feedLanguage)

	mediaIDs, err := p.uploadImages(ctx, item.ImageAttachments())
	if err != nil {
		return "", err
	}
	status.MediaIDs = mediaIDs

	slog.Debug("Creating post",
		"item", item.URL,
		"language", status.Language,
		"visibility", status.Visibility,
		"media", len(status.MediaIDs),
		"length", len(status.Text))

	postURL, err := p.client.CreateStatus(ctx, status)
	if err != nil {
		return "", failure.WithURL(failure.KindPostCreation, "failed to create post for", item.URL, err)
	}
	if postURL == "" {
		return "", failure.WithURL(failure.KindPostCreation, "no post URL returned for", item.URL, nil)
	}
	if !p.onInstance(postURL) {
		return "", failure.WithURL(failure.KindPostCreation, "unexpected post URL for", item.URL,
			fmt.Errorf("%s is not on %s", postURL, p.instanceURL))
	}

	return postURL, nil
}

// onInstance reports whether postURL has the instance's scheme and host and
// lies under its path.
func (p *Publisher) onInstance(postURL string) bool {
	post, err := url.Parse(postURL)
	if err != nil {
		return false
	}
	instance, err := url.Parse(p.instanceURL)
	if err != nil {
		return false
	}

	if !strings.EqualFold(post.Scheme, instance.Scheme) || !strings.EqualFold(post.Host, instance.Host) {
		return false
	}

	base := strings.TrimRight(instance.Path, "/")
	return base == "" || post.Path == base || strings.HasPrefix(post.Path, base+"/")
}

func (p *Publisher) uploadImages(ctx context.Context, images []feed.Attachment) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if p.maxParallel > 0 {
		g.SetLimit(p.maxParallel)
	}

	ids := make([]string, len(images))
	for i, attachment := range images {
		g.Go(func() error {
			id, err := p.uploadImage(gctx, attachment)
			if err != nil {
				return err
			}
			ids[i] = id
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("Attachments uploaded", "count", len(ids))
	return ids, nil
}

func (p *Publisher) uploadImage(ctx context.Context, attachment feed.Attachment) (string, error) {
	var id string

	err := p.downloader.With(ctx, attachment.URL, func(file *os.File) error {
		slog.Debug("Uploading attachment", "url", attachment.URL, "path", file.Name())

		uploaded, err := p.client.UploadMedia(ctx, file, attachment.Description())
		if err != nil {
			return failure.WithURL(failure.KindUpload, "failed to upload attachment", attachment.URL, err)
		}
		id = uploaded
		return nil
	})

	return id, err
}
