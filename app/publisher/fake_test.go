package publisher

import (
	"context"
	"fmt"
	"io"
	"sync"
)

type fakeClient struct {
	mu          sync.Mutex
	uploads     map[string]string // description -> content
	statuses    []Status
	postURL     string
	uploadErr   error
	createErr   error
	nextMediaID int
}

func newFakeClient(postURL string) *fakeClient {
	return &fakeClient{
		uploads: make(map[string]string),
		postURL: postURL,
	}
}

func (f *fakeClient) UploadMedia(ctx context.Context, file io.Reader, description string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextMediaID++
	f.uploads[description] = string(data)
	return fmt.Sprintf("media-%s", string(data)), nil
}

func (f *fakeClient) CreateStatus(ctx context.Context, status Status) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return f.postURL, nil
}
