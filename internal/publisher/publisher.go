package publisher

import (
	"context"

	"github.com/ryosukesatoh/feed-digest/internal/pipeline"
)

// Publisher delivers a digest result to some output destination.
type Publisher interface {
	Publish(ctx context.Context, result *pipeline.Result) error
}
