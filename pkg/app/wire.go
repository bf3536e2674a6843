package app

import (
	"context"
	"errors"
	"io/fs"

	"github.com/mirrorgram/mirrorgram/internal/relay"
	"github.com/mirrorgram/mirrorgram/internal/retry"
	"github.com/mirrorgram/mirrorgram/internal/telegram"
	"github.com/mirrorgram/mirrorgram/pkg/message"
)

// botAdapter bridges the Bot API client to the capabilities the driver and
// relay consume, translating chat links into wire-level identifiers.
type botAdapter struct {
	api *telegram.Client
}

func (a *botAdapter) History(ctx context.Context, from message.ChatLink, sinceID int64, limit int) ([]message.Source, error) {
	msgs, err := a.api.History(ctx, from.ChatID, from.TopicID, sinceID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]message.Source, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, telegram.ToSource(m))
	}
	return out, nil
}

func (a *botAdapter) SendText(ctx context.Context, to message.ChatLink, text string) error {
	_, err := a.api.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:          to.ChatID,
		MessageThreadID: to.TopicID,
		Text:            text,
	})
	return err
}

func (a *botAdapter) SendUpload(ctx context.Context, to message.ChatLink, up relay.Upload, caption string) error {
	_, err := a.api.SendFile(ctx, telegram.Upload{
		ChatID:   to.ChatID,
		ThreadID: to.TopicID,
		Kind:     up.Kind,
		Path:     up.Path,
		FileName: up.FileName,
		MIMEType: up.MIMEType,
		Caption:  caption,
	})
	return err
}

func (a *botAdapter) Download(ctx context.Context, fileID, destPath string) (int64, error) {
	return a.api.Download(ctx, fileID, destPath)
}

// classify extends the API error taxonomy with local concerns: an
// unsupported attachment kind and scratch disk failures never heal on
// retry.
func classify(err error) retry.Class {
	if errors.Is(err, relay.ErrUnsupportedKind) {
		return retry.Permanent
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return retry.Permanent
	}
	return telegram.Classify(err)
}
