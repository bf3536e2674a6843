package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Download resolves fileID through getFile and streams the payload into
// destPath. A partially written file is removed on any failure. Returns the
// number of bytes written.
func (c *Client) Download(ctx context.Context, fileID, destPath string) (int64, error) {
	info, err := c.GetFile(ctx, fileID)
	if err != nil {
		return 0, err
	}
	if info.FilePath == "" {
		return 0, fmt.Errorf("telegram: getFile returned no file_path for %s", fileID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL(info.FilePath), nil)
	if err != nil {
		return 0, fmt.Errorf("telegram: create download request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("telegram: download request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, &APIError{Code: resp.StatusCode, Description: "file download failed"}
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("telegram: create %s: %w", destPath, err)
	}

	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(destPath)
		return 0, fmt.Errorf("telegram: write %s: %w", destPath, err)
	}

	return n, nil
}
