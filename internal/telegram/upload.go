package telegram

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strconv"

	"github.com/mirrorgram/mirrorgram/pkg/message"
)

// Upload describes one media send: a local payload plus destination and
// caption. Kind selects the Bot API method.
type Upload struct {
	ChatID   int64
	ThreadID int64
	Kind     message.Kind
	Path     string
	FileName string
	MIMEType string
	Caption  string
}

// methodFor maps an upload kind to its Bot API method and file field name.
func methodFor(kind message.Kind) (method, field string) {
	switch kind {
	case message.KindPhoto:
		return "sendPhoto", "photo"
	case message.KindVideo:
		return "sendVideo", "video"
	case message.KindVoice:
		return "sendVoice", "voice"
	default:
		return "sendDocument", "document"
	}
}

// SendFile re-uploads a local file to the destination chat as multipart
// form data, with the caption attached to the same message.
func (c *Client) SendFile(ctx context.Context, up Upload) (*Message, error) {
	method, field := methodFor(up.Kind)

	file, err := os.Open(up.Path)
	if err != nil {
		return nil, fmt.Errorf("telegram: open upload %s: %w", up.Path, err)
	}
	defer func() { _ = file.Close() }()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		werr := writeUploadForm(mw, field, file, up)
		if cerr := mw.Close(); werr == nil {
			werr = cerr
		}
		pw.CloseWithError(werr)
	}()

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return nil, fmt.Errorf("telegram: create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request failed: %w", method, err)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	return decodeEnvelope[Message](method, respBody)
}

func writeUploadForm(mw *multipart.Writer, field string, file io.Reader, up Upload) error {
	if err := mw.WriteField("chat_id", strconv.FormatInt(up.ChatID, 10)); err != nil {
		return err
	}
	if up.ThreadID != 0 {
		if err := mw.WriteField("message_thread_id", strconv.FormatInt(up.ThreadID, 10)); err != nil {
			return err
		}
	}
	if up.Caption != "" {
		if err := mw.WriteField("caption", up.Caption); err != nil {
			return err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, field, up.FileName))
	if up.MIMEType != "" {
		header.Set("Content-Type", up.MIMEType)
	}

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}
