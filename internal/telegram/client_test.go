package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mirrorgram/mirrorgram/internal/retry"
	"github.com/mirrorgram/mirrorgram/pkg/message"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestGetMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTEST_TOKEN/getMe" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		writeJSON(t, w, APIResponse[User]{
			OK:     true,
			Result: User{ID: 123, IsBot: true, Username: "clone_bot"},
		})
	}))
	defer srv.Close()

	client := NewClient("TEST_TOKEN", srv.URL, time.Second)
	user, err := client.GetMe(context.Background())
	if err != nil {
		t.Fatalf("GetMe() error: %v", err)
	}
	if user.ID != 123 || !user.IsBot || user.Username != "clone_bot" {
		t.Errorf("user = %+v", user)
	}
}

func TestHistory_PassesMinIDAndThread(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/getChatHistory" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req historyRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("unmarshal request: %v", err)
		}
		if req.ChatID != -100 || req.MinID != 55 || req.MessageThreadID != 7 || req.Limit != 50 {
			t.Errorf("request = %+v", req)
		}
		writeJSON(t, w, APIResponse[[]Message]{
			OK: true,
			Result: []Message{
				{MessageID: 56, Text: "first"},
				{MessageID: 57, Text: "second"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("TOKEN", srv.URL, time.Second)
	msgs, err := client.History(context.Background(), -100, 7, 55, 50)
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].MessageID != 56 || msgs[1].Text != "second" {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestDo_APIErrorCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		writeJSON(t, w, APIResponse[Message]{
			OK:          false,
			ErrorCode:   429,
			Description: "Too Many Requests",
			Parameters:  &ResponseParameters{RetryAfter: 17},
		})
	}))
	defer srv.Close()

	client := NewClient("TOKEN", srv.URL, time.Second)
	_, err := client.SendMessage(context.Background(), SendMessageRequest{ChatID: 1, Text: "x"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != 429 || apiErr.RetryDelay() != 17*time.Second {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestDownload_WritesFile(t *testing.T) {
	payload := "attachment bytes"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getFile"):
			writeJSON(t, w, APIResponse[File]{
				OK:     true,
				Result: File{FileID: "f1", FilePath: "documents/file_1.pdf"},
			})
		case r.URL.Path == "/file/botTOKEN/documents/file_1.pdf":
			_, _ = io.WriteString(w, payload)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient("TOKEN", srv.URL, time.Second)
	dest := filepath.Join(t.TempDir(), "file_1.pdf")
	n, err := client.Download(context.Background(), "f1", dest)
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("bytes = %d, want %d", n, len(payload))
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != payload {
		t.Errorf("content = %q", data)
	}
}

func TestSendFile_MultipartFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, []byte("pdf data"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendDocument" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("chat_id"); got != "-100555" {
			t.Errorf("chat_id = %q", got)
		}
		if got := r.FormValue("message_thread_id"); got != "12" {
			t.Errorf("message_thread_id = %q", got)
		}
		if got := r.FormValue("caption"); got != "the caption" {
			t.Errorf("caption = %q", got)
		}
		file, header, err := r.FormFile("document")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer func() { _ = file.Close() }()
		if header.Filename != "report.pdf" {
			t.Errorf("filename = %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "pdf data" {
			t.Errorf("file content = %q", data)
		}
		writeJSON(t, w, APIResponse[Message]{OK: true, Result: Message{MessageID: 9}})
	}))
	defer srv.Close()

	client := NewClient("TOKEN", srv.URL, time.Second)
	msg, err := client.SendFile(context.Background(), Upload{
		ChatID:   -100555,
		ThreadID: 12,
		Kind:     message.KindDocument,
		Path:     path,
		FileName: "report.pdf",
		MIMEType: "application/pdf",
		Caption:  "the caption",
	})
	if err != nil {
		t.Fatalf("SendFile() error: %v", err)
	}
	if msg.MessageID != 9 {
		t.Errorf("message id = %d", msg.MessageID)
	}
}

func TestMethodFor(t *testing.T) {
	t.Parallel()
	cases := []struct {
		kind   message.Kind
		method string
		field  string
	}{
		{message.KindPhoto, "sendPhoto", "photo"},
		{message.KindVideo, "sendVideo", "video"},
		{message.KindVoice, "sendVoice", "voice"},
		{message.KindDocument, "sendDocument", "document"},
	}
	for _, tc := range cases {
		method, field := methodFor(tc.kind)
		if method != tc.method || field != tc.field {
			t.Errorf("%s: got %s/%s", tc.kind, method, field)
		}
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	if Classify(&APIError{Code: 429}) != retry.Transient {
		t.Error("429 must be transient")
	}
	if Classify(&APIError{Code: 502}) != retry.Transient {
		t.Error("5xx must be transient")
	}
	if Classify(&APIError{Code: 403, Description: "bot was kicked"}) != retry.Permanent {
		t.Error("403 must be permanent")
	}
	if Classify(&APIError{Code: 400, Description: "chat not found"}) != retry.Permanent {
		t.Error("400 must be permanent")
	}
	if Classify(errors.New("connection reset")) != retry.Transient {
		t.Error("transport errors must be transient")
	}
}
