// Package message defines the data contract between the Telegram transport
// and the duplication pipeline: source messages, attachments, and the
// outbound units derived from them.
package message

import "fmt"

// Kind classifies a source message by its payload.
type Kind string

// Supported message kinds. Anything the transport cannot classify is
// KindOther and is forwarded as text only.
const (
	KindText     Kind = "text"
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindVoice    Kind = "voice"
	KindDocument Kind = "document"
	KindPoll     Kind = "poll"
	KindOther    Kind = "other"
)

// Uploadable reports whether the kind maps to a media upload call on the
// destination side.
func (k Kind) Uploadable() bool {
	switch k {
	case KindPhoto, KindVideo, KindVoice, KindDocument:
		return true
	}
	return false
}

// ChatLink identifies a chat and, optionally, a topic (forum thread) inside it.
type ChatLink struct {
	ChatID int64 `json:"chat_id"`

	// TopicID is the forum topic (message thread) ID. Zero means the chat
	// itself, outside any topic.
	TopicID int64 `json:"topic_id,omitempty"`
}

// String renders the link as "chat" or "chat/topic".
func (l ChatLink) String() string {
	if l.TopicID != 0 {
		return fmt.Sprintf("%d/%d", l.ChatID, l.TopicID)
	}
	return fmt.Sprintf("%d", l.ChatID)
}

// Pair binds a source chat/topic to a destination chat/topic. Each pair owns
// its own duplication offset.
type Pair struct {
	From ChatLink `json:"from"`
	To   ChatLink `json:"to"`
}

// String renders the pair as "from -> to". The rendering is also used as the
// durable offset key, so it must stay stable across releases.
func (p Pair) String() string {
	return p.From.String() + " -> " + p.To.String()
}

// Attachment is a reference to a file carried by a source message. The
// payload itself is downloaded on demand and discarded after re-upload.
type Attachment struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Kind     Kind   `json:"kind"`

	// Voice marks audio that should be re-sent as a voice note rather than
	// a plain audio file.
	Voice bool `json:"voice,omitempty"`
}

// Name returns the attachment's filename, falling back to a default the way
// Telegram clients do for voice notes and untitled files.
func (a *Attachment) Name() string {
	if a.FileName != "" {
		return a.FileName
	}
	if a.Voice {
		return "voice.oga"
	}
	return "file.bin"
}

// Source is one message fetched from a source chat. IDs are monotonic per
// chat, which is what makes offset-based resumption possible.
type Source struct {
	ID         int64
	Text       string
	Kind       Kind
	Attachment *Attachment
}

// Unit is one outbound send operation's worth of content: a text chunk plus
// at most one attachment. A single Source yields multiple units only when
// its text exceeds the destination's length limits.
type Unit struct {
	Text       string
	Attachment *Attachment
}
