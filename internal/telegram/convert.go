package telegram

import "github.com/mirrorgram/mirrorgram/pkg/message"

// ToSource maps a raw Telegram message into the pipeline's source model,
// classifying the payload and extracting at most one attachment reference.
func ToSource(msg Message) message.Source {
	src := message.Source{
		ID:   msg.MessageID,
		Text: msg.Text,
		Kind: message.KindText,
	}
	if src.Text == "" {
		src.Text = msg.Caption
	}

	switch {
	case msg.Poll != nil:
		src.Kind = message.KindPoll

	case len(msg.Photo) > 0:
		// Telegram reports several downscaled sizes; re-upload the largest.
		largest := msg.Photo[0]
		for _, p := range msg.Photo[1:] {
			if p.FileSize > largest.FileSize {
				largest = p
			}
		}
		src.Kind = message.KindPhoto
		src.Attachment = &message.Attachment{
			FileID: largest.FileID,
			Size:   largest.FileSize,
			Kind:   message.KindPhoto,
		}

	case msg.Video != nil:
		src.Kind = message.KindVideo
		src.Attachment = &message.Attachment{
			FileID:   msg.Video.FileID,
			FileName: msg.Video.FileName,
			MIMEType: msg.Video.MIMEType,
			Size:     msg.Video.FileSize,
			Kind:     message.KindVideo,
		}

	case msg.Voice != nil:
		src.Kind = message.KindVoice
		src.Attachment = &message.Attachment{
			FileID:   msg.Voice.FileID,
			MIMEType: msg.Voice.MIMEType,
			Size:     msg.Voice.FileSize,
			Kind:     message.KindVoice,
			Voice:    true,
		}

	case msg.Audio != nil:
		// Audio files ride the document path; the payload survives intact
		// even though the destination loses the inline player metadata.
		src.Kind = message.KindDocument
		src.Attachment = &message.Attachment{
			FileID:   msg.Audio.FileID,
			FileName: msg.Audio.FileName,
			MIMEType: msg.Audio.MIMEType,
			Size:     msg.Audio.FileSize,
			Kind:     message.KindDocument,
		}

	case msg.Document != nil:
		src.Kind = message.KindDocument
		src.Attachment = &message.Attachment{
			FileID:   msg.Document.FileID,
			FileName: msg.Document.FileName,
			MIMEType: msg.Document.MIMEType,
			Size:     msg.Document.FileSize,
			Kind:     message.KindDocument,
		}

	case msg.Sticker != nil:
		src.Kind = message.KindOther

	case msg.Text == "":
		src.Kind = message.KindOther
	}

	return src
}
