// Package mailbox parses RFC 822 messages and fetches them over IMAP.
package mailbox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/mfenderov/lifeadmin/pkg/models"
)

// Message is a parsed email.
type Message struct {
	ID          string // Message-Id without angle brackets, or a content hash
	Subject     string
	From        string
	Date        time.Time
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// Attachment is a file carried by a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Parse reads a raw RFC 822 message.
func Parse(raw []byte) (*Message, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("empty message")
	}
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	msg := &Message{}
	h := mr.Header
	if msg.Subject, err = h.Subject(); err != nil {
		msg.Subject = h.Get("Subject")
	}
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = from[0].String()
	} else {
		msg.From = h.Get("From")
	}
	if date, err := h.Date(); err == nil {
		msg.Date = date.UTC()
	}
	if id, err := h.MessageID(); err == nil && id != "" {
		msg.ID = id
	} else {
		msg.ID = "sha256:" + models.ContentHash(raw)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return msg, fmt.Errorf("failed to read message part: %w", err)
		}

		switch ph := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, params, _ := ph.ContentType()
			if contentType == "" {
				contentType = "text/plain"
			}
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return msg, fmt.Errorf("failed to read message body: %w", err)
			}
			switch {
			case contentType == "text/plain" && msg.TextBody == "":
				msg.TextBody = string(body)
			case contentType == "text/html" && msg.HTMLBody == "":
				msg.HTMLBody = string(body)
			case params["name"] != "":
				msg.Attachments = append(msg.Attachments, Attachment{
					Filename:    params["name"],
					ContentType: contentType,
					Data:        body,
				})
			}
		case *mail.AttachmentHeader:
			filename, err := ph.Filename()
			if err != nil || filename == "" {
				filename = "attachment"
			}
			contentType, _, _ := ph.ContentType()
			data, err := io.ReadAll(part.Body)
			if err != nil {
				return msg, fmt.Errorf("failed to read attachment %s: %w", filename, err)
			}
			if len(data) == 0 {
				slog.Debug("skipping empty attachment", "message", msg.ID, "filename", filename)
				continue
			}
			msg.Attachments = append(msg.Attachments, Attachment{
				Filename:    filename,
				ContentType: orOctetStream(contentType),
				Data:        data,
			})
		}
	}
	return msg, nil
}

// Header renders the lines prepended to the stored email text.
func (m *Message) Header() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Subject: %s\n", m.Subject)
	fmt.Fprintf(&sb, "From: %s\n", m.From)
	if !m.Date.IsZero() {
		fmt.Fprintf(&sb, "Date: %s\n", m.Date.Format(time.RFC1123Z))
	}
	return sb.String()
}

// Filename is the name the message is stored under.
func (m *Message) Filename() string {
	subject := strings.TrimSpace(m.Subject)
	if subject == "" {
		subject = "email"
	}
	subject = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:*?"<>|`, r) || r < 0x20 {
			return '_'
		}
		return r
	}, subject)
	if len([]rune(subject)) > 100 {
		subject = string([]rune(subject)[:100])
	}
	return subject + ".eml"
}

func orOctetStream(contentType string) string {
	if contentType == "" {
		return "application/octet-stream"
	}
	if _, _, err := mime.ParseMediaType(contentType); err != nil {
		return "application/octet-stream"
	}
	return contentType
}
