// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/gomail.v2"
)

// Address is a mailbox with an optional display name.
type Address struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Address
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Address)
}

// PartKind identifies the concrete type of a message child part.
type PartKind string

const (
	KindMimePart   PartKind = "mime"
	KindAttachment PartKind = "attachment"
	KindEmbedded   PartKind = "embedded"
)

// Part is a child of a Message: an alternative body, an attachment or an inline file.
type Part interface {
	Kind() PartKind
	MediaType() string
}

// MimePart is an alternative representation of the message body (e.g. text/html next to text/plain).
type MimePart struct {
	ContentType string
	Body        string
}

func (p *MimePart) Kind() PartKind    { return KindMimePart }
func (p *MimePart) MediaType() string { return p.ContentType }

// Attachment is a file attached to a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

func (a *Attachment) Kind() PartKind    { return KindAttachment }
func (a *Attachment) MediaType() string { return a.ContentType }
func (a *Attachment) Size() int         { return len(a.Content) }

// EmbeddedFile is an attachment referenced inline from the HTML body by its Content-ID.
type EmbeddedFile struct {
	Attachment
	ContentID string
}

func (e *EmbeddedFile) Kind() PartKind { return KindEmbedded }

// IsAttachment reports whether p is a file attachment. Embedded files are attachments too.
func IsAttachment(p Part) bool {
	switch p.(type) {
	case *Attachment, *EmbeddedFile:
		return true
	default:
		return false
	}
}

// Message is an outgoing mail message.
type Message struct {
	ID          string    `json:"id,omitempty"`
	Date        time.Time `json:"date"`
	From        Address   `json:"from"`
	ReplyTo     []Address `json:"replyTo,omitempty"`
	To          []Address `json:"to,omitempty"`
	Cc          []Address `json:"cc,omitempty"`
	Bcc         []Address `json:"bcc,omitempty"`
	Subject     string    `json:"subject"`
	ContentType string    `json:"contentType,omitempty"`
	Body        string    `json:"body"`
	Children    []Part    `json:"-"`
}

// Recipients returns every To, Cc and Bcc address.
func (m *Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	for _, list := range [][]Address{m.To, m.Cc, m.Bcc} {
		for _, a := range list {
			out = append(out, a.Address)
		}
	}
	return out
}

type messageAlias Message

type wirePart struct {
	Kind        PartKind `json:"kind"`
	ContentType string   `json:"contentType,omitempty"`
	Body        string   `json:"body,omitempty"`
	Filename    string   `json:"filename,omitempty"`
	ContentID   string   `json:"contentId,omitempty"`
	Content     []byte   `json:"content,omitempty"`
}

type wireMessage struct {
	*messageAlias
	Children []wirePart `json:"children,omitempty"`
}

func (m *Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{messageAlias: (*messageAlias)(m)}
	for _, p := range m.Children {
		switch v := p.(type) {
		case *MimePart:
			w.Children = append(w.Children, wirePart{Kind: KindMimePart, ContentType: v.ContentType, Body: v.Body})
		case *Attachment:
			w.Children = append(w.Children, wirePart{Kind: KindAttachment, ContentType: v.ContentType, Filename: v.Filename, Content: v.Content})
		case *EmbeddedFile:
			w.Children = append(w.Children, wirePart{Kind: KindEmbedded, ContentType: v.ContentType, Filename: v.Filename, Content: v.Content, ContentID: v.ContentID})
		default:
			return nil, fmt.Errorf("unsupported message part %T", p)
		}
	}
	return json.Marshal(w)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	w := wireMessage{messageAlias: (*messageAlias)(m)}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.Children = nil
	for i, wp := range w.Children {
		switch wp.Kind {
		case KindMimePart:
			m.Children = append(m.Children, &MimePart{ContentType: wp.ContentType, Body: wp.Body})
		case KindAttachment:
			m.Children = append(m.Children, &Attachment{Filename: wp.Filename, ContentType: wp.ContentType, Content: wp.Content})
		case KindEmbedded:
			m.Children = append(m.Children, &EmbeddedFile{
				Attachment: Attachment{Filename: wp.Filename, ContentType: wp.ContentType, Content: wp.Content},
				ContentID:  wp.ContentID,
			})
		default:
			return fmt.Errorf("children[%d]: unknown part kind %q", i, wp.Kind)
		}
	}
	return nil
}

// ToGomail converts the message into a gomail message ready for a dialer.
func (m *Message) ToGomail() *gomail.Message {
	gm := gomail.NewMessage()
	if m.ID != "" {
		gm.SetHeader("Message-ID", "<"+m.ID+">")
	}
	gm.SetAddressHeader("From", m.From.Address, m.From.Name)
	setAddressList(gm, "Reply-To", m.ReplyTo)
	setAddressList(gm, "To", m.To)
	setAddressList(gm, "Cc", m.Cc)
	setAddressList(gm, "Bcc", m.Bcc)
	gm.SetHeader("Subject", m.Subject)
	if !m.Date.IsZero() {
		gm.SetDateHeader("Date", m.Date)
	}

	contentType := m.ContentType
	if contentType == "" {
		contentType = "text/plain"
	}
	gm.SetBody(contentType, m.Body)

	for _, p := range m.Children {
		switch v := p.(type) {
		case *MimePart:
			gm.AddAlternative(v.ContentType, v.Body)
		case *Attachment:
			gm.Attach(v.Filename, copyContent(v.Content), fileHeader(v.ContentType, ""))
		case *EmbeddedFile:
			gm.Embed(v.Filename, copyContent(v.Content), fileHeader(v.ContentType, v.ContentID))
		}
	}
	return gm
}

// WriteTo writes the raw RFC 5322 source of the message.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	return m.ToGomail().WriteTo(w)
}

// Source returns the raw message source as a string.
func (m *Message) Source() (string, error) {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return "", fmt.Errorf("rendering message source: %w", err)
	}
	return buf.String(), nil
}

func setAddressList(gm *gomail.Message, header string, list []Address) {
	if len(list) == 0 {
		return
	}
	values := make([]string, 0, len(list))
	for _, a := range list {
		values = append(values, gm.FormatAddress(a.Address, a.Name))
	}
	gm.SetHeader(header, values...)
}

func copyContent(content []byte) gomail.FileSetting {
	return gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	})
}

func fileHeader(contentType, contentID string) gomail.FileSetting {
	h := map[string][]string{}
	if contentType != "" {
		h["Content-Type"] = []string{contentType}
	}
	if contentID != "" {
		h["Content-ID"] = []string{"<" + contentID + ">"}
	}
	return gomail.SetHeader(h)
}
