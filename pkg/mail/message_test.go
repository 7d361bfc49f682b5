package mail

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessage() *Message {
	return &Message{
		ID:      "abc@test",
		Date:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		From:    Address{Name: "Sender", Address: "sender@example.com"},
		To:      []Address{{Address: "to@example.com"}},
		Cc:      []Address{{Name: "Copy", Address: "cc@example.com"}},
		Bcc:     []Address{{Address: "bcc@example.com"}},
		Subject: "Quarterly report",
		Body:    "see attached",
		Children: []Part{
			&MimePart{ContentType: "text/html", Body: "<p>see attached</p>"},
			&Attachment{Filename: "report.csv", ContentType: "text/csv", Content: []byte("a,b\n1,2\n")},
			&EmbeddedFile{Attachment: Attachment{Filename: "logo.png", ContentType: "image/png", Content: []byte{0x89, 0x50}}, ContentID: "logo"},
		},
	}
}

func TestAddressString(t *testing.T) {
	assert.Equal(t, "a@example.com", Address{Address: "a@example.com"}.String())
	assert.Equal(t, "Alice <a@example.com>", Address{Name: "Alice", Address: "a@example.com"}.String())
}

func TestIsAttachment(t *testing.T) {
	assert.False(t, IsAttachment(&MimePart{}))
	assert.True(t, IsAttachment(&Attachment{}))
	assert.True(t, IsAttachment(&EmbeddedFile{}))
}

func TestRecipients(t *testing.T) {
	assert.Equal(t, []string{"to@example.com", "cc@example.com", "bcc@example.com"}, sampleMessage().Recipients())
	assert.Empty(t, (&Message{}).Recipients())
}

func TestMessageJSONRoundTrip(t *testing.T) {
	in := sampleMessage()

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"attachment"`)
	assert.Contains(t, string(data), `"kind":"embedded"`)

	var out Message
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.ID, out.ID)
	assert.True(t, in.Date.Equal(out.Date))
	assert.Equal(t, in.From, out.From)
	assert.Equal(t, in.Cc, out.Cc)
	require.Len(t, out.Children, 3)
	assert.Equal(t, in.Children[0], out.Children[0])
	assert.Equal(t, in.Children[1], out.Children[1])
	assert.Equal(t, in.Children[2], out.Children[2])
}

func TestMessageUnmarshalUnknownPart(t *testing.T) {
	var m Message
	err := json.Unmarshal([]byte(`{"subject":"x","children":[{"kind":"video"}]}`), &m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown part kind")
}

func TestMessageSource(t *testing.T) {
	src, err := sampleMessage().Source()
	require.NoError(t, err)

	assert.Contains(t, src, "Subject: Quarterly report")
	assert.Contains(t, src, "Message-ID: <abc@test>")
	assert.Contains(t, src, "report.csv")
	assert.Contains(t, src, "Content-ID: <logo>")
	assert.Contains(t, src, "text/html")
	assert.True(t, strings.Contains(src, "From: \"Sender\" <sender@example.com>") ||
		strings.Contains(src, "From: Sender <sender@example.com>"))
}
