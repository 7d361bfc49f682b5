// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"bytes"
	_ "embed"
	"html/template"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// MessageParams feeds the default HTML body template.
type MessageParams struct {
	Channel      string
	Subject      string
	BrandingName string
	// Lines is the plain text body split into paragraphs; empty renders a test notice.
	Lines      []string
	Recipients []string
	SentAt     time.Time
}

var (
	messageTemplate = template.New("message").Funcs(sprig.FuncMap())

	//go:embed templates/message.html
	messageTemplateRaw string
)

func init() {
	if _, err := messageTemplate.Parse(messageTemplateRaw); err != nil {
		panic(err)
	}
}

func render(t *template.Template, p any) (string, error) {
	b := bytes.Buffer{}
	err := t.Execute(&b, p)
	return b.String(), err
}

// RenderMessage renders the HTML body for a message composed through the API.
func RenderMessage(p MessageParams) (string, error) {
	return render(messageTemplate, p)
}

// SplitLines turns a plain text body into non-empty paragraphs.
func SplitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
