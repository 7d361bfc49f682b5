// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telekom/mail-profiler/pkg/apiresponses"
	"github.com/telekom/mail-profiler/pkg/mail"
	"github.com/telekom/mail-profiler/pkg/system"
)

// ChannelInfo describes a configured mail channel.
type ChannelInfo struct {
	Name    string `json:"name"`
	Default bool   `json:"default"`
	Queued  bool   `json:"queued"`
	Logging bool   `json:"logging"`
}

type AttachmentRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType"`
	// Content is base64 encoded.
	Content string `json:"content"`
	// ContentID makes the attachment an inline file.
	ContentID string `json:"contentId"`
}

// SendRequest is the body of a send call. When both Text and HTML are empty
// the body is rendered from the default template.
type SendRequest struct {
	To          []string            `json:"to" binding:"required,min=1"`
	Cc          []string            `json:"cc"`
	Bcc         []string            `json:"bcc"`
	Subject     string              `json:"subject"`
	Text        string              `json:"text"`
	HTML        string              `json:"html"`
	Attachments []AttachmentRequest `json:"attachments"`
}

type SendResponse struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
	Queued  bool   `json:"queued"`
}

type MailController struct {
	registry *mail.Registry
	branding string
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewMailController(registry *mail.Registry, branding string, log *zap.SugaredLogger) *MailController {
	return &MailController{
		registry: registry,
		branding: branding,
		log:      log.Named("mail-api"),
		now:      time.Now,
	}
}

func (mc *MailController) BasePath() string {
	return "/api/mail"
}

func (mc *MailController) Handlers() []gin.HandlerFunc {
	return nil
}

func (mc *MailController) Register(rg *gin.RouterGroup) error {
	rg.GET("/channels", mc.listChannels)
	rg.POST("/channels/:channel/messages", mc.send)
	return nil
}

func (mc *MailController) listChannels(c *gin.Context) {
	names := mc.registry.ChannelNames()
	out := make([]ChannelInfo, 0, len(names))
	for _, name := range names {
		out = append(out, ChannelInfo{
			Name:    name,
			Default: name == mc.registry.DefaultChannel(),
			Queued:  mc.registry.IsQueued(name),
			Logging: mc.registry.IsLogged(name),
		})
	}
	apiresponses.RespondOK(c, out)
}

func (mc *MailController) send(c *gin.Context) {
	reqLog := system.GetReqLogger(c, mc.log)
	name := c.Param("channel")

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid send request", err.Error())
		return
	}

	channel, err := mc.registry.Channel(name)
	if errors.Is(err, mail.ErrUnknownChannel) {
		apiresponses.RespondNotFound(c, "mail channel", name)
		return
	}
	if err != nil {
		apiresponses.RespondInternalError(c, "start mail channel", err, reqLog)
		return
	}

	msg, err := mc.buildMessage(name, req)
	if err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid message", err.Error())
		return
	}

	err = channel.Send(c.Request.Context(), msg)
	switch {
	case err == nil:
	case errors.Is(err, mail.ErrNoRecipients):
		apiresponses.RespondBadRequest(c, err.Error())
		return
	case errors.Is(err, mail.ErrQueueFull), errors.Is(err, mail.ErrQueueStopped):
		_ = c.Error(err)
		apiresponses.RespondServiceUnavailable(c, "mail spool of "+name)
		return
	default:
		apiresponses.RespondInternalError(c, "send mail", err, reqLog)
		return
	}

	reqLog.Infow("Mail accepted", "channel", name, "id", msg.ID, "queued", channel.IsQueued())
	resp := SendResponse{ID: msg.ID, Channel: name, Queued: channel.IsQueued()}
	if channel.IsQueued() {
		apiresponses.RespondAccepted(c, resp)
		return
	}
	apiresponses.RespondOK(c, resp)
}

func (mc *MailController) buildMessage(channel string, req SendRequest) (*mail.Message, error) {
	msg := &mail.Message{
		To:      toAddresses(req.To),
		Cc:      toAddresses(req.Cc),
		Bcc:     toAddresses(req.Bcc),
		Subject: req.Subject,
	}

	switch {
	case req.Text != "" && req.HTML != "":
		msg.ContentType = "text/plain"
		msg.Body = req.Text
		msg.Children = append(msg.Children, &mail.MimePart{ContentType: "text/html", Body: req.HTML})
	case req.HTML != "":
		msg.ContentType = "text/html"
		msg.Body = req.HTML
	case req.Text != "":
		// plain text gets a rendered HTML alternative
		html, err := mc.render(channel, req, mail.SplitLines(req.Text))
		if err != nil {
			return nil, err
		}
		msg.ContentType = "text/plain"
		msg.Body = req.Text
		msg.Children = append(msg.Children, &mail.MimePart{ContentType: "text/html", Body: html})
	default:
		html, err := mc.render(channel, req, nil)
		if err != nil {
			return nil, err
		}
		msg.ContentType = "text/html"
		msg.Body = html
	}

	for i, a := range req.Attachments {
		content, err := base64.StdEncoding.DecodeString(a.Content)
		if err != nil {
			return nil, fmt.Errorf("attachments[%d]: content is not base64: %w", i, err)
		}
		contentType := a.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(content)
		}
		att := mail.Attachment{Filename: a.Filename, ContentType: contentType, Content: content}
		if a.ContentID != "" {
			msg.Children = append(msg.Children, &mail.EmbeddedFile{Attachment: att, ContentID: a.ContentID})
			continue
		}
		msg.Children = append(msg.Children, &att)
	}
	return msg, nil
}

func (mc *MailController) render(channel string, req SendRequest, lines []string) (string, error) {
	body, err := mail.RenderMessage(mail.MessageParams{
		Channel:      channel,
		Subject:      req.Subject,
		BrandingName: mc.branding,
		Lines:        lines,
		Recipients:   req.To,
		SentAt:       mc.now(),
	})
	if err != nil {
		return "", fmt.Errorf("rendering body: %w", err)
	}
	return body, nil
}

func toAddresses(list []string) []mail.Address {
	if len(list) == 0 {
		return nil
	}
	out := make([]mail.Address, 0, len(list))
	for _, a := range list {
		out = append(out, mail.Address{Address: a})
	}
	return out
}
