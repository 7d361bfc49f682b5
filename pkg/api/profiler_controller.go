// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/telekom/mail-profiler/pkg/apiresponses"
	"github.com/telekom/mail-profiler/pkg/collector"
	"github.com/telekom/mail-profiler/pkg/mail"
	"github.com/telekom/mail-profiler/pkg/profiler"
	"github.com/telekom/mail-profiler/pkg/ratelimit"
	"github.com/telekom/mail-profiler/pkg/system"
)

// ProfilerBasePath is where stored profiles are served. Requests below it are never profiled.
const ProfilerBasePath = "/_profiler"

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// AttachmentView describes an attachment without its content.
type AttachmentView struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	Inline      bool   `json:"inline"`
	ContentID   string `json:"contentId,omitempty"`
}

type MessageView struct {
	Index       int              `json:"index"`
	ID          string           `json:"id"`
	Date        time.Time        `json:"date"`
	From        string           `json:"from"`
	To          []string         `json:"to"`
	Cc          []string         `json:"cc,omitempty"`
	Bcc         []string         `json:"bcc,omitempty"`
	Subject     string           `json:"subject"`
	ContentType string           `json:"contentType,omitempty"`
	Attachments []AttachmentView `json:"attachments"`
}

type ChannelPanel struct {
	Name         string        `json:"name"`
	IsDefault    bool          `json:"isDefault"`
	IsQueued     bool          `json:"isQueued"`
	MessageCount int           `json:"messageCount"`
	Messages     []MessageView `json:"messages"`
}

// MailPanel is the mail section of a profile as rendered for clients.
type MailPanel struct {
	Token          string         `json:"token"`
	DefaultChannel string         `json:"defaultChannel"`
	MessageCount   int            `json:"messageCount"`
	Channels       []ChannelPanel `json:"channels"`
}

type ProfilerController struct {
	profiler *profiler.Profiler
	limiter  *ratelimit.IPRateLimiter
	log      *zap.SugaredLogger
}

func NewProfilerController(p *profiler.Profiler, limiter *ratelimit.IPRateLimiter, log *zap.SugaredLogger) *ProfilerController {
	return &ProfilerController{
		profiler: p,
		limiter:  limiter,
		log:      log.Named("profiler-api"),
	}
}

func (pc *ProfilerController) BasePath() string {
	return ProfilerBasePath
}

func (pc *ProfilerController) Handlers() []gin.HandlerFunc {
	if pc.limiter == nil {
		return nil
	}
	return []gin.HandlerFunc{pc.limiter.Middleware()}
}

func (pc *ProfilerController) Register(rg *gin.RouterGroup) error {
	rg.GET("/", pc.list)
	rg.DELETE("/", pc.purge)
	rg.GET("/:token", pc.show)
	rg.GET("/:token/mail", pc.mailPanel)
	rg.GET("/:token/mail/:channel/:index/source", pc.messageSource)
	return nil
}

func (pc *ProfilerController) Close() {
	if pc.limiter != nil {
		pc.limiter.Stop()
	}
}

func (pc *ProfilerController) list(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			apiresponses.RespondBadRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	summaries, err := pc.profiler.Find(c.Request.Context(), limit)
	if err != nil {
		apiresponses.RespondInternalError(c, "list profiles", err, system.GetReqLogger(c, pc.log))
		return
	}
	apiresponses.RespondOK(c, summaries)
}

func (pc *ProfilerController) purge(c *gin.Context) {
	if err := pc.profiler.Purge(c.Request.Context()); err != nil {
		apiresponses.RespondInternalError(c, "purge profiles", err, system.GetReqLogger(c, pc.log))
		return
	}
	system.GetReqLogger(c, pc.log).Info("Profiles purged")
	c.Status(http.StatusNoContent)
}

func (pc *ProfilerController) show(c *gin.Context) {
	profile, ok := pc.load(c)
	if !ok {
		return
	}
	apiresponses.RespondOK(c, profile)
}

func (pc *ProfilerController) mailPanel(c *gin.Context) {
	profile, ok := pc.load(c)
	if !ok {
		return
	}
	mc, ok := pc.mailCollector(c, profile)
	if !ok {
		return
	}
	apiresponses.RespondOK(c, BuildMailPanel(profile.Token, mc))
}

func (pc *ProfilerController) messageSource(c *gin.Context) {
	profile, ok := pc.load(c)
	if !ok {
		return
	}
	mc, ok := pc.mailCollector(c, profile)
	if !ok {
		return
	}

	channel := c.Param("channel")
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		apiresponses.RespondBadRequest(c, "index must be a non-negative integer")
		return
	}
	msgs := mc.Messages(channel)
	if index >= len(msgs) {
		apiresponses.RespondNotFound(c, "message", channel+"/"+c.Param("index"))
		return
	}

	source, err := msgs[index].Source()
	if err != nil {
		apiresponses.RespondInternalError(c, "render message source", err, system.GetReqLogger(c, pc.log))
		return
	}
	c.Data(http.StatusOK, "message/rfc822", []byte(source))
}

func (pc *ProfilerController) load(c *gin.Context) (*profiler.Profile, bool) {
	token := c.Param("token")
	profile, err := pc.profiler.LoadProfile(c.Request.Context(), token)
	if errors.Is(err, profiler.ErrProfileNotFound) {
		apiresponses.RespondNotFound(c, "profile", token)
		return nil, false
	}
	if err != nil {
		apiresponses.RespondInternalError(c, "load profile", err, system.GetReqLogger(c, pc.log))
		return nil, false
	}
	return profile, true
}

func (pc *ProfilerController) mailCollector(c *gin.Context, profile *profiler.Profile) (*collector.MailCollector, bool) {
	var snapshot collector.Snapshot
	err := profile.DecodeCollector(collector.Name, &snapshot)
	if errors.Is(err, profiler.ErrCollectorNotFound) {
		apiresponses.RespondNotFound(c, "mail data of profile", profile.Token)
		return nil, false
	}
	if err != nil {
		apiresponses.RespondInternalError(c, "decode mail data", err, system.GetReqLogger(c, pc.log))
		return nil, false
	}
	return collector.FromSnapshot(snapshot), true
}

// BuildMailPanel renders the collected mail data through the collector accessors.
func BuildMailPanel(token string, mc *collector.MailCollector) MailPanel {
	panel := MailPanel{
		Token:          token,
		DefaultChannel: mc.Snapshot().DefaultChannel,
		MessageCount:   mc.MessageCount(),
		Channels:       []ChannelPanel{},
	}
	for _, name := range mc.ChannelNames() {
		// names come from the snapshot itself so lookups cannot fail
		queued, _ := mc.IsQueued(name)
		count, _ := mc.ChannelMessageCount(name)

		cp := ChannelPanel{
			Name:         name,
			IsDefault:    mc.IsDefaultChannel(name),
			IsQueued:     queued,
			MessageCount: count,
			Messages:     []MessageView{},
		}
		for i, msg := range mc.Messages(name) {
			cp.Messages = append(cp.Messages, messageView(i, msg, mc.ExtractAttachments(msg)))
		}
		panel.Channels = append(panel.Channels, cp)
	}
	return panel
}

func messageView(index int, msg *mail.Message, attachments []mail.Part) MessageView {
	v := MessageView{
		Index:       index,
		ID:          msg.ID,
		Date:        msg.Date,
		From:        msg.From.String(),
		To:          addressStrings(msg.To),
		Cc:          addressStrings(msg.Cc),
		Bcc:         addressStrings(msg.Bcc),
		Subject:     msg.Subject,
		ContentType: msg.ContentType,
		Attachments: make([]AttachmentView, 0, len(attachments)),
	}
	for _, p := range attachments {
		switch a := p.(type) {
		case *mail.EmbeddedFile:
			v.Attachments = append(v.Attachments, AttachmentView{
				Filename: a.Filename, ContentType: a.ContentType, Size: a.Size(), Inline: true, ContentID: a.ContentID,
			})
		case *mail.Attachment:
			v.Attachments = append(v.Attachments, AttachmentView{
				Filename: a.Filename, ContentType: a.ContentType, Size: a.Size(),
			})
		}
	}
	return v
}

func addressStrings(list []mail.Address) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.String())
	}
	return out
}
