// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package profiler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/telekom/mail-profiler/pkg/system"
)

const (
	TokenHeader = "X-Debug-Token"
	LinkHeader  = "X-Debug-Token-Link"

	// TokenKey holds the profile token of the current request in the gin context.
	TokenKey = "profileToken"
)

// Middleware profiles every request outside of skipPrefix. The token headers are
// set before the handler runs so they survive handlers that flush the response.
// Each scope attaches its state to the context of a profiled request only;
// skipped requests and requests made while profiling is disabled carry none.
func Middleware(p *Profiler, log *zap.SugaredLogger, skipPrefix string, scopes ...RequestScope) gin.HandlerFunc {
	log = log.Named("profiler-middleware")
	return func(c *gin.Context) {
		if !p.IsEnabled() || (skipPrefix != "" && strings.HasPrefix(c.Request.URL.Path, skipPrefix)) {
			c.Next()
			return
		}

		token := uuid.NewString()[:8]
		c.Set(TokenKey, token)
		c.Header(TokenHeader, token)
		if skipPrefix != "" {
			c.Header(LinkHeader, skipPrefix+"/"+token)
		}

		ctx := c.Request.Context()
		for _, s := range scopes {
			ctx = s.Attach(ctx)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		var reqErr error
		if last := c.Errors.Last(); last != nil {
			reqErr = last.Err
		}
		resp := &Response{StatusCode: c.Writer.Status(), Header: c.Writer.Header().Clone()}

		reqLog := system.GetReqLogger(c, log).With("token", token)
		profile, err := p.Collect(token, c.Request, resp, reqErr)
		if err != nil {
			reqLog.Warnw("Profile collected with errors", "error", err)
		}
		profile.IP = c.ClientIP()

		if err := p.SaveProfile(context.WithoutCancel(c.Request.Context()), profile); err != nil {
			reqLog.Errorw("Failed to store profile", "error", err)
		}
	}
}

// TokenFromContext returns the profile token of the current request, if it is profiled.
func TokenFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(TokenKey)
	if !ok {
		return "", false
	}
	token, ok := v.(string)
	return token, ok
}
