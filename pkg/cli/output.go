// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/telekom/mail-profiler/pkg/api"
	"github.com/telekom/mail-profiler/pkg/profiler"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func WriteObject(w io.Writer, format Format, obj any) error {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case FormatYAML:
		data, err := yaml.Marshal(obj)
		if err != nil {
			return fmt.Errorf("failed to marshal to YAML: %w", err)
		}
		_, err = fmt.Fprint(w, string(data))
		return err
	case FormatTable:
		return fmt.Errorf("table format requires a specific formatter")
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func WriteProfileTable(w io.Writer, profiles []profiler.ProfileSummary) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TOKEN\tIP\tMETHOD\tURL\tSTATUS\tTIME")
	for _, p := range profiles {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", p.Token, p.IP, p.Method, p.URL, p.StatusCode, formatTime(p.Time))
	}
	_ = tw.Flush()
}

// WriteMailPanelTable prints one row per logged message, grouped by channel.
// Channels without messages still get a row so their counters are visible.
func WriteMailPanelTable(w io.Writer, panel api.MailPanel) {
	_, _ = fmt.Fprintf(w, "Profile %s: %d message(s), default channel %q\n\n", panel.Token, panel.MessageCount, panel.DefaultChannel)

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CHANNEL\tDEFAULT\tQUEUED\tCOUNT\t#\tSUBJECT\tTO\tATTACHMENTS")
	for _, ch := range panel.Channels {
		if len(ch.Messages) == 0 {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t-\t-\t-\t-\n", ch.Name, yesNo(ch.IsDefault), yesNo(ch.IsQueued), ch.MessageCount)
			continue
		}
		for _, m := range ch.Messages {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
				ch.Name, yesNo(ch.IsDefault), yesNo(ch.IsQueued), ch.MessageCount,
				m.Index, m.Subject, strings.Join(m.To, ","), attachmentNames(m.Attachments))
		}
	}
	_ = tw.Flush()
}

func attachmentNames(list []api.AttachmentView) string {
	if len(list) == 0 {
		return "-"
	}
	names := make([]string, 0, len(list))
	for _, a := range list {
		names = append(names, a.Filename)
	}
	return strings.Join(names, ",")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
