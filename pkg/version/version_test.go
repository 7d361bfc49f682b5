// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
	"time"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()
	if info.Version == "" || info.GitCommit == "" || info.BuildDate == "" {
		t.Errorf("injected fields should have defaults, got %+v", info)
	}
	if info.GoVersion == "" {
		t.Error("GoVersion should be set by runtime.Version()")
	}
	if info.Platform == "" {
		t.Error("Platform should be set by runtime.GOOS/GOARCH")
	}
	if !info.BuildTime.IsZero() {
		t.Error("BuildTime should stay zero for a non RFC3339 BuildDate")
	}
}

func TestGetBuildInfo_ParsesValidDate(t *testing.T) {
	originalBuildDate := BuildDate
	defer func() { BuildDate = originalBuildDate }()

	validDate := "2026-01-13T20:00:00Z"
	BuildDate = validDate

	info := GetBuildInfo()
	expectedTime, _ := time.Parse(time.RFC3339, validDate)
	if !info.BuildTime.Equal(expectedTime) {
		t.Errorf("BuildTime = %v, want %v", info.BuildTime, expectedTime)
	}
}

func TestStringAndUserAgent(t *testing.T) {
	originalVersion := Version
	defer func() { Version = originalVersion }()
	Version = "1.2.3"

	if got := GetBuildInfo().String(); !strings.HasPrefix(got, "mailprofiler 1.2.3 (") {
		t.Errorf("String() = %q", got)
	}
	if got := UserAgent(); got != "mailprofiler/1.2.3" {
		t.Errorf("UserAgent() = %q", got)
	}
}
