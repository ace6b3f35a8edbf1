// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.


package version

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// Build information, set with -ldflags "-X" at build time.
var (
	ReleaseVersion = "None"
	BuildTS        = "None"
	GitHash        = "None"
	GitBranch      = "None"
	GoVersion      = "None"
)

// describeSuffix matches what `git describe --dirty` appends to a tag.
var describeSuffix = regexp.MustCompile(`(-[0-9]+-g[0-9a-f]{7,})?(-dirty)?$`)

// Info is a snapshot of the build information.
type Info struct {
	ReleaseVersion string
	GitHash        string
	GitBranch      string
	BuildTS        string
	GoVersion      string
}

// Current returns the build information of the running binary.
func Current() Info {
	return Info{
		ReleaseVersion: ReleaseVersion,
		GitHash:        GitHash,
		GitBranch:      GitBranch,
		BuildTS:        BuildTS,
		GoVersion:      GoVersion,
	}
}

// Semver returns the release version as a semantic version, or "" for a
// build made outside a release tag.
func (i Info) Semver() string {
	tag := strings.TrimPrefix(describeSuffix.ReplaceAllString(i.ReleaseVersion, ""), "v")
	v, err := semver.NewVersion(tag)
	if err != nil {
		return ""
	}
	return v.String()
}

func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Release Version: %s\n", i.ReleaseVersion)
	fmt.Fprintf(&b, "Git Commit Hash: %s\n", i.GitHash)
	fmt.Fprintf(&b, "Git Branch: %s\n", i.GitBranch)
	fmt.Fprintf(&b, "UTC Build Time: %s\n", i.BuildTS)
	fmt.Fprintf(&b, "Go Version: %s\n", i.GoVersion)
	return b.String()
}

// LogVersionInfo logs the build information when app starts.
func LogVersionInfo(app string) {
	i := Current()
	log.Info("Welcome to "+app,
		zap.String("release-version", i.ReleaseVersion),
		zap.String("semver", i.Semver()),
		zap.String("git-hash", i.GitHash),
		zap.String("git-branch", i.GitBranch),
		zap.String("utc-build-time", i.BuildTS),
		zap.String("go-version", i.GoVersion))
}
