// Package runinfo records where a generation run happened, so reports from
// CI can be traced back to a build.
package runinfo

import (
	"os"
	"regexp"
	"strings"
)

// OverridePrefix prefixes environment variables that set fields explicitly.
const OverridePrefix = "SCHEMAANALYST_CI"

var pullRefPattern = regexp.MustCompile(`^refs/pull/([0-9]+)/`)

// Info is CI metadata attached to run summaries.
type Info struct {
	CI          bool   `json:"ci,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Repository  string `json:"repository,omitempty"`
	Branch      string `json:"branch,omitempty"`
	Commit      string `json:"commit,omitempty"`
	Job         string `json:"job,omitempty"`
	RunID       string `json:"run_id,omitempty"`
	PullRequest string `json:"pull_request,omitempty"`
	BuildURL    string `json:"build_url,omitempty"`
}

// provider maps a CI system's environment onto Info fields.
type provider struct {
	name   string
	detect string
	fields map[string][]string
}

var providers = []provider{
	{
		name:   "github_actions",
		detect: "GITHUB_ACTIONS",
		fields: map[string][]string{
			"repository": {"GITHUB_REPOSITORY"},
			"branch":     {"GITHUB_HEAD_REF", "GITHUB_REF_NAME"},
			"commit":     {"GITHUB_SHA"},
			"job":        {"GITHUB_JOB"},
			"run_id":     {"GITHUB_RUN_ID"},
		},
	},
	{
		name:   "gitlab_ci",
		detect: "GITLAB_CI",
		fields: map[string][]string{
			"repository": {"CI_PROJECT_PATH"},
			"branch":     {"CI_COMMIT_REF_NAME"},
			"commit":     {"CI_COMMIT_SHA"},
			"job":        {"CI_JOB_NAME"},
			"run_id":     {"CI_PIPELINE_ID"},
			"build_url":  {"CI_JOB_URL"},
		},
	},
	{
		name:   "buildkite",
		detect: "BUILDKITE",
		fields: map[string][]string{
			"repository": {"BUILDKITE_REPO"},
			"branch":     {"BUILDKITE_BRANCH"},
			"commit":     {"BUILDKITE_COMMIT"},
			"job":        {"BUILDKITE_LABEL"},
			"run_id":     {"BUILDKITE_BUILD_ID"},
			"build_url":  {"BUILDKITE_BUILD_URL"},
		},
	},
	{
		name:   "jenkins",
		detect: "JENKINS_URL",
		fields: map[string][]string{
			"branch":    {"BRANCH_NAME", "GIT_BRANCH"},
			"commit":    {"GIT_COMMIT"},
			"job":       {"JOB_NAME"},
			"run_id":    {"BUILD_ID"},
			"build_url": {"BUILD_URL"},
		},
	},
}

// FromEnv reads run metadata from the environment. It returns nil outside
// CI when no override is set.
func FromEnv() *Info {
	info := Info{}
	for _, p := range providers {
		if !detected(p.detect) {
			continue
		}
		info.CI = true
		info.Provider = p.name
		for field, keys := range p.fields {
			setIfEmpty(info.field(field), envFirst(keys...))
		}
		break
	}
	if info.Provider == "github_actions" {
		info.PullRequest = pullRequestFromRef(env("GITHUB_REF"))
		if info.Repository != "" && info.RunID != "" {
			server := strings.TrimRight(envFirst("GITHUB_SERVER_URL"), "/")
			if server == "" {
				server = "https://github.com"
			}
			info.BuildURL = server + "/" + info.Repository + "/actions/runs/" + info.RunID
		}
	}
	if isTruthy(env("CI")) {
		info.CI = true
	}
	applyOverrides(&info)
	info.Branch = strings.TrimPrefix(strings.TrimPrefix(info.Branch, "refs/heads/"), "origin/")
	if info.CI && info.Provider == "" {
		info.Provider = "generic"
	}
	if info == (Info{}) {
		return nil
	}
	return &info
}

func (i *Info) field(name string) *string {
	switch name {
	case "provider":
		return &i.Provider
	case "repository":
		return &i.Repository
	case "branch":
		return &i.Branch
	case "commit":
		return &i.Commit
	case "job":
		return &i.Job
	case "run_id":
		return &i.RunID
	case "pull_request":
		return &i.PullRequest
	case "build_url":
		return &i.BuildURL
	}
	return nil
}

var overrideFields = []string{"provider", "repository", "branch", "commit", "job", "run_id", "pull_request", "build_url"}

// applyOverrides lets SCHEMAANALYST_CI_<FIELD> replace detected values.
// Any override implies CI unless SCHEMAANALYST_CI is explicitly false.
func applyOverrides(info *Info) {
	explicit := false
	for _, name := range overrideFields {
		if v := env(OverridePrefix + "_" + strings.ToUpper(name)); v != "" {
			*info.field(name) = v
			explicit = true
		}
	}
	if v, ok := os.LookupEnv(OverridePrefix); ok && strings.TrimSpace(v) != "" {
		info.CI = isTruthy(v)
		return
	}
	if explicit {
		info.CI = true
	}
}

func detected(key string) bool {
	v := env(key)
	if key == "JENKINS_URL" {
		return v != ""
	}
	return isTruthy(v)
}

func pullRequestFromRef(ref string) string {
	if m := pullRefPattern.FindStringSubmatch(strings.TrimSpace(ref)); len(m) > 1 {
		return m[1]
	}
	return ""
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envFirst(keys ...string) string {
	for _, key := range keys {
		if v := env(key); v != "" {
			return v
		}
	}
	return ""
}

func setIfEmpty(dst *string, value string) {
	if dst == nil || *dst != "" || value == "" {
		return
	}
	*dst = value
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
