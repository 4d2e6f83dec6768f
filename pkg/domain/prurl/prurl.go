// Package prurl extracts repository and pull request coordinates from GitHub URLs.
package prurl

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	repoPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)`)
	pullPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)`)
)

// ErrNotPullRequest indicates a URL that does not point at a GitHub pull request.
var ErrNotPullRequest = errors.New("not a GitHub pull request URL")

// RepoInfo names a GitHub repository.
type RepoInfo struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func (r RepoInfo) String() string {
	return r.Owner + "/" + r.Repo
}

// PullRequestRef names a single pull request.
type PullRequestRef struct {
	RepoInfo
	Number int `json:"number"`
}

func (p PullRequestRef) String() string {
	return fmt.Sprintf("%s#%d", p.RepoInfo, p.Number)
}

// ExtractRepoInfo returns the owner and repository of a GitHub URL.
// ok is false for anything that is not a github.com URL.
func ExtractRepoInfo(url string) (RepoInfo, bool) {
	m := repoPattern.FindStringSubmatch(url)
	if m == nil {
		return RepoInfo{}, false
	}
	return RepoInfo{Owner: m[1], Repo: m[2]}, true
}

// ParsePullRequest extracts owner, repository and pull number.
func ParsePullRequest(url string) (PullRequestRef, error) {
	m := pullPattern.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return PullRequestRef{}, fmt.Errorf("%w: %q", ErrNotPullRequest, url)
	}
	n, err := strconv.Atoi(m[3])
	if err != nil || n <= 0 {
		return PullRequestRef{}, fmt.Errorf("%w: %q", ErrNotPullRequest, url)
	}
	return PullRequestRef{RepoInfo: RepoInfo{Owner: m[1], Repo: m[2]}, Number: n}, nil
}
