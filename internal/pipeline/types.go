// Package pipeline turns a validated generation request into a published,
// hosted single-page app: it generates the files, provisions a repository,
// commits the files, enables static hosting and notifies the evaluator.
package pipeline

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"git.home.luguber.info/inful/pagesmith/internal/codegen"
)

// Stage names used in logs, metrics and the run journal.
const (
	StageValidate  = "validate"
	StageGenerate  = "generate"
	StageProvision = "provision"
	StagePublish   = "publish"
	StagePages     = "pages"
	StageNotify    = "notify"
)

// FileSet is the ordered set of generated files.
type FileSet = codegen.FileSet

// Round identifies the evaluation round. It accepts a JSON number or string
// and keeps the textual form.
type Round string

// UnmarshalJSON implements json.Unmarshaler.
func (r *Round) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Round(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*r = Round(n.String())
	return nil
}

// String returns the textual round.
func (r Round) String() string { return string(r) }

// GenerationRequest is the inbound request body.
type GenerationRequest struct {
	Email       string               `json:"email"`
	Task        string               `json:"task"`
	Round       Round                `json:"round"`
	Nonce       string               `json:"nonce"`
	Secret      string               `json:"secret"`
	Brief       string               `json:"brief"`
	Attachments []codegen.Attachment `json:"attachments,omitempty"`
}

// RepositoryHandle identifies a provisioned repository.
type RepositoryHandle struct {
	Owner         string
	Name          string
	DefaultBranch string
	HTMLURL       string
	// HeadSHA is the branch head last observed or written by pagesmith.
	HeadSHA string
}

// FullName returns owner/name.
func (h RepositoryHandle) FullName() string {
	return h.Owner + "/" + h.Name
}

// PredictedPagesURL is the conventional project site URL of the repository.
func (h RepositoryHandle) PredictedPagesURL() string {
	return "https://" + strings.ToLower(h.Owner) + ".github.io/" + h.Name + "/"
}

// CommitResult describes the commit created by the publisher.
type CommitResult struct {
	SHA       string
	TreeSHA   string
	ParentSHA string
	Files     int
}

// Result is the outcome of a successful run.
type Result struct {
	RunID          string
	Repository     string
	RepoURL        string
	PagesURL       string
	CommitSHA      string
	NotifyAttempts int
	Warnings       []string
	Duration       time.Duration
}
