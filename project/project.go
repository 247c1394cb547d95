// Package project holds the domain types shared across the slipway pipeline:
// the user brief, the manifest produced by planning, and the generated file
// collection consumed by validation, staging and publishing.
package project

import (
	"fmt"
	"regexp"
	"strings"
)

// MinBriefLen is the minimum accepted length for a project brief.
const MinBriefLen = 10

// NameRe is the pattern every manifest project name must match.
var NameRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Stack names the technology choices planned for a project.
type Stack struct {
	Framework string `json:"framework"`
	Language  string `json:"language"`
	Styling   string `json:"styling"`
}

// FileSpec describes one file the generation phase must produce.
type FileSpec struct {
	Path    string `json:"path"`
	Purpose string `json:"purpose"`
}

// Manifest is the structured project plan. It is produced once per run by
// the planning task and is immutable afterwards.
type Manifest struct {
	ProjectName string     `json:"projectName"`
	Stack       Stack      `json:"stack"`
	FileSpecs   []FileSpec `json:"fileSpecs"`
	Features    []string   `json:"features,omitempty"`
}

// Framework returns the stack framework lowercased, for the deployer.
func (m *Manifest) Framework() string {
	return strings.ToLower(strings.TrimSpace(m.Stack.Framework))
}

// File is a single generated output file.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Collection is the ordered set of files produced by one generation attempt.
type Collection []File

// Get returns the file at path and whether it exists.
func (c Collection) Get(path string) (File, bool) {
	for _, f := range c {
		if f.Path == path {
			return f, true
		}
	}
	return File{}, false
}

// Replace swaps the content of the file at path, returning false when the
// path is not present. The collection order is preserved.
func (c Collection) Replace(path, content string) bool {
	for i := range c {
		if c[i].Path == path {
			c[i].Content = content
			return true
		}
	}
	return false
}

// Paths returns the collection's paths in order.
func (c Collection) Paths() []string {
	paths := make([]string, len(c))
	for i, f := range c {
		paths[i] = f.Path
	}
	return paths
}

// CheckBrief rejects briefs that are too short to plan from.
func CheckBrief(brief string) error {
	if len(strings.TrimSpace(brief)) < MinBriefLen {
		return fmt.Errorf("project brief must be at least %d characters", MinBriefLen)
	}
	return nil
}
