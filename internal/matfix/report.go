package matfix

import (
	"fmt"
	"time"
)

// Action names a batch operation.
type Action string

const (
	ActionAssign     Action = "assign"
	ActionFixNormals Action = "fix-normals"
	ActionUnassign   Action = "unassign"
)

// Assignment records one texture placed into a material slot.
type Assignment struct {
	Material string
	Texture  string
	Kind     MatchKind
}

// Failure is a material that received no primary texture.
type Failure struct {
	Material   string
	Path       string
	Suggestion string
}

// HostError is a host-side failure that was skipped over.
type HostError struct {
	Subject string
	Err     error
}

func (e HostError) Error() string {
	return fmt.Sprintf("%s: %v", e.Subject, e.Err)
}

func (e HostError) Unwrap() error { return e.Err }

// Report is the outcome of a single batch run. It is owned by the caller.
type Report struct {
	Action     Action
	StartedAt  time.Time
	Shader     string
	Processed  int
	Assigned   []Assignment
	NormalMaps []Assignment
	Failed     []Failure
	Reimported []string
	Cleared    []string
	Errors     []HostError
}

func newReport(action Action) *Report {
	return &Report{Action: action, StartedAt: time.Now()}
}

// Summary is a one-line description of the run.
func (r *Report) Summary() string {
	switch r.Action {
	case ActionAssign:
		return fmt.Sprintf("%d materials: %d assigned, %d normal maps, %d failed",
			r.Processed, len(r.Assigned), len(r.NormalMaps), len(r.Failed))
	case ActionFixNormals:
		return fmt.Sprintf("%d normal maps reimported, %d errors", len(r.Reimported), len(r.Errors))
	case ActionUnassign:
		return fmt.Sprintf("%d materials cleared", len(r.Cleared))
	default:
		return string(r.Action)
	}
}

// pather is implemented by materials that know their asset path.
type pather interface {
	Path() string
}

func assetPath(v any) string {
	if p, ok := v.(pather); ok {
		return p.Path()
	}
	return ""
}
