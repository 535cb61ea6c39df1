// Package suite runs validation scenarios against a project: filesystem
// existence checks, structural checks over JSON documents, and tool
// invocations whose outcome is asserted.
package suite

import (
	"fmt"
	"time"

	"github.com/deixis/scaffoldcheck/internal/manifest"
)

// Kind selects how a scenario is executed and judged.
type Kind string

const (
	// KindExists requires every path in Paths to exist. Paths ending in
	// "/" must be directories.
	KindExists Kind = "exists"
	// KindStructure requires every field check to hold in Document.
	KindStructure Kind = "structure"
	// KindPresence requires a version query to succeed and match.
	KindPresence Kind = "presence"
	// KindAccept requires the tool to succeed on a valid fixture.
	KindAccept Kind = "accept"
	// KindReject requires the tool to exit non-zero on an invalid fixture.
	KindReject Kind = "reject"
	// KindProbe requires the tool to run to completion, whatever its exit code.
	KindProbe Kind = "probe"
	// KindArtifact requires Setup to remove stale output and Command to
	// produce Expect.Artifact.
	KindArtifact Kind = "artifact"
)

// Placeholder is replaced in commands by the fixture's root-relative path.
const Placeholder = "{fixture}"

// Fixture is a throwaway source file. Name is a stem; the suite appends a
// unique suffix and the scratch extension.
type Fixture struct {
	Name     string
	Contents string
}

// Scenario is one declarative validation case. Scenarios hold no state
// and may be run any number of times.
type Scenario struct {
	Name        string
	Description string
	Kind        Kind

	Command string        // tool invocation; may contain {fixture}
	Setup   string        // run before Command; must succeed
	Timeout time.Duration // per command; zero uses the runner default
	Fixture *Fixture
	Expect  Expect

	Paths    []string         // KindExists
	Document string           // KindStructure, root-relative
	Fields   []manifest.Field // KindStructure
	Output   string           // KindArtifact: directory Setup must clear

	// Exclusive scenarios read or write shared project state (the build
	// output, the whole source tree) and never run alongside others.
	Exclusive bool
}

// Validate reports a scenario that cannot be executed as declared.
func (sc Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	switch sc.Kind {
	case KindExists:
		if len(sc.Paths) == 0 {
			return fmt.Errorf("scenario %s: no paths", sc.Name)
		}
	case KindStructure:
		if sc.Document == "" {
			return fmt.Errorf("scenario %s: no document", sc.Name)
		}
	case KindPresence, KindProbe:
		if sc.Command == "" {
			return fmt.Errorf("scenario %s: no command", sc.Name)
		}
	case KindAccept, KindReject:
		if sc.Command == "" {
			return fmt.Errorf("scenario %s: no command", sc.Name)
		}
		if sc.Fixture == nil {
			return fmt.Errorf("scenario %s: %s needs a fixture", sc.Name, sc.Kind)
		}
	case KindArtifact:
		if sc.Setup == "" || sc.Output == "" {
			return fmt.Errorf("scenario %s: artifact needs setup and output", sc.Name)
		}
	default:
		return fmt.Errorf("scenario %s: unknown kind %q", sc.Name, sc.Kind)
	}
	return nil
}
