package director

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultAnimateScenePrompt is used when a scenario does not say how to animate the base scene.
const DefaultAnimateScenePrompt = "Generate a live frame based on provided photo."

var (
	ErrInvalidLength   = errors.New("video length must be positive")
	ErrIndexOutOfRange = errors.New("action index out of bounds")
	ErrDuplicateIndex  = errors.New("actions share the same index")
)

// Scenario describes a multi-segment background video.
type Scenario struct {
	VideoName          string   `yaml:"video_name"`
	Length             int      `yaml:"length"` // number of fixed-duration segments
	BaseScenePrompt    string   `yaml:"base_scene_prompt"`
	AnimateScenePrompt string   `yaml:"animate_scene_prompt,omitempty"`
	Actions            []Action `yaml:"actions,omitempty"`
}

// Action is an instruction overlaid on the base scene at one segment index (0-based).
type Action struct {
	Prompt string `yaml:"prompt"`
	Index  int    `yaml:"index"`
}

func (a Action) String() string {
	return fmt.Sprintf("Action(index=%d, prompt=%q)", a.Index, a.Prompt)
}

// NewScenario builds a scenario and validates its action indexes.
func NewScenario(name string, length int, baseScene, animateScene string, actions ...Action) (*Scenario, error) {
	s := &Scenario{
		VideoName:          name,
		Length:             length,
		BaseScenePrompt:    baseScene,
		AnimateScenePrompt: animateScene,
		Actions:            append([]Action(nil), actions...),
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scenario) applyDefaults() {
	if strings.TrimSpace(s.AnimateScenePrompt) == "" {
		s.AnimateScenePrompt = DefaultAnimateScenePrompt
	}
}

// Validate checks that the length is positive, that every action index
// lies in [0, Length) and that no two actions target the same index.
func (s *Scenario) Validate() error {
	if s.Length <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidLength, s.Length)
	}

	for _, a := range s.Actions {
		if a.Index < 0 || a.Index >= s.Length {
			return fmt.Errorf("%w: start index %d is out of bounds for video length %d",
				ErrIndexOutOfRange, a.Index, s.Length)
		}
	}

	seen := make(map[int]Action, len(s.Actions))
	for _, a := range s.Actions {
		if prev, ok := seen[a.Index]; ok {
			return fmt.Errorf("%w: %s and %s share the same start index %d",
				ErrDuplicateIndex, prev, a, a.Index)
		}
		seen[a.Index] = a
	}

	return nil
}

// ActionsAt returns the actions that target the given segment index, in declaration order.
func (s *Scenario) ActionsAt(index int) []Action {
	var out []Action
	for _, a := range s.Actions {
		if a.Index == index {
			out = append(out, a)
		}
	}
	return out
}

// NeedsBaseClip reports whether at least one index has no action.
func (s *Scenario) NeedsBaseClip() bool {
	return len(s.Actions) < s.Length
}
