package director

import (
	"fmt"
	"strings"
)

// DefaultStylePreamble prefixes every video prompt.
const DefaultStylePreamble = "Semi-realistic cinematic live photo. Locked-off camera with no pan, tilt, zoom or reframing. " +
	"Preserve the composition, lighting and colors of the provided image. The last frame must match the first frame for a seamless loop."

// SegmentPlan is the generation recipe for one segment.
type SegmentPlan struct {
	Index   int // 0-based
	Actions []Action
	Prompt  string
	Base    bool // true when no action targets this index and the base clip is reused
}

// Director turns a scenario into an ordered list of segment plans
type Director struct {
	StylePreamble string
}

// NewDirector creates a new Director with the default style preamble
func NewDirector() *Director {
	return &Director{StylePreamble: DefaultStylePreamble}
}

// Plan returns one SegmentPlan per index in ascending order. Action-free
// indexes share the same base prompt.
func (d *Director) Plan(s *Scenario) ([]SegmentPlan, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	base := d.BasePrompt(s)
	plans := make([]SegmentPlan, 0, s.Length)
	for i := 0; i < s.Length; i++ {
		actions := s.ActionsAt(i)
		if len(actions) == 0 {
			plans = append(plans, SegmentPlan{Index: i, Prompt: base, Base: true})
			continue
		}
		plans = append(plans, SegmentPlan{
			Index:   i,
			Actions: actions,
			Prompt:  d.ActionPrompt(s, i, actions),
		})
	}
	return plans, nil
}

// BasePrompt is the prompt of the reusable action-free clip.
func (d *Director) BasePrompt(s *Scenario) string {
	return joinPrompt(d.StylePreamble, s.BaseScenePrompt, s.AnimateScenePrompt)
}

// ActionPrompt is the prompt of a segment that carries one or more actions.
func (d *Director) ActionPrompt(s *Scenario, index int, actions []Action) string {
	parts := []string{
		d.StylePreamble,
		s.BaseScenePrompt,
		s.AnimateScenePrompt,
		fmt.Sprintf("This is segment %d of %d.", index+1, s.Length),
	}
	for _, a := range actions {
		parts = append(parts, "Action: "+strings.TrimSpace(a.Prompt))
	}
	return joinPrompt(parts...)
}

// joinPrompt trims each part and joins the non-empty ones with a blank line.
func joinPrompt(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
