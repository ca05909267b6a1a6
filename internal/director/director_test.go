package director

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPlanLakeExample(t *testing.T) {
	s, err := NewScenario("forest_lake_video", 3, "A serene forest lake.", "",
		Action{Prompt: "A small boat drifts on the lake.", Index: 1})
	require.NoError(t, err)

	plans, err := NewDirector().Plan(s)
	require.NoError(t, err)
	require.Len(t, plans, 3)

	assert.True(t, plans[0].Base)
	assert.False(t, plans[1].Base)
	assert.True(t, plans[2].Base)
	assert.Equal(t, plans[0].Prompt, plans[2].Prompt)

	assert.Contains(t, plans[1].Prompt, "A small boat drifts on the lake.")
	assert.Contains(t, plans[1].Prompt, "This is segment 2 of 3.")
	assert.Contains(t, plans[1].Prompt, "A serene forest lake.")
	assert.NotContains(t, plans[0].Prompt, "boat")
}

func TestPlanRejectsInvalidScenario(t *testing.T) {
	s := &Scenario{VideoName: "bad", Length: 2, Actions: []Action{{Prompt: "x", Index: 2}}}
	_, err := NewDirector().Plan(s)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestBasePromptParts(t *testing.T) {
	d := &Director{StylePreamble: "STYLE"}
	s := &Scenario{BaseScenePrompt: "  SCENE ", AnimateScenePrompt: "ANIMATE"}
	assert.Equal(t, "STYLE\n\nSCENE\n\nANIMATE", d.BasePrompt(s))

	d.StylePreamble = ""
	assert.Equal(t, "SCENE\n\nANIMATE", d.BasePrompt(s))
}

func TestActionPromptOrder(t *testing.T) {
	d := &Director{StylePreamble: "STYLE"}
	s := &Scenario{Length: 4, BaseScenePrompt: "SCENE", AnimateScenePrompt: "ANIMATE"}

	got := d.ActionPrompt(s, 3, []Action{{Prompt: "wave", Index: 3}})
	assert.Equal(t, "STYLE\n\nSCENE\n\nANIMATE\n\nThis is segment 4 of 4.\n\nAction: wave", got)
}

func TestPlanCoversEveryIndex(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		length := rapid.IntRange(1, 15).Draw(t, "length")
		indexes := rapid.SliceOfDistinct(rapid.IntRange(0, length-1), rapid.ID[int]).Draw(t, "indexes")
		actions := make([]Action, len(indexes))
		for i, idx := range indexes {
			actions[i] = Action{Prompt: "action-" + strings.Repeat("x", idx+1), Index: idx}
		}

		s, err := NewScenario("v", length, "scene", "", actions...)
		if err != nil {
			t.Fatalf("scenario: %v", err)
		}
		plans, err := NewDirector().Plan(s)
		if err != nil {
			t.Fatalf("plan: %v", err)
		}
		if len(plans) != length {
			t.Fatalf("got %d plans, want %d", len(plans), length)
		}

		withAction := make(map[int]bool, len(indexes))
		for _, idx := range indexes {
			withAction[idx] = true
		}
		for i, p := range plans {
			if p.Index != i {
				t.Fatalf("plan %d has index %d", i, p.Index)
			}
			if p.Base == withAction[i] {
				t.Fatalf("plan %d: base=%v but action present=%v", i, p.Base, withAction[i])
			}
		}
	})
}
