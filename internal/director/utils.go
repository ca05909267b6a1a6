package director

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ScenariosDir is where generated scenario files are stored by default.
var ScenariosDir = "scenarios"

// GenerateScenarioPath creates a scenario filename from the video name
func GenerateScenarioPath(videoName string) string {
	name := strings.ReplaceAll(strings.TrimSpace(videoName), " ", "_")
	if name == "" {
		name = "scenario_" + time.Now().Format("2006-01-02_15-04-05")
	}
	return filepath.Join(ScenariosDir, name+".yaml")
}

// FindLatestScenario finds the most recent scenario file in dir
func FindLatestScenario(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read scenarios directory: %w", err)
	}

	var scenarios []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && (strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			scenarios = append(scenarios, filepath.Join(dir, name))
		}
	}

	if len(scenarios) == 0 {
		return "", fmt.Errorf("no scenario files found in %s", dir)
	}

	// Sort by modification time (newest first)
	sort.Slice(scenarios, func(i, j int) bool {
		infoI, _ := os.Stat(scenarios[i])
		infoJ, _ := os.Stat(scenarios[j])
		return infoI.ModTime().After(infoJ.ModTime())
	})

	return scenarios[0], nil
}

// Examples returns the built-in scenarios written by `bgvideo init`.
func Examples() []*Scenario {
	return []*Scenario{
		{
			VideoName: "forest_lake_video",
			Length:    3,
			BaseScenePrompt: "A serene forest lake with a clear blue sky and gentle ripples on the water. " +
				"Semi-realistic, cinematic composition, high detail.",
			AnimateScenePrompt: DefaultAnimateScenePrompt,
			Actions: []Action{
				{Prompt: "A small boat drifts on the lake, a single rowboat.", Index: 1},
			},
		},
		{
			VideoName: "rainy_valley_video",
			Length:    4,
			BaseScenePrompt: "A high-tech yet rustic forest cabin interior perched on a mountainside, with a floor-to-ceiling " +
				"panoramic glass wall overlooking a misty, rain-soaked valley of pine trees. Warm amber light from floor lamps " +
				"and a modern glass-fronted fireplace contrasts with the cool blue-grey daylight. A sleek wooden desk with " +
				"glowing monitors faces the window, and a large fluffy dog rests on a rug beside the fire.",
			AnimateScenePrompt: "Use the provided image as the first frame. Lock the camera for the entire sequence. " +
				"Keep every object static except the fireplace flames, which flicker subtly. " +
				"The final frame must be identical to the first frame for a seamless loop.",
			Actions: []Action{
				{Prompt: "On the left-most monitor, a minimal market chart updates, then fades out. No sound.", Index: 1},
				{Prompt: "The dog by the fireplace gives a tiny ear twitch and slow blink; head remains down.", Index: 2},
			},
		},
		{
			VideoName: "coffee_shop_video",
			Length:    2,
			BaseScenePrompt: "Modern Nordic-style coffee shop on a quiet Sunday afternoon. Bright, warm daylight from two glass " +
				"walls, pendant lamps with a soft amber glow, light oak tables, abundant plants and a full-wall bookshelf. " +
				"Only two or three patrons seated quietly. No motion implied.",
			AnimateScenePrompt: "Animate the provided still image into a live photo with the camera completely locked. " +
				"Add only subtle, repeating environmental motion: gentle steam rising from a cup, extremely slight plant sway. " +
				"The final frame must match the first frame exactly for a perfect loop.",
		},
	}
}
