// Package consistency derives the consistency score of a scene timeline.
//
// The score starts at 100, loses half a point per scene (capped at 10),
// gains up to 5 points for the share of visual adjustments among all edits
// and 5 points once the timeline has four or more scenes. The result is
// rounded half-up and clamped to [MinScore, MaxScore].
package consistency

import (
	"math"

	"github.com/kittclouds/chronicle/pkg/story"
)

const (
	MaxScore = 100
	MinScore = 85

	scenePenalty     = 0.5
	maxScenePenalty  = 10.0
	visualBonus      = 5.0
	depthBonus       = 5.0
	depthBonusScenes = 4
)

// Score returns the consistency score for scenes. Order does not matter.
func Score(scenes []story.Scene) int {
	if len(scenes) == 0 {
		return MaxScore
	}

	n := len(scenes)
	score := float64(MaxScore)
	score -= math.Min(float64(n)*scenePenalty, maxScenePenalty)

	total, visual := countEdits(scenes)
	if total > 0 {
		score += float64(visual) / float64(total) * visualBonus
	}
	if n >= depthBonusScenes {
		score += depthBonus
	}

	// half-up, matching the score shown by the browser client
	rounded := int(math.Floor(score + 0.5))
	return clamp(rounded, MinScore, MaxScore)
}

func countEdits(scenes []story.Scene) (total, visual int) {
	for _, s := range scenes {
		for _, e := range s.Edits {
			total++
			if e.EditType == story.EditVisualAdjustment {
				visual++
			}
		}
	}
	return total, visual
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
