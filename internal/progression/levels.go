package progression

// levelThresholds[i] is the cumulative point total required to hold
// level i+1. Level 1 starts at 0.
var levelThresholds = []int{
	0,    // level 1
	250,  // level 2
	600,  // level 3
	1100, // level 4
	1800, // level 5
	2700, // level 6
	3800, // level 7
	5100, // level 8
	6600, // level 9
	8300, // level 10
}

// pointsPerLevelBeyondTable extends the table past level 10 at a
// constant per-level increment.
const pointsPerLevelBeyondTable = 1700

// LevelForPoints maps a cumulative point total to a level.
// Monotonic non-decreasing; anything at or below zero is level 1.
func LevelForPoints(points int) int {
	if points <= 0 {
		return 1
	}

	level := 1
	for i, threshold := range levelThresholds {
		if points >= threshold {
			level = i + 1
		}
	}
	if level < len(levelThresholds) {
		return level
	}

	top := levelThresholds[len(levelThresholds)-1]
	return level + (points-top)/pointsPerLevelBeyondTable
}

// NextLevelAt returns the point total needed for the next level after
// the given one.
func NextLevelAt(level int) int {
	if level < 1 {
		level = 1
	}
	if level < len(levelThresholds) {
		return levelThresholds[level]
	}
	top := levelThresholds[len(levelThresholds)-1]
	return top + (level-len(levelThresholds)+1)*pointsPerLevelBeyondTable
}
