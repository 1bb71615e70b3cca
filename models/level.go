package models

// DefaultExperiencePerLevel is how much experience each level costs
const DefaultExperiencePerLevel int64 = 100

// LevelForExperience returns the level reached with the given experience.
// Levels start at 1.
func LevelForExperience(experience, perLevel int64) int {
	if perLevel <= 0 {
		perLevel = DefaultExperiencePerLevel
	}
	if experience < 0 {
		experience = 0
	}
	return int(1 + experience/perLevel)
}
