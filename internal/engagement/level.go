package engagement

// XP thresholds for the first five levels. From linearBaseXP on the
// curve is linear: one level per 500 XP, so level 6 begins at 1300.
const (
	level2XP     = 50
	level3XP     = 150
	level4XP     = 300
	level5XP     = 500
	linearBaseXP = 800

	xpPerLevelAfter5 = 500
)

// LevelFromXP maps an XP total to a level. It is the single source of
// truth for leveling: every path that mutates XP must re-derive the
// level through it.
func LevelFromXP(xp int) int {
	switch {
	case xp < level2XP:
		return 1
	case xp < level3XP:
		return 2
	case xp < level4XP:
		return 3
	case xp < level5XP:
		return 4
	case xp < linearBaseXP:
		return 5
	default:
		return 5 + (xp-linearBaseXP)/xpPerLevelAfter5
	}
}

// MinXPForLevel returns the smallest XP total at which LevelFromXP
// yields the given level. It is the generalized inverse of the
// threshold table and exists only for admin-driven corrections, never
// for organic XP gain.
func MinXPForLevel(level int) int {
	switch {
	case level <= 1:
		return 0
	case level == 2:
		return level2XP
	case level == 3:
		return level3XP
	case level == 4:
		return level4XP
	case level == 5:
		return level5XP
	default:
		return linearBaseXP + (level-5)*xpPerLevelAfter5
	}
}

// ClampXPForLevel raises xp to the minimum required for the requested
// level when it falls short. Used by the admin override path so a
// stored level is never inconsistent with the XP backing it.
func ClampXPForLevel(xp, level int) int {
	if min := MinXPForLevel(level); xp < min {
		return min
	}
	return xp
}

// NextLevelXP returns the XP total at which the next level after the
// given one begins. Used for progress display.
func NextLevelXP(level int) int {
	return MinXPForLevel(level + 1)
}
