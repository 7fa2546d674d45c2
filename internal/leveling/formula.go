package leveling

import "math"

// Formula computes the XP cost of each level as floor(Base * level^Exponent).
type Formula struct {
	Base     float64
	Exponent float64
}

func (f Formula) XPForLevel(level int) int64 {
	if level <= 0 {
		return 0
	}
	return int64(math.Floor(f.Base * math.Pow(float64(level), f.Exponent)))
}

// TotalXPForLevel is the cumulative XP needed to reach level.
func (f Formula) TotalXPForLevel(level int) int64 {
	var total int64
	for l := 1; l <= level; l++ {
		total += f.XPForLevel(l)
	}
	return total
}

// LevelFromTotalXP returns the largest level whose cumulative cost fits in total.
func (f Formula) LevelFromTotalXP(total int64) int {
	level := 0
	var acc int64
	for {
		step := f.XPForLevel(level + 1)
		if step <= 0 || acc+step > total {
			return level
		}
		acc += step
		level++
	}
}

func (f Formula) XPWithinLevel(total int64, level int) int64 {
	return total - f.TotalXPForLevel(level)
}
