package caps

import (
	"unicode"

	"github.com/Mitake-ktm/Tsukihane/internal/config"
)

type Detector struct {
	threshold float64
	minLength int
}

func NewDetector(cfg config.CapsConfig) Detector {
	return Detector{threshold: cfg.Threshold, minLength: cfg.MinLength}
}

// Check returns the uppercase ratio over cased letters and whether it is
// abusive. Scripts without case are ignored. Messages with fewer than
// minLength cased letters are never flagged.
func (d Detector) Check(content string) (float64, bool) {
	letters, upper := 0, 0
	for _, r := range content {
		switch {
		case unicode.IsUpper(r):
			letters++
			upper++
		case unicode.IsLower(r):
			letters++
		}
	}
	if letters == 0 || letters < d.minLength {
		return 0, false
	}
	ratio := float64(upper) / float64(letters)
	return ratio, ratio >= d.threshold
}
