package logging

// ProgressSampler throttles done/total progress to one line per percentage
// step. The first count and the final one always emit; a new total starts
// the sequence over.
type ProgressSampler struct {
	step     float64
	total    int
	lastStep int
}

// NewProgressSampler emits every stepPercent percent (default 5).
func NewProgressSampler(stepPercent float64) *ProgressSampler {
	if stepPercent <= 0 {
		stepPercent = 5
	}
	return &ProgressSampler{step: stepPercent, lastStep: -1}
}

// ShouldLog reports whether done of total crosses into a new step. Counts
// against an empty total never emit.
func (s *ProgressSampler) ShouldLog(done, total int) bool {
	if s == nil {
		return true
	}
	if total != s.total {
		s.total = total
		s.lastStep = -1
	}
	if total <= 0 {
		return false
	}
	done = min(max(done, 0), total)
	step := int(float64(done) * 100 / float64(total) / s.step)
	if step <= s.lastStep {
		return false
	}
	s.lastStep = step
	return true
}
