package game

// HitTrail reports whether p lies within sqrt(thresholdSq) of any segment
// of trail, ignoring the skipRecent newest points. Segments are checked
// newest first.
func HitTrail(p Vec2, trail *Trail, skipRecent int, thresholdSq float64) bool {
	if skipRecent < 0 {
		skipRecent = 0
	}
	last := trail.Len() - 1 - skipRecent
	for i := last; i > 0; i-- {
		if SegDistSq(p, trail.At(i-1), trail.At(i)) < thresholdSq {
			return true
		}
	}
	return false
}

// selfSkip is the number of own-trail points excluded from collision so a
// bike never collides with the segment it is drawing.
func selfSkip(trailLen, window int) int {
	return min(window, trailLen-1)
}
