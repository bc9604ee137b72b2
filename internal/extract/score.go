package extract

import "newscrawl/internal/models"

// Score rates a candidate on an additive point scale. It is pure,
// deterministic, and monotonic: improving any input field never lowers
// the result.
//
//	text length   +40 over 300 chars, +20 over 1000, +10 over 2000
//	title         +15 when present and longer than 10 chars
//	author        +5
//	publish date  +5
//	images        +10 for at least one, +5 more for three or more
//	description   +5 when longer than 50 chars
func Score(c models.Candidate) int {
	score := 0

	if len(c.Text) > 300 {
		score += 40
	}
	if len(c.Text) > 1000 {
		score += 20
	}
	if len(c.Text) > 2000 {
		score += 10
	}

	if len(c.Title) > 10 {
		score += 15
	}
	if c.Author != "" {
		score += 5
	}
	if c.PublishedAt != nil {
		score += 5
	}

	if len(c.Images) >= 1 {
		score += 10
	}
	if len(c.Images) > 2 {
		score += 5
	}

	if len(c.Description) > 50 {
		score += 5
	}

	return score
}
