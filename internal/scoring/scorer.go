// Package scoring computes the 0-100 compatibility score between a
// listing and a candidate profile. Scoring is fully deterministic: the
// same (job, profile) pair always yields the same score.
package scoring

import (
	"strings"

	"github.com/autovagas/autovagas/internal/core"
)

// Weights are the maximum points each component can contribute. The
// defaults sum to 100.
type Weights struct {
	Skills   int `mapstructure:"skills"`
	Title    int `mapstructure:"title"`
	Location int `mapstructure:"location"`
	Salary   int `mapstructure:"salary"`
}

func DefaultWeights() Weights {
	return Weights{
		Skills:   40,
		Title:    25,
		Location: 20,
		Salary:   15,
	}
}

type Scorer struct {
	weights Weights
}

func New(weights Weights) *Scorer {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Score computes the weighted compatibility of one listing, clamped to
// [0,100], along with the per-component breakdown.
func (s *Scorer) Score(job *core.Job, profile *core.CandidateProfile) *core.ScoredJob {
	breakdown := core.ScoreBreakdown{
		Skills:   s.skillsOverlap(job, profile),
		Title:    s.titleSimilarity(job, profile),
		Location: s.locationFit(job, profile),
		Salary:   s.salaryFit(job, profile),
	}

	total := breakdown.Skills + breakdown.Title + breakdown.Location + breakdown.Salary
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}

	return &core.ScoredJob{
		Job:       job,
		Score:     total,
		Breakdown: breakdown,
	}
}

// skillsOverlap scales the fraction of profile skills found in the job
// title+description (case-insensitive substring match).
func (s *Scorer) skillsOverlap(job *core.Job, profile *core.CandidateProfile) int {
	if len(profile.Skills) == 0 {
		return 0
	}

	haystack := strings.ToLower(job.Title + " " + job.Description)
	matched := 0
	for _, skill := range profile.Skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill != "" && strings.Contains(haystack, skill) {
			matched++
		}
	}

	return scale(matched, len(profile.Skills), s.weights.Skills)
}

// titleSimilarity scales the best token overlap between any desired
// title and the job title.
func (s *Scorer) titleSimilarity(job *core.Job, profile *core.CandidateProfile) int {
	if len(profile.DesiredTitles) == 0 {
		return 0
	}

	jobTokens := tokenize(job.Title)
	if len(jobTokens) == 0 {
		return 0
	}

	best := 0
	for _, desired := range profile.DesiredTitles {
		wanted := tokenize(desired)
		if len(wanted) == 0 {
			continue
		}

		matched := 0
		for token := range wanted {
			if _, ok := jobTokens[token]; ok {
				matched++
			}
		}

		if points := scale(matched, len(wanted), s.weights.Title); points > best {
			best = points
		}
	}

	return best
}

// locationFit gives full points on an exact or partial match against the
// profile locations, or when the job is remote and the profile accepts
// remote work. A partial (substring) match earns half.
func (s *Scorer) locationFit(job *core.Job, profile *core.CandidateProfile) int {
	if job.Remote && profile.AcceptsRemote {
		return s.weights.Location
	}

	jobLocation := strings.ToLower(strings.TrimSpace(job.Location))
	if jobLocation == "" {
		return 0
	}

	if strings.Contains(jobLocation, "remote") && profile.AcceptsRemote {
		return s.weights.Location
	}

	for _, loc := range profile.Locations {
		loc = strings.ToLower(strings.TrimSpace(loc))
		if loc == "" {
			continue
		}
		if loc == jobLocation {
			return s.weights.Location
		}
		if strings.Contains(jobLocation, loc) || strings.Contains(loc, jobLocation) {
			return s.weights.Location / 2
		}
	}

	return 0
}

// salaryFit scales the overlap between the job's stated range and the
// profile's acceptable range. An unparseable salary contributes zero.
func (s *Scorer) salaryFit(job *core.Job, profile *core.CandidateProfile) int {
	jobMin, jobMax, ok := ParseSalaryRange(job.SalaryText)
	if !ok {
		return 0
	}

	wantMin, wantMax := profile.SalaryMin, profile.SalaryMax
	if wantMax <= 0 {
		return 0
	}

	overlapMin := max(jobMin, wantMin)
	overlapMax := min(jobMax, wantMax)
	if overlapMax < overlapMin {
		return 0
	}

	span := wantMax - wantMin
	if span <= 0 {
		// Point preference inside the job's range.
		return s.weights.Salary
	}

	return scale(overlapMax-overlapMin, span, s.weights.Salary)
}

func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(s)) {
		token = strings.Trim(token, ".,;:()[]/-")
		if len(token) > 1 {
			tokens[token] = struct{}{}
		}
	}
	return tokens
}

func scale(part, whole, weight int) int {
	if whole <= 0 {
		return 0
	}
	if part > whole {
		part = whole
	}
	return part * weight / whole
}
