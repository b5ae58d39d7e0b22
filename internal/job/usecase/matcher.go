package usecase

import (
	"sort"
	"strings"
	"time"

	jobdomain "signdesk-backend/internal/job/domain"
	"signdesk-backend/internal/job/repository"
	"signdesk-backend/pkg/fuzzy"
)

const defaultMatchLimit = 3

// Matcher scores active jobs against free-text keyword cues to find the job
// an inbound message most likely refers to.
type Matcher struct {
	jobs    repository.JobRepository
	nowFunc func() time.Time
}

func NewMatcher(jobs repository.JobRepository) *Matcher {
	return &Matcher{jobs: jobs, nowFunc: time.Now}
}

// BestMatch returns the single highest-confidence match, or nil when no
// active job shares a keyword with the cues.
func (m *Matcher) BestMatch(contactID string, keywords []string) (*jobdomain.Match, error) {
	matches, err := m.TopMatches(contactID, keywords, 1)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

// TopMatches returns up to limit matches sorted by descending confidence.
// A limit of 0 uses the default of 3.
func (m *Matcher) TopMatches(contactID string, keywords []string, limit int) ([]*jobdomain.Match, error) {
	if limit <= 0 {
		limit = defaultMatchLimit
	}

	candidates, err := m.jobs.FindActive(contactID)
	if err != nil {
		return nil, err
	}

	// Maximum possible raw score: every keyword contained. Keywords that
	// normalize to nothing are dropped here, so each normalized form stays
	// paired with the original wording it came from.
	type keywordPair struct {
		original   string
		normalized string
	}
	var maxScore float64
	pairs := make([]keywordPair, 0, len(keywords))
	for _, kw := range keywords {
		n := fuzzy.Normalize(kw)
		if n == "" {
			continue
		}
		pairs = append(pairs, keywordPair{original: kw, normalized: n})
		maxScore += float64(len(n)) / 10
	}
	if maxScore == 0 {
		return nil, nil
	}

	now := m.nowFunc()
	var matches []*jobdomain.Match
	for _, job := range candidates {
		desc := fuzzy.Normalize(job.Description)

		var raw float64
		var matched []string
		for _, kw := range pairs {
			if strings.Contains(desc, kw.normalized) {
				raw += float64(len(kw.normalized)) / 10
				matched = append(matched, kw.original)
			}
		}
		if len(matched) == 0 {
			continue
		}

		confidence := raw/maxScore + recencyBonus(now.Sub(job.CreatedAt))
		if confidence > 1.0 {
			confidence = 1.0
		}

		matches = append(matches, &jobdomain.Match{
			Job:             job,
			Confidence:      confidence,
			MatchedKeywords: matched,
		})
	}

	// Job ID is the secondary key so equal-confidence orderings are stable
	// across runs regardless of candidate iteration order.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].Job.ID < matches[j].Job.ID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// recencyBonus favors recently created jobs: a customer asking about "the
// banner" almost always means the one ordered last month, not last year.
func recencyBonus(age time.Duration) float64 {
	switch {
	case age <= 30*24*time.Hour:
		return 0.2
	case age <= 60*24*time.Hour:
		return 0.1
	case age <= 90*24*time.Hour:
		return 0.05
	}
	return 0
}
