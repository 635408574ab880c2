package lms

import "github.com/tritonhub/tritonhub/pkg/domain"

// ResolveCurrentTerm determines the current academic term from a course set
// by majority vote over non-empty term names. Ties are broken by the term
// first encountered in input order, keeping the result deterministic. Returns
// empty when no course carries a term name.
func ResolveCurrentTerm(courses []domain.Course) string {
	counts := map[string]int{}
	var order []string

	for _, c := range courses {
		if c.Term == "" {
			continue
		}
		if _, seen := counts[c.Term]; !seen {
			order = append(order, c.Term)
		}
		counts[c.Term]++
	}

	current := ""
	best := 0
	for _, term := range order {
		if counts[term] > best {
			best = counts[term]
			current = term
		}
	}
	return current
}

// FilterCurrentTerm returns the subset of courses belonging to the resolved
// current term, or the full set when no term could be resolved. The filter is
// applied once per sync cycle and its result reused by every downstream fetch
// so assignments, grades and classes always see the same course set.
func FilterCurrentTerm(courses []domain.Course) []domain.Course {
	current := ResolveCurrentTerm(courses)
	if current == "" {
		return courses
	}

	filtered := make([]domain.Course, 0, len(courses))
	for _, c := range courses {
		if c.Term == current {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
