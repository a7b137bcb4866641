// Package query derives the visible page of projects from the full list.
// Everything here is pure: no I/O and the input slice is never modified.
package query

import (
	"slices"
	"strings"

	"github.com/Hhhpraise/portfolio/model"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Result is one page of the filtered and sorted list
type Result struct {
	Projects   []model.Project `json:"projects"`
	Page       int             `json:"page"`
	PageCount  int             `json:"pageCount"`
	TotalCount int             `json:"totalCount"`
	PageSize   int             `json:"pageSize"`
}

// Apply runs search, category filter, sort and pagination in that order.
// An out of range page is clamped to [1, PageCount]; with no match the page is 1 and empty
func Apply(projects []model.Project, state model.QueryState) Result {
	filtered := Filter(projects, state.Search, state.Category)
	Sort(filtered, state.Sort)

	return Paginate(filtered, state.Page)
}

// Filter returns a new slice, input order preserved
func Filter(projects []model.Project, search string, category model.Category) []model.Project {
	search = model.NormalizeSearch(search)

	filtered := make([]model.Project, 0, len(projects))
	for _, p := range projects {
		if MatchesSearch(p, search) && MatchesCategory(p, category) {
			filtered = append(filtered, p)
		}
	}

	return filtered
}

// MatchesSearch expects an already lower-cased and trimmed search
func MatchesSearch(p model.Project, search string) bool {
	if search == "" {
		return true
	}

	if strings.Contains(strings.ToLower(p.Name), search) ||
		strings.Contains(strings.ToLower(p.Description), search) ||
		strings.Contains(strings.ToLower(p.Language), search) {
		return true
	}

	for _, topic := range p.Topics {
		if strings.Contains(strings.ToLower(topic), search) {
			return true
		}
	}

	return false
}

func MatchesCategory(p model.Project, category model.Category) bool {
	switch category {
	case model.CategoryPython:
		return p.Language == "Python"
	case model.CategoryJavaScript:
		return p.Language == "JavaScript" || p.Language == "TypeScript"
	case model.CategoryWeb:
		return p.HasTopic("web") || p.HasPages ||
			slices.Contains([]string{"HTML", "CSS", "JavaScript", "TypeScript"}, p.Language)
	case model.CategoryAndroid:
		return p.Language == "Java" || p.Language == "Kotlin" ||
			p.HasTopic("android") || p.HasTopic("kotlin")
	case model.CategoryExecutable:
		return p.IsExecutable
	default:
		return true
	}
}

// Sort orders in place. The sort is stable so ties keep the incoming order
func Sort(projects []model.Project, key model.SortKey) {
	switch key {
	case model.SortStars:
		slices.SortStableFunc(projects, func(a, b model.Project) int {
			return b.Stars - a.Stars
		})
	case model.SortCreated:
		slices.SortStableFunc(projects, func(a, b model.Project) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case model.SortName:
		// a collator keeps internal buffers, one per call
		collator := collate.New(language.English)
		slices.SortStableFunc(projects, func(a, b model.Project) int {
			return collator.CompareString(a.Name, b.Name)
		})
	default:
		slices.SortStableFunc(projects, func(a, b model.Project) int {
			return b.UpdatedAt.Compare(a.UpdatedAt)
		})
	}
}

// PageCount is ceil(total / PageSize)
func PageCount(total int) int {
	return (total + model.PageSize - 1) / model.PageSize
}

// ClampPage keeps page inside [1, PageCount(total)], 1 when there is nothing to show
func ClampPage(page, total int) int {
	pageCount := PageCount(total)
	if page > pageCount {
		page = pageCount
	}
	if page < 1 {
		page = 1
	}
	return page
}

func Paginate(projects []model.Project, page int) Result {
	page = ClampPage(page, len(projects))

	start := (page - 1) * model.PageSize
	end := min(start+model.PageSize, len(projects))

	return Result{
		Projects:   projects[start:end],
		Page:       page,
		PageCount:  PageCount(len(projects)),
		TotalCount: len(projects),
		PageSize:   model.PageSize,
	}
}
