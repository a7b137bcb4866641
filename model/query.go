package model

import (
	"net/url"
	"strconv"
	"strings"
)

// PageSize is the number of projects shown per page
const PageSize = 9

type Category string

const (
	CategoryAll        Category = "all"
	CategoryPython     Category = "python"
	CategoryJavaScript Category = "javascript"
	CategoryWeb        Category = "web"
	CategoryAndroid    Category = "android"
	CategoryExecutable Category = "executable"
)

var Categories = []Category{CategoryAll, CategoryPython, CategoryJavaScript, CategoryWeb, CategoryAndroid, CategoryExecutable}

// ParseCategory falls back to CategoryAll for unknown values
func ParseCategory(value string) Category {
	for _, c := range Categories {
		if string(c) == value {
			return c
		}
	}
	return CategoryAll
}

type SortKey string

const (
	SortUpdated SortKey = "updated"
	SortStars   SortKey = "stars"
	SortCreated SortKey = "created"
	SortName    SortKey = "name"
)

var SortKeys = []SortKey{SortUpdated, SortStars, SortCreated, SortName}

// ParseSortKey falls back to SortUpdated for unknown values
func ParseSortKey(value string) SortKey {
	for _, k := range SortKeys {
		if string(k) == value {
			return k
		}
	}
	return SortUpdated
}

// ProjectQuery is the raw query string bound from the request
type ProjectQuery struct {
	Search string `form:"search"`
	Filter string `form:"filter"`
	Sort   string `form:"sort"`
	Page   int    `form:"page"`
}

// ToQueryState normalizes the raw values
func (params ProjectQuery) ToQueryState() QueryState {
	page := params.Page
	if page < 1 {
		page = 1
	}

	return QueryState{
		Search:   NormalizeSearch(params.Search),
		Category: ParseCategory(params.Filter),
		Sort:     ParseSortKey(params.Sort),
		Page:     page,
	}
}

func NormalizeSearch(search string) string {
	return strings.ToLower(strings.TrimSpace(search))
}

// QueryState is the per-session view over the project list
type QueryState struct {
	Search   string
	Category Category
	Sort     SortKey
	Page     int // 1-based
}

func DefaultQueryState() QueryState {
	return QueryState{Category: CategoryAll, Sort: SortUpdated, Page: 1}
}

// WithSearch changes the search text and goes back to the first page
func (s QueryState) WithSearch(search string) QueryState {
	s.Search = NormalizeSearch(search)
	s.Page = 1
	return s
}

// WithCategory changes the category filter and goes back to the first page
func (s QueryState) WithCategory(category Category) QueryState {
	s.Category = category
	s.Page = 1
	return s
}

// WithSort keeps the current page
func (s QueryState) WithSort(key SortKey) QueryState {
	s.Sort = key
	return s
}

// NextPage is a no-op on the last page
func (s QueryState) NextPage(pageCount int) QueryState {
	if s.Page < pageCount {
		s.Page++
	}
	return s
}

// PrevPage is a no-op on the first page
func (s QueryState) PrevPage() QueryState {
	if s.Page > 1 {
		s.Page--
	}
	return s
}

// Values encodes the state back as query string values, omitting defaults
func (s QueryState) Values() url.Values {
	values := url.Values{}
	if s.Search != "" {
		values.Set("search", s.Search)
	}
	if s.Category != CategoryAll {
		values.Set("filter", string(s.Category))
	}
	if s.Sort != SortUpdated {
		values.Set("sort", string(s.Sort))
	}
	if s.Page > 1 {
		values.Set("page", strconv.Itoa(s.Page))
	}
	return values
}
