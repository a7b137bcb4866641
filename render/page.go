package render

import (
	"embed"
	"html/template"
	"strconv"
	"time"

	"github.com/Hhhpraise/portfolio/model"
	"github.com/Hhhpraise/portfolio/portfolio"
	"github.com/Hhhpraise/portfolio/query"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageTemplate is the template name of the single page
const PageTemplate = "index.html"

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme returns ok false for anything but light or dark
func ParseTheme(value string) (Theme, bool) {
	switch Theme(value) {
	case ThemeLight, ThemeDark:
		return Theme(value), true
	}
	return ThemeLight, false
}

var (
	lightPalette = []string{"#007aff", "#5856d6", "#5ac8fa", "#34c759", "#ff9500", "#8e8e93"}
	darkPalette  = []string{"#0a84ff", "#5e5ce6", "#64d2ff", "#30d158", "#ff9f0a", "#98989d"}
)

// Chart is the data handed to the doughnut chart
type Chart struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
	Colors []string `json:"colors"`
}

func NewChart(slices []model.LanguageSlice, theme Theme) Chart {
	palette := lightPalette
	if theme == ThemeDark {
		palette = darkPalette
	}

	chart := Chart{
		Labels: make([]string, 0, len(slices)),
		Values: make([]int, 0, len(slices)),
		Colors: make([]string, 0, len(slices)),
	}

	for i, s := range slices {
		chart.Labels = append(chart.Labels, s.Language)
		chart.Values = append(chart.Values, s.Percentage)
		chart.Colors = append(chart.Colors, palette[i%len(palette)])
	}

	return chart
}

type PageLink struct {
	Number int
	URL    string
	Active bool
}

type Pagination struct {
	Visible bool
	Page    int
	Count   int
	PrevURL string // empty on the first page
	NextURL string // empty on the last page
	Pages   []PageLink
}

func NewPagination(state model.QueryState, result query.Result) Pagination {
	state.Page = result.Page

	pagination := Pagination{
		Visible: result.PageCount > 1,
		Page:    result.Page,
		Count:   result.PageCount,
		Pages:   make([]PageLink, 0, result.PageCount),
	}

	if prev := state.PrevPage(); prev.Page != state.Page {
		pagination.PrevURL = QueryURL(prev)
	}
	if next := state.NextPage(result.PageCount); next.Page != state.Page {
		pagination.NextURL = QueryURL(next)
	}

	for i := 1; i <= result.PageCount; i++ {
		link := state
		link.Page = i
		pagination.Pages = append(pagination.Pages, PageLink{Number: i, URL: QueryURL(link), Active: i == result.Page})
	}

	return pagination
}

// QueryURL is the page address for a query state
func QueryURL(state model.QueryState) string {
	encoded := state.Values().Encode()
	if encoded == "" {
		return "/"
	}
	return "/?" + encoded
}

type FilterTag struct {
	Value  string
	Label  string
	URL    string
	Active bool
}

type SortOption struct {
	Value    string
	Label    string
	Selected bool
}

var (
	categoryLabels = map[model.Category]string{
		model.CategoryAll:        "All",
		model.CategoryPython:     "Python",
		model.CategoryJavaScript: "JavaScript",
		model.CategoryWeb:        "Web",
		model.CategoryAndroid:    "Android",
		model.CategoryExecutable: "Executables",
	}
	sortLabels = map[model.SortKey]string{
		model.SortUpdated: "Recently Updated",
		model.SortStars:   "Most Stars",
		model.SortCreated: "Newest",
		model.SortName:    "Name",
	}
)

func filterTags(state model.QueryState) []FilterTag {
	tags := make([]FilterTag, 0, len(model.Categories))
	for _, c := range model.Categories {
		tags = append(tags, FilterTag{
			Value:  string(c),
			Label:  categoryLabels[c],
			URL:    QueryURL(state.WithCategory(c)),
			Active: c == state.Category,
		})
	}
	return tags
}

func sortOptions(state model.QueryState) []SortOption {
	options := make([]SortOption, 0, len(model.SortKeys))
	for _, k := range model.SortKeys {
		options = append(options, SortOption{Value: string(k), Label: sortLabels[k], Selected: k == state.Sort})
	}
	return options
}

// PageInput is everything the page is built from
type PageInput struct {
	Now                time.Time
	Theme              Theme
	Query              model.QueryState
	Result             query.Result
	Github             portfolio.GithubData
	Publications       []model.Publication
	PublicationsLoaded bool
	Notices            []portfolio.Notice
}

type Page struct {
	Theme              Theme
	ThemeToggleURL     string
	Profile            model.UserProfile
	Stats              model.Stats
	Loaded             bool
	Search             string
	Filters            []FilterTag
	SortOptions        []SortOption
	Projects           []ProjectCard
	Pagination         Pagination
	Chart              Chart
	Publications       []PublicationCard
	PublicationsLoaded bool
	Notices            []portfolio.Notice
	LastUpdated        string
	Year               string
}

func NewPage(in PageInput) Page {
	toggle := ThemeDark
	if in.Theme == ThemeDark {
		toggle = ThemeLight
	}

	values := in.Query.Values()
	values.Set("theme", string(toggle))

	page := Page{
		Theme:              in.Theme,
		ThemeToggleURL:     "/?" + values.Encode(),
		Profile:            in.Github.User,
		Stats:              in.Github.Stats,
		Loaded:             in.Github.Source != portfolio.SourceNone,
		Search:             in.Query.Search,
		Filters:            filterTags(in.Query),
		SortOptions:        sortOptions(in.Query),
		Projects:           NewProjectCards(in.Now, in.Result.Projects),
		Pagination:         NewPagination(in.Query, in.Result),
		Chart:              NewChart(in.Github.LanguageData, in.Theme),
		Publications:       NewPublicationCards(in.Publications),
		PublicationsLoaded: in.PublicationsLoaded,
		Notices:            in.Notices,
		Year:               strconv.Itoa(in.Now.Year()),
	}

	if !in.Github.FetchedAt.IsZero() {
		page.LastUpdated = FormatDate(in.Now, in.Github.FetchedAt, true)
	}

	return page
}

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}
