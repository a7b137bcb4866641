// Package render maps the portfolio data to the view models used by the page template.
// Nothing here does I/O, the clock is always passed in.
package render

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Hhhpraise/portfolio/model"
)

const (
	MaxCardTopics  = 3
	PreviewLength  = 200
	recentDaysSpan = 7
	day            = 24 * time.Hour
)

// Button is a call to action of a project card
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Icon  string `json:"icon"`
	Class string `json:"class"`
}

type ProjectCard struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Icon        string   `json:"icon"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	Stars       int      `json:"stars"`
	Updated     string   `json:"updated"`
	Topics      []string `json:"topics"`
	CodeURL     string   `json:"codeUrl"`
	Button      *Button  `json:"button,omitempty"`
}

type ReleaseView struct {
	TagName   string `json:"tagName"`
	Published string `json:"published"`
	Preview   string `json:"preview,omitempty"`
	URL       string `json:"url"`
}

// ProjectDetail is the content of the detail overlay
type ProjectDetail struct {
	ProjectCard
	Forks       int          `json:"forks"`
	Created     string       `json:"created"`
	UpdatedFull string       `json:"updatedFull"`
	AllTopics   []string     `json:"allTopics"`
	Release     *ReleaseView `json:"release,omitempty"`
	DownloadURL string       `json:"downloadUrl,omitempty"`
	DemoURL     string       `json:"demoUrl,omitempty"`
}

type PublicationCard struct {
	Title           string `json:"title"`
	Authors         string `json:"authors"`
	Journal         string `json:"journal"`
	Year            string `json:"year"`
	URL             string `json:"url"`
	DOIURL          string `json:"doiUrl"`
	AbstractPreview string `json:"abstractPreview,omitempty"`
}

// ProjectIcon is the font awesome class shown next to the project name
func ProjectIcon(p model.Project) string {
	if p.IsExecutable {
		return "fas fa-download"
	}

	switch strings.ToLower(p.Language) {
	case "python":
		return "fab fa-python"
	case "javascript", "typescript":
		return "fab fa-js"
	case "html":
		return "fab fa-html5"
	case "css":
		return "fab fa-css3-alt"
	case "java":
		return "fab fa-android"
	case "swift":
		return "fab fa-swift"
	case "php":
		return "fab fa-php"
	default:
		return "fas fa-code"
	}
}

// ProjectButton returns the release button for executables with a release,
// otherwise the demo button when the project has pages, otherwise nil
func ProjectButton(p model.Project) *Button {
	if p.IsExecutable && p.ReleaseInfo != nil {
		button := &Button{
			Label: "View Release",
			URL:   p.ReleaseInfo.HTMLURL,
			Icon:  "fas fa-download",
			Class: "download",
		}

		if len(p.ReleaseInfo.Assets) > 0 {
			button.Label = "Download"
			if url := p.ReleaseInfo.Assets[0].DownloadURL; url != "" {
				button.URL = url
			}
		}

		return button
	}

	if p.LiveDemoURL != "" {
		return &Button{
			Label: "Demo",
			URL:   p.LiveDemoURL,
			Icon:  "fas fa-external-link-alt",
			Class: "demo",
		}
	}

	return nil
}

// FormatDate gives "Today", "Yesterday" or "Nd ago" for dates less than a week old,
// unless full is set, and "Jan 2, 2006" otherwise
func FormatDate(now, t time.Time, full bool) string {
	days := int(now.Sub(t) / day)
	if days < 0 {
		days = 0
	}

	if !full && days < recentDaysSpan {
		switch days {
		case 0:
			return "Today"
		case 1:
			return "Yesterday"
		default:
			return strconv.Itoa(days) + "d ago"
		}
	}

	return t.Format("Jan 2, 2006")
}

// Preview cuts text to PreviewLength runes, adding an ellipsis when something was cut
func Preview(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}

	runes := []rune(text)
	return strings.TrimSpace(string(runes[:PreviewLength])) + "..."
}

func NewProjectCard(now time.Time, p model.Project) ProjectCard {
	topics := p.Topics
	if len(topics) > MaxCardTopics {
		topics = topics[:MaxCardTopics]
	}

	return ProjectCard{
		ID:          p.ID,
		Name:        p.Name,
		Icon:        ProjectIcon(p),
		Description: p.Description,
		Language:    p.Language,
		Stars:       p.Stars,
		Updated:     FormatDate(now, p.UpdatedAt, false),
		Topics:      append([]string{}, topics...),
		CodeURL:     p.URL,
		Button:      ProjectButton(p),
	}
}

func NewProjectCards(now time.Time, projects []model.Project) []ProjectCard {
	cards := make([]ProjectCard, 0, len(projects))
	for _, p := range projects {
		cards = append(cards, NewProjectCard(now, p))
	}
	return cards
}

func NewProjectDetail(now time.Time, p model.Project) ProjectDetail {
	detail := ProjectDetail{
		ProjectCard: NewProjectCard(now, p),
		Forks:       p.Forks,
		Created:     FormatDate(now, p.CreatedAt, true),
		UpdatedFull: FormatDate(now, p.UpdatedAt, true),
		AllTopics:   append([]string{}, p.Topics...),
		DemoURL:     p.LiveDemoURL,
	}

	if r := p.ReleaseInfo; r != nil {
		detail.Release = &ReleaseView{
			TagName:   r.TagName,
			Published: FormatDate(now, r.PublishedAt, true),
			Preview:   Preview(r.Body),
			URL:       r.HTMLURL,
		}

		if p.IsExecutable {
			detail.DownloadURL = r.HTMLURL
		}
	}

	return detail
}

func NewPublicationCard(p model.Publication) PublicationCard {
	card := PublicationCard{
		Title:   p.Title,
		Authors: p.Authors,
		Journal: p.Journal,
		Year:    p.Year.String(),
		URL:     p.URL,
		DOIURL:  "https://doi.org/" + p.DOI,
	}

	if p.Abstract != nil {
		card.AbstractPreview = Preview(*p.Abstract)
	}

	return card
}

func NewPublicationCards(publications []model.Publication) []PublicationCard {
	cards := make([]PublicationCard, 0, len(publications))
	for _, p := range publications {
		cards = append(cards, NewPublicationCard(p))
	}
	return cards
}
