package model

import "time"

const (
	DefaultDescription = "No description provided."
	DefaultLanguage    = "Other"
	ExecutableTopic    = "executable"
)

// Project is the normalized view of one github repository
type Project struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Language     string       `json:"language"`
	Stars        int          `json:"stars"`
	Forks        int          `json:"forks"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	CreatedAt    time.Time    `json:"createdAt"`
	URL          string       `json:"url"`
	HasPages     bool         `json:"hasPages"`
	LiveDemoURL  string       `json:"liveDemoUrl,omitempty"`
	Topics       []string     `json:"topics"`
	IsExecutable bool         `json:"isExecutable"`
	ReleaseInfo  *ReleaseInfo `json:"releaseInfo,omitempty"` // nil when not executable or no release could be loaded
	LanguagesURL string       `json:"languagesUrl,omitempty"`
}

// HasTopic reports an exact topic match
func (p Project) HasTopic(topic string) bool {
	for _, t := range p.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

type ReleaseInfo struct {
	TagName     string         `json:"tagName"`
	HTMLURL     string         `json:"htmlUrl"`
	PublishedAt time.Time      `json:"publishedAt"`
	Body        string         `json:"body"`
	Assets      []ReleaseAsset `json:"assets"`
}

type ReleaseAsset struct {
	Name          string `json:"name"`
	DownloadURL   string `json:"downloadUrl"`
	Size          int    `json:"size"`
	DownloadCount int    `json:"downloadCount"`
}

// UserProfile is the subset of the github user used by the page
type UserProfile struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatarUrl"`
	HTMLURL     string `json:"htmlUrl"`
	Location    string `json:"location"`
	Blog        string `json:"blog"`
	PublicRepos int    `json:"publicRepos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
}

// Stats are the headline counters shown in the hero section
type Stats struct {
	TotalRepos  int `json:"totalRepos"`
	TotalStars  int `json:"totalStars"`
	TotalForks  int `json:"totalForks"`
	PublicRepos int `json:"publicRepos"`
	Followers   int `json:"followers"`
}

// ComputeStats sums stars and forks over the fetched repositories
func ComputeStats(projects []Project, profile UserProfile) Stats {
	stats := Stats{
		TotalRepos:  len(projects),
		PublicRepos: profile.PublicRepos,
		Followers:   profile.Followers,
	}

	for _, p := range projects {
		stats.TotalStars += p.Stars
		stats.TotalForks += p.Forks
	}

	return stats
}

// LanguageSlice is one entry of the language distribution chart
type LanguageSlice struct {
	Language   string `json:"language"`
	Percentage int    `json:"percentage"`
	Bytes      int    `json:"bytes"`
}
