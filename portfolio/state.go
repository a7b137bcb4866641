package portfolio

import (
	"sync"
	"time"

	"github.com/Hhhpraise/portfolio/model"
	"github.com/Hhhpraise/portfolio/query"
)

type Source string

const (
	SourceNone     Source = ""
	SourceFresh    Source = "fresh"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// GithubData is everything built from one github fetch, also the cached payload
type GithubData struct {
	Stats        model.Stats           `json:"stats"`
	User         model.UserProfile     `json:"user"`
	Projects     []model.Project       `json:"projects"`
	LanguageData []model.LanguageSlice `json:"languageData"`
	FetchedAt    time.Time             `json:"fetchedAt"`
	Source       Source                `json:"-"`
}

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a dismissible message shown on top of the page
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
}

// State is the one shared view over the data. Every list is replaced wholesale,
// readers get copies they can keep without locking
type State struct {
	mu                 sync.RWMutex
	github             GithubData
	publications       []model.Publication
	publicationsLoaded bool
	githubNotice       *Notice
	publicationsNotice *Notice
}

func NewState() *State {
	return &State{
		github:       GithubData{Projects: []model.Project{}, LanguageData: []model.LanguageSlice{}},
		publications: []model.Publication{},
	}
}

func (s *State) ReplaceGithub(data GithubData, notice *Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if data.Projects == nil {
		data.Projects = []model.Project{}
	}
	if data.LanguageData == nil {
		data.LanguageData = []model.LanguageSlice{}
	}

	s.github = data
	s.githubNotice = notice
}

func (s *State) SetGithubNotice(notice *Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.githubNotice = notice
}

func (s *State) ReplacePublications(publications []model.Publication, notice *Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if publications == nil {
		publications = []model.Publication{}
	}

	s.publications = publications
	s.publicationsLoaded = true
	s.publicationsNotice = notice
}

func (s *State) SetPublicationsNotice(notice *Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.publicationsNotice = notice
}

// Github returns the current data, the slices must not be modified
func (s *State) Github() GithubData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.github
}

func (s *State) Publications() []model.Publication {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.publications
}

func (s *State) PublicationsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.publicationsLoaded
}

// GithubNotice is nil when the last github load went fine
func (s *State) GithubNotice() *Notice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.githubNotice
}

func (s *State) PublicationsNotice() *Notice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.publicationsNotice
}

// Notices returns the github notice first, nil entries skipped
func (s *State) Notices() []Notice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notices := make([]Notice, 0, 2)
	for _, n := range []*Notice{s.githubNotice, s.publicationsNotice} {
		if n != nil {
			notices = append(notices, *n)
		}
	}
	return notices
}

// Query runs the query engine over the current projects
func (s *State) Query(state model.QueryState) query.Result {
	return query.Apply(s.Github().Projects, state)
}

func (s *State) FindProject(id int64) (model.Project, bool) {
	for _, p := range s.Github().Projects {
		if p.ID == id {
			return p, true
		}
	}
	return model.Project{}, false
}
