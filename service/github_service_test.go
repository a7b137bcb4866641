package service

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/Hhhpraise/portfolio/config"
	"github.com/Hhhpraise/portfolio/model"
	"github.com/google/go-github/v66/github"
	githubMock "github.com/migueleliasweb/go-github-mock/src/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var (
	created = time.Date(2023, 3, 1, 10, 0, 0, 0, time.UTC)
	updated = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
)

func writeJSON(t *testing.T, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_, err := w.Write(githubMock.MustMarshal(v))

		if err != nil {
			t.Error("unable to configure mock http client")
		}
	}
}

func writeStatus(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"` + http.StatusText(status) + `"}`))
	}
}

func rateLimited() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded for 127.0.0.1."}`))
	}
}

func newMockedService(cfg config.Config, rateLimit int, options ...githubMock.MockBackendOption) GithubService {
	mockedHTTPClient := githubMock.NewMockedHTTPClient(options...)
	mockedRateLimiter := rate.NewLimiter(rate.Every(time.Hour), rateLimit)
	mockedGithubClient := github.NewClient(mockedHTTPClient)

	return NewGithubService(cfg, mockedGithubClient, mockedRateLimiter)
}

func testRepository(id int64, name string) *github.Repository {
	return &github.Repository{
		ID:              github.Int64(id),
		Name:            github.String(name),
		HTMLURL:         github.String("https://github.com/octo/" + name),
		StargazersCount: github.Int(int(id)),
		ForksCount:      github.Int(1),
		CreatedAt:       &github.Timestamp{Time: created},
		UpdatedAt:       &github.Timestamp{Time: updated},
	}
}

// TestFetchProjects will test function FetchProjects
func TestFetchProjects(t *testing.T) {
	profile := &github.User{
		Login:       github.String("octo"),
		Name:        github.String("Octo Cat"),
		PublicRepos: github.Int(2),
		Followers:   github.Int(42),
	}

	release := &github.RepositoryRelease{
		TagName:     github.String("v1.2.0"),
		HTMLURL:     github.String("https://github.com/octo/tool/releases/tag/v1.2.0"),
		Body:        github.String("bug fixes"),
		PublishedAt: &github.Timestamp{Time: updated},
		Assets: []*github.ReleaseAsset{
			{Name: github.String("tool.exe"), BrowserDownloadURL: github.String("https://github.com/octo/tool/releases/download/v1.2.0/tool.exe"), Size: github.Int(2048)},
		},
	}

	withTopic := func(r *github.Repository, topics ...string) *github.Repository {
		r.Topics = topics
		return r
	}

	tests := []struct {
		name               string
		executableProjects map[string]bool
		rateLimit          int
		reposHandler       http.HandlerFunc
		userHandler        http.HandlerFunc
		releaseHandler     http.HandlerFunc
		expectedErr        error
		verify             func(t *testing.T, projects []model.Project, user model.UserProfile)
	}{
		{
			name:         "Single repository with defaults",
			rateLimit:    60,
			reposHandler: writeJSON(t, []*github.Repository{testRepository(1, "plain")}),
			userHandler:  writeJSON(t, profile),
			verify: func(t *testing.T, projects []model.Project, user model.UserProfile) {
				require.Len(t, projects, 1)
				assert.Equal(t, model.Project{
					ID:          1,
					Name:        "plain",
					Description: model.DefaultDescription,
					Language:    model.DefaultLanguage,
					Stars:       1,
					Forks:       1,
					UpdatedAt:   updated,
					CreatedAt:   created,
					URL:         "https://github.com/octo/plain",
					Topics:      []string{},
				}, projects[0])

				assert.Equal(t, "octo", user.Login)
				assert.Equal(t, "Octo Cat", user.Name)
				assert.Equal(t, 42, user.Followers)
				assert.Equal(t, 2, user.PublicRepos)
			},
		},
		{
			name:      "Repository with pages gets a live demo",
			rateLimit: 60,
			reposHandler: writeJSON(t, []*github.Repository{func() *github.Repository {
				r := testRepository(2, "site")
				r.HasPages = github.Bool(true)
				r.Language = github.String("HTML")
				r.Description = github.String("my site")
				return r
			}()}),
			userHandler: writeJSON(t, profile),
			verify: func(t *testing.T, projects []model.Project, _ model.UserProfile) {
				require.Len(t, projects, 1)
				assert.True(t, projects[0].HasPages)
				assert.Equal(t, "https://octo.github.io/site/", projects[0].LiveDemoURL)
				assert.Equal(t, "HTML", projects[0].Language)
				assert.Equal(t, "my site", projects[0].Description)
			},
		},
		{
			name:           "Executable topic with release",
			rateLimit:      60,
			reposHandler:   writeJSON(t, []*github.Repository{withTopic(testRepository(3, "tool"), "cli", "executable")}),
			userHandler:    writeJSON(t, profile),
			releaseHandler: writeJSON(t, release),
			verify: func(t *testing.T, projects []model.Project, _ model.UserProfile) {
				require.Len(t, projects, 1)
				assert.True(t, projects[0].IsExecutable)
				require.NotNil(t, projects[0].ReleaseInfo)
				assert.Equal(t, "v1.2.0", projects[0].ReleaseInfo.TagName)
				assert.Equal(t, "bug fixes", projects[0].ReleaseInfo.Body)
				require.Len(t, projects[0].ReleaseInfo.Assets, 1)
				assert.Equal(t, "tool.exe", projects[0].ReleaseInfo.Assets[0].Name)
				assert.Equal(t, 2048, projects[0].ReleaseInfo.Assets[0].Size)
			},
		},
		{
			name:               "Executable from configuration and failed release lookup",
			executableProjects: map[string]bool{"Tool": true},
			rateLimit:          60,
			reposHandler:       writeJSON(t, []*github.Repository{testRepository(4, "tool"), testRepository(5, "other")}),
			userHandler:        writeJSON(t, profile),
			releaseHandler:     writeStatus(http.StatusInternalServerError),
			verify: func(t *testing.T, projects []model.Project, _ model.UserProfile) {
				require.Len(t, projects, 2)
				assert.True(t, projects[0].IsExecutable)
				assert.Nil(t, projects[0].ReleaseInfo)
				assert.False(t, projects[1].IsExecutable)
			},
		},
		{
			name:           "Executable repository without any release",
			rateLimit:      60,
			reposHandler:   writeJSON(t, []*github.Repository{withTopic(testRepository(6, "tool"), "executable")}),
			userHandler:    writeJSON(t, profile),
			releaseHandler: writeStatus(http.StatusNotFound),
			verify: func(t *testing.T, projects []model.Project, _ model.UserProfile) {
				require.Len(t, projects, 1)
				assert.True(t, projects[0].IsExecutable)
				assert.Nil(t, projects[0].ReleaseInfo)
			},
		},
		{
			name:         "Repositories response is not a list",
			rateLimit:    60,
			reposHandler: writeJSON(t, map[string]string{"message": "Not a list"}),
			userHandler:  writeJSON(t, profile),
			expectedErr:  model.ErrInvalidData,
		},
		{
			name:         "Github rate limit reached",
			rateLimit:    60,
			reposHandler: rateLimited(),
			userHandler:  writeJSON(t, profile),
			expectedErr:  model.ErrRateLimitReached,
		},
		{
			name:         "Local rate limiter exhausted",
			rateLimit:    1,
			reposHandler: writeJSON(t, []*github.Repository{testRepository(1, "plain")}),
			userHandler:  writeJSON(t, profile),
			expectedErr:  model.ErrRateLimitReached,
		},
		{
			name:         "Profile request failure",
			rateLimit:    60,
			reposHandler: writeJSON(t, []*github.Repository{testRepository(1, "plain")}),
			userHandler:  writeStatus(http.StatusBadGateway),
			expectedErr:  model.ErrFetch,
		},
	}

	// execute tests
	for _, tt := range tests {

		t.Run(tt.name, func(t *testing.T) {
			options := []githubMock.MockBackendOption{
				githubMock.WithRequestMatchHandler(githubMock.GetUsersReposByUsername, tt.reposHandler),
				githubMock.WithRequestMatchHandler(githubMock.GetUsersByUsername, tt.userHandler),
			}

			if tt.releaseHandler != nil {
				options = append(options, githubMock.WithRequestMatchHandler(githubMock.GetReposReleasesLatestByOwnerByRepo, tt.releaseHandler))
			}

			conf := config.GetDefault()
			if tt.executableProjects != nil {
				conf.Github.ExecutableProjects = tt.executableProjects
			}

			svc := newMockedService(*conf, tt.rateLimit, options...)
			projects, user, err := svc.FetchProjects(context.Background(), "octo")

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Empty(t, projects)
				return
			}

			assert.NoError(t, err)
			tt.verify(t, projects, user)
		})
	}
}

func TestFetchLatestRelease(t *testing.T) {
	svc := newMockedService(*config.GetDefault(), 60,
		githubMock.WithRequestMatchHandler(githubMock.GetReposReleasesLatestByOwnerByRepo, writeStatus(http.StatusNotFound)),
	)

	release, err := svc.FetchLatestRelease(context.Background(), "octo", "tool")

	assert.Nil(t, release)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestHandleRequestErrors(t *testing.T) {
	svc := newMockedService(*config.GetDefault(), 60)

	t.Run("rate limit error drains the local limiter", func(t *testing.T) {
		err := svc.HandleRequestErrors(&github.RateLimitError{Message: "API rate limit exceeded"})
		assert.ErrorIs(t, err, model.ErrRateLimitReached)

		_, _, err = svc.FetchProjects(context.Background(), "octo")
		assert.ErrorIs(t, err, model.ErrRateLimitReached)
	})

	t.Run("secondary rate limit", func(t *testing.T) {
		err := svc.HandleRequestErrors(&github.AbuseRateLimitError{Message: "secondary rate limit"})
		assert.ErrorIs(t, err, model.ErrRateLimitReached)
	})

	t.Run("generic error", func(t *testing.T) {
		err := svc.HandleRequestErrors(assert.AnError)
		assert.ErrorIs(t, err, model.ErrFetch)
	})
}
