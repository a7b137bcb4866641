package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Hhhpraise/portfolio/config"
	"github.com/Hhhpraise/portfolio/model"
	"github.com/google/go-github/v66/github"
	"github.com/remeh/sizedwaitgroup"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// repositoriesPerPage is the github ceiling, a single page is assumed to be enough
const repositoriesPerPage = 100

type GithubService interface {
	FetchProjects(ctx context.Context, username string) ([]model.Project, model.UserProfile, error)
	FetchLatestRelease(ctx context.Context, username string, repository string) (*model.ReleaseInfo, error)
	ComputeLanguageDistribution(ctx context.Context, username string, projects []model.Project) []model.LanguageSlice
	FetchLanguagesForSingleRepository(ctx context.Context, username string, p model.Project, swg *sizedwaitgroup.SizedWaitGroup, ch chan<- RepositoryLanguages)

	HandleRequestErrors(err error) error
}

type githubService struct {
	githubClient       *github.Client
	githubRateLimiter  *rate.Limiter
	config             config.Config
	executableProjects map[string]bool
}

// the primary fetch costs two requests (repositories and profile)
// then every release or languages lookup costs one more
// ListByUser / Users.Get rate limit = 60 calls per hour for non-authenticated and 5000 calls for authenticated
func NewGithubService(config config.Config, githubClient *github.Client, rateLimiter *rate.Limiter) GithubService {
	// repository names are case insensitive on github and viper lower-cases map keys anyway
	executableProjects := make(map[string]bool, len(config.Github.ExecutableProjects))
	for name, executable := range config.Github.ExecutableProjects {
		executableProjects[strings.ToLower(name)] = executable
	}

	return githubService{
		githubClient:       githubClient,
		githubRateLimiter:  rateLimiter,
		config:             config,
		executableProjects: executableProjects,
	}
}

func (s githubService) FetchProjects(ctx context.Context, username string) ([]model.Project, model.UserProfile, error) {
	if !s.githubRateLimiter.AllowN(time.Now(), 2) {
		log.Warning("the Github rate limit has been reached. Use a token or wait until the limit reset")
		return []model.Project{}, model.UserProfile{}, model.ErrRateLimitReached
	}

	log.WithField("username", username).Info("fetch repositories and profile from github")

	var (
		repos []*github.Repository
		user  *github.User
	)

	// both requests run together, the first failure cancels the other one
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, _, err := s.githubClient.Repositories.ListByUser(gctx, username, &github.RepositoryListByUserOptions{
			ListOptions: github.ListOptions{
				Page:    1,
				PerPage: repositoriesPerPage,
			},
		})
		if err != nil {
			return s.HandleRequestErrors(err)
		}

		repos = res
		return nil
	})

	g.Go(func() error {
		res, _, err := s.githubClient.Users.Get(gctx, username)
		if err != nil {
			return s.HandleRequestErrors(err)
		}

		user = res
		return nil
	})

	if err := g.Wait(); err != nil {
		return []model.Project{}, model.UserProfile{}, err
	}

	projects := make([]model.Project, 0, len(repos))

	for _, r := range repos {
		if r == nil || r.GetName() == "" {
			log.WithField("repositoryID", r.GetID()).Debug("repository found with invalid information. skipped")
			continue
		}

		projects = append(projects, ToProject(username, r, s.isExecutable(r)))
	}

	s.attachReleases(ctx, username, projects)

	return projects, ToUserProfile(user), nil
}

func (s githubService) isExecutable(r *github.Repository) bool {
	if s.executableProjects[strings.ToLower(r.GetName())] {
		return true
	}

	for _, topic := range r.Topics {
		if topic == model.ExecutableTopic {
			return true
		}
	}

	return false
}

type releaseResult struct {
	index   int
	release *model.ReleaseInfo
}

// attachReleases loads the latest release of every executable project in parallel.
// A failed lookup leaves ReleaseInfo nil and never fails the batch
func (s githubService) attachReleases(ctx context.Context, username string, projects []model.Project) {
	swg := sizedwaitgroup.New(s.config.Tasks.MaxParallelTasksAllowed)
	results := make(chan releaseResult, len(projects))

	for i, p := range projects {
		if !p.IsExecutable {
			continue
		}

		if !s.githubRateLimiter.Allow() {
			log.WithField("repository", p.Name).Warning("not enough requests in rate limiter to load the latest release. skipped")
			continue
		}

		swg.Add()
		go func(index int, name string) {
			defer swg.Done()

			release, err := s.FetchLatestRelease(ctx, username, name)
			if err != nil {
				return
			}

			results <- releaseResult{index: index, release: release}
		}(i, p.Name)
	}

	log.Debug("waiting for all release lookups to be finished")
	swg.Wait()
	close(results)

	// every result targets a different project
	for result := range results {
		projects[result.index].ReleaseInfo = result.release
	}
}

// FetchLatestRelease returns an error when the repository has no release or the lookup failed
func (s githubService) FetchLatestRelease(ctx context.Context, username string, repository string) (*model.ReleaseInfo, error) {
	release, _, err := s.githubClient.Repositories.GetLatestRelease(ctx, username, repository)
	if err != nil {
		var errResp *github.ErrorResponse
		if errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound {
			log.WithField("repository", repository).Debug("executable repository without release")
			return nil, model.ErrNotFound
		}

		if isRateLimitError(err) {
			s.drainRateLimiter()
		}

		log.WithError(err).WithField("repository", repository).Warning("unable to load latest release. ignored")
		return nil, model.ErrFetch
	}

	return ToReleaseInfo(release), nil
}

// HandleRequestErrors maps a go-github error to a model sentinel.
// A github rate limit empties the local limiter so later lookups are skipped until it refills
func (s githubService) HandleRequestErrors(err error) error {
	if isRateLimitError(err) {
		if !s.drainRateLimiter() {
			return model.ErrRateLimiter
		}

		log.Warning("the Github rate limit has been reached. Use a token or wait until the limit reset")
		return model.ErrRateLimitReached
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		log.WithError(err).Error("unexpected response shape from github")
		return model.ErrInvalidData
	}

	log.WithError(err).Error("github request failed")
	return model.ErrFetch
}

func isRateLimitError(err error) bool {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	return errors.As(err, &rateErr) || errors.As(err, &abuseErr)
}

// drainRateLimiter consumes what is left, github told us there is nothing anymore
func (s githubService) drainRateLimiter() bool {
	remaining := int(s.githubRateLimiter.Tokens())
	if remaining <= 0 {
		return true
	}
	return s.githubRateLimiter.AllowN(time.Now(), remaining)
}

// ToProject maps a github repository, applying the display defaults
func ToProject(username string, r *github.Repository, executable bool) model.Project {
	p := model.Project{
		ID:           r.GetID(),
		Name:         r.GetName(),
		Description:  r.GetDescription(),
		Language:     r.GetLanguage(),
		Stars:        r.GetStargazersCount(),
		Forks:        r.GetForksCount(),
		UpdatedAt:    r.GetUpdatedAt().Time,
		CreatedAt:    r.GetCreatedAt().Time,
		URL:          r.GetHTMLURL(),
		HasPages:     r.GetHasPages(),
		Topics:       r.Topics,
		IsExecutable: executable,
		LanguagesURL: r.GetLanguagesURL(),
	}

	if p.Description == "" {
		p.Description = model.DefaultDescription
	}

	if p.Language == "" {
		p.Language = model.DefaultLanguage
	}

	if p.Topics == nil {
		p.Topics = []string{}
	}

	if p.HasPages {
		p.LiveDemoURL = "https://" + username + ".github.io/" + p.Name + "/"
	}

	return p
}

func ToReleaseInfo(release *github.RepositoryRelease) *model.ReleaseInfo {
	info := &model.ReleaseInfo{
		TagName:     release.GetTagName(),
		HTMLURL:     release.GetHTMLURL(),
		PublishedAt: release.GetPublishedAt().Time,
		Body:        release.GetBody(),
		Assets:      make([]model.ReleaseAsset, 0, len(release.Assets)),
	}

	for _, asset := range release.Assets {
		if asset == nil {
			continue
		}

		info.Assets = append(info.Assets, model.ReleaseAsset{
			Name:          asset.GetName(),
			DownloadURL:   asset.GetBrowserDownloadURL(),
			Size:          asset.GetSize(),
			DownloadCount: asset.GetDownloadCount(),
		})
	}

	return info
}

func ToUserProfile(user *github.User) model.UserProfile {
	return model.UserProfile{
		Login:       user.GetLogin(),
		Name:        user.GetName(),
		Bio:         user.GetBio(),
		AvatarURL:   user.GetAvatarURL(),
		HTMLURL:     user.GetHTMLURL(),
		Location:    user.GetLocation(),
		Blog:        user.GetBlog(),
		PublicRepos: user.GetPublicRepos(),
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
	}
}
