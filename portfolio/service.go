package portfolio

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/Hhhpraise/portfolio/cache"
	"github.com/Hhhpraise/portfolio/config"
	"github.com/Hhhpraise/portfolio/model"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// backgroundRefreshTimeout bounds a refresh that nobody waits for
const backgroundRefreshTimeout = 2 * time.Minute

// RefreshRetryDelay is the minimum wait after a failed fetch before a request triggers another one
const RefreshRetryDelay = time.Minute

const DegradedMessage = "showing saved data, github could not be reached"

type ProjectFetcher interface {
	FetchProjects(ctx context.Context, username string) ([]model.Project, model.UserProfile, error)
	ComputeLanguageDistribution(ctx context.Context, username string, projects []model.Project) []model.LanguageSlice
}

type PublicationFetcher interface {
	FetchPublications(ctx context.Context, dois []string, resource string) ([]model.Publication, error)
}

// Service owns the State and is the only writer to it
type Service struct {
	config       config.Config
	github       ProjectFetcher
	publications PublicationFetcher
	cache        *cache.Store
	state        *State
	now          func() time.Time
	refreshing   atomic.Bool
	lastFailure  atomic.Int64 // unix nanoseconds of the last failed fetch, 0 after a success
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(cfg config.Config, github ProjectFetcher, publications PublicationFetcher, store *cache.Store, opts ...Option) *Service {
	s := &Service{
		config:       cfg,
		github:       github,
		publications: publications,
		cache:        store,
		state:        NewState(),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) State() *State {
	return s.state
}

// CacheKey is the cache entry holding the github data of username
func CacheKey(username string) string {
	return "github_data_" + username
}

// Initialize loads github data and publications together.
// The returned channel reports the background refresh started by Load, if any
func (s *Service) Initialize(ctx context.Context) <-chan error {
	var refreshed <-chan error

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		done, err := s.Load(gctx)
		refreshed = done
		if err != nil {
			log.WithError(err).Error("unable to load github data")
		}
		// a failed load is already reported on the page, the publications keep going
		return nil
	})

	g.Go(func() error {
		if err := s.LoadPublications(gctx); err != nil {
			log.WithError(err).Error("unable to load publications")
		}
		return nil
	})

	_ = g.Wait()

	return refreshed
}

// Load serves fresh cached data right away and refreshes it in the background.
// Without a fresh cache it fetches, and when that fails it falls back to a cache entry
// up to the fallback age. The error is only returned when nothing could be shown
func (s *Service) Load(ctx context.Context) (<-chan error, error) {
	key := CacheKey(s.config.Github.Username)

	// one read at the fallback age, a shorter maxAge would remove the entry
	var cached GithubData
	hasCache := s.cache.Get(key, s.config.Cache.Fallback(), &cached)

	if hasCache && s.now().Sub(cached.FetchedAt) < s.config.Cache.Freshness() {
		log.WithField("fetchedAt", cached.FetchedAt).Info("serving github data from cache, refreshing in background")

		cached.Source = SourceCache
		s.state.ReplaceGithub(cached, nil)

		return s.RefreshInBackground(ctx), nil
	}

	err := s.Refresh(ctx)
	if err == nil {
		return closedChannel(nil), nil
	}

	if hasCache {
		log.WithError(err).WithField("fetchedAt", cached.FetchedAt).Warning("github fetch failed, serving older cached data")

		cached.Source = SourceFallback
		notice := noticeFor(err)
		if !errors.Is(err, model.ErrRateLimitReached) {
			notice.Message = DegradedMessage
		}
		s.state.ReplaceGithub(cached, &notice)

		return closedChannel(nil), nil
	}

	notice := noticeFor(err)
	s.state.SetGithubNotice(&notice)

	return closedChannel(err), err
}

// Refresh fetches everything from github then replaces state and cache.
// On failure the state is left as it was
func (s *Service) Refresh(ctx context.Context) error {
	username := s.config.Github.Username

	projects, user, err := s.github.FetchProjects(ctx, username)
	if err != nil {
		s.lastFailure.Store(s.now().UnixNano())
		return err
	}
	s.lastFailure.Store(0)

	data := GithubData{
		Stats:        model.ComputeStats(projects, user),
		User:         user,
		Projects:     projects,
		LanguageData: s.github.ComputeLanguageDistribution(ctx, username, projects),
		FetchedAt:    s.now(),
		Source:       SourceFresh,
	}

	s.cache.Set(CacheKey(username), data)
	s.state.ReplaceGithub(data, nil)

	log.WithFields(log.Fields{
		"projects":  len(projects),
		"languages": len(data.LanguageData),
	}).Info("github data refreshed")

	return nil
}

// RefreshInBackground starts a refresh unless one is already running.
// The result replaces whatever is displayed (last write wins).
// The channel receives the refresh error, or nil at once when a refresh was already running
func (s *Service) RefreshInBackground(ctx context.Context) <-chan error {
	if !s.refreshing.CompareAndSwap(false, true) {
		return closedChannel(nil)
	}

	done := make(chan error, 1)

	// the caller may be a request that ends before github answers
	bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundRefreshTimeout)

	go func() {
		defer cancel()

		err := s.Refresh(bgCtx)
		if err != nil {
			log.WithError(err).Warning("background refresh failed, keeping current data")
		}

		// cleared before reporting so a waiter can start the next one
		s.refreshing.Store(false)
		done <- err
		close(done)
	}()

	return done
}

// RefreshIfStale starts a background refresh when the displayed data is older than the freshness threshold,
// unless the last fetch failed less than RefreshRetryDelay ago
func (s *Service) RefreshIfStale(ctx context.Context) <-chan error {
	data := s.state.Github()
	if data.Source != SourceNone && s.now().Sub(data.FetchedAt) < s.config.Cache.Freshness() {
		return closedChannel(nil)
	}

	if failedAt := s.lastFailure.Load(); failedAt != 0 && s.now().Sub(time.Unix(0, failedAt)) < RefreshRetryDelay {
		return closedChannel(nil)
	}

	return s.RefreshInBackground(ctx)
}

// LoadPublications replaces the publications; on error the previous list stays
func (s *Service) LoadPublications(ctx context.Context) error {
	publications, err := s.publications.FetchPublications(ctx, s.config.Publications.DOIs, s.config.Publications.File)
	if err != nil {
		notice := Notice{Level: NoticeError, Code: model.ErrFetch.Error(), Message: "unable to load publications"}
		s.state.SetPublicationsNotice(&notice)
		return err
	}

	s.state.ReplacePublications(publications, nil)
	return nil
}

func noticeFor(err error) Notice {
	apiErr := model.NewAPIError(err)
	return Notice{Level: NoticeError, Code: apiErr.Code, Message: apiErr.Message}
}

func closedChannel(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	close(ch)
	return ch
}
