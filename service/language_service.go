package service

import (
	"context"
	"math"
	"sort"

	"github.com/Hhhpraise/portfolio/model"
	"github.com/remeh/sizedwaitgroup"
	log "github.com/sirupsen/logrus"
)

// MaxLanguageSlices is the display cap of the chart, "Other" included
const MaxLanguageSlices = 6

type RepositoryLanguages struct {
	ProjectID int64
	Languages map[string]int
	Err       error
}

// ComputeLanguageDistribution samples at most LanguageSampleSize projects carrying a languages address.
// When no breakdown at all could be loaded, it falls back to one unit per project primary language
func (s githubService) ComputeLanguageDistribution(ctx context.Context, username string, projects []model.Project) []model.LanguageSlice {
	sample := LanguageSample(projects, s.config.Github.LanguageSampleSize)
	totals := s.GetRepositoriesLanguages(ctx, username, sample)

	if len(totals) == 0 {
		log.WithField("sampleSize", len(sample)).Debug("no language breakdown available. counting primary languages instead")
		totals = CountPrimaryLanguages(projects)
	}

	return BuildLanguageSlices(totals)
}

// LanguageSample keeps the first limit projects that have a languages address, none for a negative limit
func LanguageSample(projects []model.Project, limit int) []model.Project {
	limit = max(limit, 0)
	sample := make([]model.Project, 0, limit)

	for _, p := range projects {
		if len(sample) >= limit {
			break
		}

		if p.LanguagesURL != "" {
			sample = append(sample, p)
		}
	}

	return sample
}

// GetRepositoriesLanguages fetches the breakdown of every project in parallel
// and sums the byte counts once all goroutines are done. Failed repositories are skipped
func (s githubService) GetRepositoriesLanguages(ctx context.Context, username string, projects []model.Project) map[string]int {
	swg := sizedwaitgroup.New(s.config.Tasks.MaxParallelTasksAllowed)

	// collect every answer first, the totals map is only touched by this goroutine
	results := make(chan RepositoryLanguages, len(projects))

	for _, p := range projects {
		if !s.githubRateLimiter.Allow() {
			log.WithField("repository", p.Name).Warning("not enough requests in rate limiter to load languages. skipped")
			continue
		}

		swg.Add()
		go s.FetchLanguagesForSingleRepository(ctx, username, p, &swg, results)
	}

	log.Debug("waiting for all threads for loading repositories languages to be finished")
	swg.Wait()
	close(results)

	totals := make(map[string]int)
	for result := range results {
		if result.Err != nil {
			continue
		}

		for language, bytes := range result.Languages {
			totals[language] += bytes
		}
	}

	return totals
}

// FetchLanguagesForSingleRepository sends the byte counts of one project, or its error, on ch.
// The limiter token is taken by the caller
func (s githubService) FetchLanguagesForSingleRepository(ctx context.Context, username string, p model.Project, swg *sizedwaitgroup.SizedWaitGroup, ch chan<- RepositoryLanguages) {
	defer swg.Done()

	log.WithFields(log.Fields{
		"repositoryID":     p.ID,
		"mostUsedLanguage": p.Language,
	}).Debug("fetch languages for repository")

	res, _, err := s.githubClient.Repositories.ListLanguages(ctx, username, p.Name)

	if err != nil {
		if isRateLimitError(err) {
			s.drainRateLimiter()
		}

		log.WithError(err).WithField("repository", p.Name).Warning("unable to load repository languages. skipped")
		ch <- RepositoryLanguages{ProjectID: p.ID, Err: err}
		return
	}

	ch <- RepositoryLanguages{ProjectID: p.ID, Languages: res}
}

// CountPrimaryLanguages counts one unit per project, the "Other" default excluded
func CountPrimaryLanguages(projects []model.Project) map[string]int {
	counts := make(map[string]int)

	for _, p := range projects {
		if p.Language == "" || p.Language == model.DefaultLanguage {
			continue
		}
		counts[p.Language]++
	}

	return counts
}

// BuildLanguageSlices ranks languages by bytes descending and keeps MaxLanguageSlices of them.
// When the cap is reached the last kept entry becomes "Other" carrying everything not shown.
// Percentages are rounded to the nearest integer and never sum above 100
func BuildLanguageSlices(totals map[string]int) []model.LanguageSlice {
	totalBytes := 0
	slices := make([]model.LanguageSlice, 0, len(totals))

	for language, bytes := range totals {
		if bytes <= 0 {
			continue
		}

		totalBytes += bytes
		slices = append(slices, model.LanguageSlice{Language: language, Bytes: bytes})
	}

	if totalBytes == 0 {
		return []model.LanguageSlice{}
	}

	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Bytes != slices[j].Bytes {
			return slices[i].Bytes > slices[j].Bytes
		}
		return slices[i].Language < slices[j].Language
	})

	if len(slices) >= MaxLanguageSlices {
		slices = slices[:MaxLanguageSlices]

		kept := 0
		for _, slice := range slices[:MaxLanguageSlices-1] {
			kept += slice.Bytes
		}

		slices[MaxLanguageSlices-1] = model.LanguageSlice{
			Language: model.DefaultLanguage,
			Bytes:    totalBytes - kept,
		}
	}

	percentSum := 0
	for i := range slices {
		slices[i].Percentage = int(math.Round(float64(slices[i].Bytes) * 100 / float64(totalBytes)))
		percentSum += slices[i].Percentage
	}

	// rounding half up can overshoot by a point or two, take it back from the smallest entries
	for i := len(slices) - 1; percentSum > 100 && i >= 0; i-- {
		if slices[i].Percentage > 0 {
			slices[i].Percentage--
			percentSum--
		}
	}

	return slices
}
