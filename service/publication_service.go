package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Hhhpraise/portfolio/config"
	"github.com/Hhhpraise/portfolio/model"
	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var (
	doiPattern      = regexp.MustCompile(`10\.\d{4,}/\S+`)
	htmlTagPattern  = regexp.MustCompile(`<[^>]*>`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	errNoReferences = errors.New("no references resource")
)

type PublicationService interface {
	FetchPublications(ctx context.Context, dois []string, resource string) ([]model.Publication, error)
	ResolveDOI(ctx context.Context, doi string) (*model.Publication, error)
}

type publicationService struct {
	httpClient *http.Client
	baseURL    string
	fs         afero.Fs
}

// NewPublicationService resolves DOIs against a Crossref compatible API.
// fs is where a non http references resource is read from
func NewPublicationService(cfg config.Config, httpClient *http.Client, fs afero.Fs) PublicationService {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	return publicationService{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.Publications.APIBaseURL, "/"),
		fs:         fs,
	}
}

// FetchPublications resolves the static DOIs then the ones found in the references resource,
// one after the other. A DOI that cannot be resolved is skipped.
// The only error is the context being done
func (s publicationService) FetchPublications(ctx context.Context, dois []string, resource string) ([]model.Publication, error) {
	candidates := append([]string{}, dois...)

	text, err := s.loadReferences(ctx, resource)
	if err != nil {
		log.WithError(err).WithField("resource", resource).Debug("no publications file. only static DOIs are used")
	} else {
		candidates = append(candidates, ParseReferences(text)...)
	}

	publications := make([]model.Publication, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))

	for _, doi := range candidates {
		if err := ctx.Err(); err != nil {
			return publications, err
		}

		key := strings.ToLower(doi)
		if seen[key] {
			continue
		}
		seen[key] = true

		pub, err := s.ResolveDOI(ctx, doi)
		if err != nil {
			log.WithError(err).WithField("doi", doi).Warning("unable to resolve publication. skipped")
			continue
		}

		publications = append(publications, *pub)
	}

	SortPublications(publications)

	return publications, nil
}

func (s publicationService) loadReferences(ctx context.Context, resource string) (string, error) {
	if resource == "" {
		return "", errNoReferences
	}

	if strings.HasPrefix(resource, "http://") || strings.HasPrefix(resource, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, resource, nil)
		if err != nil {
			return "", err
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("references resource answered status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	content, err := afero.ReadFile(s.fs, resource)
	if errors.Is(err, os.ErrNotExist) {
		return "", errNoReferences
	}
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// ParseReferences extracts one DOI per line, blank and "#" comment lines ignored
func ParseReferences(text string) []string {
	dois := make([]string, 0)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if doi := ExtractDOI(line); doi != "" {
			dois = append(dois, doi)
		}
	}

	return dois
}

// ExtractDOI returns the first "10.NNNN/token" found in text, empty when none
func ExtractDOI(text string) string {
	return doiPattern.FindString(text)
}

type crossrefResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	Title          []string         `json:"title"`
	Author         []crossrefAuthor `json:"author"`
	ContainerTitle []string         `json:"container-title"`
	Published      crossrefDate     `json:"published"`
	DOI            string           `json:"DOI"`
	URL            string           `json:"URL"`
	Abstract       string           `json:"abstract"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"` // organisations have a name only
}

type crossrefDate struct {
	DateParts [][]*int `json:"date-parts"`
}

// ResolveDOI loads one work. Any failure, non 200 answer included, is returned as an error
// and means the publication is absent
func (s publicationService) ResolveDOI(ctx context.Context, doi string) (*model.Publication, error) {
	// the slash between prefix and suffix is part of the path
	escaped := strings.ReplaceAll(url.PathEscape(doi), "%2F", "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/works/"+escaped, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crossref error (status %d): %w", resp.StatusCode, model.ErrFetch)
	}

	var payload crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", model.ErrInvalidData)
	}

	return toPublication(doi, payload.Message), nil
}

func toPublication(requestedDOI string, work crossrefWork) *model.Publication {
	pub := &model.Publication{
		Title:   model.UnknownTitle,
		Authors: model.UnknownAuthors,
		Journal: model.UnknownJournal,
		Year:    model.UnknownYear,
		DOI:     work.DOI,
		URL:     work.URL,
	}

	if len(work.Title) > 0 && strings.TrimSpace(work.Title[0]) != "" {
		pub.Title = strings.TrimSpace(work.Title[0])
	}

	authors := make([]string, 0, len(work.Author))
	for _, a := range work.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name == "" {
			name = strings.TrimSpace(a.Name)
		}
		if name != "" {
			authors = append(authors, name)
		}
	}
	if len(authors) > 0 {
		pub.Authors = strings.Join(authors, ", ")
	}

	if len(work.ContainerTitle) > 0 && strings.TrimSpace(work.ContainerTitle[0]) != "" {
		pub.Journal = strings.TrimSpace(work.ContainerTitle[0])
	}

	if parts := work.Published.DateParts; len(parts) > 0 && len(parts[0]) > 0 && parts[0][0] != nil && *parts[0][0] > 0 {
		pub.Year = model.PublicationYear(*parts[0][0])
	}

	if pub.DOI == "" {
		pub.DOI = requestedDOI
	}

	if pub.URL == "" {
		pub.URL = "https://doi.org/" + pub.DOI
	}

	if work.Abstract != "" {
		abstract := StripHTML(work.Abstract)
		if abstract != "" {
			pub.Abstract = &abstract
		}
	}

	return pub
}

// StripHTML removes tags, decodes entities and collapses whitespace
func StripHTML(text string) string {
	text = htmlTagPattern.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(text, " "))
}

// SortPublications orders by year descending, unknown years last, ties keep their order
func SortPublications(publications []model.Publication) {
	sort.SliceStable(publications, func(i, j int) bool {
		a, b := publications[i].Year, publications[j].Year
		if a.Known() != b.Known() {
			return a.Known()
		}
		return a > b
	})
}
