package model

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode string
		expectedMsg  string
	}{
		{name: "rate limit", err: ErrRateLimitReached, expectedCode: "RATE_LIMIT_REACHED", expectedMsg: RateLimitMessage},
		{name: "wrapped rate limit", err: fmt.Errorf("repos: %w", ErrRateLimitReached), expectedCode: "RATE_LIMIT_REACHED", expectedMsg: RateLimitMessage},
		{name: "fetch error", err: ErrFetch, expectedCode: "FETCH_ERROR", expectedMsg: FetchMessage},
		{name: "invalid data", err: ErrInvalidData, expectedCode: "INVALID_DATA_FOUND", expectedMsg: FetchMessage},
		{name: "not found", err: ErrNotFound, expectedCode: "NOT_FOUND", expectedMsg: NotFoundMessage},
		{name: "unknown", err: fmt.Errorf("boom"), expectedCode: "GENERIC_ERROR", expectedMsg: FetchMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := NewAPIError(tt.err)
			assert.Equal(t, tt.expectedCode, apiErr.Code)
			assert.Equal(t, tt.expectedMsg, apiErr.Message)
		})
	}
}

func TestPublicationYearJSON(t *testing.T) {
	data, err := json.Marshal(Publication{Year: 2021})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"year":2021`)

	data, err = json.Marshal(Publication{Year: UnknownYear})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"year":"N/A"`)

	var pub Publication
	require.NoError(t, json.Unmarshal([]byte(`{"year":"N/A"}`), &pub))
	assert.Equal(t, UnknownYear, pub.Year)
	assert.Equal(t, "N/A", pub.Year.String())
}

func TestProjectQueryToQueryState(t *testing.T) {
	state := ProjectQuery{Search: "  CLI Tool ", Filter: "web", Sort: "stars", Page: 0}.ToQueryState()

	assert.Equal(t, "cli tool", state.Search)
	assert.Equal(t, CategoryWeb, state.Category)
	assert.Equal(t, SortStars, state.Sort)
	assert.Equal(t, 1, state.Page)

	state = ProjectQuery{Filter: "rust", Sort: "forks", Page: 3}.ToQueryState()
	assert.Equal(t, CategoryAll, state.Category)
	assert.Equal(t, SortUpdated, state.Sort)
	assert.Equal(t, 3, state.Page)
}

func TestQueryStateTransitions(t *testing.T) {
	state := DefaultQueryState()

	state = state.NextPage(2)
	assert.Equal(t, 2, state.Page)

	state = state.NextPage(2)
	assert.Equal(t, 2, state.Page, "next past the last page is a no-op")

	state = state.WithSort(SortName)
	assert.Equal(t, 2, state.Page, "sorting keeps the page")

	state = state.WithSearch(" Go ")
	assert.Equal(t, 1, state.Page)
	assert.Equal(t, "go", state.Search)

	state = state.PrevPage()
	assert.Equal(t, 1, state.Page)

	state = state.NextPage(3).WithCategory(CategoryPython)
	assert.Equal(t, 1, state.Page)
	assert.Equal(t, CategoryPython, state.Category)
}

func TestQueryStateValues(t *testing.T) {
	assert.Empty(t, DefaultQueryState().Values())

	values := QueryState{Search: "go", Category: CategoryWeb, Sort: SortName, Page: 2}.Values()
	assert.Equal(t, "filter=web&page=2&search=go&sort=name", values.Encode())
}

func TestComputeStats(t *testing.T) {
	projects := []Project{{Stars: 3, Forks: 1}, {Stars: 4, Forks: 0}}
	stats := ComputeStats(projects, UserProfile{PublicRepos: 12, Followers: 40})

	assert.Equal(t, Stats{TotalRepos: 2, TotalStars: 7, TotalForks: 1, PublicRepos: 12, Followers: 40}, stats)
}
