package controller

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Hhhpraise/portfolio/config"
	"github.com/Hhhpraise/portfolio/logger"
	"github.com/Hhhpraise/portfolio/model"
	"github.com/Hhhpraise/portfolio/portfolio"
	"github.com/Hhhpraise/portfolio/render"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	themeCookie       = "theme"
	themeCookieMaxAge = 365 * 24 * 60 * 60
)

// Portfolio is what the handlers need from the portfolio service
type Portfolio interface {
	State() *portfolio.State
	RefreshIfStale(ctx context.Context) <-chan error
}

type APIController interface {
	GetPage(c *gin.Context)
	GetProjects(c *gin.Context)
	GetProject(c *gin.Context)
	GetPublications(c *gin.Context)
	GetLanguages(c *gin.Context)
	GetProfile(c *gin.Context)
}

type apiController struct {
	portfolio Portfolio
	config    config.Config
	now       func() time.Time
}

func NewAPIController(config config.Config, portfolio Portfolio) APIController {
	return apiController{
		portfolio: portfolio,
		config:    config,
		now:       time.Now,
	}
}

type profileResponse struct {
	User      model.UserProfile `json:"user"`
	Stats     model.Stats       `json:"stats"`
	FetchedAt *time.Time        `json:"fetchedAt,omitempty"`
	Source    portfolio.Source  `json:"source"`
}

type publicationsResponse struct {
	Publications []model.Publication `json:"publications"`
	Loaded       bool                `json:"loaded"`
}

func (s apiController) GetPage(c *gin.Context) {
	theme := s.theme(c)

	var params model.ProjectQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		log.WithError(err).WithField(logger.RequestIDKey, c.GetString(logger.RequestIDKey)).Debug("invalid page in query, back to the first one")

		// only the page can fail to bind, the text fields are kept
		params = model.ProjectQuery{
			Search: c.Query("search"),
			Filter: c.Query("filter"),
			Sort:   c.Query("sort"),
		}
	}

	s.portfolio.RefreshIfStale(c.Request.Context())

	state := s.portfolio.State()
	queryState := params.ToQueryState()
	result := state.Query(queryState)

	// the page number shown is the clamped one
	queryState.Page = result.Page

	c.HTML(http.StatusOK, render.PageTemplate, render.NewPage(render.PageInput{
		Now:                s.now(),
		Theme:              theme,
		Query:              queryState,
		Result:             result,
		Github:             state.Github(),
		Publications:       state.Publications(),
		PublicationsLoaded: state.PublicationsLoaded(),
		Notices:            state.Notices(),
	}))
}

func (s apiController) GetProjects(c *gin.Context) {
	var params model.ProjectQuery
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, model.APIError{Code: model.ErrInvalidData.Error(), Message: err.Error()})
		return
	}

	s.portfolio.RefreshIfStale(c.Request.Context())

	if s.abortWhenGithubMissing(c) {
		return
	}

	c.JSON(http.StatusOK, s.portfolio.State().Query(params.ToQueryState()))
}

func (s apiController) GetProject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, model.NewAPIError(model.ErrNotFound))
		return
	}

	if s.abortWhenGithubMissing(c) {
		return
	}

	project, ok := s.portfolio.State().FindProject(id)
	if !ok {
		c.JSON(http.StatusNotFound, model.NewAPIError(model.ErrNotFound))
		return
	}

	c.JSON(http.StatusOK, render.NewProjectDetail(s.now(), project))
}

func (s apiController) GetPublications(c *gin.Context) {
	state := s.portfolio.State()

	if !state.PublicationsLoaded() {
		if notice := state.PublicationsNotice(); notice != nil {
			c.JSON(http.StatusServiceUnavailable, model.APIError{Code: notice.Code, Message: notice.Message})
			return
		}
	}

	c.JSON(http.StatusOK, publicationsResponse{
		Publications: state.Publications(),
		Loaded:       state.PublicationsLoaded(),
	})
}

func (s apiController) GetLanguages(c *gin.Context) {
	if s.abortWhenGithubMissing(c) {
		return
	}

	c.JSON(http.StatusOK, s.portfolio.State().Github().LanguageData)
}

func (s apiController) GetProfile(c *gin.Context) {
	if s.abortWhenGithubMissing(c) {
		return
	}

	data := s.portfolio.State().Github()
	response := profileResponse{
		User:   data.User,
		Stats:  data.Stats,
		Source: data.Source,
	}

	if !data.FetchedAt.IsZero() {
		response.FetchedAt = &data.FetchedAt
	}

	c.JSON(http.StatusOK, response)
}

// abortWhenGithubMissing answers 503 with the load error when no github data could ever be shown
func (s apiController) abortWhenGithubMissing(c *gin.Context) bool {
	state := s.portfolio.State()
	if state.Github().Source != portfolio.SourceNone {
		return false
	}

	apiErr := model.APIError{Code: model.ErrFetch.Error(), Message: model.FetchMessage}
	if notice := state.GithubNotice(); notice != nil {
		apiErr = model.APIError{Code: notice.Code, Message: notice.Message}
	}

	c.JSON(http.StatusServiceUnavailable, apiErr)
	return true
}

// theme applies ?theme= and remembers it, otherwise reads the cookie
func (s apiController) theme(c *gin.Context) render.Theme {
	if value, ok := c.GetQuery("theme"); ok {
		if theme, valid := render.ParseTheme(value); valid {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(themeCookie, string(theme), themeCookieMaxAge, "/", "", false, true)
			return theme
		}
	}

	if value, err := c.Cookie(themeCookie); err == nil {
		theme, _ := render.ParseTheme(value)
		return theme
	}

	return render.ThemeLight
}
