package main

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Hhhpraise/portfolio/cache"
	"github.com/Hhhpraise/portfolio/config"
	"github.com/Hhhpraise/portfolio/controller"
	"github.com/Hhhpraise/portfolio/logger"
	"github.com/Hhhpraise/portfolio/portfolio"
	"github.com/Hhhpraise/portfolio/render"
	"github.com/Hhhpraise/portfolio/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v66/github"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"
)

// unauthenticated github core limit, used when the real one cannot be read
const defaultHourlyRateLimit = 60

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Warning("unable to load configuration, running with defaults")
	}

	logger.Setup(*cfg)

	// the github service only receives a client, tests hand it a mocked one
	githubClient := github.NewClient(nil)

	if cfg.Github.Token != "" {
		log.Debug("will setup github client with authorization token")
		githubClient = githubClient.WithAuthToken(cfg.Github.Token)
	}

	if cfg.Github.BaseURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(cfg.Github.BaseURL, "/") + "/")
		if err != nil {
			log.WithError(err).Fatal("invalid github base url")
		}
		githubClient.BaseURL = baseURL
	}

	rateLimiter := setupRateLimiter(githubClient)

	// fs used for the cache directory and a local publications file
	fs := afero.NewOsFs()

	storage, err := cache.NewFileStorage(fs, cfg.Cache.Directory)
	if err != nil {
		log.WithError(err).Fatal("unable to create cache directory")
	}

	// services share the limiter and the fs
	githubService := service.NewGithubService(*cfg, githubClient, rateLimiter)
	publicationService := service.NewPublicationService(*cfg, nil, fs)
	portfolioService := portfolio.NewService(*cfg, githubService, publicationService, cache.NewStore(storage))
	apiController := controller.NewAPIController(*cfg, portfolioService)

	templates, err := render.Templates()
	if err != nil {
		log.WithError(err).Fatal("unable to parse page templates")
	}

	// first load before serving, the background refresh may still be running
	portfolioService.Initialize(context.Background())

	// page and JSON api, GET only
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.SetHTMLTemplate(templates)

	server := &http.Server{
		Addr:    ":" + cfg.API.ListenPort,
		Handler: router,
	}

	router.Use(
		gin.Recovery(),
		logger.RequestLogger(),
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Content-Type, Content-Length, Accept-Encoding, Host, accept, Origin, Cache-Control, X-Requested-With"},
			MaxAge:       12 * time.Hour,
		}),
	)

	router.GET("/", apiController.GetPage)

	api := router.Group("/api")
	{
		api.GET("/projects", apiController.GetProjects)
		api.GET("/projects/:id", apiController.GetProject)
		api.GET("/publications", apiController.GetPublications)
		api.GET("/languages", apiController.GetLanguages)
		api.GET("/profile", apiController.GetProfile)
	}

	go func() {
		log.Info("server listening on port " + cfg.API.ListenPort)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("error while starting server")
		}
	}()

	// block until SIGINT or SIGTERM, then give in-flight requests 15 seconds
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("SIGINT, SIGTERM received, will shut down server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	} else {
		log.Info("Application stopped gracefully !")
	}
}

// setupRateLimiter mirrors the github core limit locally.
// Tokens already spent elsewhere are consumed so the local count matches the remaining requests
func setupRateLimiter(githubClient *github.Client) *rate.Limiter {
	limit, remaining := defaultHourlyRateLimit, defaultHourlyRateLimit

	log.Debug("loading current rate limit from github")
	rateLimits, _, err := githubClient.RateLimit.Get(context.Background())

	if err != nil || rateLimits == nil || rateLimits.Core == nil {
		log.WithError(err).Warning("unable to load current github rate limits, using unauthenticated defaults")
	} else {
		limit, remaining = rateLimits.Core.Limit, rateLimits.Core.Remaining
	}

	log.WithFields(log.Fields{
		"totalAvailable":    limit,
		"remainingRequests": remaining,
	}).Debug("will setup local rate limiter with rate limits infos from github")

	rateLimiter := rate.NewLimiter(rate.Every(time.Hour/time.Duration(max(limit, 1))), limit)

	if used := limit - remaining; used > 0 && !rateLimiter.AllowN(time.Now(), used) {
		log.WithField("used", used).Warning("unable to consume already used tokens on the github rate limiter")
	}

	return rateLimiter
}
