package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"cassiopeia/config"
	"cassiopeia/models"
	"cassiopeia/providers/astro"
	"cassiopeia/providers/iss"
	"cassiopeia/providers/jwst"
	"cassiopeia/providers/osdr"
	"cassiopeia/services"
	"cassiopeia/storage"
)

var (
	upstreamFailures *prometheus.CounterVec
	snapshotsWritten prometheus.Counter
)

func init() {
	upstreamFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_fetch_failures_total",
			Help: "Total number of failed upstream fetches, by upstream.",
		},
		[]string{"upstream"},
	)
	snapshotsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telemetry_snapshots_total",
			Help: "Total number of telemetry snapshot files written.",
		},
	)
	prometheus.MustRegister(upstreamFailures, snapshotsWritten)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Fetchers
	issFetcher := iss.NewFetcher(cfg, logging)
	osdrFetcher := osdr.NewFetcher(cfg, logging)
	jwstFetcher := jwst.NewFetcher(cfg, logging)
	astroFetcher := astro.NewFetcher(cfg, logging)

	router := buildRouter(cfg, logging, issFetcher, osdrFetcher, jwstFetcher, astroFetcher)

	// Setup Cron: Telemetrie-Snapshots für das Legacy-Archiv
	if cfg.SnapshotEnabled {
		recorder := services.NewSnapshotRecorder(cfg.CSVOutDir, issFetcher, logging)
		cronScheduler := cron.New()
		cronScheduler.AddFunc(cfg.SnapshotCron, func() {
			path, err := recorder.Run(context.Background())
			if err != nil {
				logging.Warn("Snapshot job failed", zap.Error(err))
				return
			}
			snapshotsWritten.Inc()
			logging.Info("Telemetry snapshot written", zap.String("file", path))
		})
		cronScheduler.Start()
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// buildRouter verdrahtet Seiten, API und Betriebsendpoints. Als eigene
// Funktion, damit Tests den kompletten Router gegen Fake-Upstreams fahren.
func buildRouter(cfg *config.Config, logging *zap.Logger, issFetcher *iss.Fetcher, osdrFetcher *osdr.Fetcher, jwstFetcher *jwst.Fetcher, astroFetcher *astro.Fetcher) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.LoadHTMLGlob("templates/*.html")
	router.Static("/static", "./static")

	setupPageRoutes(router, cfg, logging, issFetcher, osdrFetcher, astroFetcher)

	api := router.Group("/api")
	api.Use(apiKeyAuthMiddleware(cfg))
	setupIssRoutes(api, issFetcher)
	setupJwstRoutes(api, jwstFetcher)
	setupAstroRoutes(api, cfg, astroFetcher)
	setupLegacyRoutes(api, cfg, logging)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   "cassiopeia-web",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusNotFound, "error.html", gin.H{
			"title":   "Страница не найдена | Кассиопея",
			"message": "Страница не найдена",
		})
	})

	return router
}

// setupPageRoutes konfiguriert die server-gerenderten Seiten.
func setupPageRoutes(router *gin.Engine, cfg *config.Config, log *zap.Logger, issFetcher *iss.Fetcher, osdrFetcher *osdr.Fetcher, astroFetcher *astro.Fetcher) {
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/dashboard")
	})

	// Dashboard: letzte ISS-Position plus abgeleitete Kennzahlen. Ein
	// Upstream-Ausfall rendert die Seite mit Defaults, nie als Fehler.
	router.GET("/dashboard", func(c *gin.Context) {
		res := issFetcher.Last(c.Request.Context())
		if !res.OK {
			upstreamFailures.WithLabelValues("iss").Inc()
		}
		issData := services.Coerce(res.Body)

		var speed, alt any
		if m, ok := issData.(map[string]any); ok {
			if payload, ok := services.Coerce(m["payload"]).(map[string]any); ok {
				speed = payload["velocity"]
				alt = payload["altitude"]
			}
		}

		c.HTML(http.StatusOK, "dashboard.html", gin.H{
			"title":       "Космический Дашборд | Кассиопея",
			"currentPath": c.Request.URL.Path,
			"iss":         issData,
			"metrics": gin.H{
				"iss_speed": speed,
				"iss_alt":   alt,
				"neo_total": 0,
			},
		})
	})

	// ISS-Seite: Position und Trend parallel, unabhängige Fehlerpfade.
	// Fällt einer aus, rendert die Seite den anderen trotzdem.
	router.GET("/iss", func(c *gin.Context) {
		ctx := c.Request.Context()

		var wg sync.WaitGroup
		var lastRes, trendRes models.UpstreamResult
		wg.Add(2)
		go func() {
			defer wg.Done()
			lastRes = issFetcher.Last(ctx)
		}()
		go func() {
			defer wg.Done()
			trendRes = issFetcher.Trend(ctx, "")
		}()
		wg.Wait()

		if !lastRes.OK {
			upstreamFailures.WithLabelValues("iss").Inc()
		}
		if !trendRes.OK {
			upstreamFailures.WithLabelValues("iss").Inc()
		}

		c.HTML(http.StatusOK, "iss.html", gin.H{
			"title":       "МКС - Трекинг и Мониторинг | Кассиопея",
			"currentPath": c.Request.URL.Path,
			"last":        services.Coerce(lastRes.Body),
			"trend":       services.Coerce(trendRes.Body),
			"base":        cfg.RustBase(),
		})
	})

	// OSDR: Dictionary- oder Listen-Antworten werden zu einer flachen
	// Experimentliste normalisiert.
	router.GET("/osdr", func(c *gin.Context) {
		limit := c.DefaultQuery("limit", "20")
		res := osdrFetcher.List(c.Request.Context(), limit)
		if !res.OK {
			upstreamFailures.WithLabelValues("osdr").Inc()
		}

		var rows []any
		if m, ok := services.Coerce(res.Body).(map[string]any); ok {
			rows, _ = m["items"].([]any)
		}
		items := services.FlattenRecords(rows)

		c.HTML(http.StatusOK, "osdr.html", gin.H{
			"title":       "OSDR - Космические Эксперименты | Кассиопея",
			"currentPath": c.Request.URL.Path,
			"items":       items,
			"src":         osdrFetcher.ListURL(limit),
		})
	})

	// Galerie und Legacy sind Client-Shells; die Daten holt der Browser
	// über die /api-Endpoints.
	router.GET("/jwst", func(c *gin.Context) {
		c.HTML(http.StatusOK, "jwst.html", gin.H{
			"title":       "JWST - Галерея изображений | Кассиопея",
			"currentPath": c.Request.URL.Path,
		})
	})
	router.GET("/legacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "legacy.html", gin.H{
			"title":       "Legacy - CSV данные | Кассиопея",
			"currentPath": c.Request.URL.Path,
		})
	})

	// Astro-Seite: Events für den Standard-Standort holen und die
	// event-artigen Objekte aus dem Antwortbaum einsammeln. Ohne
	// Credentials oder bei Upstream-Fehlern rendert die Seite leer.
	router.GET("/astro", func(c *gin.Context) {
		lat := atofDefault(c.Query("lat"), cfg.DefaultLatitude)
		lon := atofDefault(c.Query("lon"), cfg.DefaultLongitude)
		days := clampInt(atoiDefault(c.Query("days"), 7), 1, 30)

		events := []models.NormalizedEvent{}
		status, body, err := astroFetcher.Events(c.Request.Context(), lat, lon, days)
		if err == nil && status == http.StatusOK {
			events = services.CollectEvents(body)
			if len(events) > 200 {
				events = events[:200]
			}
		} else if err == nil && status != http.StatusOK {
			upstreamFailures.WithLabelValues("astro").Inc()
		}

		c.HTML(http.StatusOK, "astro.html", gin.H{
			"title":       "Астрономические события | Кассиопея",
			"currentPath": c.Request.URL.Path,
			"events":      events,
			"lat":         lat,
			"lon":         lon,
			"days":        days,
		})
	})
}

// setupIssRoutes konfiguriert die reinen Spiegel-Endpoints zum rust_iss
// Upstream. Immer HTTP 200 und JSON, egal was der Upstream liefert;
// Clients verlassen sich auf diese Form.
func setupIssRoutes(rg *gin.RouterGroup, issFetcher *iss.Fetcher) {
	rg.GET("/iss/last", func(c *gin.Context) {
		c.JSON(http.StatusOK, issFetcher.PipeLast(c.Request.Context()))
	})
	rg.GET("/iss/trend", func(c *gin.Context) {
		c.JSON(http.StatusOK, issFetcher.PipeTrend(c.Request.Context(), c.Request.URL.RawQuery))
	})
}

// setupJwstRoutes konfiguriert den Galerie-Feed.
func setupJwstRoutes(rg *gin.RouterGroup, jwstFetcher *jwst.Fetcher) {
	rg.GET("/jwst/feed", func(c *gin.Context) {
		source := c.DefaultQuery("source", "jpg")
		suffix := c.Query("suffix")
		program := c.Query("program")
		instrument := c.Query("instrument")

		page := clampInt(atoiDefault(c.Query("page"), 1), 1, 1<<30)
		perPage := clampInt(atoiDefault(c.Query("perPage"), 24), 1, 60)

		path := jwst.FeedPath(source, suffix, program)
		res := jwstFetcher.Get(c.Request.Context(), path, page, perPage)
		if !res.OK {
			upstreamFailures.WithLabelValues("jwst").Inc()
			c.JSON(http.StatusOK, gin.H{"source": "error", "count": 0, "items": []models.GalleryItem{}})
			return
		}

		// Der Katalog liefert mal ein Array, mal {body: [...]}, mal
		// {data: [...]}.
		var list []any
		switch t := res.Body.(type) {
		case []any:
			list = t
		case map[string]any:
			if arr, ok := t["body"].([]any); ok {
				list = arr
			} else if arr, ok := t["data"].([]any); ok {
				list = arr
			}
		}

		items := services.BuildGalleryItems(list, instrument, perPage)
		c.JSON(http.StatusOK, gin.H{"source": path, "count": len(items), "items": items})
	})
}

// setupAstroRoutes konfiguriert den Events-Endpoint. Fehlende Credentials
// sind der einzige Fall, der hier ein 500 produziert.
func setupAstroRoutes(rg *gin.RouterGroup, cfg *config.Config, astroFetcher *astro.Fetcher) {
	rg.GET("/astro/events", func(c *gin.Context) {
		lat := atofDefault(c.Query("lat"), cfg.DefaultLatitude)
		lon := atofDefault(c.Query("lon"), cfg.DefaultLongitude)
		days := clampInt(atoiDefault(c.Query("days"), 7), 1, 30)

		status, body, err := astroFetcher.Events(c.Request.Context(), lat, lon, days)
		if err != nil {
			if errors.Is(err, astro.ErrMissingCredentials) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Missing ASTRO_APP_ID/ASTRO_APP_SECRET"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if status != http.StatusOK {
			upstreamFailures.WithLabelValues("astro").Inc()
		}
		c.JSON(status, body)
	})
}

// setupLegacyRoutes konfiguriert die Archiv-Endpoints. Ein leeres Archiv
// ist ein 404 mit strukturierter Meldung, kein Upstream-Fehler.
func setupLegacyRoutes(rg *gin.RouterGroup, cfg *config.Config, log *zap.Logger) {
	rg.GET("/legacy/data", func(c *gin.Context) {
		rows, err := storage.ReadLatestTelemetry(cfg.CSVOutDir)
		if err != nil {
			if errors.Is(err, storage.ErrNoArchiveFiles) {
				c.JSON(http.StatusNotFound, gin.H{"error": "No CSV files found."})
				return
			}
			log.Error("Failed to read telemetry archive", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch legacy CSV data."})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.GET("/legacy/export.csv", func(c *gin.Context) {
		name, data, err := storage.ExportLatest(cfg.CSVOutDir)
		if err != nil {
			if errors.Is(err, storage.ErrNoArchiveFiles) {
				c.JSON(http.StatusNotFound, gin.H{"error": "No CSV files found for export."})
				return
			}
			log.Error("Failed to export telemetry archive", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export legacy data."})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
		c.Data(http.StatusOK, "text/csv", data)
	})
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func atofDefault(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
