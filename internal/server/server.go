package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pi42dash/internal/domain"
	"pi42dash/internal/engine"
	"pi42dash/internal/infra"
	"pi42dash/internal/infra/pi42"
	"pi42dash/internal/infra/storage"
	"pi42dash/internal/service"
)

//go:embed assets/*
var embeddedFS embed.FS

// TopicSwitcher is the slice of the feed the server drives: switching the
// live subscription when the selection changes.
type TopicSwitcher interface {
	SetSelection(symbol, interval, grouping string)
}

// Forwarder proxies one validated request to the exchange.
type Forwarder interface {
	Forward(ctx context.Context, req pi42.ProxyRequest) (*pi42.ProxyResponse, error)
}

// Server hosts the dashboard API, the request proxy and the embedded UI.
type Server struct {
	address    string
	forwarder  Forwarder
	markets    *service.MarketService
	bundles    *service.BundleFetcher
	reconciler *engine.Reconciler
	feed       TopicSwitcher
	store      *storage.Storage

	httpServer *http.Server
}

// NewServer wires the dashboard HTTP surface. store may be nil when
// persistence is unavailable; the favorites endpoint then returns 503.
func NewServer(
	address string,
	forwarder Forwarder,
	markets *service.MarketService,
	bundles *service.BundleFetcher,
	reconciler *engine.Reconciler,
	feed TopicSwitcher,
	store *storage.Storage,
) *Server {
	return &Server{
		address:    address,
		forwarder:  forwarder,
		markets:    markets,
		bundles:    bundles,
		reconciler: reconciler,
		feed:       feed,
		store:      store,
	}
}

// Run starts the HTTP server and blocks until the provided context is
// cancelled or the underlying server exits with an error.
func (s *Server) Run(ctx context.Context) error {
	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:    s.address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err == nil {
			return nil
		}
		return err
	}
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", s.handleIndex)
	router.POST("/api/pi42", s.handleProxy)
	router.POST("/api/explorer", s.handleExplorer)
	router.GET("/api/markets", s.handleMarkets)
	router.GET("/api/markets/summary", s.handleSummary)
	router.GET("/api/markets/:symbol/bundle", s.handleBundle)
	router.GET("/api/live", s.handleLive)
	router.POST("/api/selection", s.handleSelection)
	router.GET("/api/metrics", s.handleMetrics)
	router.POST("/api/contracts/:symbol/favorite", s.handleFavorite)

	return router
}

func (s *Server) handleIndex(c *gin.Context) {
	page, err := embeddedFS.ReadFile("assets/index.html")
	if err != nil {
		c.String(http.StatusInternalServerError, "dashboard page unavailable")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// handleProxy is the generic forwarder: the returned HTTP status mirrors
// the upstream status, and the body always carries {status, statusText,
// data}.
func (s *Server) handleProxy(c *gin.Context) {
	var req pi42.ProxyRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "invalid request payload",
			"issues": []domain.Issue{{Field: "(body)", Message: err.Error()}},
		})
		return
	}

	resp, err := s.forwarder.Forward(c.Request.Context(), req)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload", "issues": vErr.Issues})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(resp.Status, resp)
}

func (s *Server) handleMarkets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"markets": s.markets.Combined()})
}

func (s *Server) handleSummary(c *gin.Context) {
	c.JSON(http.StatusOK, s.markets.Summary())
}

// handleBundle refetches the REST snapshot for a symbol and seeds the
// live view when the bundle still matches the current selection.
func (s *Server) handleBundle(c *gin.Context) {
	symbol := c.Param("symbol")
	interval := c.DefaultQuery("interval", "1m")

	bundle, err := s.bundles.Fetch(c.Request.Context(), symbol, interval)
	if err != nil {
		// Prior displayed state stays untouched on any sub-request failure.
		slog.Warn("Bundle fetch failed", slog.String("symbol", symbol), slog.Any("error", err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	seeded := s.reconciler.SeedBundle(bundle)
	c.JSON(http.StatusOK, gin.H{"bundle": bundle, "seeded": seeded})
}

func (s *Server) handleLive(c *gin.Context) {
	c.JSON(http.StatusOK, s.reconciler.View())
}

type selectionRequest struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
}

// handleSelection switches the dashboard to a new symbol/interval: the
// live state resets, the feed resubscribes, and a fresh bundle seeds the
// view. A failed bundle leaves the (empty) live state to be filled by
// the feed alone.
func (s *Server) handleSelection(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	if req.Interval == "" {
		req.Interval = "1m"
	}

	grouping := domain.DefaultDepthGrouping
	if contract, ok := s.markets.Contract(req.Symbol); ok {
		grouping = contract.Grouping()
	}

	s.reconciler.SetSelection(engine.Selection{Symbol: req.Symbol, Interval: req.Interval})
	s.feed.SetSelection(req.Symbol, req.Interval, grouping)

	seeded := false
	bundle, err := s.bundles.Fetch(c.Request.Context(), req.Symbol, req.Interval)
	if err != nil {
		slog.Warn("Bundle fetch failed", slog.String("symbol", req.Symbol), slog.Any("error", err))
	} else {
		seeded = s.reconciler.SeedBundle(bundle)
	}

	c.JSON(http.StatusOK, gin.H{
		"selection": gin.H{"symbol": req.Symbol, "interval": req.Interval},
		"seeded":    seeded,
	})
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, infra.GlobalMetrics.Snapshot())
}

func (s *Server) handleFavorite(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence unavailable"})
		return
	}

	isFavorite, err := s.store.ToggleFavorite(c.Param("symbol"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": c.Param("symbol"), "is_favorite": isFavorite})
}
