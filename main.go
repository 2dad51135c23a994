package main

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	scalargo "github.com/bdpiprava/scalar-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"tracker-base/pkg/api"
	"tracker-base/pkg/dom"
	"tracker-base/pkg/fetch"
	"tracker-base/pkg/funnel"
	"tracker-base/pkg/logger"
	"tracker-base/pkg/markers"
	"tracker-base/pkg/models"
	"tracker-base/pkg/selectors"
	"tracker-base/pkg/track"
)

var (
	trackSemaphore = make(chan struct{}, 8)
	markerStore    *markers.Store
	profile        = selectors.Default()
	appLog         = zerolog.Nop()
)

// TrackRequest is one rendered page plus its server-side state.
type TrackRequest struct {
	HTML          string                `json:"html"`
	Snapshot      models.PageSnapshot   `json:"snapshot"`
	Config        *models.Config        `json:"config,omitempty"`
	SingleProduct *models.ProductRecord `json:"singleProduct,omitempty"`
	Cart          *models.CartSnapshot  `json:"cart,omitempty"`
	Order         *models.OrderSnapshot `json:"order,omitempty"`
}

// TrackResponse carries the event queue produced for the page, reset
// envelopes included, in push order.
type TrackResponse struct {
	PageType string                 `json:"page_type"`
	Events   []models.EventEnvelope `json:"events"`
}

func main() {
	if err := godotenv.Load(); err == nil {
		fmt.Println("Loaded environment from .env")
	}

	debug := getEnv("DEBUG", "") == "true"
	appLog = logger.New(debug)

	port := getEnv("PORT", "9090")
	dbPath := getEnv("MARKERS_DB_PATH", "./markers.db")

	if path := getEnv("SELECTOR_PROFILE", ""); path != "" {
		p, err := selectors.Load(path)
		if err != nil {
			appLog.Fatal().Err(err).Str("path", path).Msg("failed to load selector profile")
		}
		profile = p
		appLog.Info().Str("path", path).Int("version", p.Version).Msg("selector profile loaded")
	}

	var err error
	markerStore, err = markers.Open(dbPath)
	if err != nil {
		appLog.Fatal().Err(err).Msg("failed to initialize marker store")
	}
	defer markerStore.Close()
	appLog.Info().Str("path", dbPath).Msg("marker store initialized")

	http.HandleFunc("/", rootHandler)

	ip := outboundIP()
	if ip != nil {
		fmt.Printf("Local Network URL: http://%s:%s\n", ip.String(), port)
	}
	fmt.Printf("Access URL: http://localhost:%s\n", port)
	fmt.Printf("API Docs: http://localhost:%s/\n", port)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           nil,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	appLog.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/pages/") {
		pagesHandler(w, r)
		return
	}

	// Serve Scalar docs on root path
	html, err := scalargo.NewV2(
		scalargo.WithSpecDir("./"),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle("Storefront Tracking Engine API"),
		),
	)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

func pagesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/pages/track":
		if r.Method != http.MethodPost {
			api.WriteMethodNotAllowed(w, "Use POST for /pages/track.", r.URL.Path)
			return
		}
		handleTrack(w, r)
	case "/pages/fetch":
		if r.Method != http.MethodGet {
			api.WriteMethodNotAllowed(w, "Use GET for /pages/fetch.", r.URL.Path)
			return
		}
		handleFetch(w, r)
	default:
		api.WriteNotFound(w, "Unknown endpoint. Available: /pages/track, /pages/fetch", r.URL.Path)
	}
}

func handleTrack(w http.ResponseWriter, r *http.Request) {
	trackSemaphore <- struct{}{}
	defer func() { <-trackSemaphore }()

	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteBadRequest(w, "Invalid JSON body.", r.URL.Path)
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(req.HTML) == "" {
		api.WriteBadRequest(w, "Field 'html' is required.", r.URL.Path)
		return
	}

	events, err := runSession(req)
	if err != nil {
		appLog.Warn().Err(err).Str("page_type", req.Snapshot.PageType).Msg("tracking session failed")
		api.WriteUnprocessable(w, "Page markup could not be processed: "+err.Error(), r.URL.Path)
		return
	}

	api.WriteJSON(w, TrackResponse{PageType: req.Snapshot.PageType, Events: events}, r.URL.Path)
}

func handleFetch(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		api.WriteBadRequest(w, "Query parameter 'url' is required.", r.URL.Path)
		return
	}

	trackSemaphore <- struct{}{}
	defer func() { <-trackSemaphore }()

	body, err := fetch.New().Page(url)
	if err != nil {
		appLog.Warn().Err(err).Str("url", url).Msg("page fetch failed")
		if err == models.ErrPageNotFound || strings.Contains(err.Error(), "Not Found") {
			api.WriteNotFound(w, "Page not found: "+url, r.URL.Path)
			return
		}
		if strings.Contains(err.Error(), "context deadline exceeded") || strings.Contains(err.Error(), "Client.Timeout") || strings.Contains(err.Error(), "timeout") {
			api.WriteGatewayTimeout(w, "Upstream fetch timed out: "+err.Error(), r.URL.Path)
			return
		}
		api.WriteInternalServerError(w, err, r.URL.Path)
		return
	}

	events, err := runSession(TrackRequest{
		HTML:     string(body),
		Snapshot: models.PageSnapshot{PageType: models.PageOther},
	})
	if err != nil {
		api.WriteUnprocessable(w, "Fetched page could not be processed: "+err.Error(), r.URL.Path)
		return
	}

	api.WriteJSON(w, TrackResponse{PageType: models.PageOther, Events: events}, r.URL.Path)
}

// runSession replays one rendered page through the engine and returns the
// queue it produced.
func runSession(req TrackRequest) ([]models.EventEnvelope, error) {
	doc, err := dom.ParseString(req.HTML)
	if err != nil {
		return nil, err
	}

	cfg := models.DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
	}

	tr := track.New(doc, req.Snapshot, cfg, profile, req.SingleProduct, appLog)
	defer tr.Close()
	tr.Init()

	ctx := tr.Context()
	switch req.Snapshot.PageType {
	case models.PageProduct:
		funnel.ViewItem(ctx, req.SingleProduct)
	case models.PageCart:
		funnel.ViewCart(ctx, req.Cart)
	case models.PageCheckout:
		funnel.BeginCheckout(ctx, req.Cart)
		funnel.NewPaymentTracker(ctx, req.Cart).Settle()
		funnel.NewShippingTracker(ctx, req.Cart).Settle()
	case models.PagePurchase:
		var store funnel.MarkerStore
		if markerStore != nil {
			store = markerStore
		}
		if err := funnel.NewPurchaseTracker(ctx, store).Track(req.Order); err != nil {
			appLog.Warn().Err(err).Msg("purchase not emitted")
		}
	}

	return tr.Queue().Events(), nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func outboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		addrs, _ := net.InterfaceAddrs()
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					return ipnet.IP
				}
			}
		}
		return nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP
}
