package alert

import (
	"bytes"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hazz-dev/hodorprobe/internal/jsonutil"
	"github.com/hazz-dev/hodorprobe/internal/probe"
)

// Alerter sends webhook notifications when a probed path changes state.
type Alerter struct {
	webhookURL string
	cooldown   time.Duration
	client     *http.Client
	lastAlert  map[string]time.Time
	mu         sync.Mutex
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// New creates a new Alerter. Pass nil logger to use the default logger.
func New(webhookURL string, cooldown time.Duration, logger *slog.Logger) *Alerter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Alerter{
		webhookURL: webhookURL,
		cooldown:   cooldown,
		client:     &http.Client{Timeout: 10 * time.Second},
		lastAlert:  make(map[string]time.Time),
		logger:     logger,
	}
}

type webhookPayload struct {
	Path           string `json:"path"`
	URL            string `json:"url"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status"`
	StatusCode     int    `json:"status_code"`
	Error          string `json:"error"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	CheckedAt      string `json:"checked_at"`
	Source         string `json:"source"`
}

// Notify sends a webhook if the path's state has changed and the cooldown has elapsed.
func (a *Alerter) Notify(result probe.Result, previousStatus *probe.Status) {
	// No previous status means first result for this path.
	if previousStatus == nil {
		return
	}
	if result.Status == *previousStatus {
		return
	}

	a.mu.Lock()
	last, exists := a.lastAlert[result.Path]
	if exists && time.Since(last) < a.cooldown {
		a.mu.Unlock()
		a.logger.Info("alert suppressed by cooldown", "path", result.Path)
		return
	}
	a.lastAlert[result.Path] = time.Now()
	a.mu.Unlock()

	// Send asynchronously so Notify doesn't block the scheduler.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.send(result, string(*previousStatus))
	}()
}

// Wait blocks until all in-flight webhooks have been sent.
func (a *Alerter) Wait() {
	a.wg.Wait()
}

func (a *Alerter) send(result probe.Result, prevStatus string) {
	payload := webhookPayload{
		Path:           result.Path,
		URL:            result.URL,
		Status:         string(result.Status),
		PreviousStatus: prevStatus,
		StatusCode:     result.StatusCode,
		Error:          result.Error,
		ResponseTimeMs: result.ResponseTime.Milliseconds(),
		CheckedAt:      result.CheckedAt.UTC().Format(time.RFC3339),
		Source:         "hodorprobe",
	}

	body, err := jsonutil.Marshal(payload)
	if err != nil {
		a.logger.Error("marshaling webhook payload", "path", result.Path, "error", err)
		return
	}

	resp, err := a.client.Post(a.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		a.logger.Error("sending webhook", "path", result.Path, "url", a.webhookURL, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		a.logger.Warn("webhook returned non-2xx status",
			"path", result.Path,
			"status", resp.StatusCode,
		)
	}
}
