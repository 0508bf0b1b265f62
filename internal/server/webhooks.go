package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"cutroom/internal/config"
	"cutroom/internal/digest"
	"cutroom/internal/domain"
	"cutroom/internal/repo"
)

const (
	defaultWebhookInterval = 2 * time.Second
	defaultWebhookTimeout  = 5 * time.Second
	defaultWebhookBatch    = 100
)

// Dispatcher posts new activity entries to the configured webhooks and
// publishes ad-hoc payloads such as the overdue digest.
type Dispatcher struct {
	Repo     repo.Repo
	Webhooks []config.Webhook
	Interval time.Duration
	Log      *zap.Logger

	client  *http.Client
	mu      sync.Mutex
	cursors map[int]int64
}

func NewDispatcher(r repo.Repo, hooks []config.Webhook, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		Repo:     r,
		Webhooks: hooks,
		Interval: defaultWebhookInterval,
		Log:      log,
		client:   &http.Client{Timeout: defaultWebhookTimeout},
		cursors:  make(map[int]int64),
	}
}

// Run tails the activity log until ctx is cancelled. Each webhook starts at
// the newest entry present when it is first polled.
func (d *Dispatcher) Run(ctx context.Context) error {
	if len(d.Webhooks) == 0 {
		return nil
	}
	interval := d.Interval
	if interval <= 0 {
		interval = defaultWebhookInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		d.DispatchAll(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (d *Dispatcher) DispatchAll(ctx context.Context) {
	for i, hook := range d.Webhooks {
		if !hook.Enabled || strings.TrimSpace(hook.URL) == "" {
			continue
		}
		d.dispatchWebhook(ctx, i, hook)
	}
}

func (d *Dispatcher) dispatchWebhook(ctx context.Context, idx int, hook config.Webhook) {
	cursor, ok := d.cursorFor(ctx, idx)
	if !ok {
		return
	}
	entries, err := d.Repo.ActivityAfter(ctx, cursor, defaultWebhookBatch, nil)
	if err != nil {
		d.Log.Warn("webhook: fetch activity failed", zap.Error(err))
		return
	}
	for _, entry := range entries {
		if !hook.Wants(entry.Action) {
			d.setCursor(idx, entry.ID)
			continue
		}
		if err := d.post(ctx, hook, entry.Action, fmt.Sprintf("activity-%d", entry.ID), activityPayload(entry)); err != nil {
			d.Log.Warn("webhook: delivery failed", zap.String("url", hook.URL), zap.Int64("activity_id", entry.ID), zap.Error(err))
			return
		}
		d.setCursor(idx, entry.ID)
	}
}

func (d *Dispatcher) cursorFor(ctx context.Context, idx int) (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cursors == nil {
		d.cursors = make(map[int]int64)
	}
	if cur, ok := d.cursors[idx]; ok {
		return cur, true
	}
	cur, err := d.Repo.LatestActivityID(ctx)
	if err != nil {
		d.Log.Warn("webhook: init cursor failed", zap.Error(err))
		return 0, false
	}
	d.cursors[idx] = cur
	return cur, true
}

func (d *Dispatcher) setCursor(idx int, value int64) {
	d.mu.Lock()
	d.cursors[idx] = value
	d.mu.Unlock()
}

// Publish sends payload to every enabled webhook subscribed to action.
func (d *Dispatcher) Publish(ctx context.Context, action string, payload any) error {
	var firstErr error
	delivery := fmt.Sprintf("%s-%d", strings.ToLower(action), time.Now().UnixNano())
	for _, hook := range d.Webhooks {
		if !hook.Enabled || !hook.Wants(action) {
			continue
		}
		if err := d.post(ctx, hook, action, delivery, payload); err != nil {
			d.Log.Warn("webhook: publish failed", zap.String("url", hook.URL), zap.String("action", action), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

type webhookActivity struct {
	ID        int64          `json:"id"`
	Action    string         `json:"action"`
	ProjectID string         `json:"project_id"`
	ActorID   *string        `json:"actor_id,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt string         `json:"created_at"`
}

func activityPayload(e domain.ActivityEntry) webhookActivity {
	return webhookActivity{
		ID:        e.ID,
		Action:    e.Action,
		ProjectID: e.ProjectID,
		ActorID:   e.ActorID,
		Meta:      e.Meta,
		CreatedAt: e.CreatedAt,
	}
}

func (d *Dispatcher) post(ctx context.Context, hook config.Webhook, action, delivery string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	client := d.client
	if client == nil {
		client = &http.Client{Timeout: defaultWebhookTimeout}
	}
	if hook.TimeoutSeconds > 0 {
		if timeout := time.Duration(hook.TimeoutSeconds) * time.Second; timeout != client.Timeout {
			client = &http.Client{Timeout: timeout}
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Cutroom-Event", action)
	req.Header.Set("X-Cutroom-Delivery", delivery)
	if strings.TrimSpace(hook.Secret) != "" {
		req.Header.Set("X-Cutroom-Signature", "sha256="+Sign(hook.Secret, data))
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	return nil
}

// Sign is the hex HMAC-SHA256 of body under secret, sent as X-Cutroom-Signature.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

var _ digest.Publisher = (*Dispatcher)(nil)
