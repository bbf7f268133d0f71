package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pipeconsole/internal/config"
	"pipeconsole/internal/domain"
	"pipeconsole/internal/repo"
)

const (
	defaultWebhookInterval = 2 * time.Second
	defaultWebhookTimeout  = 5 * time.Second
	defaultRetryWindow     = 10 * time.Second
	defaultWebhookBatch    = 100
	maxParallelDeliveries  = 4
)

// WebhookDispatcher posts the activity of one project to the configured
// webhooks. Each webhook keeps its own cursor; activity recorded before
// the first dispatch is not delivered.
type WebhookDispatcher struct {
	Interval    time.Duration
	RetryWindow time.Duration

	repo     repo.Repo
	project  string
	webhooks []config.WebhookConfig
	client   *http.Client
	log      *zap.Logger
	mu       sync.Mutex
	cursors  map[int]int64
}

// NewWebhookDispatcher returns nil when cfg declares no usable webhook.
func NewWebhookDispatcher(r repo.Repo, cfg *config.Config, log *zap.Logger) *WebhookDispatcher {
	if cfg == nil || strings.TrimSpace(cfg.Project.ID) == "" {
		return nil
	}
	var hooks []config.WebhookConfig
	for _, hook := range cfg.Webhooks {
		if hook.Enabled != nil && !*hook.Enabled {
			continue
		}
		if strings.TrimSpace(hook.URL) == "" {
			continue
		}
		hooks = append(hooks, hook)
	}
	if len(hooks) == 0 {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookDispatcher{
		Interval:    defaultWebhookInterval,
		RetryWindow: defaultRetryWindow,
		repo:        r,
		project:     cfg.Project.ID,
		webhooks:    hooks,
		client:      &http.Client{Timeout: defaultWebhookTimeout},
		log:         log.Named("webhooks"),
		cursors:     make(map[int]int64),
	}
}

// Run dispatches on every tick until ctx ends.
func (d *WebhookDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()
	for {
		d.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DispatchOnce delivers the pending activity of every webhook.
func (d *WebhookDispatcher) DispatchOnce(ctx context.Context) {
	var g errgroup.Group
	g.SetLimit(maxParallelDeliveries)
	for i, hook := range d.webhooks {
		g.Go(func() error {
			d.dispatchWebhook(ctx, i, hook)
			return nil
		})
	}
	g.Wait()
}

func (d *WebhookDispatcher) dispatchWebhook(ctx context.Context, idx int, hook config.WebhookConfig) {
	cursor, err := d.cursorFor(ctx, idx)
	if err != nil {
		d.log.Warn("init webhook cursor failed", zap.String("url", hook.URL), zap.Error(err))
		return
	}
	activities, err := d.repo.ActivitiesAfter(ctx, d.project, cursor, defaultWebhookBatch)
	if err != nil {
		d.log.Warn("fetch activity failed", zap.Error(err))
		return
	}
	filter := newActivityFilter(hook.Events)
	for _, a := range activities {
		if filter.match(a.Type) {
			if err := d.deliver(ctx, hook, a); err != nil {
				d.log.Warn("webhook delivery failed",
					zap.String("url", hook.URL),
					zap.Int64("seq", a.Seq),
					zap.Error(err))
				return
			}
		}
		d.setCursor(idx, a.Seq)
	}
}

func (d *WebhookDispatcher) cursorFor(ctx context.Context, idx int) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.cursors[idx]; ok {
		return cur, nil
	}
	cur, err := d.repo.LatestActivitySeq(ctx, d.project)
	if err != nil {
		return 0, err
	}
	d.cursors[idx] = cur
	return cur, nil
}

func (d *WebhookDispatcher) setCursor(idx int, seq int64) {
	d.mu.Lock()
	d.cursors[idx] = seq
	d.mu.Unlock()
}

type webhookActivity struct {
	Seq        int64           `json:"seq"`
	Type       string          `json:"type"`
	ProjectID  string          `json:"project_id"`
	EntityKind string          `json:"entity_kind"`
	EntityID   string          `json:"entity_id,omitempty"`
	Actor      string          `json:"actor"`
	TS         string          `json:"ts"`
	Payload    json.RawMessage `json:"payload"`
}

// deliver posts a, retrying with exponential backoff within RetryWindow.
func (d *WebhookDispatcher) deliver(ctx context.Context, hook config.WebhookConfig, a domain.Activity) error {
	payload := json.RawMessage("{}")
	if a.Payload != "" && json.Valid([]byte(a.Payload)) {
		payload = json.RawMessage(a.Payload)
	}
	data, err := json.Marshal(webhookActivity{
		Seq:        a.Seq,
		Type:       a.Type,
		ProjectID:  a.ProjectID,
		EntityKind: a.EntityKind,
		EntityID:   a.EntityID,
		Actor:      a.Actor,
		TS:         a.TS,
		Payload:    payload,
	})
	if err != nil {
		return err
	}
	client := d.client
	if hook.TimeoutSeconds > 0 {
		client = &http.Client{Timeout: time.Duration(hook.TimeoutSeconds) * time.Second}
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = d.RetryWindow
	return backoff.RetryNotify(func() error {
		return d.post(ctx, client, hook, a, data)
	}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		d.log.Debug("retrying webhook delivery",
			zap.String("url", hook.URL),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
}

func (d *WebhookDispatcher) post(ctx context.Context, client *http.Client, hook config.WebhookConfig, a domain.Activity, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pipeconsole-Event", a.Type)
	req.Header.Set("X-Pipeconsole-Delivery", fmt.Sprintf("%d", a.Seq))
	req.Header.Set("X-Pipeconsole-Project", d.project)
	if strings.TrimSpace(hook.Secret) != "" {
		req.Header.Set("X-Pipeconsole-Secret", hook.Secret)
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

type activityFilter struct {
	all bool
	set map[string]struct{}
}

// newActivityFilter matches every type when types is empty. A type ending
// in ".*" matches its whole family, e.g. "piped.*".
func newActivityFilter(types []string) activityFilter {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		if key := strings.TrimSpace(t); key != "" {
			set[key] = struct{}{}
		}
	}
	if len(set) == 0 {
		return activityFilter{all: true}
	}
	return activityFilter{set: set}
}

func (f activityFilter) match(typ string) bool {
	if f.all {
		return true
	}
	if _, ok := f.set[typ]; ok {
		return true
	}
	if family, _, ok := strings.Cut(typ, "."); ok {
		_, ok = f.set[family+".*"]
		return ok
	}
	return false
}
