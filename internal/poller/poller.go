// internal/poller/poller.go
package poller

import (
	"context"
	"time"

	"jobtrack/internal/bus"
	"jobtrack/internal/common/logger"
	"jobtrack/internal/common/metrics"
	"jobtrack/internal/models"
	"jobtrack/internal/reconciler"
	"jobtrack/internal/store"
	"jobtrack/internal/tracker"
)

// NotificationBus pulls pending notifications; an empty subscription
// returns immediately with no items.
type NotificationBus interface {
	Pull(ctx context.Context) ([]bus.Item, error)
}

// Mailbox is the remote message service surface the poller drives.
type Mailbox interface {
	Fetch(ctx context.Context, id string) (models.RawMessage, error)
	History(ctx context.Context, startHistoryID uint64) ([]string, error)
	Latest(ctx context.Context) (string, error)
}

// Classifier is the two-call gateway to the classification service.
type Classifier interface {
	ClassifyRelatedness(ctx context.Context, sender, content string) (string, bool, error)
	ClassifyStatus(ctx context.Context, content string) (models.Status, error)
}

// Broadcaster pushes a user's updated application list to live clients.
type Broadcaster interface {
	BroadcastApplications(user string, records []models.ApplicationRecord)
}

// Poller drives the whole pipeline: pull notifications, resolve them to
// candidate message IDs, gate through the seen tracker, then fetch,
// classify, reconcile, persist and broadcast each survivor. One cycle
// runs to completion before the next tick is considered.
type Poller struct {
	bus         NotificationBus
	mailbox     Mailbox
	classifier  Classifier
	tracker     tracker.Tracker
	apps        *store.Apps
	broadcaster Broadcaster
	defaultUser string
	interval    time.Duration
	logger      logger.Logger
}

func New(
	b NotificationBus,
	m Mailbox,
	c Classifier,
	t tracker.Tracker,
	apps *store.Apps,
	br Broadcaster,
	defaultUser string,
	interval time.Duration,
	log logger.Logger,
) *Poller {
	return &Poller{
		bus:         b,
		mailbox:     m,
		classifier:  c,
		tracker:     t,
		apps:        apps,
		broadcaster: br,
		defaultUser: defaultUser,
		interval:    interval,
		logger:      log.WithFields(map[string]interface{}{"component": "poller"}),
	}
}

// Run loops until the context is cancelled. Fetch and classification are
// blocking network calls; a stalled cycle delays but never drops pending
// notifications, because delivery is at-least-once.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("poller started", map[string]interface{}{
		"interval": p.interval.String(),
	})

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped", nil)
			return
		case <-ticker.C:
			p.RunCycle(ctx)
		}
	}
}

// candidate is one message to push through the pipeline, with the user
// whose application list it reconciles into.
type candidate struct {
	id   string
	user string
}

// RunCycle performs one pull-resolve-dispatch cycle. Errors scoped to a
// single item are logged and skipped; the cycle always completes.
func (p *Poller) RunCycle(ctx context.Context) {
	for _, c := range p.resolve(ctx) {
		fresh, err := p.tracker.MarkSeen(ctx, c.id)
		if err != nil {
			p.logger.Error("dedup check failed", map[string]interface{}{
				"messageId": c.id, "error": err.Error(),
			})
			continue
		}
		if !fresh {
			metrics.MessagesProcessed.WithLabelValues("duplicate").Inc()
			p.logger.Debug("skipping duplicate message", map[string]interface{}{"messageId": c.id})
			continue
		}
		p.process(ctx, c)
	}
}

// resolve turns the pulled batch into candidate message IDs: either the
// union of the marker-derived history sets, or the singleton most-recent
// message when the batch is empty, carries no marker, or a history query
// comes back empty.
func (p *Poller) resolve(ctx context.Context) []candidate {
	items, err := p.bus.Pull(ctx)
	if err != nil {
		p.logger.Error("notification pull failed", map[string]interface{}{"error": err.Error()})
		return p.fallback(ctx)
	}

	var out []candidate
	sawMarker := false
	for _, item := range items {
		if len(item.Data) == 0 {
			continue
		}
		n, err := bus.Decode(item.Data)
		if err != nil {
			p.logger.Warn("skipping undecodable notification", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}
		if n.HistoryID == 0 {
			continue
		}
		sawMarker = true

		ids, err := p.mailbox.History(ctx, n.HistoryID)
		if err != nil {
			p.logger.Warn("history query failed, falling back to latest", map[string]interface{}{
				"historyId": n.HistoryID, "error": err.Error(),
			})
			out = append(out, p.fallback(ctx)...)
			continue
		}
		if len(ids) == 0 {
			// Marker already current; same manual path as an empty batch.
			out = append(out, p.fallback(ctx)...)
			continue
		}

		metrics.Resolutions.WithLabelValues("history").Inc()
		user := n.EmailAddress
		if user == "" {
			user = p.defaultUser
		}
		for _, id := range ids {
			out = append(out, candidate{id: id, user: user})
		}
	}

	if !sawMarker {
		return p.fallback(ctx)
	}
	return out
}

// fallback resolves to at most the single most recent inbox message.
func (p *Poller) fallback(ctx context.Context) []candidate {
	metrics.Resolutions.WithLabelValues("fallback").Inc()
	id, err := p.mailbox.Latest(ctx)
	if err != nil {
		p.logger.Error("latest message lookup failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	if id == "" {
		return nil
	}
	return []candidate{{id: id, user: p.defaultUser}}
}

// process runs fetch → classify → reconcile → broadcast for one message.
func (p *Poller) process(ctx context.Context, c candidate) {
	log := p.logger.WithFields(map[string]interface{}{"messageId": c.id, "user": c.user})

	raw, err := p.mailbox.Fetch(ctx, c.id)
	if err != nil {
		metrics.MessagesProcessed.WithLabelValues("error").Inc()
		log.Error("fetch failed", map[string]interface{}{"error": err.Error()})
		return
	}

	company, related, err := p.classifier.ClassifyRelatedness(ctx, raw.Sender, raw.Content())
	if err != nil {
		metrics.MessagesProcessed.WithLabelValues("error").Inc()
		log.Error("relatedness classification failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if !related {
		// Non-job mail never reaches the store or the live feed.
		metrics.MessagesProcessed.WithLabelValues("not_job_related").Inc()
		log.Debug("message not job related", nil)
		return
	}

	status, err := p.classifier.ClassifyStatus(ctx, raw.Content())
	if err != nil {
		metrics.MessagesProcessed.WithLabelValues("error").Inc()
		log.Error("status classification failed", map[string]interface{}{"error": err.Error()})
		return
	}

	result := models.ClassificationResult{JobRelated: true, Company: company, Status: status}
	records, err := p.apps.Update(ctx, c.user, func(rs []models.ApplicationRecord) []models.ApplicationRecord {
		return reconciler.Reconcile(rs, result, raw)
	})
	if err != nil {
		metrics.MessagesProcessed.WithLabelValues("error").Inc()
		log.Error("reconciliation persist failed", map[string]interface{}{"error": err.Error()})
		return
	}

	p.broadcaster.BroadcastApplications(c.user, records)
	metrics.MessagesProcessed.WithLabelValues("reconciled").Inc()
	log.Info("message reconciled", map[string]interface{}{
		"company": company, "status": string(status),
	})
}
