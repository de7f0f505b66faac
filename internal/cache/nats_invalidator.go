package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/annel0/hexvoxel/internal/logging"
)

// InvalidatorConfig содержит конфигурацию NATS invalidator.
type InvalidatorConfig struct {
	NATSURL string
	Subject string

	MaxReconnects int
	ReconnectWait time.Duration

	// Повтор одного и того же сообщения (узел + seq) в окне не обрабатывается
	DedupeWindow time.Duration
}

// InvalidationMessage - сообщение об устаревшей геометрии суши.
// Seq растёт на каждую публикацию узла, поэтому различные события
// одной суши никогда не склеиваются.
type InvalidationMessage struct {
	Invalidation
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"node_id"`
	Seq       uint64    `json:"seq"`
}

// NATSInvalidator рассылает инвалидации геометрии между узлами через NATS Pub/Sub.
// Публикуется каждое событие; на приёме игнорируются свои сообщения
// и повторная доставка того же сообщения.
type NATSInvalidator struct {
	conn    *nats.Conn
	config  *InvalidatorConfig
	subject string
	nodeID  string

	subMu        sync.Mutex
	subscription *nats.Subscription
	handler      InvalidationHandler

	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	dedupe    map[string]time.Time
	dedupeMu  sync.Mutex
	seq       uint64
	published int64
	received  int64
	errors    int64
}

func (c *InvalidatorConfig) withDefaults() *InvalidatorConfig {
	out := *c
	if out.Subject == "" {
		out.Subject = "hexvoxel.mesh.invalidate"
	}
	if out.MaxReconnects == 0 {
		out.MaxReconnects = 10
	}
	if out.ReconnectWait == 0 {
		out.ReconnectWait = 2 * time.Second
	}
	if out.DedupeWindow == 0 {
		out.DedupeWindow = time.Second
	}
	return &out
}

// NewNATSInvalidator подключается к NATS. nodeID отличает сообщения этого узла.
func NewNATSInvalidator(config *InvalidatorConfig, nodeID string) (*NATSInvalidator, error) {
	cfg := config.withDefaults()

	opts := []nats.Option{
		nats.Name("hexvoxel-" + nodeID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	n := newInvalidator(conn, cfg, nodeID)
	n.startDedupeCleanup()

	logging.Info("📡 NATS invalidator: %s (subject: %s, node: %s)", cfg.NATSURL, cfg.Subject, nodeID)
	return n, nil
}

func newInvalidator(conn *nats.Conn, cfg *InvalidatorConfig, nodeID string) *NATSInvalidator {
	return &NATSInvalidator{
		conn:    conn,
		config:  cfg,
		subject: cfg.Subject,
		nodeID:  nodeID,
		stopCh:  make(chan struct{}),
		dedupe:  make(map[string]time.Time),
	}
}

// PublishInvalidation рассылает инвалидацию суши
func (n *NATSInvalidator) PublishInvalidation(ctx context.Context, inv Invalidation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(n.message(inv))
	if err != nil {
		atomic.AddInt64(&n.errors, 1)
		return fmt.Errorf("failed to marshal invalidation message: %w", err)
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		atomic.AddInt64(&n.errors, 1)
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	atomic.AddInt64(&n.published, 1)
	return nil
}

// SubscribeInvalidations подписывается на инвалидации других узлов.
// Подписка снимается при отмене ctx или Close.
func (n *NATSInvalidator) SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error {
	n.subMu.Lock()
	defer n.subMu.Unlock()

	if n.subscription != nil {
		return fmt.Errorf("already subscribed to invalidations")
	}

	sub, err := n.conn.Subscribe(n.subject, n.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to invalidations: %w", err)
	}
	n.subscription = sub
	n.handler = handler

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		select {
		case <-ctx.Done():
		case <-n.stopCh:
		}
		n.unsubscribe()
	}()

	logging.Info("Subscribed to mesh invalidations on %s", n.subject)
	return nil
}

// Close закрывает соединение с NATS.
func (n *NATSInvalidator) Close() error {
	n.stopOnce.Do(func() { close(n.stopCh) })
	n.wg.Wait()

	if n.conn != nil {
		n.conn.Close()
	}
	logging.Info("NATS invalidator closed")
	return nil
}

// GetMetrics возвращает метрики invalidator.
func (n *NATSInvalidator) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"published_count": atomic.LoadInt64(&n.published),
		"received_count":  atomic.LoadInt64(&n.received),
		"errors_count":    atomic.LoadInt64(&n.errors),
		"connected":       n.conn != nil && n.conn.IsConnected(),
	}
}

func (n *NATSInvalidator) message(inv Invalidation) InvalidationMessage {
	return InvalidationMessage{
		Invalidation: inv,
		Timestamp:    time.Now(),
		NodeID:       n.nodeID,
		Seq:          atomic.AddUint64(&n.seq, 1),
	}
}

func (n *NATSInvalidator) handleMessage(msg *nats.Msg) {
	atomic.AddInt64(&n.received, 1)

	var m InvalidationMessage
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		atomic.AddInt64(&n.errors, 1)
		logging.Error("Failed to unmarshal invalidation message: %v", err)
		return
	}
	if m.NodeID == n.nodeID {
		return
	}
	if !n.remember(fmt.Sprintf("%s/%d", m.NodeID, m.Seq)) {
		logging.Debug("Skipping redelivered invalidation %s/%d", m.NodeID, m.Seq)
		return
	}

	n.subMu.Lock()
	handler := n.handler
	n.subMu.Unlock()
	if handler == nil {
		return
	}
	if err := handler(m.Invalidation); err != nil {
		atomic.AddInt64(&n.errors, 1)
		logging.Error("Invalidation handler failed for %s: %v", m.LandmassID, err)
	}
}

func (n *NATSInvalidator) unsubscribe() {
	n.subMu.Lock()
	defer n.subMu.Unlock()

	if n.subscription == nil {
		return
	}
	if err := n.subscription.Unsubscribe(); err != nil {
		logging.Error("Failed to unsubscribe from invalidations: %v", err)
	}
	n.subscription = nil
}

// remember отмечает ключ и возвращает false, если он уже был в окне дедупликации
func (n *NATSInvalidator) remember(key string) bool {
	n.dedupeMu.Lock()
	defer n.dedupeMu.Unlock()

	now := time.Now()
	if last, ok := n.dedupe[key]; ok && now.Sub(last) < n.config.DedupeWindow {
		return false
	}
	n.dedupe[key] = now
	return true
}

func (n *NATSInvalidator) startDedupeCleanup() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ticker := time.NewTicker(n.config.DedupeWindow * 10)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				n.cleanupDedupe()
			case <-n.stopCh:
				return
			}
		}
	}()
}

func (n *NATSInvalidator) cleanupDedupe() {
	n.dedupeMu.Lock()
	defer n.dedupeMu.Unlock()

	now := time.Now()
	for id, ts := range n.dedupe {
		if now.Sub(ts) > n.config.DedupeWindow {
			delete(n.dedupe, id)
		}
	}
}
