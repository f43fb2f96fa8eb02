package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/inkstream/inkstream-backend/internal/store"
)

// SSEHandler streams catalog events over server-sent events for clients that
// cannot hold a WebSocket.
type SSEHandler struct {
	cache          *store.Cache
	logger         *zap.SugaredLogger
	allowedOrigins []string
}

func NewSSEHandler(cache *store.Cache, logger *zap.SugaredLogger, allowedOrigins []string) *SSEHandler {
	return &SSEHandler{
		cache:          cache,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

func (h *SSEHandler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	origin := r.Header.Get("Origin")
	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			break
		}
	}
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	channels := h.channelsForTopics(parseTopics(r))
	h.logger.Debugw("SSE connection established", "channels", channels)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	pubsub := h.cache.Subscribe(ctx, channels...)
	if pubsub != nil {
		defer pubsub.Close()
		h.streamRedis(ctx, w, pubsub)
		return
	}

	if h.cache.IsInMemoryMode() {
		sub := h.cache.SubscribeInMemory(ctx, channels...)
		if sub != nil {
			defer sub.Close()
			h.streamLocal(ctx, w, sub)
			return
		}
	}

	h.logger.Warnw("No PubSub available; SSE updates disabled for this connection")
	h.sendEvent(w, "connected", "stream established (no pubsub)", nil)
}

func parseTopics(r *http.Request) []string {
	topicsParam := r.URL.Query().Get("topics")
	if topicsParam == "" {
		return nil
	}
	return strings.Split(topicsParam, ",")
}

func (h *SSEHandler) channelsForTopics(topics []string) []string {
	if len(topics) == 0 {
		return []string{store.ChannelRevision}
	}

	channels := make([]string, 0, len(topics))
	for _, topic := range topics {
		switch topic {
		case "revision", "catalog":
			channels = append(channels, store.ChannelRevision)
		}
	}
	if len(channels) == 0 {
		channels = []string{store.ChannelRevision}
	}
	return channels
}

func channelToEventType(channel string) string {
	switch channel {
	case store.ChannelRevision:
		return "revision"
	default:
		return "update"
	}
}

func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType, id string, data interface{}) {
	payload := []byte("{}")
	if data != nil {
		marshaled, err := json.Marshal(data)
		if err != nil {
			h.logger.Errorw("Failed to marshal SSE data", "error", err)
			return
		}
		payload = marshaled
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "id: %s\n", id)
	fmt.Fprintf(w, "data: %s\n\n", payload)

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (h *SSEHandler) streamRedis(ctx context.Context, w http.ResponseWriter, pubsub *redis.PubSub) {
	h.sendEvent(w, "connected", "stream established", nil)

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debugw("SSE client disconnected")
			return

		case <-heartbeat.C:
			h.sendEvent(w, "heartbeat", "ping", map[string]interface{}{
				"timestamp": time.Now().Unix(),
			})

		case msg := <-ch:
			if msg == nil {
				continue
			}
			h.deliver(w, msg.Channel, msg.Payload)
		}
	}
}

func (h *SSEHandler) streamLocal(ctx context.Context, w http.ResponseWriter, sub *store.Subscription) {
	h.sendEvent(w, "connected", "stream established (in-memory)", nil)

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			h.logger.Debugw("SSE client disconnected")
			return

		case <-heartbeat.C:
			h.sendEvent(w, "heartbeat", "ping", map[string]interface{}{
				"timestamp": time.Now().Unix(),
			})

		case msg := <-ch:
			if msg == nil {
				continue
			}
			h.deliver(w, msg.Channel, msg.Payload)
		}
	}
}

func (h *SSEHandler) deliver(w http.ResponseWriter, channel, payload string) {
	var data interface{}
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		h.logger.Warnw("Failed to parse message payload", "error", err)
		return
	}
	h.sendEvent(w, channelToEventType(channel), channel, data)
}
