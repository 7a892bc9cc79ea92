package shortpost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/eringen/shortpost/composer"
	"github.com/eringen/shortpost/views"
)

// ProgressHub fans draft events out to the progress streams subscribed to
// the draft's topic. A single Run goroutine owns the topic table.
type ProgressHub struct {
	topics map[string]map[chan []byte]bool

	subscribe   chan subscription
	unsubscribe chan subscription
	publish     chan topicMessage
	done        chan struct{}
	once        sync.Once
	metrics     *Metrics
}

type subscription struct {
	ch    chan []byte
	topic string
}

type topicMessage struct {
	topic string
	msg   []byte
}

// progressEvent is the payload of one "progress" event. While a submission
// runs it also carries the rendered composer so the page can show the bar.
type progressEvent struct {
	Submitting bool   `json:"submitting"`
	Progress   int    `json:"progress"`
	CanSubmit  bool   `json:"canSubmit"`
	HTML       string `json:"html,omitempty"`
}

// NewProgressHub creates a hub. Call Run in its own goroutine.
func NewProgressHub(m *Metrics) *ProgressHub {
	return &ProgressHub{
		topics:      make(map[string]map[chan []byte]bool),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		publish:     make(chan topicMessage, 100),
		done:        make(chan struct{}),
		metrics:     m,
	}
}

// Run processes subscriptions and publishes until ctx is done or Stop is called.
func (h *ProgressHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.Stop()
			return
		case <-h.done:
			return
		case s := <-h.subscribe:
			subs, ok := h.topics[s.topic]
			if !ok {
				subs = make(map[chan []byte]bool)
				h.topics[s.topic] = subs
			}
			subs[s.ch] = true
			if h.metrics != nil {
				h.metrics.ProgressSubscribers.Inc()
			}
		case s := <-h.unsubscribe:
			if subs, ok := h.topics[s.topic]; ok && subs[s.ch] {
				delete(subs, s.ch)
				if len(subs) == 0 {
					delete(h.topics, s.topic)
				}
				if h.metrics != nil {
					h.metrics.ProgressSubscribers.Dec()
				}
			}
		case tm := <-h.publish:
			for ch := range h.topics[tm.topic] {
				select {
				case ch <- tm.msg:
				default:
					// slow reader; the next event carries the full state
				}
			}
		}
	}
}

// Stop ends Run. Later calls are no-ops.
func (h *ProgressHub) Stop() {
	h.once.Do(func() { close(h.done) })
}

// Publish queues msg for every subscriber of topic.
func (h *ProgressHub) Publish(topic string, msg []byte) {
	select {
	case h.publish <- topicMessage{topic: topic, msg: msg}:
	case <-h.done:
	}
}

// PublishState publishes the progress fields of s, and view while submitting,
// on the draft's topic.
func (h *ProgressHub) PublishState(draftID string, s composer.State, view *views.Node) {
	msg, err := json.Marshal(stateEvent(s, view))
	if err != nil {
		return
	}
	h.Publish(draftID, msg)
}

// Subscribe registers ch for topic. The caller owns ch.
func (h *ProgressHub) Subscribe(ch chan []byte, topic string) {
	select {
	case h.subscribe <- subscription{ch: ch, topic: topic}:
	case <-h.done:
	}
}

// Unsubscribe removes ch from topic.
func (h *ProgressHub) Unsubscribe(ch chan []byte, topic string) {
	select {
	case h.unsubscribe <- subscription{ch: ch, topic: topic}:
	case <-h.done:
	}
}

// handleProgress streams the current draft's progress as server-sent events.
func (a *App) handleProgress(c echo.Context) error {
	d, err := a.currentDraft(c)
	if err != nil {
		return err
	}
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	msgCh := make(chan []byte, 16)
	a.Progress.Subscribe(msgCh, d.id)
	defer a.Progress.Unsubscribe(msgCh, d.id)

	// The first event carries the current state so a stream opened mid-submit
	// starts from the right percentage.
	initial, _ := json.Marshal(stateEvent(d.form.State(), d.form.View()))
	fmt.Fprintf(w, ": connected\n\nevent: progress\ndata: %s\n\n", initial)
	w.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.Progress.done:
			return nil
		case msg := <-msgCh:
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", msg)
			w.Flush()
		}
	}
}

func stateEvent(s composer.State, view *views.Node) progressEvent {
	ev := progressEvent{Submitting: s.Submitting, Progress: s.Progress, CanSubmit: s.CanSubmit()}
	if s.Submitting && view != nil {
		ev.HTML = views.HTML(view)
	}
	return ev
}
