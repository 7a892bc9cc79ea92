package shortpost

import (
	"sync"
	"time"

	"github.com/eringen/shortpost/composer"
)

// signals collects the notices and navigation emitted for one response.
type signals struct {
	mu       sync.Mutex
	notices  []composer.Notice
	navigate composer.Tab
}

// Notify queues n for the response.
func (s *signals) Notify(n composer.Notice) {
	s.mu.Lock()
	s.notices = append(s.notices, n)
	s.mu.Unlock()
}

// Navigate queues a tab switch for the response.
func (s *signals) Navigate(tab composer.Tab) {
	s.mu.Lock()
	s.navigate = tab
	s.mu.Unlock()
}

// take returns and clears the queued signals.
func (s *signals) take() ([]composer.Notice, composer.Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	notices, tab := s.notices, s.navigate
	s.notices, s.navigate = nil, ""
	return notices, tab
}

// draft is one browser session's form plus the host signals its input
// handlers emitted that have not been delivered with a response yet. Submit
// reports to a collector of its own request instead.
type draft struct {
	signals

	id   string
	form *composer.Form

	mu       sync.Mutex
	lastSeen time.Time
}

func (d *draft) touch(now time.Time) {
	d.mu.Lock()
	d.lastSeen = now
	d.mu.Unlock()
}

func (d *draft) idleSince(now time.Time) time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return now.Sub(d.lastSeen)
}

// DraftRegistry holds the in-memory drafts keyed by session draft id.
// Drafts idle for longer than the TTL are evicted and their previews released.
type DraftRegistry struct {
	mu      sync.Mutex
	drafts  map[string]*draft
	ttl     time.Duration
	newForm func(d *draft) *composer.Form
	metrics *Metrics
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewDraftRegistry creates a registry. newForm mounts the form of a new draft;
// the draft is its Notifier and Navigator.
func NewDraftRegistry(ttl time.Duration, m *Metrics, newForm func(d *draft) *composer.Form) *DraftRegistry {
	return &DraftRegistry{
		drafts:  make(map[string]*draft),
		ttl:     ttl,
		newForm: newForm,
		metrics: m,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// Get returns the draft for id, mounting a fresh form if there is none.
func (r *DraftRegistry) Get(id string) *draft {
	now := r.now()
	r.mu.Lock()
	d, ok := r.drafts[id]
	if !ok {
		d = &draft{id: id}
		d.form = r.newForm(d)
		r.drafts[id] = d
	}
	r.mu.Unlock()
	if !ok {
		r.setGauge()
	}
	d.touch(now)
	return d
}

// Lookup returns the draft for id without creating one.
func (r *DraftRegistry) Lookup(id string) (*draft, bool) {
	r.mu.Lock()
	d, ok := r.drafts[id]
	r.mu.Unlock()
	if ok {
		d.touch(r.now())
	}
	return d, ok
}

// Len returns the number of drafts held.
func (r *DraftRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drafts)
}

// Sweep evicts drafts idle for longer than the TTL. Drafts with a submission
// in flight are kept until it finishes. It returns the number evicted.
func (r *DraftRegistry) Sweep() int {
	now := r.now()
	var evicted []*draft
	r.mu.Lock()
	for id, d := range r.drafts {
		if d.idleSince(now) < r.ttl || d.form.State().Submitting {
			continue
		}
		delete(r.drafts, id)
		evicted = append(evicted, d)
	}
	r.mu.Unlock()
	for _, d := range evicted {
		d.form.Discard()
	}
	if len(evicted) > 0 {
		r.setGauge()
	}
	return len(evicted)
}

// StartSweeper runs Sweep every interval until Close.
func (r *DraftRegistry) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}

// Close stops the sweeper and discards every draft.
func (r *DraftRegistry) Close() {
	r.once.Do(func() { close(r.stop) })
	r.mu.Lock()
	drafts := r.drafts
	r.drafts = make(map[string]*draft)
	r.mu.Unlock()
	for _, d := range drafts {
		d.form.Discard()
	}
	r.setGauge()
}

func (r *DraftRegistry) setGauge() {
	if r.metrics != nil {
		r.metrics.ActiveDrafts.Set(float64(r.Len()))
	}
}
