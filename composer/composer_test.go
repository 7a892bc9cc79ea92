package composer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/eringen/shortpost/views"
)

// memPreviews is an in-memory PreviewStore that records every release.
type memPreviews struct {
	mu       sync.Mutex
	next     int
	files    map[string][]byte
	released map[string]int
	failWith error
}

func newMemPreviews() *memPreviews {
	return &memPreviews{files: map[string][]byte{}, released: map[string]int{}}
}

func (m *memPreviews) Create(f *File) (Handle, error) {
	if m.failWith != nil {
		return Handle{}, m.failWith
	}
	var data []byte
	if f.Open != nil {
		rc, err := f.Open()
		if err != nil {
			return Handle{}, err
		}
		data, _ = io.ReadAll(rc)
		rc.Close()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := fmt.Sprintf("p%d", m.next)
	m.files[id] = data
	return Handle{ID: id, URL: "/preview/" + id + "/"}, nil
}

func (m *memPreviews) Open(h Handle) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[h.ID]
	if !ok {
		return nil, fmt.Errorf("preview %s released", h.ID)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memPreviews) Release(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released[h.ID]++
	delete(m.files, h.ID)
	return nil
}

func (m *memPreviews) releases(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released[id]
}

func (m *memPreviews) totalReleases() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.released {
		n += c
	}
	return n
}

// host records notices, navigation and renders.
type host struct {
	mu       sync.Mutex
	notices  []Notice
	tabs     []Tab
	renders  []State
	progress []int
}

func (h *host) Notify(n Notice) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notices = append(h.notices, n)
}

func (h *host) Navigate(tab Tab) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tabs = append(h.tabs, tab)
}

func (h *host) Rendered(s State, _ *views.Node) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.renders = append(h.renders, s)
	if s.Progress > 0 {
		h.progress = append(h.progress, s.Progress)
	}
}

func (h *host) renderCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.renders)
}

// stubPublisher captures calls and fails on demand.
type stubPublisher struct {
	mu         sync.Mutex
	uploaded   []string
	requests   []CreatePostRequest
	uploadErr  error
	createErr  error
	panicWith  any
	onUpload   func(ctx context.Context)
	uploadData []byte
}

func (p *stubPublisher) UploadVideo(ctx context.Context, file *File, userID string) (UploadResult, error) {
	if p.onUpload != nil {
		p.onUpload(ctx)
	}
	if p.panicWith != nil {
		panic(p.panicWith)
	}
	if p.uploadErr != nil {
		return UploadResult{}, p.uploadErr
	}
	rc, err := file.Open()
	if err != nil {
		return UploadResult{}, err
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploadData = data
	p.uploaded = append(p.uploaded, userID+"/"+file.Name)
	return UploadResult{URL: "https://media.example/" + userID + "/" + file.Name}, nil
}

func (p *stubPublisher) CreateVideoPost(ctx context.Context, req CreatePostRequest) (Post, error) {
	if p.createErr != nil {
		return Post{}, p.createErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return Post{ID: "post-1", UserID: req.UserID, VideoURL: req.VideoURL, Description: req.Description, Hashtags: req.Hashtags}, nil
}

func videoFile(name string) *File {
	return bytesFile(name, "video/mp4", []byte("video-bytes:"+name))
}

func bytesFile(name, mediaType string, data []byte) *File {
	return &File{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(data)),
		Open:      func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

func newTestForm(pub Publisher) (*Form, *memPreviews, *host) {
	previews := newMemPreviews()
	h := &host{}
	f := New(pub, previews,
		WithNotifier(h),
		WithNavigator(h),
		WithRenderer(h),
		WithUserID("test-user-1"),
		WithID("draft-1"),
	)
	return f, previews, h
}
