package services

import (
	"context"
	"sync"

	"rag-worker/cmd/defines"
	"rag-worker/internal/models"
	apperrors "rag-worker/pkg/errors"
	"rag-worker/pkg/memorydb"
)

type statusWrite struct {
	ID      string
	Status  defines.JobStatus
	Message *string
}

type fakeDocumentStore struct {
	mu        sync.Mutex
	docs      map[string]*models.Document
	writes    []statusWrite
	createErr error
	updateErr error
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: make(map[string]*models.Document)}
}

func (f *fakeDocumentStore) Create(_ context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeDocumentStore) GetByID(_ context.Context, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeDocumentStore) UpdateStatus(_ context.Context, id string, status defines.JobStatus, errorMessage *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, statusWrite{ID: id, Status: status, Message: errorMessage})
	if f.updateErr != nil {
		return f.updateErr
	}
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
		doc.ErrorMessage = errorMessage
	}
	return nil
}

func (f *fakeDocumentStore) statuses(id string) []defines.JobStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []defines.JobStatus
	for _, w := range f.writes {
		if w.ID == id {
			out = append(out, w.Status)
		}
	}
	return out
}

func (f *fakeDocumentStore) lastWrite() statusWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[len(f.writes)-1]
}

type fakeScraper struct {
	mu      sync.Mutex
	text    string
	err     error
	panics  bool
	entered chan struct{}
	release chan struct{}
	urls    []string
}

func (f *fakeScraper) Scrape(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.panics {
		panic("scraper exploded")
	}
	return f.text, f.err
}

type fakeEmbedder struct {
	mu     sync.Mutex
	texts  []string
	tasks  []defines.EmbeddingTask
	err    error
	failAt int // 1-based call number that fails, 0 = never
}

func (f *fakeEmbedder) Embed(_ context.Context, text string, task defines.EmbeddingTask) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	f.tasks = append(f.tasks, task)
	if f.err != nil && (f.failAt == 0 || f.failAt == len(f.texts)) {
		return nil, f.err
	}
	return []float32{float32(len(text)), float32(len(f.texts))}, nil
}

type fakeVectorStore struct {
	mu        sync.Mutex
	upserts   [][]models.VectorRecord
	upsertErr error
	queries   []models.VectorQuery
	matches   []models.Match
	queryErr  error
}

func (f *fakeVectorStore) Upsert(_ context.Context, records []models.VectorRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, records)
	return f.upsertErr
}

func (f *fakeVectorStore) Query(_ context.Context, q models.VectorQuery) ([]models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.matches, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type popResult struct {
	payload []byte
	err     error
}

type fakeQueue struct {
	mu      sync.Mutex
	results []popResult
	pingErr error
	pushErr error
	pushed  map[string][][]byte
	brpops  int
	rpops   int
	drained func()
}

func newFakeQueue(results ...popResult) *fakeQueue {
	return &fakeQueue{results: results, pushed: make(map[string][][]byte)}
}

func (q *fakeQueue) Ping(context.Context) error { return q.pingErr }

func (q *fakeQueue) LPush(_ context.Context, queue string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pushErr != nil {
		return q.pushErr
	}
	q.pushed[queue] = append(q.pushed[queue], payload)
	return nil
}

func (q *fakeQueue) BRPop(context.Context, string) ([]byte, error) {
	q.mu.Lock()
	q.brpops++
	q.mu.Unlock()
	return q.next()
}

func (q *fakeQueue) RPop(context.Context, string) ([]byte, error) {
	q.mu.Lock()
	q.rpops++
	q.mu.Unlock()
	return q.next()
}

func (q *fakeQueue) next() ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.results) == 0 {
		if q.drained != nil {
			q.drained()
		}
		return nil, memorydb.ErrQueueEmpty
	}
	r := q.results[0]
	q.results = q.results[1:]
	return r.payload, r.err
}

type recordingHandler struct {
	mu   sync.Mutex
	jobs []models.JobDescriptor
}

func (h *recordingHandler) HandleJob(_ context.Context, job models.JobDescriptor) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobs = append(h.jobs, job)
	return nil
}

func (h *recordingHandler) received() []models.JobDescriptor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.JobDescriptor(nil), h.jobs...)
}

type fakeUserStore struct {
	mu     sync.Mutex
	users  map[string]*models.User
	getErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.Email]; ok {
		return apperrors.ErrConflict
	}
	cp := *user
	f.users[user.Email] = &cp
	return nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	user, ok := f.users[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *user
	return &cp, nil
}
