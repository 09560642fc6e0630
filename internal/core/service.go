// Package core exposes the document service: a concurrency-safe facade over
// the drawing engine that persists snapshots after every mutation and
// reports operation outcomes to the configured observability sinks.
package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"drawcore/internal/blob"
	"drawcore/internal/engine"
	"drawcore/internal/protocol"
	"drawcore/pkg/document"
)

var (
	// ErrDocumentExists is returned when creating a document whose id is taken.
	ErrDocumentExists = errors.New("document already exists")
	// ErrNoBlobStore is returned by archive operations when no blob store is configured.
	ErrNoBlobStore = errors.New("no blob store configured")
)

// CommandError reports a command buffer that failed part-way. Commands before
// the failing index stay applied; the Result carries the failing code, the
// command index and how many commands ran.
type CommandError struct {
	Result protocol.Result
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %d failed: %s (%d applied)", e.Result.Index, e.Result.Code, e.Result.Processed)
}

// Result describes the document state after a service operation.
type Result struct {
	Document   string
	Generation uint32
	Digest     engine.Digest
	Events     []engine.Event
}

// Service manages named documents, each backed by an engine instance that is
// hydrated from the persistent store on first use. Every mutating operation
// persists the updated snapshot before returning.
type Service struct {
	mu      sync.Mutex
	store   PersistentStore
	blobs   blob.Store
	docs    map[string]*engine.Engine
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	logger  Logger
	now     func() time.Time
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		docs:    make(map[string]*engine.Engine),
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
		logger:  noopLogger{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying persistent store.
func (s *Service) Store() PersistentStore { return s.store }

// observe opens a span and returns the completion hook that records the
// metrics and audit entry for the operation.
func (s *Service) observe(ctx context.Context, op, docID string) func(generation uint32, err error) {
	started := s.now()
	_, span := s.tracer.Start(ctx, op)
	return func(generation uint32, err error) {
		span.End(err)
		ended := s.now()
		s.metrics.Observe(ctx, op, err == nil, ended.Sub(started))
		entry := AuditEntry{
			ID:         uuid.NewString(),
			Operation:  op,
			Document:   docID,
			Status:     AuditStatusSuccess,
			Generation: generation,
			StartedAt:  started,
			EndedAt:    ended,
		}
		if err != nil {
			entry.Status = AuditStatusError
			entry.Error = err.Error()
			s.logger.Printf("%s %s: %v", op, docID, err)
		}
		s.audit.Record(ctx, entry)
	}
}

// resident returns the engine for id, hydrating it from the store when the
// document is not yet in memory. Callers must hold s.mu.
func (s *Service) resident(ctx context.Context, id string) (*engine.Engine, error) {
	if id == "" {
		return nil, fmt.Errorf("document id required")
	}
	if eng, ok := s.docs[id]; ok {
		return eng, nil
	}
	rec, err := s.store.LoadDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	eng := engine.New()
	if err := eng.LoadSnapshot(rec.Snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot for %s: %w", id, err)
	}
	eng.PollEvents()
	s.docs[id] = eng
	return eng, nil
}

func (s *Service) persist(ctx context.Context, id string, eng *engine.Engine) error {
	rec := document.Record{ID: id, Generation: eng.Generation(), Snapshot: eng.SaveSnapshot()}
	if err := s.store.SaveDocument(ctx, rec); err != nil {
		return fmt.Errorf("persist %s: %w", id, err)
	}
	return nil
}

func buildResult(id string, eng *engine.Engine, events []engine.Event) Result {
	return Result{
		Document:   id,
		Generation: eng.Generation(),
		Digest:     eng.ComputeDigest(),
		Events:     events,
	}
}

// CreateDocument registers a new empty document and persists its initial
// snapshot.
func (s *Service) CreateDocument(ctx context.Context, id string) (res Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	finish := s.observe(ctx, "create_document", id)
	defer func() { finish(res.Generation, err) }()

	if id == "" {
		return Result{}, fmt.Errorf("document id required")
	}
	if _, ok := s.docs[id]; ok {
		return Result{}, ErrDocumentExists
	}
	if _, loadErr := s.store.LoadDocument(ctx, id); loadErr == nil {
		return Result{}, ErrDocumentExists
	} else if !errors.Is(loadErr, document.ErrNotFound) {
		return Result{}, loadErr
	}
	eng := engine.New()
	if err = s.persist(ctx, id, eng); err != nil {
		return Result{}, err
	}
	s.docs[id] = eng
	return buildResult(id, eng, nil), nil
}

// OpenDocument hydrates a document from the store and reports its state.
func (s *Service) OpenDocument(ctx context.Context, id string) (res Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	finish := s.observe(ctx, "open_document", id)
	defer func() { finish(res.Generation, err) }()

	eng, err := s.resident(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return buildResult(id, eng, nil), nil
}

// CloseDocument flushes a resident document and evicts it from memory.
// Closing a document that is not resident is a no-op.
func (s *Service) CloseDocument(ctx context.Context, id string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	finish := s.observe(ctx, "close_document", id)
	defer func() { finish(0, err) }()

	eng, ok := s.docs[id]
	if !ok {
		return nil
	}
	if eng.SnapshotDirty() {
		if err = s.persist(ctx, id, eng); err != nil {
			return err
		}
	}
	delete(s.docs, id)
	return nil
}

// DeleteDocument removes a document from memory and the store.
func (s *Service) DeleteDocument(ctx context.Context, id string) (deleted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	finish := s.observe(ctx, "delete_document", id)
	defer func() { finish(0, err) }()

	delete(s.docs, id)
	deleted, err = s.store.DeleteDocument(ctx, id)
	return deleted, err
}

// ListDocuments reports all persisted documents.
func (s *Service) ListDocuments(ctx context.Context) (infos []DocumentInfo, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	finish := s.observe(ctx, "list_documents", "")
	defer func() { finish(0, err) }()

	infos, err = s.store.ListDocuments(ctx)
	return infos, err
}

// ApplyCommands runs a command buffer against a document. On a command
// failure the prefix before the failing command stays applied and the
// returned error is a *CommandError; the snapshot is persisted either way
// when the document changed.
func (s *Service) ApplyCommands(ctx context.Context, id string, buf []byte) (cmdRes protocol.Result, res Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	finish := s.observe(ctx, "apply_commands", id)
	defer func() { finish(res.Generation, err) }()

	eng, err := s.resident(ctx, id)
	if err != nil {
		return protocol.Result{}, Result{}, err
	}
	cmdRes = eng.ApplyCommands(buf)
	events := eng.PollEvents()
	if eng.SnapshotDirty() {
		if err = s.persist(ctx, id, eng); err != nil {
			return cmdRes, Result{}, err
		}
	}
	res = buildResult(id, eng, events)
	if cmdRes.Code != protocol.Ok {
		err = &CommandError{Result: cmdRes}
	}
	return cmdRes, res, err
}

// Undo reverts the most recent history entry.
func (s *Service) Undo(ctx context.Context, id string) (ok bool, res Result, err error) {
	return s.mutate(ctx, "undo", id, func(eng *engine.Engine) bool { return eng.Undo() })
}

// Redo reapplies the next history entry.
func (s *Service) Redo(ctx context.Context, id string) (ok bool, res Result, err error) {
	return s.mutate(ctx, "redo", id, func(eng *engine.Engine) bool { return eng.Redo() })
}

// Select applies a selection change in the given mode.
func (s *Service) Select(ctx context.Context, id string, ids []uint32, mode engine.SelectionMode) (bool, Result, error) {
	return s.mutate(ctx, "select", id, func(eng *engine.Engine) bool { return eng.Select(ids, mode) })
}

// ClearSelection empties the selection set.
func (s *Service) ClearSelection(ctx context.Context, id string) (bool, Result, error) {
	return s.mutate(ctx, "clear_selection", id, func(eng *engine.Engine) bool { return eng.ClearSelection() })
}

// SelectAt picks the topmost entity at a point and applies it to the
// selection in the given mode.
func (s *Service) SelectAt(ctx context.Context, id string, x, y, tolerance float64, mode engine.SelectionMode) (hit uint32, res Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	finish := s.observe(ctx, "select_at", id)
	defer func() { finish(res.Generation, err) }()

	eng, err := s.resident(ctx, id)
	if err != nil {
		return 0, Result{}, err
	}
	hit = eng.SelectAt(x, y, tolerance, mode)
	res, err = s.settle(ctx, id, eng)
	return hit, res, err
}

// SelectArea applies a marquee selection and reports how many entities the
// marquee matched.
func (s *Service) SelectArea(ctx context.Context, id string, x0, y0, x1, y1 float64, marquee engine.MarqueeMode, mode engine.SelectionMode) (matched int, res Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	finish := s.observe(ctx, "select_area", id)
	defer func() { finish(res.Generation, err) }()

	eng, err := s.resident(ctx, id)
	if err != nil {
		return 0, Result{}, err
	}
	matched = eng.SelectArea(x0, y0, x1, y1, marquee, mode)
	res, err = s.settle(ctx, id, eng)
	return matched, res, err
}

// Reorder moves the given entities within the draw order.
func (s *Service) Reorder(ctx context.Context, id string, action engine.ReorderAction, ids []uint32) (bool, Result, error) {
	return s.mutate(ctx, "reorder", id, func(eng *engine.Engine) bool { return eng.Reorder(action, ids) })
}

// SetLayerProps writes masked layer properties (name, visible, locked).
func (s *Service) SetLayerProps(ctx context.Context, id string, layerID uint32, mask engine.LayerPropMask, flags uint32, name string) (bool, Result, error) {
	return s.mutate(ctx, "set_layer_props", id, func(eng *engine.Engine) bool {
		return eng.SetLayerProps(layerID, mask, flags, name)
	})
}

// DeleteLayer removes a layer; its entities fall back to the default layer.
func (s *Service) DeleteLayer(ctx context.Context, id string, layerID uint32) (bool, Result, error) {
	return s.mutate(ctx, "delete_layer", id, func(eng *engine.Engine) bool { return eng.DeleteLayer(layerID) })
}

// SetEntityFlags applies value under mask to one entity's flags word.
func (s *Service) SetEntityFlags(ctx context.Context, id string, entityID, mask, value uint32) (bool, Result, error) {
	return s.mutate(ctx, "set_entity_flags", id, func(eng *engine.Engine) bool {
		return eng.SetEntityFlags(entityID, mask, value)
	})
}

// mutate runs an engine mutation and persists the snapshot when it changed
// the document.
func (s *Service) mutate(ctx context.Context, op, id string, fn func(*engine.Engine) bool) (ok bool, res Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	finish := s.observe(ctx, op, id)
	defer func() { finish(res.Generation, err) }()

	eng, err := s.resident(ctx, id)
	if err != nil {
		return false, Result{}, err
	}
	ok = fn(eng)
	res, err = s.settle(ctx, id, eng)
	return ok, res, err
}

// settle drains events and persists a dirty snapshot after a mutation.
// Callers must hold s.mu.
func (s *Service) settle(ctx context.Context, id string, eng *engine.Engine) (Result, error) {
	events := eng.PollEvents()
	if eng.SnapshotDirty() {
		if err := s.persist(ctx, id, eng); err != nil {
			return Result{}, err
		}
	}
	return buildResult(id, eng, events), nil
}

// PickAt reports the topmost pickable entity at a point without changing
// document state.
func (s *Service) PickAt(ctx context.Context, id string, x, y, tolerance float64) (hit uint32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	finish := s.observe(ctx, "pick_at", id)
	defer func() { finish(0, err) }()

	eng, err := s.resident(ctx, id)
	if err != nil {
		return 0, err
	}
	return eng.PickAt(x, y, tolerance), nil
}

// Digest computes the canonical content digest of a document.
func (s *Service) Digest(ctx context.Context, id string) (engine.Digest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eng, err := s.resident(ctx, id)
	if err != nil {
		return engine.Digest{}, err
	}
	return eng.ComputeDigest(), nil
}

// Stats reports the entity census of a document.
func (s *Service) Stats(ctx context.Context, id string) (engine.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eng, err := s.resident(ctx, id)
	if err != nil {
		return engine.Stats{}, err
	}
	return eng.Stats(), nil
}

// History reports undo depth, cursor and generation for a document.
func (s *Service) History(ctx context.Context, id string) (engine.HistoryMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eng, err := s.resident(ctx, id)
	if err != nil {
		return engine.HistoryMeta{}, err
	}
	return eng.History(), nil
}

// Flush persists the current snapshot of a resident document even when it is
// not dirty.
func (s *Service) Flush(ctx context.Context, id string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	finish := s.observe(ctx, "flush", id)
	defer func() { finish(0, err) }()

	eng, err := s.resident(ctx, id)
	if err != nil {
		return err
	}
	return s.persist(ctx, id, eng)
}

// ArchiveSnapshot writes the current snapshot of a document to the blob
// store under an immutable key and returns the stored blob info.
func (s *Service) ArchiveSnapshot(ctx context.Context, id string) (info blob.Info, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	finish := s.observe(ctx, "archive_snapshot", id)
	defer func() { finish(0, err) }()

	if s.blobs == nil {
		return blob.Info{}, ErrNoBlobStore
	}
	eng, err := s.resident(ctx, id)
	if err != nil {
		return blob.Info{}, err
	}
	data := eng.SaveSnapshot()
	key := blob.ArchiveKey(id, uuid.NewString())
	info, err = s.blobs.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{
		ContentType: "application/octet-stream",
		Metadata: map[string]string{
			"document":   id,
			"generation": fmt.Sprintf("%d", eng.Generation()),
		},
	})
	return info, err
}

// ListArchives lists archived snapshots of a document, oldest key first.
func (s *Service) ListArchives(ctx context.Context, id string) (infos []blob.Info, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	finish := s.observe(ctx, "list_archives", id)
	defer func() { finish(0, err) }()

	if s.blobs == nil {
		return nil, ErrNoBlobStore
	}
	infos, err = s.blobs.List(ctx, blob.ArchivePrefix(id))
	return infos, err
}

// RestoreArchive replaces a document's content with an archived snapshot and
// persists the result.
func (s *Service) RestoreArchive(ctx context.Context, id, key string) (res Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	finish := s.observe(ctx, "restore_archive", id)
	defer func() { finish(res.Generation, err) }()

	if s.blobs == nil {
		return Result{}, ErrNoBlobStore
	}
	keyDoc, _, err := blob.ParseArchiveKey(key)
	if err != nil {
		return Result{}, err
	}
	if keyDoc != id {
		return Result{}, fmt.Errorf("archive %s does not belong to document %s", key, id)
	}
	eng, err := s.resident(ctx, id)
	if err != nil {
		return Result{}, err
	}
	_, rc, err := s.blobs.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return Result{}, err
	}
	if err = eng.LoadSnapshot(data); err != nil {
		return Result{}, fmt.Errorf("restore %s from %s: %w", id, key, err)
	}
	events := eng.PollEvents()
	if err = s.persist(ctx, id, eng); err != nil {
		return Result{}, err
	}
	return buildResult(id, eng, events), nil
}

// ArchiveURL returns a time-limited download URL for an archived snapshot.
func (s *Service) ArchiveURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blobs == nil {
		return "", ErrNoBlobStore
	}
	if _, _, err := blob.ParseArchiveKey(key); err != nil {
		return "", err
	}
	return s.blobs.PresignURL(ctx, key, blob.SignedURLOptions{Method: "GET", Expiry: expiry})
}
