// Package reports exports report projections as downloadable artifacts
// (CSV, JSON, PNG charts) through an asynchronous worker.
package reports

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vendcore/internal/core"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportArtifact captures a stored report artifact.
type ExportArtifact struct {
	ID          string         `json:"id"`
	Format      Format         `json:"format"`
	ContentType string         `json:"content_type"`
	SizeBytes   int64          `json:"size_bytes"`
	URL         string         `json:"url"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ExportRecord tracks an export request and resulting artifacts.
type ExportRecord struct {
	ID          string           `json:"id"`
	Kind        Kind             `json:"kind"`
	Threshold   int              `json:"threshold,omitempty"`
	Formats     []Format         `json:"formats"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by"`
	Reason      string           `json:"reason,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	Kind        Kind
	Threshold   int // low-stock reports only; <0 selects the default
	Formats     []Format
	RequestedBy string
	Reason      string
}

// ExportScheduler queues report export requests and exposes status.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
}

// ObjectStore persists export artifacts.
type ObjectStore interface {
	// Put stores a new immutable object. Implementations SHOULD fail if key exists.
	Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]any) (ExportArtifact, error)
	// Get returns the artifact metadata and full payload bytes.
	Get(ctx context.Context, key string) (ExportArtifact, []byte, error)
	// Delete removes the object; returns true if it existed. Idempotent.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns artifacts whose IDs start with the provided prefix. Empty prefix lists all.
	List(ctx context.Context, prefix string) ([]ExportArtifact, error)
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for exports.
type AuditEntry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor"`
	Kind       Kind           `json:"kind"`
	Status     ExportStatus   `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Worker executes report exports asynchronously. Records live in memory for
// the lifetime of the process; artifacts go to the ObjectStore.
type Worker struct {
	reports *core.ReportService
	store   ObjectStore
	audit   AuditLogger

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

type renderedArtifact struct {
	Artifact ExportArtifact
	Payload  []byte
}

// NewWorker constructs an export worker over the given report projections.
func NewWorker(reports *core.ReportService, store ObjectStore, audit AuditLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		reports: reports,
		store:   store,
		audit:   audit,
		ctx:     ctx,
		cancel:  cancel,
	}
	w.queue = make(chan exportTask, 32)
	w.jobs = make(map[string]*ExportRecord)
	return w
}

// Start begins processing export requests. Calling it again adds another
// concurrent consumer of the same queue.
func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				return
			case task := <-w.queue:
				w.process(task)
			}
		}
	}()
}

// Stop signals all consumers to halt and waits for in-flight jobs, bounded
// by ctx.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	drained := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnqueueExport validates the request, registers a queued record and hands it
// to the worker loop. The returned record is a detached snapshot.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if w.reports == nil {
		return ExportRecord{}, fmt.Errorf("report projections not configured")
	}
	kind := input.Kind
	if strings.TrimSpace(string(kind)) == "" {
		return ExportRecord{}, fmt.Errorf("report kind required")
	}
	if !kind.valid() {
		return ExportRecord{}, fmt.Errorf("unknown report kind %s", kind)
	}

	formats, err := normalizeFormats(kind, input.Formats)
	if err != nil {
		return ExportRecord{}, err
	}

	now := time.Now().UTC()
	record := ExportRecord{
		ID:          newID(),
		Kind:        kind,
		Threshold:   input.Threshold,
		Formats:     formats,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[record.ID] = &record
	queued := record.snapshot()
	w.mu.Unlock()

	w.logAudit(ctx, AuditEntry{
		Actor:      input.RequestedBy,
		Kind:       kind,
		Status:     ExportStatusQueued,
		Reason:     input.Reason,
		OccurredAt: now,
	})

	select {
	case w.queue <- exportTask{id: record.ID, input: input}:
	default:
		return ExportRecord{}, fmt.Errorf("export queue full")
	}

	return queued, nil
}

// GetExport returns a detached snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.snapshot(), true
}

func (w *Worker) process(task exportTask) {
	record, ok := w.GetExport(task.id)
	if !ok {
		return
	}

	w.transition(task.id, ExportStatusRunning, "", nil)

	table, err := w.renderTable(w.ctx, task.input)
	if err != nil {
		w.transition(task.id, ExportStatusFailed, fmt.Sprintf("report run failed: %v", err), nil)
		return
	}

	artifacts := make([]ExportArtifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		rendered, err := materialize(format, record.Kind, table)
		if err != nil {
			w.transition(task.id, ExportStatusFailed, err.Error(), nil)
			return
		}
		artifact, err := w.persist(rendered)
		if err != nil {
			w.transition(task.id, ExportStatusFailed, fmt.Sprintf("store artifact failed: %v", err), nil)
			return
		}
		artifacts = append(artifacts, artifact)
	}

	w.transition(task.id, ExportStatusSucceeded, "", artifacts)
}

// persist writes the rendered payload to the object store. The store's view
// of the artifact wins, backfilled from the rendered one where the store
// reports nothing.
func (w *Worker) persist(rendered renderedArtifact) (ExportArtifact, error) {
	if w.store == nil {
		return rendered.Artifact, nil
	}
	stored, err := w.store.Put(w.ctx, rendered.Artifact.ID, rendered.Payload, rendered.Artifact.ContentType, rendered.Artifact.Metadata)
	if err != nil {
		return ExportArtifact{}, err
	}
	stored.Format = rendered.Artifact.Format
	if stored.ContentType == "" {
		stored.ContentType = rendered.Artifact.ContentType
	}
	if stored.SizeBytes == 0 {
		stored.SizeBytes = rendered.Artifact.SizeBytes
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = rendered.Artifact.CreatedAt
	}
	stored.Metadata = mergeMetadata(rendered.Artifact.Metadata, stored.Metadata)
	return stored, nil
}

// transition moves a job to status and emits one audit entry. A terminal
// status stamps CompletedAt; a succeeded transition also attaches artifacts.
func (w *Worker) transition(id string, status ExportStatus, errMsg string, artifacts []ExportArtifact) {
	now := time.Now().UTC()
	var actor string
	var kind Kind

	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = errMsg
		record.UpdatedAt = now
		switch status {
		case ExportStatusSucceeded:
			record.Artifacts = artifacts
			record.CompletedAt = &now
		case ExportStatusFailed:
			record.CompletedAt = &now
		}
		actor, kind = record.RequestedBy, record.Kind
	}
	w.mu.Unlock()

	entry := AuditEntry{Actor: actor, Kind: kind, Status: status, OccurredAt: now}
	if errMsg != "" {
		entry.Metadata = map[string]any{"error": errMsg}
	}
	w.logAudit(w.ctx, entry)
}

func (w *Worker) logAudit(ctx context.Context, entry AuditEntry) {
	if w.audit == nil {
		return
	}
	entry.ID = newID()
	entry.Action = "report_export"
	w.audit.Record(ctx, entry)
}

func normalizeFormats(kind Kind, formats []Format) ([]Format, error) {
	if len(formats) == 0 {
		formats = []Format{FormatJSON, FormatCSV}
	}
	out := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{})
	for _, format := range formats {
		if _, dup := seen[format]; dup {
			continue
		}
		if !kind.supportsFormat(format) {
			return nil, fmt.Errorf("format %s not supported by report %s", format, kind)
		}
		seen[format] = struct{}{}
		out = append(out, format)
	}
	return out, nil
}

func mergeMetadata(base, extra map[string]any) map[string]any {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (r ExportRecord) snapshot() ExportRecord {
	dup := r
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]ExportArtifact(nil), r.Artifacts...)
	}
	return dup
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
