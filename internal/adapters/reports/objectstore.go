package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"vendcore/internal/blob"
)

// BlobObjectStore adapts a blob.Store into the exporter's ObjectStore.
type BlobObjectStore struct {
	store  blob.Store
	prefix string
}

// NewBlobObjectStore wraps store; keys are namespaced under prefix when
// non-empty.
func NewBlobObjectStore(store blob.Store, prefix string) *BlobObjectStore {
	return &BlobObjectStore{store: store, prefix: prefix}
}

func (s *BlobObjectStore) keyFor(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

// Put stores a new immutable artifact.
func (s *BlobObjectStore) Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]any) (ExportArtifact, error) {
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = fmt.Sprint(v)
	}
	info, err := s.store.Put(ctx, s.keyFor(key), bytes.NewReader(payload), blob.PutOptions{ContentType: contentType, Metadata: md})
	if err != nil {
		return ExportArtifact{}, err
	}
	url := info.URL
	if url == "" {
		if signed, err := s.store.PresignURL(ctx, info.Key, blob.SignedURLOptions{Method: "GET"}); err == nil {
			url = signed
		}
	}
	return ExportArtifact{
		ID:          key,
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
		Metadata:    cloneMap(metadata),
		CreatedAt:   info.LastModified,
		URL:         url,
	}, nil
}

// Get returns artifact metadata and the full payload bytes.
func (s *BlobObjectStore) Get(ctx context.Context, key string) (ExportArtifact, []byte, error) {
	info, rc, err := s.store.Get(ctx, s.keyFor(key))
	if err != nil {
		return ExportArtifact{}, nil, err
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return ExportArtifact{}, nil, err
	}
	return s.artifactFromInfo(key, info), payload, nil
}

// Delete removes the artifact; idempotent.
func (s *BlobObjectStore) Delete(ctx context.Context, key string) (bool, error) {
	return s.store.Delete(ctx, s.keyFor(key))
}

// List returns artifacts whose IDs start with prefix.
func (s *BlobObjectStore) List(ctx context.Context, prefix string) ([]ExportArtifact, error) {
	infos, err := s.store.List(ctx, s.keyFor(prefix))
	if err != nil {
		return nil, err
	}
	out := make([]ExportArtifact, 0, len(infos))
	for _, info := range infos {
		id := info.Key
		if s.prefix != "" {
			id = strings.TrimPrefix(id, s.prefix+"/")
		}
		out = append(out, s.artifactFromInfo(id, info))
	}
	return out, nil
}

func (s *BlobObjectStore) artifactFromInfo(id string, info blob.Info) ExportArtifact {
	var md map[string]any
	if len(info.Metadata) > 0 {
		md = make(map[string]any, len(info.Metadata))
		for k, v := range info.Metadata {
			md[k] = v
		}
	}
	return ExportArtifact{
		ID:          id,
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
		Metadata:    md,
		CreatedAt:   info.LastModified,
		URL:         info.URL,
	}
}

// MemoryObjectStore keeps artifacts in a map, mainly for tests and for
// running the exporter without any blob backend configured.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

type memObject struct {
	artifact ExportArtifact
	payload  []byte
}

// detach returns copies that share no memory with the stored object.
func (o memObject) detach() (ExportArtifact, []byte) {
	artifact := o.artifact
	artifact.Metadata = cloneMap(artifact.Metadata)
	return artifact, append([]byte(nil), o.payload...)
}

// NewMemoryObjectStore constructs an empty in-memory object store.
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string]memObject)}
}

// Put stores the payload under key. Keys are create-once.
func (s *MemoryObjectStore) Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]any) (ExportArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return ExportArtifact{}, fmt.Errorf("object %s already exists", key)
	}
	artifact := ExportArtifact{
		ID:          key,
		ContentType: contentType,
		SizeBytes:   int64(len(payload)),
		Metadata:    cloneMap(metadata),
		CreatedAt:   time.Now().UTC(),
		URL:         "memory://exports/" + key,
	}
	s.objects[key] = memObject{artifact: artifact, payload: append([]byte(nil), payload...)}
	return artifact, nil
}

func (s *MemoryObjectStore) Get(ctx context.Context, key string) (ExportArtifact, []byte, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return ExportArtifact{}, nil, fmt.Errorf("object %s not found", key)
	}
	artifact, payload := obj.detach()
	return artifact, payload, nil
}

func (s *MemoryObjectStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, existed := s.objects[key]; !existed {
		return false, nil
	}
	delete(s.objects, key)
	return true, nil
}

func (s *MemoryObjectStore) List(ctx context.Context, prefix string) ([]ExportArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExportArtifact, 0, len(s.objects))
	for key, obj := range s.objects {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		artifact, _ := obj.detach()
		out = append(out, artifact)
	}
	return out, nil
}

// MemoryAuditLog accumulates audit entries for assertions in tests.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record appends one audit entry.
func (l *MemoryAuditLog) Record(ctx context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a detached copy of everything recorded so far.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AuditEntry(nil), l.entries...)
}
