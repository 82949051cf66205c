package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewMockForTests returns a *Store whose SDK client talks to an in-memory
// fake transport instead of the network. Only the S3 calls the blob Store
// interface needs are implemented.
func NewMockForTests() *Store {
	transport := &fakeTransport{objects: make(map[string]fakeObject)}
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: transport}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
	})
	return &Store{client: client, bucket: "mock-bucket", presign: s3.NewPresignClient(client)}
}

type fakeTransport struct{ objects map[string]fakeObject }

type fakeObject struct {
	body        []byte
	contentType string
}

func (t *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Path-style addressing: /<bucket>/<key>.
	var key string
	if parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2); len(parts) == 2 {
		key = parts[1]
	}

	switch {
	case req.Method == http.MethodGet && strings.Contains(req.URL.RawQuery, "list-type=2"):
		return t.handleList(req.URL.Query().Get("prefix")), nil
	case req.Method == http.MethodHead:
		return t.handleStat(key, false), nil
	case req.Method == http.MethodGet:
		return t.handleStat(key, true), nil
	case req.Method == http.MethodPut:
		return t.handlePut(key, req), nil
	case req.Method == http.MethodDelete:
		delete(t.objects, key)
		return newResponse(http.StatusNoContent), nil
	}
	return newResponse(http.StatusNotImplemented), nil
}

// handleStat serves both HEAD and GET; withBody selects GET.
func (t *fakeTransport) handleStat(key string, withBody bool) *http.Response {
	obj, ok := t.objects[key]
	if !ok {
		return newResponse(http.StatusNotFound)
	}
	resp := newResponse(http.StatusOK)
	resp.Header.Set("Content-Length", strconv.Itoa(len(obj.body)))
	resp.Header.Set("Content-Type", obj.contentType)
	resp.Header.Set("ETag", `"etag"`)
	resp.Header.Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	if withBody {
		resp.Body = io.NopCloser(bytes.NewReader(obj.body))
	}
	return resp
}

func (t *fakeTransport) handlePut(key string, req *http.Request) *http.Response {
	body, _ := io.ReadAll(req.Body)
	if decoded, ok := unchunk(body); ok { // aws-chunked encoding
		body = decoded
	}
	if _, exists := t.objects[key]; !exists {
		t.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
	}
	resp := newResponse(http.StatusOK)
	resp.Header.Set("ETag", `"etag"`)
	return resp
}

func (t *fakeTransport) handleList(prefix string) *http.Response {
	keys := make([]string, 0, len(t.objects))
	for k := range t.objects {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var xml strings.Builder
	xml.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
	for _, k := range keys {
		fmt.Fprintf(&xml, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>", k, len(t.objects[k].body))
	}
	xml.WriteString("</ListBucketResult>")

	resp := newResponse(http.StatusOK)
	resp.Body = io.NopCloser(strings.NewReader(xml.String()))
	resp.Header.Set("Content-Type", "application/xml")
	return resp
}

func newResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}
}

// unchunk decodes a minimal single-chunk aws-chunked payload:
// <hex>\r\n<body>\r\n0\r\n...
func unchunk(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	size, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || int64(len(parts[1])) != size || parts[2] != "0" {
		return nil, false
	}
	return []byte(parts[1]), true
}
