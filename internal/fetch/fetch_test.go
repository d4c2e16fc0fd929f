package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rescale/ncbi-refdl/internal/catalog"
	"github.com/rescale/ncbi-refdl/internal/config"
	inthttp "github.com/rescale/ncbi-refdl/internal/http"
	"github.com/rescale/ncbi-refdl/internal/logging"
)

const fixturePath = "../../testdata/catalogs/bacteria_assembly_summary.txt"

// fakeSource serves fixed content and counts Open calls.
type fakeSource struct {
	content string
	size    int64 // reported size; 0 means len(content)
	err     error
	opens   int
}

func (f *fakeSource) Open(ctx context.Context, taxon catalog.Taxon) (io.ReadCloser, int64, error) {
	f.opens++
	if f.err != nil {
		return nil, 0, f.err
	}
	size := f.size
	if size == 0 {
		size = int64(len(f.content))
	}
	return io.NopCloser(strings.NewReader(f.content)), size, nil
}

func (f *fakeSource) Describe(taxon catalog.Taxon) string {
	return "fake://" + string(taxon)
}

func readFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(fixturePath)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, _ := filepath.Glob(filepath.Join(dir, ".assembly_summary-*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestEnsureCatalogFetchesWhenMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	src := &fakeSource{content: readFixture(t)}

	res, err := EnsureCatalog(context.Background(), src, catalog.Bacteria, Options{CacheDir: dir}, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("EnsureCatalog() error = %v", err)
	}
	if !res.Fetched || src.opens != 1 {
		t.Errorf("Fetched = %v, opens = %d; want fetched once", res.Fetched, src.opens)
	}
	if res.Path != filepath.Join(dir, "bacteria_assembly_summary.txt") {
		t.Errorf("Path = %q", res.Path)
	}

	rows, err := catalog.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("cached catalog unreadable: %v", err)
	}
	if len(rows) != 5 {
		t.Errorf("got %d rows, want 5", len(rows))
	}
	assertNoTempFiles(t, dir)
}

func TestEnsureCatalogUsesCache(t *testing.T) {
	dir := t.TempDir()
	cached := CachePath(dir, catalog.Viral)
	if err := os.WriteFile(cached, []byte("cached"), 0644); err != nil {
		t.Fatal(err)
	}

	src := &fakeSource{content: "fresh"}
	res, err := EnsureCatalog(context.Background(), src, catalog.Viral, Options{CacheDir: dir}, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("EnsureCatalog() error = %v", err)
	}
	if res.Fetched || src.opens != 0 {
		t.Errorf("source must not be opened when the cache exists (opens = %d)", src.opens)
	}

	// --refresh replaces the cached copy
	res, err = EnsureCatalog(context.Background(), src, catalog.Viral, Options{CacheDir: dir, Refresh: true}, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("EnsureCatalog(refresh) error = %v", err)
	}
	data, _ := os.ReadFile(cached)
	if !res.Fetched || string(data) != "fresh" {
		t.Errorf("refresh did not replace cache: fetched=%v content=%q", res.Fetched, data)
	}
}

func TestEnsureCatalogFailuresLeaveNoCache(t *testing.T) {
	tests := []struct {
		name  string
		src   *fakeSource
		check func(error) bool
	}{
		{
			name:  "source error",
			src:   &fakeSource{err: errors.New("unexpected status 404 Not Found")},
			check: func(err error) bool { return strings.Contains(err.Error(), "404") },
		},
		{
			name:  "truncated body",
			src:   &fakeSource{content: "short", size: 1000},
			check: IsCacheError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := EnsureCatalog(context.Background(), tt.src, catalog.Fungi, Options{CacheDir: dir}, logging.NewNopLogger())
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, statErr := os.Stat(CachePath(dir, catalog.Fungi)); !errors.Is(statErr, os.ErrNotExist) {
				t.Error("failed fetch must not leave a cache file")
			}
			assertNoTempFiles(t, dir)
		})
	}
}

func TestEnsureCatalogCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	_, err := EnsureCatalog(ctx, &fakeSource{content: "data"}, catalog.Archaea, Options{CacheDir: dir}, logging.NewNopLogger())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	assertNoTempFiles(t, dir)
}

func TestEnsureCatalogCacheIsDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(CachePath(dir, catalog.Protozoa), 0755); err != nil {
		t.Fatal(err)
	}
	_, err := EnsureCatalog(context.Background(), &fakeSource{}, catalog.Protozoa, Options{CacheDir: dir}, logging.NewNopLogger())
	if !IsCacheError(err) {
		t.Fatalf("error = %v, want CacheError", err)
	}
}

func TestHTTPSource(t *testing.T) {
	content := readFixture(t)
	var gotPath, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		if r.URL.Path != "/genomes/genbank/bacteria/assembly_summary.txt" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, content)
	}))
	defer srv.Close()

	client := inthttp.WrapRetryable(srv.Client(), 0, logging.NewNopLogger())
	src := NewHTTPSource(srv.URL+"/genomes/genbank/", client)

	dir := t.TempDir()
	res, err := EnsureCatalog(context.Background(), src, catalog.Bacteria, Options{CacheDir: dir}, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("EnsureCatalog() error = %v", err)
	}
	if gotPath != "/genomes/genbank/bacteria/assembly_summary.txt" {
		t.Errorf("requested %q", gotPath)
	}
	if !strings.HasPrefix(gotAgent, "ncbi-refdl/") {
		t.Errorf("User-Agent = %q", gotAgent)
	}
	if res.Bytes != int64(len(content)) {
		t.Errorf("Bytes = %d, want %d", res.Bytes, len(content))
	}

	_, _, err = src.Open(context.Background(), catalog.Viral)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("missing catalog error = %v, want 404", err)
	}
}

func TestNewSource(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AZURE_STORAGE_SAS", "")
	t.Setenv("AZURE_STORAGE_KEY", "")

	tests := []struct {
		base     string
		wantType string
		describe string
		wantErr  bool
	}{
		{"", "*fetch.HTTPSource", "https://ftp.ncbi.nlm.nih.gov/genomes/genbank/viral/assembly_summary.txt", false},
		{"http://mirror.example.org/genbank/", "*fetch.HTTPSource", "http://mirror.example.org/genbank/viral/assembly_summary.txt", false},
		{"s3://refs-bucket/ncbi/genbank", "*fetch.S3Source", "s3://refs-bucket/ncbi/genbank/viral/assembly_summary.txt", false},
		{"s3://refs-bucket", "*fetch.S3Source", "s3://refs-bucket/viral/assembly_summary.txt", false},
		{"azblob://refsacct/catalogs/genbank", "*fetch.AzureSource", "azblob://refsacct/catalogs/genbank/viral/assembly_summary.txt", false},
		{"https://refsacct.blob.core.windows.net/catalogs", "*fetch.AzureSource", "azblob://refsacct/catalogs/viral/assembly_summary.txt", false},
		{"azblob://refsacct", "", "", true},
		{"s3:///nobucket", "", "", true},
		{"ftp://ftp.ncbi.nlm.nih.gov/genomes/genbank", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			cfg := config.Default()
			cfg.CatalogBaseURL = tt.base

			src, err := NewSource(context.Background(), cfg, logging.NewNopLogger())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewSource() error = %v", err)
			}
			if got := typeName(src); got != tt.wantType {
				t.Errorf("type = %s, want %s", got, tt.wantType)
			}
			if got := src.Describe(catalog.Viral); got != tt.describe {
				t.Errorf("Describe() = %q, want %q", got, tt.describe)
			}
		})
	}
}

func typeName(src Source) string {
	switch src.(type) {
	case *HTTPSource:
		return "*fetch.HTTPSource"
	case *S3Source:
		return "*fetch.S3Source"
	case *AzureSource:
		return "*fetch.AzureSource"
	default:
		return "unknown"
	}
}

func TestS3SourceAgainstCompatibleEndpoint(t *testing.T) {
	content := "# meta\n# organism_name\tinfraspecific_name\tisolate\tassembly_level\tftp_path\texcluded_from_refseq\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mirror/genbank/bacteria/assembly_summary.txt" {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		io.WriteString(w, content)
	}))
	defer srv.Close()

	t.Setenv("NCBI_REFDL_S3_ACCESS_KEY_ID", "test")
	t.Setenv("NCBI_REFDL_S3_SECRET_ACCESS_KEY", "test")

	src, err := NewS3Source(context.Background(), S3Options{
		Bucket:     "mirror",
		Prefix:     "genbank",
		Region:     "us-east-1",
		Endpoint:   srv.URL,
		MaxRetries: 1,
	}, srv.Client(), logging.NewNopLogger())
	if err != nil {
		t.Fatalf("NewS3Source() error = %v", err)
	}

	body, size, err := src.Open(context.Background(), catalog.Bacteria)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != content || size != int64(len(content)) {
		t.Errorf("body = %q, size = %d", data, size)
	}

	if _, _, err := src.Open(context.Background(), catalog.Fungi); err == nil {
		t.Error("expected NoSuchKey error for missing catalog")
	}
}
