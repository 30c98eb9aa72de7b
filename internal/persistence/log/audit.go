package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"hullcraft.io/internal/sim/build"
)

const auditHourLayout = "2006-01-02-15"

// AuditLogger writes builder audit entries as JSON lines into zstd files
// under <dir>/audit, one file per UTC hour. Reopening an existing hour file
// appends a new zstd frame.
type AuditLogger struct {
	dir string
	now func() time.Time

	mu  sync.Mutex
	seg *auditSegment
}

// auditSegment is the open file for one hour.
type auditSegment struct {
	hour string
	f    *os.File
	zw   *zstd.Encoder
	bw   *bufio.Writer
	enc  *json.Encoder
}

func NewAuditLogger(dataDir string) *AuditLogger {
	return &AuditLogger{dir: filepath.Join(dataDir, "audit"), now: time.Now}
}

// WriteAudit makes the logger a build.AuditSink. Each entry is flushed
// through to the zstd encoder before returning.
func (l *AuditLogger) WriteAudit(e build.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	hour := l.now().UTC().Format(auditHourLayout)
	if l.seg == nil || l.seg.hour != hour {
		if err := l.closeSegment(); err != nil {
			return err
		}
		seg, err := openAuditSegment(l.dir, hour)
		if err != nil {
			return err
		}
		l.seg = seg
	}
	if err := l.seg.enc.Encode(e); err != nil {
		return fmt.Errorf("audit %s: %w", e.Op, err)
	}
	return l.seg.bw.Flush()
}

func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeSegment()
}

// Files lists the hour files written under this logger's directory.
func (l *AuditLogger) Files() ([]string, error) {
	return listAuditFiles(l.dir)
}

func (l *AuditLogger) closeSegment() error {
	if l.seg == nil {
		return nil
	}
	seg := l.seg
	l.seg = nil
	_ = seg.bw.Flush()
	err := seg.zw.Close()
	if cerr := seg.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func auditPath(dir, hour string) string {
	return filepath.Join(dir, "audit-"+hour+".jsonl.zst")
}

func openAuditSegment(dir, hour string) (*auditSegment, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(auditPath(dir, hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	bw := bufio.NewWriterSize(zw, 32*1024)
	return &auditSegment{hour: hour, f: f, zw: zw, bw: bw, enc: json.NewEncoder(bw)}, nil
}

// ReadAuditFile decodes every entry of one hour file, across all of its
// zstd frames.
func ReadAuditFile(path string) ([]build.AuditEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []build.AuditEntry
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for line := 1; sc.Scan(); line++ {
		var e build.AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// AuditFiles lists the audit files under dataDir, oldest first.
func AuditFiles(dataDir string) ([]string, error) {
	return listAuditFiles(filepath.Join(dataDir, "audit"))
}

func listAuditFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "audit-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
