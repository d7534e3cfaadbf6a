package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"freeproxy_pool/internal/shared/logger"
	"freeproxy_pool/proxypool/model"
)

const (
	delimiter = "|"
	numFields = 7 // Endpoint|Scheme|Host|Port|LatencyMs|SessionID|ExportedAt
)

// Exporter 定义了工作集快照的导出行为。快照只写不读，代理池不会从中恢复。
type Exporter interface {
	Export(sessionID string, members []model.ValidationOutcome) error
}

// FileExporter 实现了 Exporter 接口，使用纯文本文件，每行一个代理。
type FileExporter struct {
	filePath string
	mu       sync.Mutex
	now      func() time.Time
}

// NewFileExporter 创建一个新的 FileExporter 实例。
func NewFileExporter(filePath string) *FileExporter {
	return &FileExporter{
		filePath: filePath,
		now:      time.Now,
	}
}

// Export 将工作集快照写入文件，按 endpoint 排序，覆盖旧文件。
func (fs *FileExporter) Export(sessionID string, members []model.ValidationOutcome) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	l := logger.WithComponent("ProxyPool/Storage")

	list := make([]model.ValidationOutcome, len(members))
	copy(list, members)
	sort.Slice(list, func(i, j int) bool {
		return list[i].Endpoint.String() < list[j].Endpoint.String()
	})

	exportedAt := fs.now().UTC()
	var sb strings.Builder
	for _, m := range list {
		sb.WriteString(formatEntry(m, sessionID, exportedAt))
		sb.WriteString("\n")
	}

	if dir := filepath.Dir(fs.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	if err := os.WriteFile(fs.filePath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	l.Info().Int("count", len(list)).Str("path", fs.filePath).Str("session", sessionID).Msg("Successfully exported working set.")
	return nil
}

// formatEntry 将一个工作集成员格式化为一行文本。
func formatEntry(m model.ValidationOutcome, sessionID string, exportedAt time.Time) string {
	e := m.Endpoint
	return strings.Join([]string{
		e.String(),
		e.Scheme,
		e.Host,
		strconv.Itoa(e.Port),
		strconv.FormatInt(m.Latency.Milliseconds(), 10),
		sessionID,
		strconv.FormatInt(exportedAt.Unix(), 10),
	}, delimiter)
}
