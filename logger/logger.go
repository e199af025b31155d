// Package logger provides a file-based logger with size-bounded rotation
// and zip archival, used for structured request/SQL logging.
package logger

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Logger writes timestamped lines to a rotating, auto-compressing log file.
type Logger struct {
	file            *os.File
	mu              sync.Mutex
	logDir          string
	filename        string
	maxSizeMB       int64
	maxArchiveCount int
}

// New creates a Logger with default rotation settings (100MB per file,
// 10 archives retained).
func New() *Logger {
	return &Logger{
		maxSizeMB:       100,
		maxArchiveCount: 10,
	}
}

// SetMaxSizeMB sets the maximum log file size in MB before rotation.
func (l *Logger) SetMaxSizeMB(sizeMB int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if sizeMB > 0 {
		l.maxSizeMB = int64(sizeMB)
	}
}

// SetMaxArchiveCount sets how many archived zip files are retained.
func (l *Logger) SetMaxArchiveCount(count int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if count > 0 {
		l.maxArchiveCount = count
	}
}

// Init opens (creating if necessary) today's log file under
// <baseDir>/logs, compressing and pruning old files first.
func (l *Logger) Init(baseDir string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.Close()
	}

	actualLogDir := filepath.Join(baseDir, "logs")
	if err := os.MkdirAll(actualLogDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	l.logDir = actualLogDir

	l.compressExistingLogs()
	l.cleanupOldArchives()

	dateStr := time.Now().Format("2006-01-02")
	pattern := filepath.Join(actualLogDir, fmt.Sprintf("nlsqld_%s_*.log", dateStr))
	matches, _ := filepath.Glob(pattern)
	runCount := len(matches) + 1
	filename := filepath.Join(actualLogDir, fmt.Sprintf("nlsqld_%s_%d.log", dateStr, runCount))

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.file = f
	l.filename = filename
	l.logInternal("service started")
	return nil
}

// Log writes a plain message.
func (l *Logger) Log(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logInternal(message)
	l.checkAndRotate()
}

// Logf writes a formatted message.
func (l *Logger) Logf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logInternal(fmt.Sprintf(format, args...))
	l.checkAndRotate()
}

func (l *Logger) logInternal(message string) {
	if l.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(l.file, "[%s] %s\n", timestamp, message)
}

func (l *Logger) checkAndRotate() {
	if l.file == nil || l.maxSizeMB <= 0 {
		return
	}

	info, err := l.file.Stat()
	if err != nil {
		return
	}

	maxBytes := l.maxSizeMB * 1024 * 1024
	if info.Size() < maxBytes {
		return
	}

	l.logInternal("log file size limit reached, compressing")
	l.file.Close()

	if err := l.compressLogFile(l.filename); err != nil {
		fmt.Printf("logger: failed to compress log file: %v\n", err)
	}

	dateStr := time.Now().Format("2006-01-02")
	timeStr := time.Now().Format("150405")
	newFilename := filepath.Join(l.logDir, fmt.Sprintf("nlsqld_%s_%s.log", dateStr, timeStr))

	f, err := os.OpenFile(newFilename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("logger: failed to create new log file: %v\n", err)
		return
	}

	l.file = f
	l.filename = newFilename
	l.logInternal("new log file created after rotation")
}

func (l *Logger) compressLogFile(logPath string) error {
	dateTimeStr := time.Now().Format("2006-01-02_150405")
	baseName := filepath.Base(logPath)
	zipPath := filepath.Join(l.logDir, fmt.Sprintf("%s_%s.zip", baseName[:len(baseName)-4], dateTimeStr))

	zipFile, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create zip file: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)
	defer zipWriter.Close()

	logFile, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file for compression: %w", err)
	}
	defer logFile.Close()

	info, err := logFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to create zip header: %w", err)
	}
	header.Method = zip.Deflate

	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create zip entry: %w", err)
	}

	if _, err := io.Copy(writer, logFile); err != nil {
		return fmt.Errorf("failed to write log to zip: %w", err)
	}

	logFile.Close()
	if err := os.Remove(logPath); err != nil {
		return fmt.Errorf("failed to remove original log file: %w", err)
	}
	return nil
}

// Close flushes and closes the current log file.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.logInternal("service stopped")
		l.file.Close()
		l.file = nil
	}
}

func (l *Logger) compressExistingLogs() {
	if l.logDir == "" {
		return
	}

	maxBytes := l.maxSizeMB * 1024 * 1024
	pattern := filepath.Join(l.logDir, "*.log")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}

	for _, logPath := range matches {
		info, err := os.Stat(logPath)
		if err != nil {
			continue
		}
		if info.Size() >= maxBytes {
			if err := l.compressLogFile(logPath); err != nil {
				fmt.Printf("logger: failed to compress %s: %v\n", logPath, err)
			}
		}
	}
}

func (l *Logger) cleanupOldArchives() {
	if l.logDir == "" || l.maxArchiveCount <= 0 {
		return
	}

	pattern := filepath.Join(l.logDir, "*.zip")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) <= l.maxArchiveCount {
		return
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	files := make([]fileInfo, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: path, modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	toRemove := len(files) - l.maxArchiveCount
	for i := 0; i < toRemove; i++ {
		os.Remove(files[i].path)
	}
}

// Stats reports current log directory size and file counts.
func (l *Logger) Stats() (totalSizeMB float64, logCount int, archiveCount int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logDir == "" {
		return 0, 0, 0, fmt.Errorf("log directory not initialized")
	}

	logMatches, _ := filepath.Glob(filepath.Join(l.logDir, "*.log"))
	logCount = len(logMatches)

	zipMatches, _ := filepath.Glob(filepath.Join(l.logDir, "*.zip"))
	archiveCount = len(zipMatches)

	var totalSize int64
	allFiles := append(logMatches, zipMatches...)
	for _, path := range allFiles {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		totalSize += info.Size()
	}

	totalSizeMB = float64(totalSize) / (1024 * 1024)
	return totalSizeMB, logCount, archiveCount, nil
}
