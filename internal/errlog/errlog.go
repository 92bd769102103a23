// Package errlog maintains the append-only error log (error_log.txt) that
// every flow writes to when a remote call fails.
package errlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultFile       = "error_log.txt"
	DefaultArchiveDir = "error_logs_archive"
)

type Kind int

const (
	// KindApplication is a well-formed response carrying a non-success code.
	KindApplication Kind = iota
	// KindNetwork is a call that could not complete, or a response that could
	// not be read.
	KindNetwork
	// KindFatal is any other failure that stopped a command.
	KindFatal
)

type Entry struct {
	Time    time.Time
	Kind    Kind
	Field   string
	Code    string
	Message string
	Body    any
}

func (e Entry) format() string {
	ts := e.Time.UTC().Format("2006-01-02T15:04:05.000Z")

	var out strings.Builder
	switch e.Kind {
	case KindApplication:
		fmt.Fprintf(&out, "%s: Error in %s - Code %s - %s\n", ts, e.Field, e.Code, e.Message)
		body, err := json.Marshal(e.Body)
		if err != nil {
			body = []byte(fmt.Sprintf("%q", fmt.Sprint(e.Body)))
		}
		fmt.Fprintf(&out, "Response: %s\n", body)
	case KindNetwork:
		if e.Field == "" {
			fmt.Fprintf(&out, "%s: Network error - %s\n", ts, e.Message)
		} else {
			fmt.Fprintf(&out, "%s: Network error in %s - %s\n", ts, e.Field, e.Message)
		}
	case KindFatal:
		fmt.Fprintf(&out, "%s: Error - %s\n", ts, e.Message)
	}
	return out.String()
}

// Sink receives error log entries.
//
// note: fault injection point
type Sink interface {
	Append(entry Entry) error
}

// File is a Sink backed by a file that is only ever appended to.
type File struct {
	path string
	now  func() time.Time
}

func NewFile(path string) File {
	if path == "" {
		path = DefaultFile
	}
	return File{path: path, now: time.Now}
}

func (f File) Path() string {
	return f.path
}

func (f File) Append(entry Entry) error {
	if entry.Time.IsZero() {
		entry.Time = f.now()
	}

	dir := filepath.Dir(f.path)
	if dir != "." {
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return err
		}
	}

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.WriteString(entry.format())
	return err
}

// Archive copies the current log into archiveDir as
// error_log_<YYYY-MM-DD_HHMMSS>.txt and truncates it. If there is no log yet
// an empty one is created and the returned path is empty.
func (f File) Archive(archiveDir string) (string, error) {
	if archiveDir == "" {
		archiveDir = DefaultArchiveDir
	}
	err := os.MkdirAll(archiveDir, 0755)
	if err != nil {
		return "", err
	}

	src, err := os.Open(f.path)
	if os.IsNotExist(err) {
		err = os.MkdirAll(filepath.Dir(f.path), 0755)
		if err != nil {
			return "", err
		}
		return "", os.WriteFile(f.path, nil, 0644)
	}
	if err != nil {
		return "", err
	}
	defer src.Close()

	archivePath := filepath.Join(
		archiveDir,
		fmt.Sprintf("error_log_%s.txt", f.now().UTC().Format("2006-01-02_150405")),
	)
	dst, err := os.Create(archivePath)
	if err != nil {
		return "", err
	}
	_, err = io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", err
	}

	return archivePath, os.Truncate(f.path, 0)
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Append(Entry) error { return nil }
