package workflowlog

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

var workerNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

const logFlags = log.LstdFlags | log.Lmicroseconds | log.LUTC

// Manager hands out one logger per worker, each backed by its own file under
// <root>/<process>/. Echo, when set, receives a copy of every line.
type Manager struct {
	process string
	dir     string
	echo    io.Writer

	mu      sync.Mutex
	files   map[string]*os.File
	loggers map[string]*log.Logger
}

// New prepares a clean log directory for process. An empty root resolves to
// <module root>/logs.
func New(process, root string, echo io.Writer) (*Manager, error) {
	process = sanitizeWorkerName(process)

	root = strings.TrimSpace(root)
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("workflowlog: getwd: %w", err)
		}
		root = filepath.Join(findModuleRoot(wd), "logs")
	}
	dir := filepath.Join(root, process)

	// Every restart gets a clean log set for this process.
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("workflowlog: clear dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workflowlog: mkdir: %w", err)
	}

	return &Manager{
		process: process,
		dir:     dir,
		echo:    echo,
		files:   make(map[string]*os.File),
		loggers: make(map[string]*log.Logger),
	}, nil
}

func (m *Manager) Dir() string {
	if m == nil {
		return ""
	}
	return m.dir
}

func (m *Manager) Logger(worker string) *log.Logger {
	name := sanitizeWorkerName(worker)
	if m == nil {
		return log.New(os.Stdout, "["+name+"] ", logFlags)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.loggers[name]; ok {
		return l
	}

	p := filepath.Join(m.dir, name+".log")
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		// Logging setup must not stop a counting session.
		return log.New(m.fallbackWriter(), "["+name+"] ", logFlags)
	}

	m.files[name] = f
	var w io.Writer = f
	if m.echo != nil {
		w = io.MultiWriter(m.echo, f)
	}
	l := log.New(w, "["+name+"] ", logFlags)
	m.loggers[name] = l
	return l
}

func (m *Manager) fallbackWriter() io.Writer {
	if m.echo != nil {
		return m.echo
	}
	return io.Discard
}

func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, f := range m.files {
		_ = f.Close()
		delete(m.files, k)
		delete(m.loggers, k)
	}
}

func sanitizeWorkerName(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "worker"
	}
	v = workerNameSanitizer.ReplaceAllString(v, "_")
	v = strings.Trim(v, "._-")
	if v == "" {
		return "worker"
	}
	return strings.ToLower(v)
}

func findModuleRoot(start string) string {
	cur := start
	for {
		if _, err := os.Stat(filepath.Join(cur, "go.mod")); err == nil {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			// Fallback: keep logs near current process dir.
			return start
		}
		cur = parent
	}
}
