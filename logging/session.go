package logging

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// Session owns the persistent job log for the duration of one job.
//
// Opening a session creates the log file and installs a root logger that
// writes to both the previous root handler and the file. Closing it removes
// exactly that addition: the file handler is switched off wherever it sits in
// the root chain, the root is rewound past closed sessions when it is still
// ours, and the file is closed. Sessions may close in any order.
type Session struct {
	path  string
	level slog.Level

	mu        sync.Mutex
	file      *os.File
	fileGate  *gate
	jobLog    log.Logger
	prevRoot  log.Logger
	installed log.Logger
	closed    bool
}

var (
	rootMu sync.Mutex
	// closedRoots maps the root logger installed by a closed session to the
	// root it replaced, until the chain is rewound past it.
	closedRoots = make(map[log.Logger]log.Logger)
)

// Open creates path and starts a session writing records at level or above.
func Open(path string, level slog.Level) (*Session, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open job log %s: %w", path, err)
	}
	fileGate := newGate(log.LogfmtHandlerWithLevel(f, level))

	rootMu.Lock()
	prev := log.Root()
	installed := log.NewLogger(slog.NewMultiHandler(prev.Handler(), fileGate))
	log.SetDefault(installed)
	rootMu.Unlock()

	return &Session{
		path:      path,
		level:     level,
		file:      f,
		fileGate:  fileGate,
		jobLog:    log.NewLogger(fileGate),
		prevRoot:  prev,
		installed: installed,
	}, nil
}

// Path returns the job log file path.
func (s *Session) Path() string {
	return s.path
}

// Logger returns a logger writing only to the job log file.
func (s *Session) Logger() log.Logger {
	return s.jobLog
}

// Close removes the file handler from the root logger and closes the file.
// It is safe to call more than once and on a nil session.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.fileGate.close()

	rootMu.Lock()
	if log.Root() == s.installed {
		prev := s.prevRoot
		for {
			older, ok := closedRoots[prev]
			if !ok {
				break
			}
			delete(closedRoots, prev)
			prev = older
		}
		log.SetDefault(prev)
	} else {
		// still chained below another root; its gate is off from now on
		closedRoots[s.installed] = s.prevRoot
	}
	rootMu.Unlock()

	s.jobLog = log.NewLogger(log.DiscardHandler())
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close job log: %w", err)
	}
	return nil
}
