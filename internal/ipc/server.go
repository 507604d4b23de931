package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger is built per call so it picks up the writer set by the caller after init.
func logger() *zerolog.Logger {
	l := log.With().Str("component", "ipc").Logger()
	return &l
}

// Frame is one newline-delimited JSON message sent to clients.
type Frame struct {
	Status  string   `json:"status"`
	Title   string   `json:"title,omitempty"`
	Artist  string   `json:"artist,omitempty"`
	Index   int      `json:"index"`
	TimeMs  int64    `json:"time_ms,omitempty"`
	Line    string   `json:"line"`
	Context []string `json:"context,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Server broadcasts frames to every connected client over a unix socket.
// New clients receive the last frame immediately.
type Server struct {
	socketPath      string
	statusFile      string
	listener        net.Listener
	clientConns     map[net.Conn]struct{}
	clientConnsLock sync.Mutex
	last            []byte
	lastLock        sync.Mutex
	lockFile        *os.File
	lockFilePath    string
}

// NewServer creates a server on socketPath. When statusFile is set the
// current line is also written there as plain text for status bars.
func NewServer(socketPath, statusFile string) *Server {
	return &Server{
		socketPath:   socketPath,
		statusFile:   statusFile,
		clientConns:  make(map[net.Conn]struct{}),
		lockFilePath: socketPath + ".lock",
	}
}

func (s *Server) checkAndCleanOldLock() {
	content, err := os.ReadFile(s.lockFilePath)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		logger().Warn().Err(err).Msg("Failed to read lock file, removing it")
		os.Remove(s.lockFilePath)
		return
	}

	pidStr := strings.TrimSpace(string(content))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		logger().Warn().Str("pid_str", pidStr).Msg("Invalid PID in lock file, removing it")
		os.Remove(s.lockFilePath)
		return
	}

	// kill(pid, 0) only checks that the process exists
	if syscall.Kill(pid, 0) != nil {
		logger().Info().Int("old_pid", pid).Msg("Process in lock file is not running, removing lock file")
		os.Remove(s.lockFilePath)
		return
	}
	logger().Info().Int("existing_pid", pid).Msg("Another process is still running")
}

func (s *Server) acquireLock() error {
	s.checkAndCleanOldLock()

	file, err := os.OpenFile(s.lockFilePath, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if err == syscall.EWOULDBLOCK {
			return fmt.Errorf("another lrc-engine instance is already running")
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if err := file.Truncate(0); err == nil {
		_, err = file.WriteString(fmt.Sprintf("%d\n", os.Getpid()))
	}
	if err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return fmt.Errorf("failed to write PID to lock file: %w", err)
	}

	s.lockFile = file
	logger().Info().Str("lock_file", s.lockFilePath).Int("pid", os.Getpid()).Msg("Acquired process lock")
	return nil
}

func (s *Server) releaseLock() {
	if s.lockFile == nil {
		return
	}
	syscall.Flock(int(s.lockFile.Fd()), syscall.LOCK_UN)
	s.lockFile.Close()
	os.Remove(s.lockFilePath)
	logger().Info().Str("lock_file", s.lockFilePath).Msg("Released process lock")
	s.lockFile = nil
}

// Start takes the process lock and begins accepting clients.
func (s *Server) Start() error {
	if err := s.acquireLock(); err != nil {
		return err
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		s.releaseLock()
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.releaseLock()
		return err
	}
	s.listener = listener

	logger().Info().Str("socket_path", s.socketPath).Msg("IPC server listening")

	go s.acceptConnections()
	return nil
}

// Addr returns the socket path.
func (s *Server) Addr() string {
	return s.socketPath
}

func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger().Error().Err(err).Msg("Failed to accept IPC connection")
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	// register and send the last frame under the same lock so a concurrent
	// Broadcast cannot slip in between
	s.clientConnsLock.Lock()
	s.clientConns[conn] = struct{}{}
	s.lastLock.Lock()
	last := s.last
	s.lastLock.Unlock()
	if last != nil {
		if _, err := conn.Write(last); err != nil {
			logger().Error().Err(err).Msg("Failed to send initial frame")
		}
	}
	s.clientConnsLock.Unlock()

	logger().Info().Msg("Client connected")

	buf := make([]byte, 64)
	for {
		if _, err := conn.Read(buf); err != nil {
			break
		}
	}

	s.clientConnsLock.Lock()
	delete(s.clientConns, conn)
	s.clientConnsLock.Unlock()
	conn.Close()
	logger().Info().Msg("Client disconnected")
}

// Broadcast sends f to every client.
func (s *Server) Broadcast(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		logger().Error().Err(err).Msg("Failed to encode frame")
		return
	}
	data = append(data, '\n')

	if s.statusFile != "" {
		text := f.Line
		if text == "" {
			text = f.Message
		}
		if err := os.WriteFile(s.statusFile, []byte(text+"\n"), 0644); err != nil {
			logger().Warn().Err(err).Str("file", s.statusFile).Msg("Failed to write status file")
		}
	}

	s.lastLock.Lock()
	s.last = data
	s.lastLock.Unlock()

	s.clientConnsLock.Lock()
	defer s.clientConnsLock.Unlock()
	for conn := range s.clientConns {
		if _, err := conn.Write(data); err != nil {
			logger().Error().Err(err).Msg("Failed to write to client, removing")
			conn.Close()
			delete(s.clientConns, conn)
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.clientConnsLock.Lock()
	defer s.clientConnsLock.Unlock()
	return len(s.clientConns)
}

// Close stops listening and releases the lock.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
	s.clientConnsLock.Lock()
	for conn := range s.clientConns {
		conn.Close()
	}
	s.clientConnsLock.Unlock()
	s.releaseLock()
}
