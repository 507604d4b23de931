package i3block

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logger is built per call so it picks up the writer set by the caller after init.
func logger() *zerolog.Logger {
	l := log.With().Str("component", "i3block").Logger()
	return &l
}

// sigrtmin is SIGRTMIN on linux/glibc; i3blocks maps signal=N to SIGRTMIN+N.
const sigrtmin = 34

const refreshInterval = 10 * time.Second

// Controller tracks the i3blocks pid and pokes it when the lyric changes.
type Controller struct {
	signal    int
	pid       int
	pidMutex  sync.RWMutex
	ticker    *time.Ticker
	stopChan  chan struct{}
	isRunning bool
	runMutex  sync.Mutex

	findPID func() (int, error)
	kill    func(pid int, sig syscall.Signal) error
}

// NewController creates a controller sending SIGRTMIN+signal.
func NewController(signal int) *Controller {
	return &Controller{
		signal:   signal,
		pid:      -1,
		stopChan: make(chan struct{}),
		findPID:  findI3blocks,
		kill:     syscall.Kill,
	}
}

// Start begins refreshing the i3blocks pid periodically.
func (c *Controller) Start() error {
	c.runMutex.Lock()
	defer c.runMutex.Unlock()

	if c.isRunning {
		return fmt.Errorf("controller is already running")
	}

	if err := c.refreshPID(); err != nil {
		logger().Debug().Err(err).Msg("i3blocks not found yet")
	}

	c.ticker = time.NewTicker(refreshInterval)
	c.isRunning = true

	go c.monitorLoop()

	logger().Info().Int("signal", c.signal).Msg("i3block controller started")
	return nil
}

// Stop stops the controller.
func (c *Controller) Stop() {
	c.runMutex.Lock()
	defer c.runMutex.Unlock()

	if !c.isRunning {
		return
	}

	close(c.stopChan)
	c.ticker.Stop()
	c.isRunning = false

	logger().Info().Msg("i3block controller stopped")
}

func (c *Controller) monitorLoop() {
	for {
		select {
		case <-c.ticker.C:
			if err := c.refreshPID(); err != nil {
				logger().Debug().Err(err).Msg("Failed to refresh i3blocks PID")
			}
		case <-c.stopChan:
			return
		}
	}
}

func (c *Controller) refreshPID() error {
	pid, err := c.findPID()
	if err != nil {
		pid = -1
	}

	c.pidMutex.Lock()
	oldPID := c.pid
	c.pid = pid
	c.pidMutex.Unlock()

	if oldPID != pid {
		logger().Info().Int("old_pid", oldPID).Int("pid", pid).Msg("i3blocks PID updated")
	}
	return err
}

func findI3blocks() (int, error) {
	output, err := exec.Command("pgrep", "-x", "i3blocks").Output()
	if err != nil {
		return -1, fmt.Errorf("i3blocks process not found")
	}

	// 多个进程时取第一个
	first := strings.SplitN(strings.TrimSpace(string(output)), "\n", 2)[0]
	pid, err := strconv.Atoi(first)
	if err != nil {
		return -1, fmt.Errorf("failed to parse PID %q: %w", first, err)
	}
	return pid, nil
}

// PID returns the last seen i3blocks pid or -1.
func (c *Controller) PID() int {
	c.pidMutex.RLock()
	defer c.pidMutex.RUnlock()
	return c.pid
}

// Notify asks i3blocks to re-run the lyrics block.
func (c *Controller) Notify() error {
	pid := c.PID()
	if pid <= 0 {
		return fmt.Errorf("invalid PID: %d, i3blocks process not found", pid)
	}

	sig := syscall.Signal(sigrtmin + c.signal)
	if err := c.kill(pid, sig); err != nil {
		// i3blocks may have restarted; look again next tick
		if err == syscall.ESRCH {
			c.pidMutex.Lock()
			c.pid = -1
			c.pidMutex.Unlock()
		}
		return fmt.Errorf("failed to send signal %d to process %d: %w", int(sig), pid, err)
	}
	return nil
}
