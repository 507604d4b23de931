package i3block

import (
	"errors"
	"syscall"
	"testing"
)

func TestNotify(t *testing.T) {
	c := NewController(21)
	c.findPID = func() (int, error) { return 4242, nil }

	var gotPID int
	var gotSig syscall.Signal
	c.kill = func(pid int, sig syscall.Signal) error {
		gotPID, gotSig = pid, sig
		return nil
	}

	if err := c.Notify(); err == nil {
		t.Fatal("notify without a pid should fail")
	}

	if err := c.refreshPID(); err != nil {
		t.Fatal(err)
	}
	if err := c.Notify(); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if gotPID != 4242 || gotSig != syscall.Signal(55) {
		t.Errorf("sent signal %d to %d", gotSig, gotPID)
	}
}

func TestNotifyForgetsDeadProcess(t *testing.T) {
	c := NewController(1)
	c.findPID = func() (int, error) { return 7, nil }
	c.kill = func(int, syscall.Signal) error { return syscall.ESRCH }
	c.refreshPID()

	if err := c.Notify(); err == nil {
		t.Fatal("expected error")
	}
	if c.PID() != -1 {
		t.Errorf("dead pid should be forgotten, have %d", c.PID())
	}
}

func TestRefreshPIDNotFound(t *testing.T) {
	c := NewController(1)
	c.findPID = func() (int, error) { return -1, errors.New("not found") }
	if err := c.refreshPID(); err == nil {
		t.Error("expected error")
	}
	if c.PID() != -1 {
		t.Errorf("expected -1, got %d", c.PID())
	}
}

func TestStartStop(t *testing.T) {
	c := NewController(1)
	c.findPID = func() (int, error) { return 1, nil }
	if err := c.Start(); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(); err == nil {
		t.Error("second Start should fail")
	}
	c.Stop()
	c.Stop()
}
