package session

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"
)

// confirmWindow is how long a second interrupt counts as confirmation.
const confirmWindow = 3 * time.Second

// ExitGuard intercepts Ctrl-C while a user is signed in. The first
// interrupt prints a warning; a second one within the confirmation
// window exits. While disarmed (anonymous), interrupts exit directly.
type ExitGuard struct {
	out  io.Writer
	exit func(int)
	now  func() time.Time

	mu            sync.Mutex
	armed         bool
	lastInterrupt time.Time

	sigs chan os.Signal
}

// NewExitGuard creates a disarmed guard.
func NewExitGuard() *ExitGuard {
	return &ExitGuard{
		out:  os.Stderr,
		exit: os.Exit,
		now:  time.Now,
	}
}

// Arm makes the guard require confirmation before exiting.
func (g *ExitGuard) Arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
	g.lastInterrupt = time.Time{}
}

// Disarm lets interrupts exit directly again.
func (g *ExitGuard) Disarm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = false
}

// Armed reports whether the guard currently requires confirmation.
func (g *ExitGuard) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.armed
}

// Watch starts handling SIGINT in a background goroutine. Call Close
// to restore default signal handling.
func (g *ExitGuard) Watch() {
	g.mu.Lock()
	if g.sigs != nil {
		g.mu.Unlock()
		return
	}
	g.sigs = make(chan os.Signal, 1)
	sigs := g.sigs
	g.mu.Unlock()

	signal.Notify(sigs, os.Interrupt)
	go func() {
		for range sigs {
			g.handleInterrupt()
		}
	}()
}

// Close stops intercepting SIGINT.
func (g *ExitGuard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sigs != nil {
		signal.Stop(g.sigs)
		close(g.sigs)
		g.sigs = nil
	}
}

// handleInterrupt decides whether an interrupt exits the process.
func (g *ExitGuard) handleInterrupt() {
	g.mu.Lock()
	if !g.armed {
		g.mu.Unlock()
		g.exit(130)
		return
	}

	now := g.now()
	if !g.lastInterrupt.IsZero() && now.Sub(g.lastInterrupt) <= confirmWindow {
		g.mu.Unlock()
		g.exit(130)
		return
	}
	g.lastInterrupt = now
	g.mu.Unlock()

	fmt.Fprintln(g.out, "You are still signed in. Press Ctrl-C again to exit without signing out.")
}
