// Package supervisor keeps a fixed pool of worker processes alive. It is
// crash-only: a worker that exits for any reason is replaced, and shutdown is
// a SIGTERM to every worker followed by a kill after the grace period.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"syscall"
	"time"
)

type Process interface {
	Pid() int
	Wait() error
	Signal(sig os.Signal) error
}

type Spawner interface {
	Spawn(slot int) (Process, error)
}

type Config struct {
	Size          int
	RespawnDelay  time.Duration
	ShutdownGrace time.Duration
}

type Supervisor struct {
	cfg   Config
	spawn Spawner
	log   *slog.Logger
}

func New(cfg Config, spawn Spawner, log *slog.Logger) *Supervisor {
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	if cfg.RespawnDelay <= 0 {
		cfg.RespawnDelay = 500 * time.Millisecond
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 15 * time.Second
	}
	return &Supervisor{cfg: cfg, spawn: spawn, log: log}
}

type exit struct {
	slot int
	proc Process
	err  error
}

// Run starts Size workers and blocks until ctx is cancelled and every worker
// has exited. Failing to start the initial pool is an error; later spawn
// failures are retried.
func (s *Supervisor) Run(ctx context.Context) error {
	procs := make(map[int]Process, s.cfg.Size)
	exits := make(chan exit, s.cfg.Size)
	pending := make(chan int, s.cfg.Size)

	start := func(slot int) error {
		p, err := s.spawn.Spawn(slot)
		if err != nil {
			return err
		}
		procs[slot] = p
		s.log.Info("worker started", "slot", slot, "pid", p.Pid())

		go func() {
			exits <- exit{slot: slot, proc: p, err: p.Wait()}
		}()
		return nil
	}

	scheduleRespawn := func(slot int) {
		go func() {
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.RespawnDelay):
				pending <- slot
			}
		}()
	}

	for slot := 0; slot < s.cfg.Size; slot++ {
		if err := start(slot); err != nil {
			s.shutdown(procs, exits)
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.shutdown(procs, exits)
			return nil

		case e := <-exits:
			delete(procs, e.slot)
			s.log.Warn("worker exited, respawning",
				"slot", e.slot,
				"pid", e.proc.Pid(),
				"err", errString(e.err),
			)
			scheduleRespawn(e.slot)

		case slot := <-pending:
			if ctx.Err() != nil {
				continue
			}
			if err := start(slot); err != nil {
				s.log.Error("worker spawn failed", "slot", slot, "err", err)
				scheduleRespawn(slot)
			}
		}
	}
}

func (s *Supervisor) shutdown(procs map[int]Process, exits <-chan exit) {
	if len(procs) == 0 {
		return
	}

	s.log.Info("stopping workers", "count", len(procs))
	for _, p := range procs {
		if err := p.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.log.Warn("signal worker failed", "pid", p.Pid(), "err", err)
		}
	}

	deadline := time.NewTimer(s.cfg.ShutdownGrace)
	defer deadline.Stop()

	for len(procs) > 0 {
		select {
		case e := <-exits:
			delete(procs, e.slot)
		case <-deadline.C:
			for _, p := range procs {
				s.log.Error("worker did not stop in time, killing", "pid", p.Pid())
				_ = p.Signal(os.Kill)
			}
			for len(procs) > 0 {
				e := <-exits
				delete(procs, e.slot)
			}
		}
	}
	s.log.Info("all workers stopped")
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
