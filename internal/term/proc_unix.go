//go:build !windows

package term

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/creack/pty"
)

// unixProc runs a child on a creack/pty pseudo-terminal.
type unixProc struct {
	ptmx *os.File
	cmd  *exec.Cmd

	mu     sync.Mutex
	exited bool
}

// StartUnixProc is the production StartProc on unix-like systems.
func StartUnixProc(argv []string, env []string, dir string, cols, rows int, onData func([]byte), onExit func(code int)) (Proc, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	if env == nil {
		env = DefaultEnv(cols, rows)
	}
	cmd.Env = env

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
	if err != nil {
		return nil, fmt.Errorf("pty start: %w", err)
	}

	p := &unixProc{ptmx: ptmx, cmd: cmd}

	go func() {
		buffer := make([]byte, 4096)
		for {
			n, rerr := ptmx.Read(buffer)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buffer[:n])
				onData(data)
			}
			if rerr != nil {
				if !strings.Contains(rerr.Error(), "closed") && !strings.Contains(rerr.Error(), "input/output error") {
					log.Printf("pty read error: %v", rerr)
				}
				return
			}
		}
	}()

	go func() {
		werr := cmd.Wait()
		p.mu.Lock()
		p.exited = true
		p.mu.Unlock()

		code := 0
		if werr != nil {
			if ee, ok := werr.(*exec.ExitError); ok {
				code = ee.ExitCode()
			} else {
				code = -1
			}
		}
		onExit(code)
	}()

	return p, nil
}

// DefaultEnv is the environment handed to a fresh child process.
func DefaultEnv(cols, rows int) []string {
	return append(os.Environ(),
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
		fmt.Sprintf("COLUMNS=%d", cols),
		fmt.Sprintf("LINES=%d", rows),
	)
}

func (p *unixProc) Write(data []byte) (int, error) {
	if p.ptmx == nil {
		return 0, fmt.Errorf("pty not available")
	}
	return p.ptmx.Write(data)
}

// CloseStdin is a no-op: the pty is a single bidirectional descriptor,
// closing it would also drop the output side.
func (p *unixProc) CloseStdin() error { return nil }

func (p *unixProc) Resize(cols, rows int) error {
	if p.ptmx == nil {
		return fmt.Errorf("pty not available")
	}
	return pty.Setsize(p.ptmx, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

func (p *unixProc) Terminate() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return fmt.Errorf("no process")
	}
	return p.cmd.Process.Signal(syscall.SIGTERM)
}

func (p *unixProc) Kill() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return fmt.Errorf("no process")
	}
	return p.cmd.Process.Kill()
}

func (p *unixProc) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.exited && p.cmd != nil && p.cmd.Process != nil
}

func (p *unixProc) Close() error {
	if p.ptmx == nil {
		return nil
	}
	err := p.ptmx.Close()
	p.ptmx = nil
	return err
}

// StartDefaultProc points at the platform implementation.
var StartDefaultProc StartProc = StartUnixProc
