//go:build windows

package term

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"syscall"

	"github.com/UserExistsError/conpty"
)

// windowsProc runs a child under a ConPTY.
type windowsProc struct {
	cpty *conpty.ConPty

	mu     sync.Mutex
	exited bool
}

// StartWindowsProc is the production StartProc on Windows.
func StartWindowsProc(argv []string, env []string, dir string, cols, rows int, onData func([]byte), onExit func(code int)) (Proc, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	escaped := make([]string, len(argv))
	for i, arg := range argv {
		escaped[i] = syscall.EscapeArg(arg)
	}
	commandLine := strings.Join(escaped, " ")

	opts := []conpty.ConPtyOption{conpty.ConPtyDimensions(cols, rows)}
	if dir != "" {
		opts = append(opts, conpty.ConPtyWorkDir(dir))
	}

	cpty, err := conpty.Start(commandLine, opts...)
	if err != nil {
		return nil, fmt.Errorf("conpty start: %w", err)
	}

	p := &windowsProc{cpty: cpty}

	go func() {
		buffer := make([]byte, 4096)
		for {
			n, rerr := cpty.Read(buffer)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buffer[:n])
				onData(data)
			}
			if rerr != nil {
				if !strings.Contains(rerr.Error(), "closed") {
					log.Printf("conpty read error: %v", rerr)
				}
				return
			}
		}
	}()

	go func() {
		code, werr := cpty.Wait(context.Background())
		p.mu.Lock()
		p.exited = true
		p.mu.Unlock()
		if werr != nil {
			log.Printf("conpty wait: %v", werr)
		}
		onExit(int(code))
	}()

	return p, nil
}

func (p *windowsProc) Write(data []byte) (int, error) {
	if p.cpty == nil {
		return 0, fmt.Errorf("conpty not available")
	}
	return p.cpty.Write(data)
}

// CloseStdin is a no-op: ConPTY exposes a single console handle.
func (p *windowsProc) CloseStdin() error { return nil }

func (p *windowsProc) Resize(cols, rows int) error {
	if p.cpty == nil {
		return fmt.Errorf("conpty not available")
	}
	return p.cpty.Resize(cols, rows)
}

// Terminate and Kill both close the ConPTY; Windows has no graceful
// signal equivalent for console children, closing the console ends the
// process tree.
func (p *windowsProc) Terminate() error { return p.Close() }

func (p *windowsProc) Kill() error { return p.Close() }

func (p *windowsProc) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.exited && p.cpty != nil
}

func (p *windowsProc) Close() error {
	if p.cpty == nil {
		return nil
	}
	err := p.cpty.Close()
	p.cpty = nil
	return err
}

// StartDefaultProc points at the platform implementation.
var StartDefaultProc StartProc = StartWindowsProc
