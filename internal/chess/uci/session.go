package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/Cheese-chess-trainer/internal/obslog"
)

const (
	defaultReadyTimeout  = 4 * time.Second
	newGameRetryAttempts = 3
	newGameRetryDelay    = 150 * time.Millisecond

	minElo = 1320
	maxElo = 3190
)

// NoMove is what engines print after bestmove when the side to move has no
// legal move.
const NoMove = "(none)"

type Options struct {
	Threads       int
	HashMB        int
	LimitStrength bool
	Elo           int
	SkillLevel    int
}

type Limits struct {
	Depth          int
	MoveTimeMillis int
	NodeCap        int
}

// Session is one engine process. A session whose search failed or was
// cancelled may still have a reader blocked on its stdout and must be
// closed rather than reused.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	mu     sync.Mutex
	search sync.Mutex
	closed bool
}

// NewSession starts binaryPath and completes the UCI handshake. ctx bounds
// the handshake only; the process lives until Close.
func NewSession(ctx context.Context, binaryPath string, opt Options) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}

	cmd := exec.Command(binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdoutPipe),
	}

	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// NewPipeSession runs the handshake over already-connected streams, for
// engines that are not child processes of this one.
func NewPipeSession(ctx context.Context, stdin io.WriteCloser, stdout io.Reader, opt Options) (*Session, error) {
	if err := validateOptions(opt); err != nil {
		return nil, err
	}
	s := &Session{stdin: stdin, stdout: bufio.NewReader(stdout)}
	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

type SearchRequest struct {
	FEN    string
	Moves  []string
	Limits Limits
}

type SearchResponse struct {
	BestMove string
	Ponder   string
	Depth    int
	ScoreCP  int
	Mate     int
}

// Search sends position and go, then reads until bestmove. BestMove is
// empty when the engine answered (none).
func (s *Session) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	s.search.Lock()
	defer s.search.Unlock()

	positionCmd := buildPositionCommand(req.FEN, req.Moves)
	if err := s.send(positionCmd); err != nil {
		return SearchResponse{}, fmt.Errorf("send position: %w", err)
	}

	goTokens, err := buildGoTokens(req.Limits)
	if err != nil {
		return SearchResponse{}, err
	}
	goCmd := strings.Join(goTokens, " ")
	if err := s.send(goCmd + "\n"); err != nil {
		return SearchResponse{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, computeSearchTimeout(req.Limits))
	defer cancel()

	var resp SearchResponse
	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			if searchCtx.Err() != nil {
				_ = s.send("stop\n")
			}
			obslog.L().Warn("uci_read_failed",
				zap.String("position", strings.TrimSpace(positionCmd)),
				zap.String("go", goCmd),
				zap.Error(err))
			return SearchResponse{}, fmt.Errorf("read line: %w", err)
		}
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "info "):
			parseInfo(line, &resp)
		case strings.HasPrefix(line, "bestmove"):
			parts := strings.Fields(line)
			if len(parts) >= 2 && parts[1] != NoMove {
				resp.BestMove = parts[1]
			}
			if len(parts) >= 4 && parts[2] == "ponder" {
				resp.Ponder = parts[3]
			}
			return resp, nil
		}
	}
}

func buildPositionCommand(fen string, moves []string) string {
	var sb strings.Builder
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position fen ")
		sb.WriteString(fen)
	}
	if len(moves) > 0 {
		sb.WriteString(" moves ")
		sb.WriteString(strings.Join(moves, " "))
	}
	sb.WriteString("\n")
	return sb.String()
}

func validateOptions(opt Options) error {
	if opt.SkillLevel < 0 || opt.SkillLevel > 20 {
		return fmt.Errorf("skill level %d out of range 0-20", opt.SkillLevel)
	}
	if opt.HashMB < 0 {
		return fmt.Errorf("hash size must be >= 0: %d", opt.HashMB)
	}
	if opt.Elo != 0 && (opt.Elo < minElo || opt.Elo > maxElo) {
		return fmt.Errorf("elo %d out of range %d-%d", opt.Elo, minElo, maxElo)
	}
	return nil
}

func buildGoTokens(l Limits) ([]string, error) {
	args := []string{"go"}
	if l.Depth > 0 {
		args = append(args, "depth", strconv.Itoa(l.Depth))
	}
	if l.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(l.MoveTimeMillis))
	}
	if l.NodeCap > 0 {
		args = append(args, "nodes", strconv.Itoa(l.NodeCap))
	}
	if len(args) == 1 {
		return nil, fmt.Errorf("no search limits specified")
	}
	return args, nil
}

func computeSearchTimeout(l Limits) time.Duration {
	if l.MoveTimeMillis > 0 {
		ms := l.MoveTimeMillis + 2000
		return time.Duration(ms) * time.Millisecond * 3
	}
	if l.Depth > 0 {
		base := time.Duration(l.Depth) * 1500 * time.Millisecond
		if base < 6*time.Second {
			base = 6 * time.Second
		}
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		return base
	}
	return 6 * time.Second
}

// parseInfo keeps the deepest reported depth and score of the main line.
func parseInfo(line string, resp *SearchResponse) {
	parts := strings.Fields(line)
	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "multipv":
			if i+1 < len(parts) && parts[i+1] != "1" {
				return
			}
			i++
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					resp.Depth = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				v, err := strconv.Atoi(parts[i+2])
				if err == nil {
					switch parts[i+1] {
					case "cp":
						resp.ScoreCP, resp.Mate = v, 0
					case "mate":
						resp.Mate = v
					}
				}
				i += 2
			}
		case "pv":
			return
		}
	}
}

func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) NewGame(ctx context.Context) error {
	if err := s.send("ucinewgame\n"); err != nil {
		return fmt.Errorf("send ucinewgame: %w", err)
	}

	for attempt := 1; attempt <= newGameRetryAttempts; attempt++ {
		err := s.EnsureReady(ctx)
		if err == nil {
			return nil
		}
		if attempt == newGameRetryAttempts || ctx.Err() != nil {
			return err
		}
		obslog.L().Debug("uci_ready_retry", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(newGameRetryDelay):
		}
	}
	return nil
}

// Close kills the process and waits for it. Safe to call twice.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.stdin != nil {
		s.stdin.Close()
	}

	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}

	if s.cmd != nil {
		err := s.cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}

	if err := s.applyOptions(opt); err != nil {
		return err
	}

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}

	return nil
}

func optionCommands(opt Options) []string {
	var cmds []string
	if opt.Threads > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Threads value %d\n", opt.Threads))
	}
	if opt.HashMB > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name Hash value %d\n", opt.HashMB))
	}
	cmds = append(cmds, fmt.Sprintf("setoption name UCI_LimitStrength value %t\n", opt.LimitStrength))
	if opt.Elo > 0 {
		cmds = append(cmds, fmt.Sprintf("setoption name UCI_Elo value %d\n", opt.Elo))
	}
	cmds = append(cmds, fmt.Sprintf("setoption name Skill Level value %d\n", opt.SkillLevel))
	return cmds
}

func (s *Session) applyOptions(opt Options) error {
	for _, cmd := range optionCommands(opt) {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("session closed")
	}
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)

	go func() {
		line, err := s.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}
