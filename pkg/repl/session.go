package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/inhies/go-bytesize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"kmsctl/pkg/album"
	"kmsctl/pkg/drm"
	"kmsctl/pkg/proto"
)

const maxLine = 1 * bytesize.MB

var (
	ErrUnknownCommand = errors.New("Unknown command")
	ErrQuit           = errors.New("quit")
)

type Option func(s *Session)

// WithEcho controls whether Run prints each line before running it.
func WithEcho(echo bool) Option {
	return func(s *Session) {
		s.echo = echo
	}
}

// WithFormat sets the pixel format used by Load when none is given.
func WithFormat(format drm.PixelFormat) Option {
	return func(s *Session) {
		s.format = format
	}
}

func NewSession(dev proto.Control, a *album.Album, logger *zap.Logger, opts ...Option) *Session {
	s := &Session{
		dev:    dev,
		album:  a,
		logger: logger,
		echo:   true,
		format: drm.FormatXRGB8888,
		index:  make(map[string]*command),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.album == nil {
		s.album = album.New(album.WithLogger(logger))
	}

	s.register(builtins()...)
	return s
}

// Session is a command console bound to one device. Commands from several
// frontends are serialized.
type Session struct {
	mu     sync.Mutex
	dev    proto.Control
	album  *album.Album
	logger *zap.Logger
	echo   bool
	format drm.PixelFormat

	commands []*command
	index    map[string]*command
}

func (s *Session) register(cmds ...*command) {
	for _, c := range cmds {
		s.commands = append(s.commands, c)
		s.index[strings.ToLower(c.name)] = c
		for _, alias := range c.aliases {
			s.index[strings.ToLower(alias)] = c
		}
	}
}

// Execute runs a single command line, writing its output to w.
func (s *Session) Execute(w io.Writer, line string) error {
	return s.execute(context.Background(), w, line)
}

func (s *Session) execute(ctx context.Context, w io.Writer, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	cmd, ok := s.index[strings.ToLower(fields[0])]
	if !ok {
		return ErrUnknownCommand
	}

	args := fields[1:]
	if len(args) < cmd.min || len(args) > cmd.max {
		return errors.Errorf("usage: %s", cmd.usage())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.With(zap.String("cmd", cmd.name), zap.Strings("args", args)).Debug("execute")
	return cmd.run(ctx, s, w, args)
}

// Eval runs line and reports the outcome on w the way the console does.
// It returns false once the console should stop.
func (s *Session) Eval(ctx context.Context, w io.Writer, line string) bool {
	err := s.execute(ctx, w, line)
	switch {
	case err == nil:
	case errors.Is(err, ErrQuit):
		return false
	case errors.Is(err, ErrUnknownCommand):
		fmt.Fprintln(w, "Unknown command")
	default:
		s.logger.With(zap.String("line", line), zap.Error(err)).Debug("command failed")
		fmt.Fprintf(w, "\terror: %s\n", err)
	}
	return true
}

// Run reads commands from r until EOF, Quit or ctx is done.
func (s *Session) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, int(4*bytesize.KB)), int(maxLine))

	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			if s.echo {
				fmt.Fprintln(w, line)
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if !s.Eval(ctx, w, line) {
				return nil
			}
		}
	}
}

// Load fetches src through the album, uploads it and records the entry.
func (s *Session) Load(ctx context.Context, src string, format drm.PixelFormat) (drm.FramebufferHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load(ctx, src, format)
}

func (s *Session) load(ctx context.Context, src string, format drm.PixelFormat) (drm.FramebufferHandle, error) {
	img, err := s.album.Load(ctx, src)
	if err != nil {
		return 0, err
	}

	fb, err := s.dev.Upload(img, format)
	if err != nil {
		return 0, fmt.Errorf("upload %s failed: %w", src, err)
	}

	s.album.Add(album.Entry{
		Framebuffer: fb,
		Source:      src,
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		Format:      format,
	})

	s.logger.With(zap.String("src", src), zap.Uint32("fb", uint32(fb))).Info("uploaded")
	return fb, nil
}
