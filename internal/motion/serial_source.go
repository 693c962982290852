package motion

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/jacksonchui/Social-Media-Intervention/internal/orientation"
)

// SerialSource reads "roll,pitch,yaw" lines from a serial board, such as
// a microcontroller running its own sensor fusion.
type SerialSource struct {
	port   io.ReadWriteCloser
	name   string
	logger *slog.Logger
	latest latest
	done   chan struct{}
}

var (
	_ orientation.Source = (*SerialSource)(nil)
	_ Prober             = (*SerialSource)(nil)
)

// NewSerialSource opens portName at baud and starts reading lines. A nil
// logger discards output.
func NewSerialSource(portName string, baud int, logger *slog.Logger) (*SerialSource, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baud),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", portName, err)
	}

	s := newSerialSource(port, portName, logger)
	s.logger.Info("serial port opened", "port", portName, "baud", baud)
	return s, nil
}

func newSerialSource(port io.ReadWriteCloser, name string, logger *slog.Logger) *SerialSource {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &SerialSource{port: port, name: name, logger: logger, done: make(chan struct{})}
	go s.readLoop()
	return s
}

func (s *SerialSource) readLoop() {
	defer close(s.done)

	reader := bufio.NewReader(s.port)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			s.latest.fail(fmt.Errorf("serial %s: %w", s.name, err))
			return
		}

		line = strings.TrimSpace(line)
		// Boards print banners and comments on boot.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// A corrupt line fails the samples taken until the next good one.
		a, err := ParseAttitudeLine(line)
		if err != nil {
			s.logger.Debug("serial line rejected", "port", s.name, "err", err)
			s.latest.fail(fmt.Errorf("serial %s: %w", s.name, err))
			continue
		}
		s.latest.set(a)
	}
}

func (s *SerialSource) Next() (orientation.Attitude, error) {
	return s.latest.Next()
}

func (s *SerialSource) Probe(_ context.Context) error {
	select {
	case <-s.done:
		return ErrDeviceMotionUnavailable
	default:
	}
	if !s.latest.received() {
		return ErrReferenceFrameUnavailable
	}
	return nil
}

// Close closes the port and waits for the reader to exit.
func (s *SerialSource) Close() error {
	err := s.port.Close()
	<-s.done
	return err
}
