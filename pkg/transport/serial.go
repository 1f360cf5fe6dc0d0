package transport

import (
	"fmt"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the board UART configuration (8N1).
const DefaultBaudRate = 115200

// SerialPort adapts a physical UART to the Port interface. A reader
// goroutine pumps incoming bytes into an internal queue so the polling
// loop sees the same Available/ReadByte surface as the in-memory pipe.
type SerialPort struct {
	port serial.Port
	rx   *byteQueue

	mu     sync.Mutex
	closed bool
}

// OpenSerial opens the UART at path with the given baud rate (8N1).
// Pass 0 to use DefaultBaudRate.
func OpenSerial(path string, baud int) (*SerialPort, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoDevice, path, err)
	}

	s := &SerialPort{port: port, rx: newByteQueue()}
	go s.readLoop()
	return s, nil
}

// readLoop pumps the UART into the receive queue until the port closes.
func (s *SerialPort) readLoop() {
	buf := make([]byte, 64)
	for {
		n, err := s.port.Read(buf)
		if n > 0 {
			if pushErr := s.rx.push(buf[:n]); pushErr != nil {
				return
			}
		}
		if err != nil {
			s.rx.close()
			return
		}
	}
}

// Available reports whether a byte is buffered.
func (s *SerialPort) Available() bool {
	return s.rx.available()
}

// ReadByte pops one received byte.
func (s *SerialPort) ReadByte() (byte, error) {
	return s.rx.pop()
}

// Write sends b over the UART, blocking until the driver accepts it.
func (s *SerialPort) Write(b []byte) (int, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, ErrPortClosed
	}
	return s.port.Write(b)
}

// Close shuts the UART down and stops the reader.
func (s *SerialPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.rx.close()
	return s.port.Close()
}

var _ Port = (*SerialPort)(nil)
