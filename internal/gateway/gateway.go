// Package gateway reads and writes the GGDirect discovery file: a well-known
// filesystem path holding the decimal TCP port the service listens on. The
// service owns and writes the file; clients only read it.
package gateway

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
)

// DefaultPath is where the GGDirect service publishes its rendezvous port.
const DefaultPath = "/tmp/GGDirect.gateway"

var (
	ErrNotFound       = errors.New("gateway: discovery file not found")
	ErrMalformedValue = errors.New("gateway: malformed port value")
)

// Endpoint identifies the service's rendezvous TCP listener. Resolved once
// per session and immutable thereafter.
type Endpoint struct {
	Host string
	Port uint16
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// Resolve reads the discovery file once. ErrNotFound means the service is
// not running; ErrMalformedValue means the content is not a valid port. No
// retries: this is a precondition check before any socket I/O.
func Resolve(path string) (Endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Endpoint{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Endpoint{}, fmt.Errorf("gateway: read %s: %w", path, err)
	}
	text := strings.TrimSpace(string(data))
	port, err := strconv.ParseUint(text, 10, 16)
	if err != nil || port == 0 {
		return Endpoint{}, fmt.Errorf("%w: %q in %s", ErrMalformedValue, text, path)
	}
	return Endpoint{Host: "127.0.0.1", Port: uint16(port)}, nil
}

// Publish writes the service's listening port to the discovery file.
func Publish(path string, port uint16) error {
	if err := os.WriteFile(path, []byte(strconv.FormatUint(uint64(port), 10)), 0o644); err != nil {
		return fmt.Errorf("gateway: publish %s: %w", path, err)
	}
	return nil
}

// Remove deletes the discovery file. A missing file is not an error so that
// shutdown paths can call it unconditionally.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("gateway: remove %s: %w", path, err)
	}
	return nil
}
