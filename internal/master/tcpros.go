package master

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"
)

const (
	// MaxHeaderSize bounds the connection header read from a service provider.
	MaxHeaderSize = 2048

	// DefaultHandshakeTimeout applies when a Prober has no timeout set.
	DefaultHandshakeTimeout = 5 * time.Second
)

// HandshakeTimeoutError reports a probe that did not complete in time.
type HandshakeTimeoutError struct {
	Service string
	Addr    string
	Err     error
}

func (e *HandshakeTimeoutError) Error() string {
	return fmt.Sprintf("handshake with %s at %s timed out: %v", e.Service, e.Addr, e.Err)
}

func (e *HandshakeTimeoutError) Unwrap() error { return e.Err }

// HandshakeProtocolError reports a malformed or negative handshake reply.
type HandshakeProtocolError struct {
	Service string
	Msg     string
}

func (e *HandshakeProtocolError) Error() string {
	return fmt.Sprintf("handshake with %s: %s", e.Service, e.Msg)
}

// ParseRosrpcURI returns the host:port address of a rosrpc://host:port URI.
func ParseRosrpcURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid rosrpc uri %q: %w", uri, err)
	}
	if u.Scheme != "rosrpc" {
		return "", fmt.Errorf("invalid rosrpc uri %q: scheme must be rosrpc", uri)
	}
	if u.Hostname() == "" || u.Port() == "" {
		return "", fmt.Errorf("invalid rosrpc uri %q: host and port are required", uri)
	}
	return net.JoinHostPort(u.Hostname(), u.Port()), nil
}

// WriteHeader writes a TCPROS connection header: a little-endian uint32 total
// length followed by one length-prefixed "key=value" record per field. Keys
// are written in sorted order.
func WriteHeader(w io.Writer, fields map[string]string) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	// Reserve the total length prefix and patch it once the records are in.
	buf := make([]byte, 4, 64)
	for _, k := range keys {
		record := k + "=" + fields[k]
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(record)))
		buf = append(buf, record...)
	}
	binary.LittleEndian.PutUint32(buf, uint32(len(buf)-4))
	_, err := w.Write(buf)
	return err
}

// ReadHeader reads one TCPROS connection header of at most limit bytes.
func ReadHeader(r io.Reader, limit int) (map[string]string, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, fmt.Errorf("read header length: %w", err)
	}
	if int(size) > limit {
		return nil, fmt.Errorf("header of %d bytes exceeds limit of %d", size, limit)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	return decodeHeader(body)
}

func decodeHeader(body []byte) (map[string]string, error) {
	fields := make(map[string]string)
	for len(body) > 0 {
		if len(body) < 4 {
			return nil, fmt.Errorf("truncated field length")
		}
		n := binary.LittleEndian.Uint32(body)
		body = body[4:]
		if uint64(n) > uint64(len(body)) {
			return nil, fmt.Errorf("field of %d bytes overruns header", n)
		}
		record := string(body[:n])
		body = body[n:]
		k, v, ok := strings.Cut(record, "=")
		if !ok {
			return nil, fmt.Errorf("field %q has no '='", record)
		}
		fields[k] = v
	}
	return fields, nil
}

// Prober asks service providers for their type using a TCPROS probe.
type Prober struct {
	CallerID string
	Timeout  time.Duration
}

// ServiceType connects to the provider at uri and returns the type it
// reports for service. The connection is always closed before returning.
func (p *Prober) ServiceType(ctx context.Context, service, uri string) (string, error) {
	addr, err := ParseRosrpcURI(uri)
	if err != nil {
		return "", err
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if isTimeout(err) {
			return "", &HandshakeTimeoutError{Service: service, Addr: addr, Err: err}
		}
		return "", fmt.Errorf("dial %s for %s: %w", addr, service, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", fmt.Errorf("set deadline: %w", err)
	}

	request := map[string]string{
		"probe":    "1",
		"md5sum":   "*",
		"callerid": p.CallerID,
		"service":  service,
	}
	if err := WriteHeader(conn, request); err != nil {
		return "", p.wrap(service, addr, err)
	}
	reply, err := ReadHeader(conn, MaxHeaderSize)
	if err != nil {
		return "", p.wrap(service, addr, err)
	}

	if msg, ok := reply["error"]; ok {
		return "", &HandshakeProtocolError{Service: service, Msg: "provider error: " + msg}
	}
	typ := reply["type"]
	if typ == "" {
		return "", &HandshakeProtocolError{Service: service, Msg: "reply has no type field"}
	}
	return typ, nil
}

func (p *Prober) wrap(service, addr string, err error) error {
	if isTimeout(err) {
		return &HandshakeTimeoutError{Service: service, Addr: addr, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("handshake with %s at %s: %w", service, addr, err)
	}
	return &HandshakeProtocolError{Service: service, Msg: err.Error()}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
