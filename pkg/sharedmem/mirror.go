package sharedmem

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/jihwankim/spectrum-utils/pkg/reporting"
)

// Mirror wire message types.
const (
	MsgSHMInfo       uint32 = 1
	MsgRequestUpdate uint32 = 2
	MsgFullUpdate    uint32 = 3
	MsgPartialUpdate uint32 = 4
)

const messageHeaderSize = 8

// MessageHeader is the fixed framing of every mirror message: total
// size in bytes (header included) and message type, both little-endian
// u32.
type MessageHeader struct {
	Size uint32
	Type uint32
}

func validType(t uint32) bool {
	switch t {
	case MsgSHMInfo, MsgRequestUpdate, MsgFullUpdate, MsgPartialUpdate:
		return true
	}
	return false
}

// ReadMessageHeader decodes and validates a header from r.
func ReadMessageHeader(r io.Reader) (MessageHeader, error) {
	var buf [messageHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return MessageHeader{}, fmt.Errorf("%w: header read: %v", ErrBadMessage, err)
	}
	h := MessageHeader{
		Size: binary.LittleEndian.Uint32(buf[0:4]),
		Type: binary.LittleEndian.Uint32(buf[4:8]),
	}
	if !validType(h.Type) {
		return MessageHeader{}, fmt.Errorf("%w: invalid message type %d", ErrBadMessage, h.Type)
	}
	if h.Size < messageHeaderSize {
		return MessageHeader{}, fmt.Errorf("%w: size %d below header size", ErrBadMessage, h.Size)
	}
	return h, nil
}

// WriteMessage frames and writes one message.
func WriteMessage(w io.Writer, msgType uint32, body []byte) error {
	var buf [messageHeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(messageHeaderSize+len(body)))
	binary.LittleEndian.PutUint32(buf[4:8], msgType)
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return err
		}
	}
	return nil
}

// BodySize returns the payload size the header announces.
func (h MessageHeader) BodySize() int { return int(h.Size) - messageHeaderSize }

// Directory records which shared-memory keys remote hosts have set up
// as local mirrors, so that clients can share an existing mirror rather
// than opening another stream. Entries are keyed by (host, key).
type Directory struct {
	mu      sync.Mutex
	entries map[string]DirectoryEntry
}

// DirectoryEntry is one registered mirror.
type DirectoryEntry struct {
	Host string
	Key  string
}

// NewDirectory creates an empty mirror directory.
func NewDirectory() *Directory {
	return &Directory{entries: make(map[string]DirectoryEntry)}
}

func directoryKey(host, key string) string { return host + "\x00" + key }

// Add registers a (host, key) pair; duplicates are rejected.
func (d *Directory) Add(host, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := directoryKey(host, key)
	if _, ok := d.entries[k]; ok {
		return fmt.Errorf("%w: %s %s", ErrDuplicateMirror, host, key)
	}
	d.entries[k] = DirectoryEntry{Host: host, Key: key}
	return nil
}

// Remove drops a (host, key) pair if present.
func (d *Directory) Remove(host, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, directoryKey(host, key))
}

// Entries snapshots the registered mirrors.
func (d *Directory) Entries() []DirectoryEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := make([]DirectoryEntry, 0, len(d.entries))
	for _, e := range d.entries {
		result = append(result, e)
	}
	return result
}

// MirrorServer serves the shared-memory region to remote viewers, one
// worker goroutine per accepted connection. Workers read the region
// concurrently with binder updates; each counter is a single aligned
// 32-bit word, so torn words cannot be observed.
type MirrorServer struct {
	listener  net.Listener
	region    *Region
	directory *Directory
	log       *reporting.Logger
	wg        sync.WaitGroup
	closed    chan struct{}
	maxConns  int

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewMirrorServer listens on addr and starts accepting mirror clients.
// maxConns bounds the concurrent client count; 0 means unlimited.
func NewMirrorServer(addr string, maxConns int, region *Region, directory *Directory, logger *reporting.Logger) (*MirrorServer, error) {
	if logger == nil {
		logger = reporting.Discard()
	}
	if directory == nil {
		directory = NewDirectory()
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("mirror listen: %w", err)
	}
	s := &MirrorServer{
		listener:  l,
		maxConns:  maxConns,
		region:    region,
		directory: directory,
		log:       logger.Component("mirror"),
		closed:    make(chan struct{}),
		conns:     make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the listening address.
func (s *MirrorServer) Addr() net.Addr { return s.listener.Addr() }

// Directory returns the mirror directory.
func (s *MirrorServer) Directory() *Directory { return s.directory }

// Close stops accepting, shuts every client connection, and waits for
// the workers to drain.
func (s *MirrorServer) Close() error {
	close(s.closed)
	err := s.listener.Close()
	s.connMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()
	return err
}

func (s *MirrorServer) track(conn net.Conn) {
	s.connMu.Lock()
	s.conns[conn] = struct{}{}
	s.connMu.Unlock()
}

func (s *MirrorServer) untrack(conn net.Conn) {
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
}

func (s *MirrorServer) acceptLoop() {
	defer s.wg.Done()
	s.log.Info("mirror server listening", "address", s.listener.Addr().String())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
				s.log.Error("mirror accept failed", "error", err.Error())
				return
			}
		}
		if s.maxConns > 0 && s.activeConns() >= s.maxConns {
			s.log.Warn("mirror connection limit reached, refusing client",
				"peer", conn.RemoteAddr().String(), "limit", s.maxConns)
			conn.Close()
			continue
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *MirrorServer) activeConns() int {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return len(s.conns)
}

func peerHost(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}

func (s *MirrorServer) serveConn(conn net.Conn) {
	s.track(conn)
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	host := peerHost(conn)
	log := s.log.WithField("peer", conn.RemoteAddr().String())
	log.Debug("mirror client connected")

	var registeredKey string
	defer func() {
		if registeredKey != "" {
			s.directory.Remove(host, registeredKey)
		}
		log.Debug("mirror client disconnected")
	}()

	for {
		header, err := ReadMessageHeader(conn)
		if err != nil {
			// EOF after a complete exchange is a normal hangup; anything
			// else closes the connection just the same.
			return
		}
		switch header.Type {
		case MsgSHMInfo:
			body := make([]byte, header.BodySize())
			if _, err := io.ReadFull(conn, body); err != nil {
				log.Warn("short SHM_INFO body", "error", err.Error())
				return
			}
			key := string(body)
			if err := s.directory.Add(host, key); err != nil {
				log.Warn("duplicate mirror registration", "key", key)
				return
			}
			registeredKey = key
			log.Debug("mirror registered", "key", key)

		case MsgRequestUpdate:
			if header.BodySize() != 0 {
				log.Warn("REQUEST_UPDATE with unexpected body")
				return
			}
			if err := s.sendFullUpdate(conn); err != nil {
				log.Warn("update send failed", "error", err.Error())
				return
			}

		default:
			// FULL_UPDATE / PARTIAL_UPDATE are server-to-client only.
			log.Warn("unexpected client message", "type", header.Type)
			return
		}
	}
}

// sendFullUpdate ships the header and the used portion of the channel
// pool. With nothing bound only the header goes out.
func (s *MirrorServer) sendFullUpdate(conn net.Conn) error {
	used := s.region.UsedPoolBytes()
	payload := s.region.Bytes()[:len(s.region.HeaderBytes())+used]
	return WriteMessage(conn, MsgFullUpdate, payload)
}
