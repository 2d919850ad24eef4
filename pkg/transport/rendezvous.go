// Package transport implements the rendezvous handshake: a UNIX-domain
// stream socket used solely to hand the shared-memory fd to the renderer via
// SCM_RIGHTS ancillary data. No further protocol flows across the socket
// after that. This mirrors the lease-fd handoff in
// api/pkg/drm/manager.go/client.go, with the client/server roles swapped:
// here the bridge (emulator side) is the client and the renderer is the
// server, per spec §1.
package transport

import (
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// payload is the single dummy byte required so kernels that refuse
// zero-length control messages still accept the ancillary SCM_RIGHTS data.
var payload = []byte{0}

// Rendezvous is a lazily-connecting UNIX stream client that sends exactly
// one fd per region lifetime to the renderer process listening at addr.
type Rendezvous struct {
	addr string

	mu       sync.Mutex
	conn     *net.UnixConn
	fdSent   bool
	loggedNR bool // "not ready" logged once per disconnected stretch
}

// New creates a Rendezvous client for the given socket path. Connection is
// attempted lazily, on the first Connect/SendFD call.
func New(addr string) *Rendezvous {
	return &Rendezvous{addr: truncateSunPath(addr)}
}

// sunPathMax is the typical platform bound on struct sockaddr_un.sun_path.
const sunPathMax = 108

// truncateSunPath truncates (and the kernel will further null-pad) the
// socket path to the platform's sun_path bound, per spec §4.1.
func truncateSunPath(addr string) string {
	if len(addr) >= sunPathMax {
		return addr[:sunPathMax-1]
	}
	return addr
}

// Connect dials the renderer's socket if not already connected. Failure is
// silent and intended to be retried by the caller on the next refresh/write
// tick — the renderer may simply not be up yet.
func (r *Rendezvous) Connect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectLocked()
}

func (r *Rendezvous) connectLocked() {
	if r.conn != nil {
		return
	}

	c, err := net.Dial("unix", r.addr)
	if err != nil {
		r.fireNotReady()
		return
	}

	uc, ok := c.(*net.UnixConn)
	if !ok {
		c.Close()
		return
	}

	r.conn = uc
	r.loggedNR = false
	log.Info().Str("addr", r.addr).Msg("[transport] rendezvous connected")
}

func (r *Rendezvous) fireNotReady() {
	if r.loggedNR {
		return
	}
	r.loggedNR = true
	log.Debug().Str("addr", r.addr).Msg("[transport] renderer not ready, will retry")
}

// Connected reports whether the client currently holds an open connection.
func (r *Rendezvous) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

// SendFD sends fd to the renderer via SCM_RIGHTS. It is idempotent: a no-op
// if there is no peer, no fd to send, or the fd has already been sent for
// this region lifetime. On success it sets the internal "already sent" flag.
func (r *Rendezvous) SendFD(fd int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fdSent || fd < 0 {
		return
	}

	r.connectLocked()
	if r.conn == nil {
		return
	}

	rights := unix.UnixRights(fd)
	if _, _, err := r.conn.WriteMsgUnix(payload, rights, nil); err != nil {
		log.Warn().Err(err).Str("addr", r.addr).Msg("[transport] send fd failed, will retry after reconnect")
		r.conn.Close()
		r.conn = nil
		// fd_sent stays false: unlike the bug noted in spec §9(1), we must
		// NOT leave it true here, or a later reconnect would never resend.
		return
	}

	r.fdSent = true
	log.Info().Str("addr", r.addr).Int("fd", fd).Msg("[transport] fd sent to renderer")
}

// ResetFDSent clears the "already sent" flag so a newly (re)allocated region
// will have its fd sent again at the next handshake opportunity. Callers
// invoke this whenever the region they're guarding is replaced.
func (r *Rendezvous) ResetFDSent() {
	r.mu.Lock()
	r.fdSent = false
	r.mu.Unlock()
}

// FDSent reports whether the current fd has already been handed off.
func (r *Rendezvous) FDSent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fdSent
}

// Close tears down the connection. Per spec §9(1), disconnect always clears
// fd_sent — the next successful reconnect must resend to the new peer.
func (r *Rendezvous) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fdSent = false
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	if err != nil {
		return fmt.Errorf("transport: close: %w", err)
	}
	return nil
}
