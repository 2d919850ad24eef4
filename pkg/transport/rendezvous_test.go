package transport

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fakeRenderer is a minimal stand-in for the renderer process: it listens on
// a UNIX socket, accepts one connection, and reads back the fd sent via
// SCM_RIGHTS. Modeled on the accept/read-SCM_RIGHTS shape of
// api/pkg/drm/client.go's RequestLease, with client/server roles reversed to
// match this bridge's client-dials-renderer convention.
func fakeRenderer(t *testing.T, sockPath string) (received chan int) {
	t.Helper()
	received = make(chan int, 8)

	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)

	go func() {
		defer ln.Close()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				uc := c.(*net.UnixConn)
				buf := make([]byte, 1)
				oob := make([]byte, unix.CmsgLen(4))
				_, oobn, _, _, err := uc.ReadMsgUnix(buf, oob)
				if err != nil {
					return
				}
				scms, err := unix.ParseSocketControlMessage(oob[:oobn])
				if err != nil {
					return
				}
				for _, scm := range scms {
					fds, err := unix.ParseUnixRights(&scm)
					if err != nil {
						continue
					}
					for _, fd := range fds {
						received <- fd
					}
				}
			}(conn)
		}
	}()

	return received
}

func tempSocketPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "juke-test.sock")
}

func TestRendezvousSendFD(t *testing.T) {
	sockPath := tempSocketPath(t)
	received := fakeRenderer(t, sockPath)

	r := New(sockPath)
	defer r.Close()

	rd, wr, err := os.Pipe()
	require.NoError(t, err)
	defer rd.Close()
	defer wr.Close()

	r.SendFD(int(wr.Fd()))

	select {
	case fd := <-received:
		require.GreaterOrEqual(t, fd, 0)
	case <-time.After(2 * time.Second):
		t.Fatal("renderer never received fd")
	}

	require.True(t, r.FDSent())
}

func TestRendezvousSendFDIdempotent(t *testing.T) {
	sockPath := tempSocketPath(t)
	received := fakeRenderer(t, sockPath)

	r := New(sockPath)
	defer r.Close()

	rd, wr, err := os.Pipe()
	require.NoError(t, err)
	defer rd.Close()
	defer wr.Close()

	r.SendFD(int(wr.Fd()))
	<-received

	// Second call is a no-op: fd already sent, nothing new arrives.
	r.SendFD(int(wr.Fd()))

	select {
	case <-received:
		t.Fatal("SendFD should be idempotent after a successful send")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRendezvousResetFDSentOnReplace(t *testing.T) {
	sockPath := tempSocketPath(t)
	fakeRenderer(t, sockPath)

	r := New(sockPath)
	defer r.Close()

	rd, wr, err := os.Pipe()
	require.NoError(t, err)
	defer rd.Close()
	defer wr.Close()

	r.SendFD(int(wr.Fd()))
	require.Eventually(t, r.FDSent, time.Second, 10*time.Millisecond)

	// Region replaced: caller must reset fd_sent so the next fd is sent.
	r.ResetFDSent()
	require.False(t, r.FDSent())
}

func TestRendezvousConnectRetriesSilently(t *testing.T) {
	// No listener at this path: Connect must not panic or error loudly.
	r := New(filepath.Join(t.TempDir(), "nobody-home.sock"))
	defer r.Close()

	require.NotPanics(t, func() {
		r.Connect()
		r.Connect()
	})
	require.False(t, r.Connected())
}

func TestSunPathTruncation(t *testing.T) {
	padding := make([]byte, 200)
	for i := range padding {
		padding[i] = 'a'
	}
	long := "/tmp/" + string(padding)

	r := New(long)
	require.Less(t, len(r.addr), sunPathMax)
}
