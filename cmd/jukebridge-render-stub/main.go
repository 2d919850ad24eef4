// jukebridge-render-stub is a minimal renderer-side test harness: it plays
// the renderer's role in the rendezvous handshake (socket server), accepts
// one shared-memory fd via SCM_RIGHTS, maps it, and periodically reports
// the display header's frame_counter/cursor_version so the bridge's
// producer side can be exercised end-to-end without a full compositor.
package main

import (
	"flag"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"

	"github.com/anderstorpsfestivalen/jukebridge/pkg/display"
)

func main() {
	sockPath := flag.String("socket", envOrDefault("JUKE_DISPLAY_SOCKET", "/tmp/juke-display.sock"), "rendezvous socket path")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	os.Remove(*sockPath)

	ln, err := net.Listen("unix", *sockPath)
	if err != nil {
		log.Fatal().Err(err).Str("socket", *sockPath).Msg("[render-stub] listen failed")
	}
	defer ln.Close()

	log.Info().Str("socket", *sockPath).Msg("[render-stub] waiting for producer")

	fd, err := acceptFD(ln)
	if err != nil {
		log.Fatal().Err(err).Msg("[render-stub] failed to receive region fd")
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		log.Fatal().Err(err).Msg("[render-stub] fstat on received fd failed")
	}

	mapSize := int(stat.Size)
	if mapSize < display.HeaderSize {
		log.Fatal().Int("size", mapSize).Msg("[render-stub] region too small for a display header")
	}

	data, err := unix.Mmap(fd, 0, mapSize, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		log.Fatal().Err(err).Msg("[render-stub] mmap failed")
	}
	defer unix.Munmap(data)

	log.Info().Int("bytes", mapSize).Msg("[render-stub] mapped region, polling header")

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		reportHeader(data)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// acceptFD accepts exactly one connection and extracts the single fd sent
// via SCM_RIGHTS ancillary data, mirroring the accept-then-parse shape of
// api/cmd/helix-drm-manager/test_client.go's requestLease.
func acceptFD(ln net.Listener) (int, error) {
	conn, err := ln.Accept()
	if err != nil {
		return -1, err
	}
	defer conn.Close()

	uc := conn.(*net.UnixConn)
	buf := make([]byte, 1)
	oob := make([]byte, unix.CmsgLen(4))

	_, oobn, _, _, err := uc.ReadMsgUnix(buf, oob)
	if err != nil {
		return -1, err
	}

	scms, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return -1, err
	}
	for _, scm := range scms {
		fds, err := unix.ParseUnixRights(&scm)
		if err != nil || len(fds) == 0 {
			continue
		}
		return fds[0], nil
	}
	return -1, os.ErrInvalid
}

func reportHeader(buf []byte) {
	d := display.ReadDiagnostics(buf)
	log.Info().
		Uint32("magic", d.Magic).
		Uint32("version", d.Version).
		Uint32("width", d.Width).
		Uint32("height", d.Height).
		Uint64("frame_counter", d.FrameCounter).
		Uint32("cursor_version", d.CursorVersion).
		Msg("[render-stub] header snapshot")
}
