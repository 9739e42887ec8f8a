package transport

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/edge-infer/scheduler/wire"
)

func TestBindRemovesStaleSocket(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sched.sock")

	first, err := Bind(path)
	if err != nil {
		t.Fatalf("first Bind: %v", err)
	}
	first.Close()

	// Recreate a stale file at the same path, as if a prior process died
	// without cleaning up.
	stale, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		t.Fatalf("recreate stale socket: %v", err)
	}
	stale.Close()

	second, err := Bind(path)
	if err != nil {
		t.Fatalf("second Bind should remove the stale socket: %v", err)
	}
	defer second.Close()
}

func TestSendReceiveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	schedPath := filepath.Join(dir, "sched.sock")
	peerPath := filepath.Join(dir, "peer.sock")

	sched, err := Bind(schedPath)
	if err != nil {
		t.Fatalf("Bind scheduler: %v", err)
	}
	defer sched.Close()

	peer, err := Bind(peerPath)
	if err != nil {
		t.Fatalf("Bind peer: %v", err)
	}
	defer peer.Close()

	var out wire.Packet
	out.RuntimeID = 42
	out.CurrentState = wire.StateInitialize
	if err := out.SetLatency(nil); err != nil {
		t.Fatalf("SetLatency: %v", err)
	}
	if err := out.SetPlan(nil); err != nil {
		t.Fatalf("SetPlan: %v", err)
	}

	peerAddr, err := net.ResolveUnixAddr("unixgram", peerPath)
	if err != nil {
		t.Fatalf("resolve peer addr: %v", err)
	}

	go func() {
		sched.Send(&out, peerAddr)
	}()

	in, from, err := peer.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if in.RuntimeID != 42 || in.CurrentState != wire.StateInitialize {
		t.Errorf("received packet mismatch: %+v", in)
	}
	if from == nil {
		t.Error("expected sender address, got nil")
	}
}

func TestReceiveRejectsShortDatagram(t *testing.T) {
	dir := t.TempDir()
	schedPath := filepath.Join(dir, "sched.sock")
	peerPath := filepath.Join(dir, "peer.sock")

	sched, err := Bind(schedPath)
	if err != nil {
		t.Fatalf("Bind scheduler: %v", err)
	}
	defer sched.Close()

	rawPeer, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: peerPath, Net: "unixgram"})
	if err != nil {
		t.Fatalf("listen raw peer: %v", err)
	}
	defer rawPeer.Close()

	schedAddr, err := net.ResolveUnixAddr("unixgram", schedPath)
	if err != nil {
		t.Fatalf("resolve scheduler addr: %v", err)
	}
	if _, err := rawPeer.WriteToUnix([]byte("not a packet"), schedAddr); err != nil {
		t.Fatalf("write short datagram: %v", err)
	}

	if _, _, err := sched.Receive(); err == nil {
		t.Fatal("expected ErrShortRead for malformed datagram")
	}
}
