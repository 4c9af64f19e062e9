package connection

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dzeta-tech/adnl/internal/testutil"
)

func testPeerConfig(t *testing.T, peer *testutil.Peer) Config {
	t.Helper()
	return Config{
		Addr:             peer.Addr(),
		PeerPublic:       peer.PublicKey(),
		ConnectTimeout:   5 * time.Second,
		HandshakeTimeout: 5 * time.Second,
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"nil public key", Config{Addr: "127.0.0.1:1"}},
		{"short public key", Config{Addr: "127.0.0.1:1", PeerPublic: make([]byte, 16)}},
		{"empty address", Config{PeerPublic: pub}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("New() should fail")
			}
		})
	}
}

func TestConn_ConnectAndEcho(t *testing.T) {
	peer, err := testutil.NewPeer()
	if err != nil {
		t.Fatalf("failed to start peer: %v", err)
	}
	defer peer.Close()

	conn, err := New(testPeerConfig(t, peer))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if state := conn.State(); state != StateReady {
		t.Fatalf("state = %s after Connect, want Ready", state)
	}

	payload := []byte("hello over the encrypted channel")
	if err := conn.Write(ctx, payload); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	select {
	case frame := <-conn.Frames():
		if !bytes.Equal(frame.Payload, payload) {
			t.Errorf("echo payload = %q, want %q", frame.Payload, payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for echo frame")
	case <-conn.Done():
		t.Fatalf("connection closed: %v", conn.Err())
	}
}

func TestConn_ConnectTwiceFails(t *testing.T) {
	peer, err := testutil.NewPeer()
	if err != nil {
		t.Fatalf("failed to start peer: %v", err)
	}
	defer peer.Close()

	conn, err := New(testPeerConfig(t, peer))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	err = conn.Connect(ctx)
	if !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("second Connect error = %v, want ErrAlreadyConnected", err)
	}
}

func TestConn_WriteBeforeConnect(t *testing.T) {
	peer, err := testutil.NewPeer()
	if err != nil {
		t.Fatalf("failed to start peer: %v", err)
	}
	defer peer.Close()

	conn, err := New(testPeerConfig(t, peer))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	err = conn.Write(context.Background(), []byte("too early"))
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Write error = %v, want ErrClosed", err)
	}
}

func TestConn_HandshakeTimeout(t *testing.T) {
	peer, err := testutil.NewPeer(testutil.WithoutAck())
	if err != nil {
		t.Fatalf("failed to start peer: %v", err)
	}
	defer peer.Close()

	cfg := testPeerConfig(t, peer)
	cfg.HandshakeTimeout = 200 * time.Millisecond

	conn, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer conn.Close()

	err = conn.Connect(context.Background())
	if !errors.Is(err, ErrHandshakeTimeout) {
		t.Fatalf("Connect error = %v, want ErrHandshakeTimeout", err)
	}
	if state := conn.State(); state != StateClosed {
		t.Errorf("state = %s after handshake timeout, want Closed", state)
	}
}

func TestConn_ConnectContextCancelled(t *testing.T) {
	peer, err := testutil.NewPeer(testutil.WithoutAck())
	if err != nil {
		t.Fatalf("failed to start peer: %v", err)
	}
	defer peer.Close()

	conn, err := New(testPeerConfig(t, peer))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	err = conn.Connect(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Connect error = %v, want context.Canceled", err)
	}
	if state := conn.State(); state != StateClosed {
		t.Errorf("state = %s after cancelled connect, want Closed", state)
	}
}

func TestConn_DialFailure(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	conn, err := New(Config{
		Addr:           "127.0.0.1:1",
		PeerPublic:     pub,
		ConnectTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := conn.Connect(context.Background()); err == nil {
		t.Fatal("Connect to a dead port should fail")
	}
	if state := conn.State(); state != StateClosed {
		t.Errorf("state = %s after dial failure, want Closed", state)
	}
}

func TestConn_CloseIdempotent(t *testing.T) {
	peer, err := testutil.NewPeer()
	if err != nil {
		t.Fatalf("failed to start peer: %v", err)
	}
	defer peer.Close()

	conn, err := New(testPeerConfig(t, peer))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	conn.Close()
	conn.Close()
	conn.Close()

	if state := conn.State(); state != StateClosed {
		t.Errorf("state = %s after Close, want Closed", state)
	}
	if err := conn.Err(); err != nil {
		t.Errorf("Err() = %v after clean Close, want nil", err)
	}

	select {
	case <-conn.Done():
	default:
		t.Error("Done channel should be closed")
	}
}

func TestConn_UnsolicitedFrameDelivered(t *testing.T) {
	pushed := []byte("server push")
	peer, err := testutil.NewPeer(testutil.WithUnsolicited(pushed))
	if err != nil {
		t.Fatalf("failed to start peer: %v", err)
	}
	defer peer.Close()

	conn, err := New(testPeerConfig(t, peer))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case frame := <-conn.Frames():
		if !bytes.Equal(frame.Payload, pushed) {
			t.Errorf("frame payload = %q, want %q", frame.Payload, pushed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pushed frame")
	case <-conn.Done():
		t.Fatalf("connection closed: %v", conn.Err())
	}
}

func TestConn_PeerDisconnect(t *testing.T) {
	peer, err := testutil.NewPeer()
	if err != nil {
		t.Fatalf("failed to start peer: %v", err)
	}

	conn, err := New(testPeerConfig(t, peer))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	peer.Close()

	select {
	case <-conn.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("connection did not notice peer disconnect")
	}
	if state := conn.State(); state != StateClosed {
		t.Errorf("state = %s after peer disconnect, want Closed", state)
	}
	if err := conn.Err(); err == nil {
		t.Error("Err() should report the read failure")
	}
}

func TestConn_Reconnect(t *testing.T) {
	peer, err := testutil.NewPeer()
	if err != nil {
		t.Fatalf("failed to start peer: %v", err)
	}
	defer peer.Close()

	conn, err := New(testPeerConfig(t, peer))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for cycle := 0; cycle < 3; cycle++ {
		if err := conn.Connect(ctx); err != nil {
			t.Fatalf("cycle %d: Connect failed: %v", cycle, err)
		}
		if err := conn.Write(ctx, []byte("ping body")); err != nil {
			t.Fatalf("cycle %d: Write failed: %v", cycle, err)
		}
		select {
		case <-conn.Frames():
		case <-time.After(5 * time.Second):
			t.Fatalf("cycle %d: no echo", cycle)
		}
		conn.Close()
	}
}

func TestConn_ConcurrentWrites(t *testing.T) {
	peer, err := testutil.NewPeer()
	if err != nil {
		t.Fatalf("failed to start peer: %v", err)
	}
	defer peer.Close()

	conn, err := New(testPeerConfig(t, peer))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			payload := bytes.Repeat([]byte{byte(n)}, 64)
			if err := conn.Write(ctx, payload); err != nil {
				t.Errorf("writer %d: Write failed: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	// Every echo decrypting cleanly proves the write order matched the
	// cipher keystream order.
	for i := 0; i < writers; i++ {
		select {
		case frame := <-conn.Frames():
			if len(frame.Payload) != 64 {
				t.Errorf("echo %d: payload size = %d, want 64", i, len(frame.Payload))
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("echo %d never arrived", i)
		case <-conn.Done():
			t.Fatalf("connection closed: %v", conn.Err())
		}
	}
}

func TestConn_Events(t *testing.T) {
	peer, err := testutil.NewPeer()
	if err != nil {
		t.Fatalf("failed to start peer: %v", err)
	}
	defer peer.Close()

	var mu sync.Mutex
	var states []State

	cfg := testPeerConfig(t, peer)
	cfg.OnEvent = func(e Event) {
		mu.Lock()
		states = append(states, e.State)
		mu.Unlock()
	}

	conn, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	conn.Close()

	mu.Lock()
	got := append([]State(nil), states...)
	mu.Unlock()

	want := []State{StateConnecting, StateHandshaking, StateReady, StateClosing, StateClosed}
	if len(got) != len(want) {
		t.Fatalf("event states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event states = %v, want %v", got, want)
		}
	}
}
