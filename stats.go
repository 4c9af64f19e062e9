package adnl

import (
	"sync"
	"time"
)

// Stats is a snapshot of one client's counters. All fields are safe to
// read without synchronization once returned from the API, as they are
// snapshot copies.
type Stats struct {
	// Server is the host:port this client talks to.
	Server string

	// Connected indicates whether the connection is currently ready.
	Connected bool

	// ConnectedAt is when the current connection was established.
	// Zero value if not connected.
	ConnectedAt time.Time

	// TotalConnectTime is the cumulative duration of all connections.
	TotalConnectTime time.Duration

	// ConnectionCount is the total number of successful connections
	// (including reconnects).
	ConnectionCount int

	// QueriesSent is the total number of queries sent.
	QueriesSent int64

	// AnswersReceived is the total number of answers matched to a query.
	AnswersReceived int64

	// QueryTimeouts is the number of queries that expired unanswered.
	QueryTimeouts int64

	// UnmatchedAnswers is the number of answers whose id matched no
	// pending query.
	UnmatchedAnswers int64

	// FramesReceived is the total number of decrypted inbound frames.
	FramesReceived int64

	// BytesSent is the total query payload bytes sent.
	BytesSent int64

	// BytesReceived is the total answer and frame payload bytes received.
	BytesReceived int64

	// LastQueryAt is when a query was last sent.
	LastQueryAt time.Time

	// LastAnswerAt is when an answer last arrived.
	LastAnswerAt time.Time
}

// statsCounters is the internal mutable counter set behind Stats.
type statsCounters struct {
	mu sync.RWMutex

	connectedAt      time.Time
	totalConnectTime time.Duration
	connectionCount  int

	queriesSent      int64
	answersReceived  int64
	queryTimeouts    int64
	unmatchedAnswers int64
	framesReceived   int64
	bytesSent        int64
	bytesReceived    int64

	lastQueryAt  time.Time
	lastAnswerAt time.Time
}

func newStatsCounters() *statsCounters {
	return &statsCounters{}
}

func (s *statsCounters) connected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectedAt = time.Now()
	s.connectionCount++
}

func (s *statsCounters) disconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connectedAt.IsZero() {
		s.totalConnectTime += time.Since(s.connectedAt)
		s.connectedAt = time.Time{}
	}
}

func (s *statsCounters) querySent(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queriesSent++
	s.bytesSent += int64(size)
	s.lastQueryAt = time.Now()
}

func (s *statsCounters) answerReceived(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answersReceived++
	s.bytesReceived += int64(size)
	s.lastAnswerAt = time.Now()
}

func (s *statsCounters) queryTimedOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryTimeouts++
}

func (s *statsCounters) unmatchedAnswer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unmatchedAnswers++
}

func (s *statsCounters) frameReceived(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesReceived++
	s.bytesReceived += int64(size)
}

// snapshot copies the counters into an immutable Stats value.
func (s *statsCounters) snapshot(server string, connected bool) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Server:           server,
		Connected:        connected,
		ConnectedAt:      s.connectedAt,
		TotalConnectTime: s.totalConnectTime,
		ConnectionCount:  s.connectionCount,
		QueriesSent:      s.queriesSent,
		AnswersReceived:  s.answersReceived,
		QueryTimeouts:    s.queryTimeouts,
		UnmatchedAnswers: s.unmatchedAnswers,
		FramesReceived:   s.framesReceived,
		BytesSent:        s.bytesSent,
		BytesReceived:    s.bytesReceived,
		LastQueryAt:      s.lastQueryAt,
		LastAnswerAt:     s.lastAnswerAt,
	}

	// A live session counts toward the cumulative connect time.
	if connected && !s.connectedAt.IsZero() {
		stats.TotalConnectTime += time.Since(s.connectedAt)
	}
	return stats
}

// Stats returns a snapshot of the client's counters.
func (c *Client) Stats() Stats {
	return c.stats.snapshot(c.server.Addr(), c.State() == StateReady)
}
