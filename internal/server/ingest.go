package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/krobus00/tick-ingestor/internal/config"
	"github.com/krobus00/tick-ingestor/internal/entity"
	"github.com/krobus00/tick-ingestor/internal/queue"
	"github.com/sirupsen/logrus"
)

const (
	defaultListenHost  = "0.0.0.0"
	defaultListenPort  = 5555
	defaultIdleTimeout = 30 * time.Second

	readChunkSize = 4096
)

// IngestServer accepts persistent TCP connections carrying newline-delimited
// JSON tick messages, normalizes them and pushes typed write operations onto
// the injected queue. One goroutine per connection; a connection failure
// never affects the listener or other connections.
type IngestServer struct {
	host        string
	port        int
	idleTimeout time.Duration

	queue    *queue.WriteQueue
	listener net.Listener
}

func New(cfg config.IngestConfig, q *queue.WriteQueue) *IngestServer {
	host := cfg.Host
	if host == "" {
		host = defaultListenHost
	}

	port := cfg.Port
	if port <= 0 {
		port = defaultListenPort
	}

	idleTimeout := cfg.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}

	return &IngestServer{
		host:        host,
		port:        port,
		idleTimeout: idleTimeout,
		queue:       q,
	}
}

// Listen binds the TCP listener without accepting yet, so the bootstrap can
// fail fast on a bad address before the batch writer starts.
func (s *IngestServer) Listen() error {
	listener, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		return err
	}

	s.listener = listener
	logrus.WithField("addr", listener.Addr().String()).Info("ingest server listening")

	return nil
}

// Addr reports the bound address; only valid after Listen.
func (s *IngestServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Serve runs the accept loop until the listener is closed or the context is
// cancelled.
func (s *IngestServer) Serve(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}

			logrus.Errorf("accept failed: %v", err)
			continue
		}

		go s.handleConn(ctx, conn)
	}
}

func (s *IngestServer) Shutdown() error {
	if s.listener == nil {
		return nil
	}

	return s.listener.Close()
}

func (s *IngestServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	log := logrus.WithFields(logrus.Fields{
		"conn_id":     uuid.NewString(),
		"remote_addr": conn.RemoteAddr().String(),
	})
	log.Info("connection established")

	buf := make([]byte, 0, readChunkSize)
	chunk := make([]byte, readChunkSize)

	for {
		if ctx.Err() != nil {
			return
		}

		if err := conn.SetReadDeadline(time.Now().Add(s.idleTimeout)); err != nil {
			log.Warnf("set read deadline failed: %v", err)
			return
		}

		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			buf = s.drainFrames(log, buf)
		}

		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				// Idle timeout is not an error, keep waiting.
				continue
			}

			if errors.Is(err, io.EOF) {
				log.Info("connection closed by peer")
			} else {
				log.Warnf("connection error: %v", err)
			}

			return
		}
	}
}

// drainFrames processes every complete newline-terminated frame in buf and
// returns the trailing partial frame for the next read.
func (s *IngestServer) drainFrames(log *logrus.Entry, buf []byte) []byte {
	for {
		idx := bytes.IndexByte(buf, '\n')
		if idx < 0 {
			return buf
		}

		s.processFrame(log, buf[:idx])
		buf = buf[idx+1:]
	}
}

// processFrame parses and routes one frame. Protocol and validation failures
// drop the frame with a log line; the connection survives.
func (s *IngestServer) processFrame(log *logrus.Entry, frame []byte) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return
	}

	var msg wireMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		log.Warnf("dropping malformed frame: %v", err)
		return
	}

	switch msg.Type {
	case messageTypeRaw:
		record, err := normalizeRaw(msg)
		if err != nil {
			log.Warnf("dropping raw_data message: %v", err)
			return
		}
		s.queue.Push(entity.NewRawWriteOp(record))
	case messageTypeContinuous:
		record, err := normalizeContinuous(msg)
		if err != nil {
			log.Warnf("dropping continuous_data message: %v", err)
			return
		}
		s.queue.Push(entity.NewContinuousWriteOp(record))
	default:
		log.Warnf("unknown message type: %q", msg.Type)
	}
}
