package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/auctiontimeline/config"
	"github.com/cloudx-io/auctiontimeline/store"
	"github.com/cloudx-io/auctiontimeline/timeline"
	timelineapi "github.com/cloudx-io/auctiontimeline/timelineapi"
)

const readTimeout = 30 * time.Second

// TimelineServer answers one JSON request per connection.
type TimelineServer struct {
	cfg       config.ServerConfig
	builder   *timeline.Builder
	sessions  *SessionManager
	snapshots SnapshotStore
}

func NewTimelineServer(cfg config.ServerConfig, builder *timeline.Builder, snapshots SnapshotStore) *TimelineServer {
	return &TimelineServer{
		cfg:       cfg,
		builder:   builder,
		sessions:  NewSessionManager(),
		snapshots: snapshots,
	}
}

func (s *TimelineServer) listen() (net.Listener, error) {
	switch s.cfg.Transport {
	case "vsock":
		listener, err := vsock.Listen(uint32(s.cfg.Port), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create vsock listener: %w", err)
		}
		return listener, nil
	case "tcp":
		listener, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Address, fmt.Sprint(s.cfg.Port)))
		if err != nil {
			return nil, fmt.Errorf("failed to create tcp listener: %w", err)
		}
		return listener, nil
	default:
		return nil, fmt.Errorf("unknown transport %q (must be vsock or tcp)", s.cfg.Transport)
	}
}

func (s *TimelineServer) Start(ctx context.Context) error {
	sessionTTL, err := time.ParseDuration(s.cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("invalid session ttl %q: %w", s.cfg.SessionTTL, err)
	}
	s.sessions.StartExpirationCleanup(ctx, time.Minute, sessionTTL)
	log.Printf("INFO: Session expiration cleanup started (interval: 1m, max age: %s)", sessionTTL)

	listener, err := s.listen()
	if err != nil {
		return err
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Printf("ERROR: Failed to close listener: %v", err)
		}
	}()

	log.Printf("INFO: Timeline server listening on %s %s", s.cfg.Transport, listener.Addr())

	return s.serve(ctx, listener)
}

// serve accepts connections until ctx is done or the listener is closed.
func (s *TimelineServer) serve(ctx context.Context, listener net.Listener) error {
	if s.cfg.MaxWorkers <= 0 {
		return fmt.Errorf("max workers must be positive, got %d", s.cfg.MaxWorkers)
	}
	semaphore := make(chan struct{}, s.cfg.MaxWorkers)

	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", s.cfg.MaxWorkers)

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("ERROR: Failed to accept connection: %v", err)
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }()
				s.handleConnection(ctx, c)
			}(conn)
		default:
			log.Printf("INFO: No workers available, rejecting connection (pool full)")
			if err := conn.Close(); err != nil {
				log.Printf("ERROR: Failed to close rejected connection: %v", err)
			}
		}
	}
}

func (s *TimelineServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic recovered in handleConnection: %v", r)
		}
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: Failed to close connection: %v", err)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		log.Printf("ERROR: Failed to read request: %v", err)
		return
	}

	response := s.dispatch(ctx, buf.Bytes())

	if err := json.NewEncoder(conn).Encode(response); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	}
}

// dispatch decodes one request and returns the response to encode.
func (s *TimelineServer) dispatch(ctx context.Context, data []byte) any {
	var baseReq struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &baseReq); err != nil {
		log.Printf("ERROR: Failed to decode base request: %v", err)
		return timelineapi.NewErrorResponse(fmt.Sprintf("Failed to decode request: %v", err))
	}

	log.Printf("INFO: Received request type: %s", baseReq.Type)

	switch baseReq.Type {
	case timelineapi.TypePing:
		log.Printf("INFO: Responding to ping with pong")
		return timelineapi.PingResponse{
			Type:      timelineapi.TypePong,
			Message:   "Timeline server is healthy",
			Timestamp: time.Now().Unix(),
		}

	case timelineapi.TypeBuildRequest:
		var req timelineapi.BuildRequest
		if err := json.Unmarshal(data, &req); err != nil {
			log.Printf("ERROR: Failed to decode build request: %v", err)
			return timelineapi.NewErrorResponse(fmt.Sprintf("Failed to decode build request: %v", err))
		}
		return ProcessBuildRequest(ctx, s.builder, s.sessions, s.snapshots, req)

	default:
		return timelineapi.NewErrorResponse(fmt.Sprintf("Unknown request type: %s", baseReq.Type))
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("ERROR: Failed to load .env: %v", err)
	}

	cfg, err := config.Load(os.Getenv("AUCTION_TIMELINE_CONFIG"))
	if err != nil {
		return err
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}
	builder := timeline.NewBuilder(catalog, cfg.Settings(), slog.Default())

	var snapshots SnapshotStore
	if cfg.Storage.SQLitePath != "" {
		sqliteStore, err := store.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		defer sqliteStore.Close()
		snapshots = sqliteStore
		log.Printf("INFO: Snapshot history enabled at %s", cfg.Storage.SQLitePath)
	}

	return NewTimelineServer(cfg.Server, builder, snapshots).Start(context.Background())
}

func main() {
	log.Fatal(run())
}
