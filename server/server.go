package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/mdlayher/vsock"
	"go.uber.org/zap"

	"github.com/cloudx-io/lotbid/audit"
	"github.com/cloudx-io/lotbid/config"
	"github.com/cloudx-io/lotbid/dealapi"
)

// DealServer answers one JSON request per connection.
type DealServer struct {
	cfg     *config.ServerConfig
	library *config.Library
	signer  *audit.Signer // nil disables signed decisions
	logger  *zap.Logger
}

func NewDealServer(cfg *config.ServerConfig, library *config.Library, signer *audit.Signer, logger *zap.Logger) *DealServer {
	if library == nil {
		library = config.DefaultLibrary()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DealServer{
		cfg:     cfg,
		library: library,
		signer:  signer,
		logger:  logger,
	}
}

// Start listens on the configured transport and serves until ctx is done.
func (s *DealServer) Start(ctx context.Context) error {
	listener, err := s.listen()
	if err != nil {
		return err
	}
	defer func() {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("failed to close listener", zap.Error(err))
		}
	}()

	return s.serve(ctx, listener)
}

func (s *DealServer) listen() (net.Listener, error) {
	switch s.cfg.Transport {
	case config.TransportVsock:
		listener, err := vsock.Listen(s.cfg.Port, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create vsock listener: %w", err)
		}
		s.logger.Info("decision server listening", zap.String("transport", "vsock"), zap.Uint32("port", s.cfg.Port))
		return listener, nil
	default:
		listener, err := net.Listen("tcp", s.cfg.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to create tcp listener: %w", err)
		}
		s.logger.Info("decision server listening", zap.String("transport", "tcp"), zap.String("address", listener.Addr().String()))
		return listener, nil
	}
}

func (s *DealServer) serve(ctx context.Context, listener net.Listener) error {
	semaphore := make(chan struct{}, s.cfg.MaxWorkers)
	s.logger.Info("worker pool initialized", zap.Int("max_workers", s.cfg.MaxWorkers))

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Info("decision server stopped")
				return nil
			}
			s.logger.Error("failed to accept connection", zap.Error(err))
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
			s.logger.Warn("no workers available, rejecting connection")
			if err := conn.Close(); err != nil {
				s.logger.Error("failed to close rejected connection", zap.Error(err))
			}
		}
	}
}

func (s *DealServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic recovered in handleConnection", zap.Any("panic", r))
		}
		if err := conn.Close(); err != nil {
			s.logger.Error("failed to close connection", zap.Error(err))
		}
	}()

	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		s.logger.Error("failed to read request", zap.Error(err))
		return
	}

	response := s.dispatch(ctx, buf.Bytes())

	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// dispatch routes a raw request by its type and never returns nil.
func (s *DealServer) dispatch(ctx context.Context, raw []byte) any {
	var env dealapi.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Warn("failed to decode request envelope", zap.Error(err))
		return errorResponse("Failed to decode request: %v", err)
	}

	s.logger.Debug("received request", zap.String("type", env.Type), zap.Int("bytes", len(raw)))

	switch env.Type {
	case dealapi.TypePing:
		return map[string]any{
			"type":      dealapi.TypePong,
			"message":   "decision server is healthy",
			"timestamp": time.Now().Unix(),
		}

	case dealapi.TypeDealRequest:
		var req dealapi.DealRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse("Failed to decode deal request: %v", err)
		}
		return s.ProcessDeal(req)

	case dealapi.TypeAnalyzeRequest:
		var req dealapi.AnalyzeRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse("Failed to decode analyze request: %v", err)
		}
		return s.ProcessAnalyze(req)

	case dealapi.TypeSolveRequest:
		var req dealapi.SolveRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse("Failed to decode solve request: %v", err)
		}
		return s.ProcessSolve(req)

	case dealapi.TypeBatchRequest:
		var req dealapi.BatchSolveRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return errorResponse("Failed to decode batch request: %v", err)
		}
		return s.ProcessBatch(ctx, req)

	case dealapi.TypePublicKeyRequest:
		return s.PublicKey()

	default:
		return errorResponse("Unknown request type: %s", env.Type)
	}
}

func errorResponse(format string, args ...any) dealapi.ErrorResponse {
	return dealapi.ErrorResponse{
		Type:    dealapi.TypeError,
		Success: false,
		Message: fmt.Sprintf(format, args...),
	}
}
