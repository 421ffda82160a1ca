package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Layr-Labs/permaweb-uploader-go/pkg/payload"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/types"
	"github.com/Layr-Labs/permaweb-uploader-go/pkg/uploader"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

/*
Server is the HTTP front end of the uploader.

Routes:
  GET  /health       liveness, always {status:"healthy", timestamp, arweave:"connected"}
  POST /upload-text  JSON {data, contentType?, tags?} -> {success, transaction_id, url}
  POST /upload-file  multipart "file" part -> {success, transaction_id, url, filename, size, type}
  GET  /tx/{id}      receipt recorded by this process
  OPTIONS *          CORS preflight

Anything else, including a known path with the wrong method, is a structured 404.
Failures use the envelope {success:false, error, kind}:
  400 validation, 404 unknown route or receipt, 429 rate limited, 500 everything else.
*/

// Pipeline is the part of *uploader.Uploader the server drives
type Pipeline interface {
	Upload(ctx context.Context, req *uploader.Request) (*uploader.Result, error)
	Receipt(id string) (*types.Receipt, error)
}

var _ Pipeline = (*uploader.Uploader)(nil)

type Config struct {
	Port           int
	MaxUploadBytes int64
	// RateLimit is upload requests per second across all clients; 0 disables limiting
	RateLimit float64
	RateBurst int
}

// Server handles HTTP requests for the uploader
type Server struct {
	pipeline   Pipeline
	validator  *payload.Validator
	limiter    *rate.Limiter
	logger     *zap.Logger
	httpServer *http.Server

	now func() time.Time
}

// NewServer creates a new server instance
func NewServer(cfg *Config, pipeline Pipeline, logger *zap.Logger) *Server {
	s := &Server{
		pipeline:  pipeline,
		validator: payload.NewValidator(cfg.MaxUploadBytes),
		logger:    logger,
		now:       time.Now,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	// Upload endpoints
	mux.Handle("POST /upload-text", s.rateLimited(http.HandlerFunc(s.handleUploadText)))
	mux.Handle("POST /upload-file", s.rateLimited(http.HandlerFunc(s.handleUploadFile)))

	mux.HandleFunc("GET /tx/{id}", s.handleGetReceipt)

	mux.HandleFunc("OPTIONS /", s.handleOptions)
	mux.HandleFunc("/", s.handleNotFound)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.withRequestContext(withCORS(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go func() {
		s.logger.Sugar().Infow("Starting HTTP server", "port", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Sugar().Errorw("HTTP server error", "error", err)
		}
	}()
	return nil
}

// Stop drains in-flight requests until ctx is done, then closes the server
func (s *Server) Stop(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		_ = s.httpServer.Close()
		return err
	}
	return nil
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}
