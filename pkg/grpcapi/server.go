package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/psaab/vty/pkg/cli"
	"github.com/psaab/vty/pkg/cmdtree"
	"github.com/psaab/vty/pkg/logging"
	"github.com/psaab/vty/pkg/metrics"
	"github.com/psaab/vty/pkg/parser"
	"github.com/psaab/vty/pkg/runner"
)

// Config configures the gRPC server.
type Config struct {
	Engine     *parser.Engine
	Runner     *runner.Runner
	Stats      *metrics.Stats
	Accountant *logging.Accountant
}

// Server implements the vty.v1.Shell gRPC service.
type Server struct {
	cfg  Config
	addr string
}

// NewServer creates a new gRPC server.
func NewServer(addr string, cfg Config) *Server {
	return &Server{cfg: cfg, addr: addr}
}

// Run starts the gRPC server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("gRPC listen: %w", err)
	}
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer()
	RegisterShellServer(srv, s)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gRPC server listening", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	srv.GracefulStop()
	return nil
}

func (s *Server) session(ctx context.Context, user string) *cli.Session {
	source := "grpc"
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		source = p.Addr.String()
	}
	return cli.NewSession(cli.SessionConfig{
		Engine:     s.cfg.Engine,
		Runner:     s.cfg.Runner,
		Stats:      s.cfg.Stats,
		Accountant: s.cfg.Accountant,
		User:       user,
		Source:     source,
	})
}

// Complete implements ShellServer.
func (s *Server) Complete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	line := req.GetFields()["line"].GetStringValue()
	candidates, err := s.session(ctx, "").Complete(ctx, line)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "%v", err)
	}
	resp, err := encodeCandidates(candidates)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode candidates: %v", err)
	}
	return resp, nil
}

// Execute implements ShellServer. Output is streamed as it is produced; a
// handler returning cli.ErrExit ends the stream with an exit message.
func (s *Server) Execute(req *structpb.Struct, stream grpc.ServerStream) error {
	fields := req.GetFields()
	line := fields["line"].GetStringValue()
	user := fields["user"].GetStringValue()
	if user == "" {
		user = "remote"
	}

	ctx := stream.Context()
	w := &streamWriter{stream: stream}
	err := s.session(ctx, user).Execute(ctx, line, w)
	if errors.Is(err, cli.ErrExit) {
		return stream.SendMsg(newStruct(map[string]any{"exit": true}))
	}
	if err != nil {
		return toStatus(err)
	}
	return nil
}

// streamWriter sends each write as one output message.
type streamWriter struct {
	mu     sync.Mutex
	stream grpc.ServerStream
}

func (w *streamWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.stream.SendMsg(newStruct(map[string]any{"output": string(p)})); err != nil {
		return 0, err
	}
	return len(p), nil
}

func newStruct(m map[string]any) *structpb.Struct {
	s, err := structpb.NewStruct(m)
	if err != nil {
		// Only called with string and bool values.
		panic(err)
	}
	return s
}

// toStatus maps execution errors to gRPC status codes. Parse errors carry
// their details so the client can rebuild a *parser.Error.
func toStatus(err error) error {
	var (
		perr *parser.Error
		rerr *runner.Error
	)
	switch {
	case errors.As(err, &perr):
		st := status.New(codes.InvalidArgument, perr.Msg)
		detail := newStruct(map[string]any{
			"kind":       string(perr.Kind),
			"msg":        perr.Msg,
			"token":      perr.Token,
			"offset":     float64(perr.Offset),
			"suggestion": perr.Suggestion,
			"validation": perr.Validation,
		})
		if withDetails, derr := st.WithDetails(detail); derr == nil {
			st = withDetails
		}
		return st.Err()
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, cli.ErrBusy):
		return status.Error(codes.Unavailable, err.Error())
	case errors.As(err, &rerr) && rerr.Kind == runner.KindProcessSpawnError:
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.Unknown, err.Error())
	}
}

func encodeCandidates(candidates []cmdtree.Candidate) (*structpb.Struct, error) {
	list := make([]any, 0, len(candidates))
	for _, c := range candidates {
		list = append(list, map[string]any{
			"name":        c.Name,
			"help":        c.Help,
			"complete_on": c.CompleteOn,
			"primary":     c.Primary,
			"tag":         float64(c.Tag),
		})
	}
	return structpb.NewStruct(map[string]any{"candidates": list})
}

func decodeCandidates(s *structpb.Struct) []cmdtree.Candidate {
	values := s.GetFields()["candidates"].GetListValue().GetValues()
	candidates := make([]cmdtree.Candidate, 0, len(values))
	for _, v := range values {
		f := v.GetStructValue().GetFields()
		candidates = append(candidates, cmdtree.Candidate{
			Name:       f["name"].GetStringValue(),
			Help:       f["help"].GetStringValue(),
			CompleteOn: f["complete_on"].GetBoolValue(),
			Primary:    f["primary"].GetBoolValue(),
			Tag:        cmdtree.Tag(f["tag"].GetNumberValue()),
		})
	}
	return candidates
}
