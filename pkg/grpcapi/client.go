package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/psaab/vty/pkg/cli"
	"github.com/psaab/vty/pkg/cmdtree"
	"github.com/psaab/vty/pkg/parser"
)

// Client talks to a remote Shell service. It satisfies cli.Backend, so a
// local readline shell can drive a remote command tree.
type Client struct {
	conn *grpc.ClientConn
	User string
}

var _ cli.Backend = (*Client)(nil)

// Dial connects to addr without transport security.
func Dial(addr, user string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewClient(conn, user), nil
}

// NewClient wraps an existing connection.
func NewClient(conn *grpc.ClientConn, user string) *Client {
	return &Client{conn: conn, User: user}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Complete returns the remote completion candidates for line.
func (c *Client) Complete(ctx context.Context, line string) ([]cmdtree.Candidate, error) {
	req := newStruct(map[string]any{"line": line})
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, completeMethod, req, resp); err != nil {
		return nil, err
	}
	return decodeCandidates(resp), nil
}

// Execute runs line remotely and copies its output to w. Parse failures
// come back as *parser.Error and a remote exit as cli.ErrExit.
func (c *Client) Execute(ctx context.Context, line string, w io.Writer) error {
	stream, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], executeMethod)
	if err != nil {
		return err
	}
	req := newStruct(map[string]any{"line": line, "user": c.User})
	if err := stream.SendMsg(req); err != nil {
		return fromStatus(err)
	}
	if err := stream.CloseSend(); err != nil {
		return fromStatus(err)
	}

	exit := false
	for {
		msg := new(structpb.Struct)
		err := stream.RecvMsg(msg)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fromStatus(err)
		}
		fields := msg.GetFields()
		if out, ok := fields["output"]; ok {
			if _, err := io.WriteString(w, out.GetStringValue()); err != nil {
				return err
			}
		}
		if fields["exit"].GetBoolValue() {
			exit = true
		}
	}
	if exit {
		return cli.ErrExit
	}
	return nil
}

// fromStatus turns a gRPC status back into the error the server saw where
// that is possible.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	case codes.Unavailable:
		if st.Message() == cli.ErrBusy.Error() {
			return cli.ErrBusy
		}
	case codes.InvalidArgument:
		for _, d := range st.Details() {
			if s, ok := d.(*structpb.Struct); ok {
				return decodeParseError(s)
			}
		}
	}
	return err
}

func decodeParseError(s *structpb.Struct) *parser.Error {
	f := s.GetFields()
	return &parser.Error{
		Kind:       parser.Kind(f["kind"].GetStringValue()),
		Msg:        f["msg"].GetStringValue(),
		Token:      f["token"].GetStringValue(),
		Offset:     int(f["offset"].GetNumberValue()),
		Suggestion: f["suggestion"].GetStringValue(),
		Validation: f["validation"].GetBoolValue(),
	}
}
