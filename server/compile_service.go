package server

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/pasc/artifact"
	"github.com/chazu/pasc/cache"
	"github.com/chazu/pasc/compiler"
)

// Procedure names served by CompileService.
const (
	CompileServiceName = "pasc.v1.CompileService"

	CompileProcedure = "/" + CompileServiceName + "/Compile"
	CheckProcedure   = "/" + CompileServiceName + "/Check"
)

// SourceRequest carries one program.
type SourceRequest struct {
	Source string `cbor:"1,keyasint"`
}

// Diagnostic is one problem found in a request's source.
type Diagnostic struct {
	Line    int    `cbor:"1,keyasint"`
	Column  int    `cbor:"2,keyasint"`
	Message string `cbor:"3,keyasint"`
}

// CompileResponse reports a compilation. Compile errors are reported here
// with OK false, not as RPC errors.
type CompileResponse struct {
	OK          bool         `cbor:"1,keyasint"`
	Kind        string       `cbor:"2,keyasint,omitempty"` // lexical, syntax or semantic on failure
	Diagnostics []Diagnostic `cbor:"3,keyasint,omitempty"`
	Program     string       `cbor:"4,keyasint,omitempty"`
	Fingerprint string       `cbor:"5,keyasint,omitempty"`
	Listing     []string     `cbor:"6,keyasint,omitempty"`
	Cached      bool         `cbor:"7,keyasint,omitempty"`
}

// CheckResponse reports the front-end diagnostics for a program.
type CheckResponse struct {
	OK          bool         `cbor:"1,keyasint"`
	Kind        string       `cbor:"2,keyasint,omitempty"`
	Diagnostics []Diagnostic `cbor:"3,keyasint,omitempty"`
}

// CompileService implements the CompileService Connect handler.
type CompileService struct {
	worker  *CompileWorker
	store   *cache.Store
	timeout time.Duration
	log     commonlog.Logger
}

// NewCompileService creates a CompileService. store may be nil to disable
// caching; a zero timeout leaves deadlines to the caller's context.
func NewCompileService(worker *CompileWorker, store *cache.Store, timeout time.Duration) *CompileService {
	return &CompileService{
		worker:  worker,
		store:   store,
		timeout: timeout,
		log:     commonlog.GetLogger("pasc.server.compile"),
	}
}

// Compile compiles a program to three-address code.
func (s *CompileService) Compile(
	ctx context.Context,
	req *connect.Request[SourceRequest],
) (*connect.Response[CompileResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	result, err := s.run(ctx, func() (any, error) {
		obj, cached, err := cache.Build(ctx, s.store, source, s.log)
		if err != nil {
			return failedCompile(err), nil
		}
		return succeededCompile(obj, cached), nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(result.(*CompileResponse)), nil
}

// Check runs the front end only.
func (s *CompileService) Check(
	ctx context.Context,
	req *connect.Request[SourceRequest],
) (*connect.Response[CheckResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	result, err := s.run(ctx, func() (any, error) {
		diags, err := compiler.Check(source)
		return &CheckResponse{
			OK:          err == nil,
			Kind:        compiler.ErrorKind(err),
			Diagnostics: convertDiagnostics(diags),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(result.(*CheckResponse)), nil
}

// run executes fn on the worker under the service deadline and maps
// worker failures to Connect error codes.
func (s *CompileService) run(ctx context.Context, fn func() (any, error)) (any, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.worker.Do(ctx, fn)
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, context.DeadlineExceeded):
		s.log.Warning("compile timed out")
		return nil, connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return nil, connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, ErrWorkerStopped):
		return nil, connect.NewError(connect.CodeUnavailable, err)
	default:
		s.log.Errorf("compile job failed: %v", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
}

func succeededCompile(obj *artifact.Object, cached bool) *CompileResponse {
	return &CompileResponse{
		OK:          true,
		Program:     obj.Program,
		Fingerprint: hex.EncodeToString(obj.Fingerprint[:]),
		Listing:     obj.Listing(),
		Cached:      cached,
	}
}

func failedCompile(err error) *CompileResponse {
	return &CompileResponse{
		Kind:        compiler.ErrorKind(err),
		Diagnostics: convertDiagnostics(compiler.Diagnostics(err)),
	}
}

func convertDiagnostics(diags []compiler.Diagnostic) []Diagnostic {
	if len(diags) == 0 {
		return nil
	}
	out := make([]Diagnostic, len(diags))
	for i, d := range diags {
		out[i] = Diagnostic{Line: d.Pos.Line, Column: d.Pos.Column, Message: d.Msg}
	}
	return out
}

// NewCompileServiceHandler builds the HTTP handler for svc. The returned
// path is the mount point for the service on a mux.
func NewCompileServiceHandler(svc *CompileService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(newCBORCodec())}, opts...)

	compileHandler := connect.NewUnaryHandler(CompileProcedure, svc.Compile, opts...)
	checkHandler := connect.NewUnaryHandler(CheckProcedure, svc.Check, opts...)

	return "/" + CompileServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case CompileProcedure:
			compileHandler.ServeHTTP(w, r)
		case CheckProcedure:
			checkHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// CompileServiceClient calls a CompileService over Connect with the CBOR
// codec.
type CompileServiceClient struct {
	compile *connect.Client[SourceRequest, CompileResponse]
	check   *connect.Client[SourceRequest, CheckResponse]
}

// NewCompileServiceClient creates a client for the service at baseURL.
func NewCompileServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *CompileServiceClient {
	opts = append([]connect.ClientOption{connect.WithCodec(newCBORCodec())}, opts...)
	return &CompileServiceClient{
		compile: connect.NewClient[SourceRequest, CompileResponse](httpClient, baseURL+CompileProcedure, opts...),
		check:   connect.NewClient[SourceRequest, CheckResponse](httpClient, baseURL+CheckProcedure, opts...),
	}
}

// Compile calls CompileService.Compile.
func (c *CompileServiceClient) Compile(ctx context.Context, source string) (*CompileResponse, error) {
	resp, err := c.compile.CallUnary(ctx, connect.NewRequest(&SourceRequest{Source: source}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Check calls CompileService.Check.
func (c *CompileServiceClient) Check(ctx context.Context, source string) (*CheckResponse, error) {
	resp, err := c.check.CallUnary(ctx, connect.NewRequest(&SourceRequest{Source: source}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
