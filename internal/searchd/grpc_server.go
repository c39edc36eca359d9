package searchd

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GoSim-25-26J-441/scenario-search/pkg/config"
	"github.com/GoSim-25-26J-441/scenario-search/pkg/logger"
)

// defaultWatchInterval is how often WatchRun polls the store
const defaultWatchInterval = 500 * time.Millisecond

// SearchGRPCServer implements SearchServiceServer using a RunStore backend.
type SearchGRPCServer struct {
	store    *RunStore
	Executor *RunExecutor
}

// NewSearchGRPCServer creates a new SearchGRPCServer with the provided RunStore and RunExecutor.
func NewSearchGRPCServer(store *RunStore, executor *RunExecutor) *SearchGRPCServer {
	return &SearchGRPCServer{
		store:    store,
		Executor: executor,
	}
}

func stringField(req *structpb.Struct, key string) string {
	if req == nil {
		return ""
	}
	return req.GetFields()[key].GetStringValue()
}

func numberField(req *structpb.Struct, key string) int {
	if req == nil {
		return 0
	}
	return int(req.GetFields()[key].GetNumberValue())
}

func runResponse(rec *RunRecord) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(map[string]any{"run": convertRunToJSON(rec.Run)})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// executorStatus maps executor errors to gRPC status codes
func executorStatus(err error) error {
	switch {
	case errors.Is(err, ErrRunIDMissing):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrRunNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrRunTerminal):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// CreateRun parses and validates config_yaml and registers a pending run.
func (s *SearchGRPCServer) CreateRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	configYAML := stringField(req, "config_yaml")
	if configYAML == "" {
		return nil, status.Error(codes.InvalidArgument, "config_yaml is required")
	}
	cfg, err := config.ParseConfigYAMLString(configYAML)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	rec, err := s.store.Create(stringField(req, "run_id"), &RunInput{ConfigYAML: configYAML, Config: cfg})
	if err != nil {
		if errors.Is(err, ErrInvalidRunID) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.AlreadyExists, err.Error())
	}

	logger.Info("run created", "run_id", rec.Run.ID)
	return runResponse(rec)
}

func (s *SearchGRPCServer) StartRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID := stringField(req, "run_id")
	if runID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}

	updated, err := s.Executor.Start(runID)
	if err != nil {
		return nil, executorStatus(err)
	}

	logger.Info("run started (executor)", "run_id", runID)
	return runResponse(updated)
}

func (s *SearchGRPCServer) StopRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID := stringField(req, "run_id")
	if runID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}

	updated, err := s.Executor.Stop(runID)
	if err != nil {
		return nil, executorStatus(err)
	}
	logger.Info("run cancelled", "run_id", runID)
	return runResponse(updated)
}

func (s *SearchGRPCServer) GetRun(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	runID := stringField(req, "run_id")
	if runID == "" {
		return nil, status.Error(codes.InvalidArgument, "run_id is required")
	}
	rec, ok := s.store.Get(runID)
	if !ok {
		return nil, status.Error(codes.NotFound, "run not found")
	}
	return runResponse(rec)
}

func (s *SearchGRPCServer) ListRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	recs := s.store.List(numberField(req, "limit"), numberField(req, "offset"), ParseRunStatus(stringField(req, "status")))
	out, err := structpb.NewStruct(map[string]any{"runs": convertRunsToJSON(recs)})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// WatchRun sends the run state whenever its status or iteration count changes
// and returns once the run is terminal.
func (s *SearchGRPCServer) WatchRun(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	runID := stringField(req, "run_id")
	if runID == "" {
		return status.Error(codes.InvalidArgument, "run_id is required")
	}

	rec, ok := s.store.Get(runID)
	if !ok {
		return status.Error(codes.NotFound, "run not found")
	}

	interval := defaultWatchInterval
	if ms := numberField(req, "interval_ms"); ms > 0 {
		interval = time.Duration(ms) * time.Millisecond
	}

	send := func(rec *RunRecord) error {
		msg, err := runResponse(rec)
		if err != nil {
			return err
		}
		return stream.Send(msg)
	}

	if err := send(rec); err != nil {
		return err
	}
	if rec.Run.Status.IsTerminal() {
		return nil
	}
	previousStatus, previousIterations := rec.Run.Status, rec.Run.Iterations

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case <-ticker.C:
			rec, ok := s.store.Get(runID)
			if !ok {
				return status.Error(codes.NotFound, "run not found")
			}
			if rec.Run.Status == previousStatus && rec.Run.Iterations == previousIterations {
				continue
			}
			if err := send(rec); err != nil {
				return err
			}
			previousStatus, previousIterations = rec.Run.Status, rec.Run.Iterations

			if rec.Run.Status.IsTerminal() {
				return nil
			}
		}
	}
}
