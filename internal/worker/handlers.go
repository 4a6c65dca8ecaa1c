// Package worker registers asynq handlers for the distributed dispatcher
// mode. The single-process pool dispatcher calls the executor directly and
// does not go through this package.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"subgen/internal/executor"
	"subgen/internal/tasks"
)

// Deps holds everything the handlers need.
type Deps struct {
	Executor *executor.Executor
}

// RegisterHandlers wires all task types into the mux.
func RegisterHandlers(mux *asynq.ServeMux, deps Deps) {
	mux.HandleFunc(tasks.TypeGenerateSubtitles, HandleGenerateSubtitles(deps))
}

// HandleGenerateSubtitles runs the full pipeline for one task row. It always
// returns nil: a pipeline failure is recorded as a terminal FAILED status and
// must not be retried by asynq — resubmission is an explicit owner decision.
func HandleGenerateSubtitles(deps Deps) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload tasks.GenerateSubtitlesPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w: %w", t.Type(), err, asynq.SkipRetry)
		}
		deps.Executor.Run(ctx, payload.TaskID)
		return nil
	}
}
