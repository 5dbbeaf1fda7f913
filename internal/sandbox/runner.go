package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// resultMarker prefixes the single line of JSON the harness script writes
// to stdout, so the runner can find the result even if the user script also
// printed other diagnostic output.
const resultMarker = "__SANDBOX_RESULT__:"

// Runner executes validated scripts inside a disposable, network-isolated
// container. One Runner is shared across all dynamic tool/solution
// invocations.
type Runner struct {
	docker  *client.Client
	image   string
	timeout time.Duration
}

// NewRunner constructs a Runner. image is the container image providing
// the script's language runtime (a slim Python image, since existing
// taught solutions are Python scripts). timeout defaults to
// MaxExecutionSeconds.
func NewRunner(docker *client.Client, image string, timeout time.Duration) *Runner {
	if image == "" {
		image = "python:3.12-slim"
	}
	if timeout <= 0 {
		timeout = MaxExecutionSeconds * time.Second
	}
	return &Runner{docker: docker, image: image, timeout: timeout}
}

// Run validates code, then executes it in a fresh container with params
// passed in as JSON and the result read back from stdout. On timeout,
// container failure, or a script-reported error, it returns a result map
// with an "error" key rather than a Go error — matching run_script's
// contract that failures are data, not exceptions, so callers (tool
// handlers) can hand the failure straight back to the reasoning loop.
func (r *Runner) Run(ctx context.Context, code string, params map[string]any) (any, error) {
	if err := ValidateCode(code); err != nil {
		return map[string]any{"error": err.Error()}, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	hostDir, err := os.MkdirTemp("", "agent1-sandbox-*")
	if err != nil {
		return nil, fmt.Errorf("sandbox: create scratch dir: %w", err)
	}
	defer os.RemoveAll(hostDir)

	scriptPath := filepath.Join(hostDir, "script.py")
	if err := os.WriteFile(scriptPath, []byte(wrapScript(code)), 0o444); err != nil {
		return nil, fmt.Errorf("sandbox: write script: %w", err)
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("sandbox: marshal params: %w", err)
	}

	containerCfg := &container.Config{
		Image:           r.image,
		Cmd:             []string{"python3", "/sandbox/script.py"},
		Env:             []string{"SANDBOX_PARAMS=" + string(paramsJSON)},
		WorkingDir:      "/sandbox",
		NetworkDisabled: true,
	}
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: scriptPath, Target: "/sandbox/script.py", ReadOnly: true},
		},
		NetworkMode: "none",
		AutoRemove:  false,
		Resources: container.Resources{
			Memory:   256 * 1024 * 1024,
			NanoCPUs: 1_000_000_000,
		},
	}

	resp, err := r.docker.ContainerCreate(runCtx, containerCfg, hostCfg, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("sandbox: create container: %w", err)
	}
	defer r.docker.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true})

	if err := r.docker.ContainerStart(runCtx, resp.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("sandbox: start container: %w", err)
	}

	statusCh, errCh := r.docker.ContainerWait(runCtx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil && runCtx.Err() != nil {
			return map[string]any{"error": fmt.Sprintf("script timed out after %ds", int(r.timeout.Seconds()))}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("sandbox: waiting for container: %w", err)
		}
	case <-statusCh:
	case <-runCtx.Done():
		return map[string]any{"error": fmt.Sprintf("script timed out after %ds", int(r.timeout.Seconds()))}, nil
	}

	logs, err := r.docker.ContainerLogs(context.Background(), resp.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return nil, fmt.Errorf("sandbox: reading logs: %w", err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return nil, fmt.Errorf("sandbox: demuxing logs: %w", err)
	}

	return parseResult(stdout.Bytes(), stderr.Bytes()), nil
}

func parseResult(stdout, stderr []byte) any {
	out := stdout
	if len(out) > MaxOutputBytes {
		out = out[:MaxOutputBytes]
	}
	idx := bytes.LastIndex(out, []byte(resultMarker))
	if idx < 0 {
		msg := string(stderr)
		if msg == "" {
			msg = "script produced no result"
		}
		return map[string]any{"error": msg}
	}
	line := bytes.TrimSpace(out[idx+len(resultMarker):])
	var result any
	if err := json.Unmarshal(line, &result); err != nil {
		return map[string]any{"error": fmt.Sprintf("unparseable script result: %v", err)}
	}
	return result
}

// wrapScript embeds the user's code and a small harness that loads
// SANDBOX_PARAMS, calls the user-defined async `run` function, and prints
// its JSON-encoded return value behind resultMarker.
func wrapScript(userCode string) string {
	return `import asyncio
import json
import os
import sys

` + userCode + `

async def __sandbox_main():
    params = json.loads(os.environ.get("SANDBOX_PARAMS", "{}"))
    try:
        value = run(**params)
        if asyncio.iscoroutine(value):
            value = await value
        print("` + resultMarker + `" + json.dumps(value, default=str))
    except Exception as exc:
        print("` + resultMarker + `" + json.dumps({"error": str(exc)}))

asyncio.run(__sandbox_main())
`
}
