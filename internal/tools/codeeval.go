package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/agixt-go/orchestrator/internal/corerr"
	"github.com/agixt-go/orchestrator/internal/observability"
	"github.com/agixt-go/orchestrator/internal/ports"
	"github.com/google/uuid"
)

// CodeEvalConfig configures the sandbox a CodeEvalHandler shells out to.
type CodeEvalConfig struct {
	DataPath string
	Image    string
	Timeout  time.Duration
}

// CodeEvalHandler implements ports.ToolHandler for the built-in
// "Execute Python Code" command: run untrusted code inside an isolated
// Docker container and return its stdout. One scratch directory is
// created per run and mounted into a fixed sandbox image, `docker run
// --rm` executes it, and stdout/stderr are captured separately. Narrowed
// to Python only, since this tool surface declares a single code-eval
// command rather than a family of per-language runners.
type CodeEvalHandler struct {
	cfg CodeEvalConfig
}

func NewCodeEvalHandler(cfg CodeEvalConfig) *CodeEvalHandler {
	if cfg.Image == "" {
		cfg.Image = "code-sandbox"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &CodeEvalHandler{cfg: cfg}
}

// CodeEvalTool returns the Tool manifest entry for registration.
func CodeEvalTool(cfg CodeEvalConfig) Tool {
	return Tool{
		Schema: Schema{
			Name:         "execute_python_code",
			FriendlyName: "Execute Python Code",
			Description:  "Run Python code inside an isolated sandbox container and return its stdout.",
			Args: []ArgSpec{
				{Name: "code", Required: true, Description: "Python source to execute."},
			},
		},
		Handler: NewCodeEvalHandler(cfg),
	}
}

func (h *CodeEvalHandler) Invoke(ctx context.Context, args map[string]any, _ ports.ToolCallContext) (string, error) {
	code, _ := args["code"].(string)
	if strings.TrimSpace(code) == "" {
		return "", corerr.NewTool(corerr.ToolInvalidArgs, "code must not be empty")
	}

	runDir := filepath.Join(h.cfg.DataPath, uuid.NewString())
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", corerr.WrapTool(corerr.ToolHandlerFailed, "create sandbox run directory", err)
	}
	defer os.RemoveAll(runDir)

	codeFile := filepath.Join(runDir, "user_code.py")
	if err := os.WriteFile(codeFile, []byte(code), 0o644); err != nil {
		return "", corerr.WrapTool(corerr.ToolHandlerFailed, "write sandbox source file", err)
	}

	dockerArgs := []string{
		"run", "--rm",
		"-v", fmt.Sprintf("%s:/app/projects", runDir),
		"-w", "/app/projects",
		h.cfg.Image,
		"python3", "user_code.py",
	}

	runCtx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()

	log := observability.LoggerWithTrace(ctx)
	log.Debug().Strs("docker_args", dockerArgs).Msg("codeeval_run_container")

	cmd := exec.CommandContext(runCtx, "docker", dockerArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return "", corerr.NewTool(corerr.ToolHandlerFailed, strings.TrimSpace(stderr.String()))
		}
		return "", corerr.WrapTool(corerr.ToolHandlerFailed, "run sandbox container", err)
	}
	return stdout.String(), nil
}
