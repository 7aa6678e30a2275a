// Package runner executes recipe build scripts and test commands as
// isolated child processes and records immutable results.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"syscall"
	"time"

	"github.com/bokulich-lab/q2pkg/pkg/models"
)

// Options controls phase execution
type Options struct {
	Prefix  string            // install prefix exported as PREFIX
	Env     map[string]string // extra environment, e.g. QIIME2_EPOCH
	Timeout time.Duration     // zero means no deadline
	Stdout  io.Writer
	Stderr  io.Writer
}

// Run executes one shell command for a phase. The child gets its own
// process group so a wrapper crash never takes the workload down.
func Run(ctx context.Context, artifactID, phase, command, workDir string, opts Options) (*Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	timing := NewTiming()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = workDir

	// Process becomes its own group leader
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}

	cmd.Env = phaseEnv(opts)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, &PhaseError{
			Kind:       classifyError(err),
			Phase:      phase,
			ArtifactID: artifactID,
			ExitCode:   -1,
			Err:        err,
		}
	}

	pid := cmd.Process.Pid
	err := cmd.Wait()
	timing.Complete()

	exitCode := 0
	if err != nil {
		exitCode = -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
	}

	result := NewResult(artifactID, phase, command, pid, exitCode, timing)
	result.LogSummary()

	if exitCode != 0 {
		kind := ErrorKindNonzeroExit
		if ctx.Err() == context.DeadlineExceeded {
			kind = ErrorKindTimeout
		}
		return result, &PhaseError{
			Kind:       kind,
			Phase:      phase,
			ArtifactID: artifactID,
			ExitCode:   exitCode,
			Err:        err,
		}
	}

	return result, nil
}

// Build runs the recipe's build script inside its source tree
func Build(ctx context.Context, artifact *models.Artifact, recipe *models.Recipe, opts Options) (*Result, error) {
	if opts.Env == nil {
		opts.Env = make(map[string]string)
	}
	opts.Env["PKG_NAME"] = recipe.Package.Name
	opts.Env["PKG_VERSION"] = recipe.Package.Version
	opts.Env["PKG_BUILDNUM"] = fmt.Sprintf("%d", recipe.Build.Number)

	return Run(ctx, artifact.ID, "build", recipe.Build.Script, recipe.Source.Path, opts)
}

// Test runs the recipe's declared import checks and test commands in
// order, stopping at the first failure. All results produced so far are
// returned alongside the failure.
func Test(ctx context.Context, artifact *models.Artifact, recipe *models.Recipe, opts Options) ([]*Result, error) {
	var results []*Result

	commands := make([]string, 0, len(recipe.Test.Imports)+len(recipe.Test.Commands))
	for _, imp := range recipe.Test.Imports {
		commands = append(commands, fmt.Sprintf("python -c %q", "import "+imp))
	}
	commands = append(commands, recipe.Test.Commands...)

	for _, command := range commands {
		result, err := Run(ctx, artifact.ID, "test", command, recipe.Source.Path, opts)
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

// phaseEnv builds the child environment: inherited vars, then PREFIX,
// then recipe-specific vars in sorted order for reproducible logs.
func phaseEnv(opts Options) []string {
	env := os.Environ()
	if opts.Prefix != "" {
		env = append(env, "PREFIX="+opts.Prefix)
	}

	keys := make([]string, 0, len(opts.Env))
	for k := range opts.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+opts.Env[k])
	}
	return env
}
