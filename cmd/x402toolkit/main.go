// Command x402toolkit is the process entrypoint for the challenge mock
// server, test runner, and policy compiler. It is deliberately not a
// full CLI — no flag parsing sophistication, per the toolkit's scope —
// just a tiny os.Args[1] dispatch, grounded on the teacher's own
// main.go: slog JSON setup, a config.Load-style env loader, and
// fatal errors reported via slog.Error + os.Exit(1).
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kshinn/x402toolkit/internal/codegen"
	"github.com/kshinn/x402toolkit/internal/lifecycle"
	"github.com/kshinn/x402toolkit/internal/policy"
	"github.com/kshinn/x402toolkit/internal/testsuite"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "start":
		err = runStart()
	case "stop":
		err = runStop()
	case "status":
		err = runStatus()
	case "test":
		err = runTest(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "compile":
		err = runCompile(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		slog.Error("command failed", "command", os.Args[1], "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: x402toolkit <start|stop|status|test|validate|compile> [args...]")
	fmt.Fprintln(os.Stderr, "  start              start the mock challenge server (env-configured)")
	fmt.Fprintln(os.Stderr, "  stop               stop a running mock challenge server")
	fmt.Fprintln(os.Stderr, "  status             report whether a mock server is running")
	fmt.Fprintln(os.Stderr, "  test <suite.yaml>  run a test suite against a live endpoint")
	fmt.Fprintln(os.Stderr, "  validate <policy.yaml>             validate a policy document")
	fmt.Fprintln(os.Stderr, "  compile <policy.yaml> <chi|fiber>  compile a policy document")
}

func runStart() error {
	envCfg, err := loadServerEnvConfig()
	if err != nil {
		return err
	}
	cfg, err := envCfg.toMockServerConfig()
	if err != nil {
		return err
	}

	mgr := lifecycle.NewManager(envCfg.StateDir)
	info, err := mgr.StartWithResult(cfg)
	if err != nil {
		return err
	}
	slog.Info("mock server started", "pid", info.Pid, "port", info.Port, "started_at", info.StartedAt.String())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("received shutdown signal, stopping")
	if _, err := mgr.StopWithResult(); err != nil {
		return err
	}
	return nil
}

func runStop() error {
	envCfg, err := loadServerEnvConfig()
	if err != nil {
		return err
	}
	mgr := lifecycle.NewManager(envCfg.StateDir)
	info, err := mgr.StopWithResult()
	if err != nil {
		return err
	}
	return printJSON(map[string]any{"was_running": info.WasRunning})
}

func runStatus() error {
	envCfg, err := loadServerEnvConfig()
	if err != nil {
		return err
	}
	mgr := lifecycle.NewManager(envCfg.StateDir)
	info, err := mgr.StatusWithResult()
	if err != nil {
		return err
	}
	view := map[string]any{"is_running": info.IsRunning, "port": info.Port}
	if info.IsRunning {
		view["started_at"] = info.StartedAt.String()
	}
	return printJSON(view)
}

func runTest(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("test: missing suite file path")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("test: reading %s: %w", args[0], err)
	}
	suite, err := testsuite.Load(raw)
	if err != nil {
		return fmt.Errorf("test: loading %s: %w", args[0], err)
	}

	result := testsuite.Run(suite, testsuite.RunOptions{})
	if err := printJSON(suiteResultView(result)); err != nil {
		return err
	}
	os.Exit(result.ExitCode)
	return nil
}

// suiteResultView renders a SuiteResult for JSON output, stringifying
// the ExecutionError field so a failing test's error message is never
// silently dropped to "{}" (error is an interface; most concrete error
// types have no exported fields of their own).
func suiteResultView(r testsuite.SuiteResult) map[string]any {
	tests := make([]map[string]any, 0, len(r.Tests))
	for _, t := range r.Tests {
		view := map[string]any{
			"name":             t.Name,
			"passed":           t.Passed,
			"duration":         t.Duration.String(),
			"assertions":       t.Assertions,
			"execution_failed": t.ExecutionFailed,
		}
		if t.ExecutionError != nil {
			view["execution_error"] = t.ExecutionError.Error()
		}
		tests = append(tests, view)
	}
	return map[string]any{
		"total":     r.Total,
		"passed":    r.Passed,
		"failed":    r.Failed,
		"skipped":   r.Skipped,
		"duration":  r.Duration.String(),
		"exit_code": r.ExitCode,
		"tests":     tests,
	}
}

func runValidate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("validate: missing policy file path")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("validate: reading %s: %w", args[0], err)
	}
	doc, err := policy.Load(raw)
	if err != nil {
		return fmt.Errorf("validate: loading %s: %w", args[0], err)
	}

	report := policy.Validate(doc)
	if err := printJSON(report); err != nil {
		return err
	}
	if !report.IsValid() {
		os.Exit(1)
	}
	return nil
}

func runCompile(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("compile: usage: compile <policy.yaml> <chi|fiber>")
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("compile: reading %s: %w", args[0], err)
	}
	doc, err := policy.Load(raw)
	if err != nil {
		return fmt.Errorf("compile: loading %s: %w", args[0], err)
	}

	src, err := codegen.Generate(doc, codegen.FrameworkTag(args[1]), args[0])
	if err != nil {
		return err
	}
	fmt.Print(src)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
