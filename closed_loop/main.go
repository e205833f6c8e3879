package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	control "nav-avoid-core/closed_loop/navigation_control"
	"nav-avoid-core/utils"
)

func main() {
	var (
		agent       = flag.Int("agent", 1, "Agent identity; selects the start delay and the flag to reach")
		iface       = flag.String("iface", "vcan0", "SocketCAN interface name")
		mapPath     = flag.String("map", "config/can/can_map.csv", "Path to can_map.csv")
		scenPath    = flag.String("scenario", "config/scenario.json", "Scenario JSON file (empty for defaults)")
		targetURL   = flag.String("target-url", "", "Flag service websocket URL (overrides scenario)")
		logPath     = flag.String("logfile", "closed_loop.log", "Log file")
		logLevel    = flag.String("log", "info", "trace|debug|info|warn|error|critical")
		printSchema = flag.Bool("print-schema", false, "Print the scenario JSON schema and exit")
	)
	flag.Parse()

	if *printSchema {
		if err := writeScenarioSchema(os.Stdout); err != nil {
			_, _ = os.Stderr.WriteString("ERROR: " + err.Error() + "\n")
			os.Exit(1)
		}
		return
	}

	log, err := utils.NewFileLogger(*logPath, utils.ParseLogLevel(*logLevel), true)
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: cannot open " + *logPath + ": " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	cfg := RunnerConfig{
		Interface:    *iface,
		MapPath:      *mapPath,
		ScenarioPath: *scenPath,
		Agent:        control.AgentID(*agent),
		TargetURL:    *targetURL,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := NewRunner(ctx, cfg, log)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := runner.Close(); err != nil {
			log.Warn("Close: %v", err)
		}
	}()

	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		log.Critical("Run failed: %v", err)
		os.Exit(1)
	}
}
