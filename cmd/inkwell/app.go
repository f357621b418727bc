package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/inkwell/agent"
	"github.com/c360studio/inkwell/config"
	"github.com/c360studio/inkwell/events"
	"github.com/c360studio/inkwell/llm"
	"github.com/c360studio/inkwell/orchestrator"
	"github.com/c360studio/inkwell/runstore"
	"github.com/c360studio/inkwell/tools"
	"github.com/c360studio/inkwell/tools/image"
	"github.com/c360studio/inkwell/tools/search"
	"github.com/c360studio/inkwell/workflow"
	"github.com/c360studio/inkwell/workflow/handlers"
)

// App wires configuration, model routing, persistence, and the orchestrator
// behind the interactive REPL.
type App struct {
	cfg         *config.Config
	configPath  string
	metricsAddr string
	logger      *slog.Logger

	// NATS, only when configured.
	natsConn *nats.Conn
	js       jetstream.JetStream

	store   runstore.Store
	bus     *events.Bus
	factory *orchestrator.Factory
	orch    orchestrator.Orchestrator

	watchCancel context.CancelFunc
	metricsSrv  *http.Server

	// currentRun is the run the REPL is talking to.
	currentRun string
}

// NewApp creates an application instance. Call Start before use.
func NewApp(cfg *config.Config, configPath, metricsAddr string, logger *slog.Logger) *App {
	return &App{
		cfg:         cfg,
		configPath:  configPath,
		metricsAddr: metricsAddr,
		logger:      logger,
	}
}

// Start connects infrastructure and builds the orchestrator.
func (a *App) Start(ctx context.Context) error {
	if err := a.connectNATS(ctx); err != nil {
		return err
	}

	store, err := a.buildStore(ctx)
	if err != nil {
		return fmt.Errorf("initialize run store: %w", err)
	}
	a.store = store

	a.bus = events.NewBus(events.WithBusLogger(a.logger))
	sink := events.Sink(a.bus)
	if a.natsConn != nil {
		pub, err := events.NewNATSPublisher(a.natsConn, events.WithNATSLogger(a.logger))
		if err != nil {
			return fmt.Errorf("create event publisher: %w", err)
		}
		sink = events.Fanout(a.bus, pub)
	}

	registry, err := a.cfg.BuildRegistry()
	if err != nil {
		return fmt.Errorf("build model registry: %w", err)
	}
	client := llm.NewClient(registry, llm.WithLogger(a.logger))

	deps, err := a.buildDeps(client, sink)
	if err != nil {
		return err
	}

	a.factory = &orchestrator.Factory{
		Deps:   deps,
		Store:  a.store,
		Sink:   sink,
		Logger: a.logger,
	}

	mode, err := orchestrator.ParseMode(a.cfg.Orchestrator.Mode)
	if err != nil {
		return err
	}
	if err := orchestrator.SetMode(mode); err != nil {
		return err
	}
	a.orch = a.factory.New(mode)
	if err := a.orch.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize orchestrator: %w", err)
	}

	a.startConfigWatcher(ctx)
	a.startMetricsServer()

	fmt.Printf("✓ Ready (mode: %s)\n\n", mode)
	return nil
}

func (a *App) connectNATS(ctx context.Context) error {
	if a.cfg.NATS.URL == "" {
		return nil
	}
	conn, err := nats.Connect(a.cfg.NATS.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", a.cfg.NATS.URL, err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("create JetStream context: %w", err)
	}
	a.natsConn = conn
	a.js = js
	return nil
}

func (a *App) buildStore(ctx context.Context) (runstore.Store, error) {
	if a.js != nil {
		return runstore.NewKVStore(ctx, a.js)
	}
	return runstore.NewFileStore(a.cfg.Store.Dir)
}

func (a *App) buildDeps(client *llm.Client, sink events.Sink) (handlers.Deps, error) {
	sessions := handlers.NewSessionFactory(client, sink, a.logger)

	// The config temperature applies when a phase does not pin its own.
	temp := a.cfg.Model.Temperature
	withTemp := handlers.SessionFactory(func(cfg agent.Config) handlers.SessionRunner {
		if cfg.Temperature == nil && temp > 0 {
			t := temp
			cfg.Temperature = &t
		}
		return sessions(cfg)
	})

	searchExec := tools.NewLoggingExecutor(search.NewExecutor(search.Config{
		Endpoint: a.cfg.Search.Endpoint,
		APIKey:   os.Getenv(a.cfg.Search.APIKeyEnv),
	}))
	researchTools := tools.FilterAllowed(searchExec.ListTools(), a.cfg.Tools.Allowlist)
	researchExecutors := make(map[string]agent.Executor, len(researchTools))
	for _, def := range researchTools {
		researchExecutors[def.Name] = searchExec
	}

	var gen handlers.ImageGenerator
	if key := os.Getenv(a.cfg.Image.APIKeyEnv); key != "" || a.cfg.Image.Endpoint != "" {
		gen = image.NewGenerator(image.Config{
			Endpoint: a.cfg.Image.Endpoint,
			APIKey:   key,
			Model:    a.cfg.Image.Model,
			Size:     a.cfg.Image.Size,
		})
	}

	return handlers.Deps{
		Sessions: withTemp,
		Sink:     sink,
		Logger:   a.logger,
		Timeouts: handlers.Timeouts{
			Planner:     a.cfg.Timeouts.GetPlanner(),
			Research:    a.cfg.Timeouts.GetResearch(),
			Positioning: a.cfg.Timeouts.GetPositioning(),
			Draft:       a.cfg.Timeouts.GetDraft(),
			Critic:      a.cfg.Timeouts.GetCritic(),
			Image:       a.cfg.Timeouts.GetImage(),
		},
		Image:                 gen,
		ResearchTools:         researchTools,
		ResearchExecutors:     researchExecutors,
		RequireCriticApproval: a.cfg.Orchestrator.CriticApproval,
	}, nil
}

// startConfigWatcher hot-reloads the orchestrator mode when the config file
// changes on disk. Other settings require a restart.
func (a *App) startConfigWatcher(ctx context.Context) {
	if a.configPath == "" {
		return
	}
	watcher, err := config.NewWatcher(a.configPath, func(cfg *config.Config) {
		mode, err := orchestrator.ParseMode(cfg.Orchestrator.Mode)
		if err != nil {
			a.logger.Warn("Ignoring config reload with invalid mode",
				"mode", cfg.Orchestrator.Mode, "error", err)
			return
		}
		if mode == orchestrator.CurrentMode() {
			return
		}
		a.switchMode(mode)
		fmt.Printf("\n(config reloaded: orchestrator mode is now %s)\n", mode)
	}, a.logger)
	if err != nil {
		a.logger.Warn("Config watching disabled", "error", err)
		return
	}
	watchCtx, cancel := context.WithCancel(ctx)
	a.watchCancel = cancel
	go watcher.Run(watchCtx)
}

func (a *App) startMetricsServer() {
	if a.metricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	a.metricsSrv = &http.Server{Addr: a.metricsAddr, Handler: mux}
	go func() {
		if err := a.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("Metrics server failed", "error", err)
		}
	}()
	a.logger.Info("Serving metrics", "addr", a.metricsAddr)
}

// switchMode replaces the orchestrator. In-memory run state of the old
// orchestrator is released; runs survive in the store.
func (a *App) switchMode(mode orchestrator.Mode) {
	if err := orchestrator.SetMode(mode); err != nil {
		a.logger.Warn("Mode switch rejected", "mode", mode, "error", err)
		return
	}
	old := a.orch
	a.orch = a.factory.New(mode)
	if err := a.orch.Initialize(context.Background()); err != nil {
		a.logger.Error("Initialize after mode switch failed", "error", err)
	}
	if old != nil {
		old.Destroy()
	}
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown(timeout time.Duration) {
	fmt.Println("\nShutting down...")

	if a.watchCancel != nil {
		a.watchCancel()
	}
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		_ = a.metricsSrv.Shutdown(ctx)
		cancel()
	}
	if a.orch != nil {
		a.orch.Destroy()
	}
	if a.bus != nil {
		a.bus.Close()
	}
	if a.natsConn != nil {
		_ = a.natsConn.Drain()
		a.natsConn.Close()
	}

	fmt.Println("Goodbye!")
}

// RunREPL runs the interactive loop until EOF or quit.
func (a *App) RunREPL(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	done, stopEcho := a.startEventEcho()
	defer func() {
		close(done)
		stopEcho()
	}()

	for {
		fmt.Print("inkwell> ")

		if !scanner.Scan() {
			// EOF (Ctrl+D)
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if input == "quit" || input == "exit" {
			return nil
		}

		if strings.HasPrefix(input, "/") {
			a.handleCommand(ctx, input)
			continue
		}

		a.submit(ctx, input)
	}
}

// startEventEcho prints a compact progress line per workflow event while a
// phase is executing.
func (a *App) startEventEcho() (chan struct{}, func()) {
	ch, cancel := a.bus.Subscribe()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				switch ev.Type {
				case events.TypePhaseStart:
					fmt.Printf("  … %s\n", ev.Phase)
				case events.TypeToolStart:
					if m, ok := ev.Payload.(map[string]any); ok {
						fmt.Printf("    ↳ tool %v\n", m["tool"])
					}
				case events.TypeWorkflowError:
					fmt.Printf("  ✗ %s failed\n", ev.Phase)
				}
			case <-done:
				return
			}
		}
	}()
	return done, cancel
}

// submit sends free text to the orchestrator: it starts a run when none is
// active, otherwise it goes to the current run as a start or follow-up.
func (a *App) submit(ctx context.Context, text string) {
	if a.currentRun == "" {
		a.currentRun = "run-" + uuid.NewString()[:8]
		fmt.Printf("Starting run %s\n", a.currentRun)
	}

	if err := a.orch.StartWorkflow(ctx, a.currentRun, text); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	a.renderOutcome()
}

func (a *App) renderOutcome() {
	st, ok := a.orch.GetState(a.currentRun)
	if !ok {
		return
	}

	switch {
	case st.PendingInput != nil:
		a.renderPendingInput(st.PendingInput)
	case st.Phase == workflow.PhaseError:
		fmt.Printf("Run failed: %s\n", st.Error)
		fmt.Println("Type a new instruction to retry, or /new to start over.")
	case st.Phase == workflow.PhaseComplete:
		a.renderResult(st)
	default:
		// Single-agent mode has no terminal phase; show the last reply.
		if msg := lastAssistantMessage(st); msg != "" {
			fmt.Println(msg)
		}
	}
	fmt.Println()
}

func (a *App) renderPendingInput(p *workflow.PendingInput) {
	switch p.Type {
	case workflow.PendingQuestions:
		fmt.Println("The planner has questions:")
		for _, q := range p.Questions {
			fmt.Printf("  [%s] %s\n", q.ID, q.Text)
			if len(q.Suggested) > 0 {
				fmt.Printf("       suggestions: %s\n", strings.Join(q.Suggested, ", "))
			}
		}
		fmt.Println("Answer with: /answer id=your answer; id2=another")
	case workflow.PendingImprovements:
		fmt.Println("The critic suggests improvements:")
		for _, imp := range p.Improvements {
			fmt.Printf("  [%s] %s\n", imp.ID, imp.Text)
		}
		fmt.Println("Apply with: /select id1,id2  (or /select none to keep the draft)")
	case workflow.PendingFindings:
		fmt.Println("Research findings for selection:")
		for _, f := range p.Findings {
			fmt.Printf("  [%s] %s\n", f.ID, f.Text)
		}
		fmt.Println("Select with: /select id1,id2")
	}
}

func (a *App) renderResult(st workflow.State) {
	fmt.Println(strings.Repeat("─", 60))
	fmt.Println(st.CurrentDraft())
	fmt.Println(strings.Repeat("─", 60))
	switch st.ImageStatus {
	case workflow.ImageStatusReady:
		fmt.Printf("Illustration: %s\n", st.ImageURL)
	case workflow.ImageStatusError:
		fmt.Println("(illustration failed; the post is ready without one)")
	}
	fmt.Println("Done. Type a follow-up instruction to revise, or /new for a fresh run.")
}

func (a *App) handleCommand(ctx context.Context, input string) {
	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/help":
		fmt.Println("Available commands:")
		fmt.Println("  /new [topic]     - Start a new run (topic optional)")
		fmt.Println("  /answer k=v; ... - Answer pending clarifying questions")
		fmt.Println("  /select ids      - Select improvements/findings (comma separated, or 'none')")
		fmt.Println("  /state           - Show the current run's state")
		fmt.Println("  /runs            - List stored runs")
		fmt.Println("  /use <run-id>    - Switch to another run")
		fmt.Println("  /mode [m]        - Show or switch orchestrator mode")
		fmt.Println("  quit/exit        - Exit")
		fmt.Println()
		fmt.Println("Anything else is sent to the workflow as an instruction.")

	case "/new":
		a.currentRun = ""
		if rest != "" {
			a.submit(ctx, rest)
		} else {
			fmt.Println("New run ready. Type a topic to begin.")
		}

	case "/answer":
		a.respond(ctx, workflow.UserResponse{
			Type:    workflow.PendingQuestions,
			Answers: parseAnswers(rest),
		})

	case "/select":
		var ids []string
		if rest != "" && rest != "none" {
			for _, id := range strings.Split(rest, ",") {
				if id = strings.TrimSpace(id); id != "" {
					ids = append(ids, id)
				}
			}
		}
		a.respond(ctx, workflow.UserResponse{
			Type:        a.pendingType(),
			SelectedIDs: ids,
		})

	case "/state":
		a.showState(ctx)

	case "/runs":
		a.listRuns(ctx)

	case "/use":
		if rest == "" {
			fmt.Println("Usage: /use <run-id>")
			return
		}
		a.currentRun = rest
		fmt.Printf("Now talking to %s\n", rest)

	case "/mode":
		if rest == "" {
			fmt.Printf("Mode: %s\n", orchestrator.CurrentMode())
			return
		}
		mode, err := orchestrator.ParseMode(rest)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		a.switchMode(mode)
		fmt.Printf("Mode: %s (run state carried via the store)\n", mode)

	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		fmt.Println("Type /help for available commands.")
	}
}

// pendingType reads the current checkpoint's type so /select answers with
// the matching tag.
func (a *App) pendingType() workflow.PendingInputType {
	if st, ok := a.orch.GetState(a.currentRun); ok && st.PendingInput != nil {
		return st.PendingInput.Type
	}
	return workflow.PendingImprovements
}

func (a *App) respond(ctx context.Context, resp workflow.UserResponse) {
	if a.currentRun == "" {
		fmt.Println("No active run.")
		return
	}
	if err := a.orch.HandleUserResponse(ctx, a.currentRun, resp); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	a.renderOutcome()
}

func (a *App) showState(ctx context.Context) {
	if a.currentRun == "" {
		fmt.Println("No active run. Type a topic to begin.")
		return
	}
	st, ok := a.orch.GetState(a.currentRun)
	if !ok {
		fmt.Printf("Run %s is not loaded.\n", a.currentRun)
		return
	}

	fmt.Printf("Run:   %s\n", st.RunID)
	fmt.Printf("Phase: %s\n", st.Phase)
	if st.Plan != nil {
		fmt.Printf("Topic: %s\n", st.Plan.Topic)
		if st.Plan.Angle != "" {
			fmt.Printf("Angle: %s\n", st.Plan.Angle)
		}
	}
	if st.Research != nil {
		fmt.Printf("Research: %d facts, %d sources\n", len(st.Research.Facts), len(st.Research.Sources))
	}
	if d := st.CurrentDraft(); d != "" {
		fmt.Printf("Draft: %d chars\n", len(d))
	}
	if st.ImageStatus != workflow.ImageStatusNone {
		fmt.Printf("Image: %s", st.ImageStatus)
		if st.ImageURL != "" {
			fmt.Printf(" (%s)", st.ImageURL)
		}
		fmt.Println()
	}
	if st.Error != "" {
		fmt.Printf("Error: %s\n", st.Error)
	}

	// The projection carries panel statuses for display surfaces.
	if rec, err := a.store.Get(ctx, a.currentRun); err == nil {
		fmt.Printf("Panels: research=%s positioning=%s draft=%s image=%s\n",
			panelOrDash(string(rec.Research.Status)),
			panelOrDash(string(rec.Positioning.Status)),
			panelOrDash(string(rec.Draft.Status)),
			panelOrDash(string(rec.Image.Status)))
	}
}

func (a *App) listRuns(ctx context.Context) {
	runs, err := a.store.List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	if len(runs) == 0 {
		fmt.Println("No stored runs.")
		return
	}
	for _, r := range runs {
		marker := " "
		if r.ID == a.currentRun {
			marker = "*"
		}
		fmt.Printf("%s %-20s %-12s %s  %s\n",
			marker, r.ID, r.Status, r.UpdatedAt.Format("2006-01-02 15:04"), truncate(r.Topic, 48))
	}
}

// parseAnswers parses "id=answer; id2=answer" into an answer map. Semicolons
// separate answers so answer text may contain spaces.
func parseAnswers(s string) map[string]string {
	answers := make(map[string]string)
	for _, pair := range strings.Split(s, ";") {
		key, val, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if key != "" && val != "" {
			answers[key] = val
		}
	}
	return answers
}

func lastAssistantMessage(st workflow.State) string {
	for i := len(st.Messages) - 1; i >= 0; i-- {
		if st.Messages[i].Role == "assistant" {
			return st.Messages[i].Content
		}
	}
	return ""
}

func panelOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
