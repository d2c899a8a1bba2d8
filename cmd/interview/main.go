// Command interview runs a technical interview on the terminal.
//
// The candidate profile comes from an input JSON file, the interview is
// driven by the orchestrator, and the dialogue is rendered with colored
// Interviewer / Internal / User lines. The final report is printed when
// the interview ends, either on an explicit stop phrase from the
// candidate or on Ctrl+C.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"interviewcoach/pkg/config"
	"interviewcoach/pkg/eventlog"
	"interviewcoach/pkg/llm/middleware/metrics"
	"interviewcoach/pkg/logx"
	"interviewcoach/pkg/orchestrator"
	"interviewcoach/pkg/persistence"
	"interviewcoach/pkg/proto"
	"interviewcoach/pkg/session"
)

// Version information - set by goreleaser via ldflags.
var (
	version = "dev"
	commit  = "none"
)

var (
	questionColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	internalColor = color.New(color.FgHiBlack).SprintFunc()
	promptColor   = color.New(color.FgGreen, color.Bold).SprintFunc()
	statusColor   = color.New(color.FgYellow).SprintFunc()
	headerColor   = color.New(color.FgMagenta, color.Bold).SprintFunc()
	errColor      = color.New(color.FgRed, color.Bold).SprintFunc()
)

// candidateInput is the on-disk candidate profile.
type candidateInput struct {
	Name       string `json:"name"`
	Position   string `json:"position"`
	Grade      string `json:"grade"`
	Experience string `json:"experience"`
	TeamName   string `json:"team_name"`
}

func main() {
	var (
		inputFile   = flag.String("input", "input.json", "Path to the candidate profile JSON")
		configFile  = flag.String("config", "config.json", "Path to the config file")
		promptsFile = flag.String("prompts", "prompts.yaml", "Path to the prompt templates")
		secretsDir  = flag.String("secrets-dir", ".", "Directory holding the encrypted secrets file")
		metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
		showThinks  = flag.Bool("show-internal", true, "Print Observer internal notes into the transcript")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("interview %s (%s)\n", version, commit)
		os.Exit(0)
	}

	logx.SetDebug(*debug)

	os.Exit(run(*inputFile, *configFile, *promptsFile, *secretsDir, *metricsAddr, *showThinks))
}

// run contains the main application logic and returns an exit code, so
// defers execute before os.Exit.
func run(inputFile, configFile, promptsFile, secretsDir, metricsAddr string, showInternal bool) int {
	if err := config.LoadConfig(configFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
		return 1
	}

	prompts, err := config.LoadPrompts(promptsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load prompts: %v\n", err)
		return 1
	}

	if err := loadCredentials(secretsDir, cfg.Model.Provider); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load credentials: %v\n", err)
		return 1
	}

	candidate, err := loadCandidate(inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load candidate profile: %v\n", err)
		return 1
	}

	opts, cleanup, err := buildOptions(cfg, metricsAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up storage: %v\n", err)
		return 1
	}
	defer cleanup()

	meta := session.Meta{
		Name:       candidate.Name,
		Position:   candidate.Position,
		Grade:      candidate.Grade,
		Experience: candidate.Experience,
	}
	orch, err := orchestrator.New(cfg, prompts, candidate.TeamName, meta, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start orchestrator: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch.Run(context.Background())

	printBanner(candidate, cfg.Model.Provider, cfg.Model.Model)
	orch.OnStart()

	return transcriptLoop(ctx, orch, showInternal)
}

// transcriptLoop renders events and feeds candidate replies until the
// final report arrives.
func transcriptLoop(ctx context.Context, orch *orchestrator.Orchestrator, showInternal bool) int {
	stdin := bufio.NewScanner(os.Stdin)
	events := orch.Events()
	stopped := false

	for {
		select {
		case <-ctx.Done():
			if !stopped {
				stopped = true
				fmt.Println()
				fmt.Println(statusColor("Завершаем интервью..."))
				orch.OnStopRequested()
			}
			ctx = context.Background()
		case ev, ok := <-events:
			if !ok {
				return 0
			}
			switch ev.Kind {
			case proto.EventInterviewer:
				fmt.Printf("\n%s %s\n", questionColor("Интервьюер:"), ev.Text)
				if stopped {
					continue
				}
				fmt.Printf("%s ", promptColor("Вы:"))
				if !stdin.Scan() {
					stopped = true
					orch.OnStopRequested()
					continue
				}
				reply := strings.TrimSpace(stdin.Text())
				if reply == "" {
					reply = "(молчание)"
				}
				orch.OnCandidateReply(reply)
			case proto.EventInternal:
				if showInternal {
					fmt.Println(internalColor(ev.Text))
				}
			case proto.EventStatus:
				fmt.Println(statusColor(ev.Text))
			case proto.EventError:
				fmt.Println(errColor(ev.Text))
			case proto.EventFinalReport:
				printReport(ev)
			case proto.EventUser, proto.EventStop, proto.EventCompleted:
				// Already visible on the terminal, or internal bookkeeping.
			}
		}
	}
}

// loadCredentials resolves the provider API key: encrypted secrets file
// first, environment second, then a no-echo prompt as a last resort.
func loadCredentials(secretsDir, provider string) error {
	envName := config.APIKeyEnvName(provider)
	if envName == "" {
		// Local providers such as Ollama need no key.
		return nil
	}

	if config.SecretsFileExists(secretsDir) {
		fmt.Printf("Пароль файла секретов: ")
		password, err := term.ReadPassword(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		secrets, err := config.DecryptSecretsFile(secretsDir, string(password))
		if err != nil {
			return fmt.Errorf("failed to decrypt secrets: %w", err)
		}
		config.SetDecryptedSecrets(secrets)
		return nil
	}

	if os.Getenv(envName) != "" {
		return nil
	}

	fmt.Printf("%s не задан. Введите ключ API (ввод скрыт): ", envName)
	key, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if len(key) == 0 {
		return fmt.Errorf("no API key for provider %s", provider)
	}
	config.SetSecret(envName, string(key))
	return nil
}

// loadCandidate reads the profile file; a missing file falls back to an
// anonymous candidate so the demo flow still works.
func loadCandidate(path string) (candidateInput, error) {
	candidate := candidateInput{
		Name:     "Кандидат",
		Position: "Backend Developer",
		Grade:    "Junior",
		TeamName: "Interview",
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return candidate, nil
	}
	if err != nil {
		return candidate, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &candidate); err != nil {
		return candidate, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return candidate, nil
}

// buildOptions wires storage, the event log and metrics into the
// orchestrator. Storage failures are fatal; the interview must be able
// to persist its outcome.
func buildOptions(cfg config.Config, metricsAddr string) ([]orchestrator.Option, func(), error) {
	var opts []orchestrator.Option
	var closers []func()

	if cfg.Storage.DatabasePath != "" {
		store, err := persistence.Open(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = store.Close() })
		opts = append(opts, orchestrator.WithStore(store))
	}

	if cfg.Storage.EventLogDir != "" {
		writer, err := eventlog.NewWriter(cfg.Storage.EventLogDir)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = writer.Close() })
		opts = append(opts, orchestrator.WithEventLog(writer))
	}

	if metricsAddr != "" {
		opts = append(opts, orchestrator.WithMetrics(metrics.NewPrometheusRecorder()))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "Metrics server failed: %v\n", err)
			}
		}()
		closers = append(closers, func() { _ = srv.Close() })
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return opts, cleanup, nil
}

func printBanner(candidate candidateInput, provider, model string) {
	sep := headerColor("══════════════════════════════════════════════════")
	fmt.Println(sep)
	fmt.Println(headerColor("  Техническое интервью"))
	fmt.Println(sep)
	fmt.Printf("  Кандидат:  %s (%s, %s)\n", candidate.Name, candidate.Position, candidate.Grade)
	fmt.Printf("  Команда:   %s\n", candidate.TeamName)
	fmt.Printf("  Модель:    %s/%s\n", provider, model)
	fmt.Println(sep)
	fmt.Println("  Скажите «стоп» или «хватит», чтобы закончить и получить фидбэк.")
	fmt.Println(sep)
}

func printReport(ev proto.Event) {
	report := ev.Report
	if report == nil {
		fmt.Println(errColor("Финальный отчёт отсутствует."))
		return
	}

	sep := headerColor("══════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println(sep)
	fmt.Println(headerColor("  Финальный отчёт"))
	fmt.Println(sep)

	rec := report.Verdict.Recommendation
	recColored := promptColor(rec)
	if strings.Contains(rec, "No") {
		recColored = errColor(rec)
	}
	fmt.Printf("  Вердикт:      %s\n", recColored)
	fmt.Printf("  Грейд:        %s\n", report.Verdict.Grade)
	fmt.Printf("  Уверенность:  %d/100\n", report.Verdict.ConfidenceScore)

	if len(report.TechnicalReview.Topics) > 0 {
		fmt.Println("\n  Темы:")
		for _, topic := range report.TechnicalReview.Topics {
			line := fmt.Sprintf("   - %s [%s]", topic.Topic, topic.Status)
			if topic.Notes != "" {
				line += ": " + topic.Notes
			}
			fmt.Println(line)
		}
	}
	if len(report.TechnicalReview.ConfirmedSkills) > 0 {
		fmt.Println("\n  Подтверждённые навыки:")
		for _, skill := range report.TechnicalReview.ConfirmedSkills {
			fmt.Printf("   - %s\n", skill)
		}
	}
	if len(report.TechnicalReview.KnowledgeGaps) > 0 {
		fmt.Println("\n  Пробелы:")
		for _, gap := range report.TechnicalReview.KnowledgeGaps {
			fmt.Printf("   - %s\n", gap)
		}
	}

	fmt.Println("\n  Софт-скиллы:")
	fmt.Printf("   - Ясность:       %s\n", report.SoftSkills.Clarity)
	fmt.Printf("   - Честность:     %s\n", report.SoftSkills.Honesty)
	fmt.Printf("   - Вовлечённость:  %s\n", report.SoftSkills.Engagement)

	if len(report.PersonalRoadmap) > 0 {
		fmt.Println("\n  Роадмап:")
		for _, item := range report.PersonalRoadmap {
			fmt.Printf("   - %s: %s\n", item.Topic, strings.Join(item.Resources, ", "))
		}
	}
	fmt.Println(sep)
}
