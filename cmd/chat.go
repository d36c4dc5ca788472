package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aish-sh/aish/internal/chat"
	"github.com/aish-sh/aish/internal/config"
	"github.com/aish-sh/aish/internal/debuglog"
	"github.com/aish-sh/aish/internal/history"
	"github.com/aish-sh/aish/internal/llm"
	"github.com/aish-sh/aish/internal/render"
	"github.com/aish-sh/aish/internal/session"
	"github.com/aish-sh/aish/internal/signal"
)

const prompt = "you> "

// chatShell bundles everything one interactive conversation needs.
type chatShell struct {
	cfg      *config.Config
	console  render.Console
	writes   *render.WriteCounter
	spinner  *render.Spinner
	ai       *chat.Session
	saved    *session.Session
	sessions session.Store
	log      *debuglog.Logger
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext()
	defer stop()

	sessions, err := session.NewStore(cfg.Sessions)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer sessions.Close()

	// Resuming restores the previous session's provider and model before
	// anything is built on top of them.
	var saved *session.Session
	var resumed []llm.Message
	if flagResume {
		current, err := sessions.GetCurrent(ctx)
		if err != nil {
			return err
		}
		if current != nil {
			cfg.ApplyOverrides(current.Provider, current.Model)
			resumed, err = sessions.Messages(ctx, current.ID)
			if err != nil {
				return err
			}
			saved = current
		}
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	if saved == nil {
		saved = &session.Session{Provider: cfg.Provider, Model: cfg.ActiveModel()}
		if err := sessions.Create(ctx, saved); err != nil {
			return err
		}
		if err := sessions.SetCurrent(ctx, saved.ID); err != nil {
			return err
		}
	}

	var logger *debuglog.Logger
	if cfg.Debug.Enabled {
		dir := cfg.Debug.Dir
		if dir == "" {
			stateDir, err := config.GetStateDir()
			if err != nil {
				return err
			}
			dir = filepath.Join(stateDir, "debug")
		}
		logger, err = debuglog.Open(dir, saved.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: debug log disabled: %v\n", err)
		} else {
			defer logger.Close()
		}
	}

	hist := history.NewStore(cfg.BudgetProfile(cfg.ActiveModel()))
	seedHistory(hist, cfg.Chat.Instructions, resumed)

	console := render.NewTTYConsole()
	writes := &render.WriteCounter{}
	spinner := render.NewSpinner(console, writes)
	// Mid-stream repaints keep the thinking markers visible; the markdown
	// pass runs once on the completed message, where glamour dropping the
	// marker lines no longer matters.
	var finalStyler render.Styler
	if cfg.Chat.Markdown {
		width, _ := console.Size()
		if md, err := render.MarkdownStyler(width - 2); err == nil {
			finalStyler = md
		}
	}
	renderer := render.New(console, render.Options{
		Styler:      render.ThinkingStyler(),
		FinalStyler: finalStyler,
		Writes:      writes,
		FastDelay:   time.Duration(cfg.Chat.FastDelayMS) * time.Millisecond,
		SlowDelay:   time.Duration(cfg.Chat.SlowDelayMS) * time.Millisecond,
	})

	shell := &chatShell{
		cfg:      cfg,
		console:  console,
		writes:   writes,
		spinner:  spinner,
		saved:    saved,
		sessions: sessions,
		log:      logger,
	}

	var tool *llm.ToolSpec
	var runner chat.ToolRunner
	if !flagNoTools {
		tool = shellToolSpec()
		runner = shell.runShellTool
	}
	shell.ai = chat.NewSession(chat.Options{
		Provider:    provider,
		Store:       hist,
		Coordinator: chat.NewCoordinator(renderer, spinner, logger),
		Runner:      runner,
		Tool:        tool,
		Temperature: cfg.Chat.Temperature,
		Log:         logger,
	})

	shell.printf("aish — %s/%s (type /help for commands)\n", cfg.Provider, cfg.ActiveModel())
	return shell.loop(ctx)
}

// seedHistory installs the system instructions ahead of any resumed
// transcript. Load replaces the whole log, so the instructions go in as
// part of the same load rather than a prior Append.
func seedHistory(hist *history.Store, instructions string, resumed []llm.Message) {
	msgs := resumed
	if instructions != "" {
		msgs = append([]llm.Message{llm.SystemText(instructions)}, resumed...)
	}
	if len(msgs) > 0 {
		hist.Load(msgs)
	}
}

// printf writes host output through the external-write path so an active
// renderer re-anchors instead of painting over it.
func (s *chatShell) printf(format string, args ...any) {
	fmt.Fprintf(s.console, format, args...)
	s.writes.Bump()
}

func (s *chatShell) loop(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		s.printf("%s", prompt)
		if !scanner.Scan() {
			s.printf("\n")
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := s.handleCommand(ctx, line)
			if err != nil {
				s.printf("error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		s.runTurn(ctx, line)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (s *chatShell) runTurn(ctx context.Context, line string) {
	turnCtx, stopTurn := signal.TurnContext(ctx)
	defer stopTurn()

	s.spinner.Start()
	msg, err := s.ai.Ask(turnCtx, line)
	s.spinner.Stop()

	switch {
	case errors.Is(err, chat.ErrStreamCancelled):
		s.printf("(cancelled)\n")
	case errors.Is(err, history.ErrInputTooLarge):
		s.printf("error: that input alone exceeds the model's context window\n")
	case err != nil:
		var backendErr *llm.BackendError
		if errors.As(err, &backendErr) && backendErr.Unauthorized {
			s.printf("error: %v\ncheck your API key configuration (aish config)\n", err)
			return
		}
		s.printf("error: %v\n", err)
	default:
		if err := s.sessions.AddMessage(ctx, s.saved.ID, llm.UserText(line)); err != nil {
			s.log.Eventf("persist_error", "user message: %v", err)
		}
		if err := s.sessions.AddMessage(ctx, s.saved.ID, msg); err != nil {
			s.log.Eventf("persist_error", "assistant message: %v", err)
		}
	}
}

func (s *chatShell) handleCommand(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/reset":
		s.ai.Reset()
		if s.cfg.Chat.Instructions != "" {
			s.ai.Store().Append(llm.SystemText(s.cfg.Chat.Instructions))
		}
		saved := &session.Session{Provider: s.cfg.Provider, Model: s.cfg.ActiveModel()}
		if err := s.sessions.Create(ctx, saved); err != nil {
			return false, err
		}
		if err := s.sessions.SetCurrent(ctx, saved.ID); err != nil {
			return false, err
		}
		s.saved = saved
		s.printf("conversation reset\n")
		return false, nil

	case "/model":
		if len(fields) < 2 {
			s.printf("active model: %s/%s\n", s.cfg.Provider, s.cfg.ActiveModel())
			return false, nil
		}
		return false, s.switchModel(ctx, fields[1])

	case "/help":
		s.printf("/reset          start a fresh conversation\n" +
			"/model [name]   show or switch the active model (accepts presets)\n" +
			"/quit           exit\n")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
}

// switchModel changes the backend mid-conversation. Token accounting is
// model-specific, so history is cleared and a fresh session is saved.
func (s *chatShell) switchModel(ctx context.Context, name string) error {
	providerName, model, err := resolveModel(s.cfg, name)
	if err != nil {
		return err
	}
	s.cfg.ApplyOverrides(providerName, model)

	provider, err := buildProvider(s.cfg)
	if err != nil {
		return err
	}
	s.ai.SetProvider(provider)
	s.ai.Reconfigure(s.cfg.BudgetProfile(s.cfg.ActiveModel()))
	if s.cfg.Chat.Instructions != "" {
		s.ai.Store().Append(llm.SystemText(s.cfg.Chat.Instructions))
	}

	saved := &session.Session{Provider: s.cfg.Provider, Model: s.cfg.ActiveModel()}
	if err := s.sessions.Create(ctx, saved); err != nil {
		return err
	}
	if err := s.sessions.SetCurrent(ctx, saved.ID); err != nil {
		return err
	}
	s.saved = saved
	s.printf("switched to %s/%s (history cleared)\n", s.cfg.Provider, s.cfg.ActiveModel())
	return nil
}
