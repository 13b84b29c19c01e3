package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"parley/internal/app"
	"parley/internal/client"
	"parley/internal/config"
	"parley/internal/devserver"
	"parley/internal/logging"
	"parley/internal/store"
	"parley/internal/types"
)

const usageText = `parley is a terminal chat client.

Usage:
  parley <command> [flags]

Commands:
  ui       run the terminal UI (default)
  ls       list conversations
  new      create a conversation
  rm       delete a conversation
  send     send a message and print the reply
  tail     print a conversation transcript
  watch    follow live updates
  status   check backend health
  serve    run the bundled development backend
  help     show help

Flags:
  -h, --help   show help

Examples:
  parley ui
  parley send <id> "hello there"
  parley watch <id>
  parley serve --addr 127.0.0.1:8787
`

const version = "dev"

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		exitOnErr("ui", runUI(nil))
		return
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
	case "ui":
		exitOnErr("ui", runUI(args[1:]))
	case "ls":
		exitOnErr("ls", runLS(args[1:]))
	case "new":
		exitOnErr("new", runNew(args[1:]))
	case "rm":
		exitOnErr("rm", runRM(args[1:]))
	case "send":
		exitOnErr("send", runSend(args[1:]))
	case "tail":
		exitOnErr("tail", runTail(args[1:]))
	case "watch":
		exitOnErr("watch", runWatch(args[1:]))
	case "status":
		exitOnErr("status", runStatus(args[1:]))
	case "serve":
		exitOnErr("serve", runServe(args[1:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func newClient(cfg config.Config) (*client.Client, error) {
	if token := strings.TrimSpace(cfg.Server.Token); token != "" {
		return client.NewWithBaseURL(cfg.ServerURL(), token), nil
	}
	return client.New(cfg.ServerURL())
}

func runUI(args []string) error {
	fs := flag.NewFlagSet("ui", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	plain := fs.Bool("plain", false, "disable markdown rendering")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	markdown := cfg.MarkdownEnabled() && !*plain
	return app.Run(c, repo, markdown)
}

func openRepository(cfg config.Config) (store.Repository, error) {
	statePath, err := config.StatePath()
	if err != nil {
		return nil, err
	}
	cachePath, err := config.ConversationsCachePath()
	if err != nil {
		return nil, err
	}
	dbPath, err := config.CacheDBPath()
	if err != nil {
		return nil, err
	}
	return store.OpenRepository(store.RepositoryPaths{
		AppStatePath:      statePath,
		ConversationsPath: cachePath,
		DBPath:            dbPath,
	}, cfg.StoreBackend())
}

func runLS(args []string) error {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cachedOnly := fs.Bool("cached", false, "list from the local cache without contacting the server")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if !*cachedOnly {
		c, err := newClient(cfg)
		if err != nil {
			return err
		}
		conversations, err := c.ListConversations(ctx)
		if err == nil {
			_ = repo.Conversations().Replace(ctx, conversations)
			printConversations(conversations, false)
			return nil
		}
		if !isServerUnavailable(err) {
			return err
		}
	}

	conversations, err := repo.Conversations().List(ctx)
	if err != nil {
		return err
	}
	printConversations(conversations, true)
	return nil
}

func runNew(args []string) error {
	fs := flag.NewFlagSet("new", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conversation, err := c.CreateConversation(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, conversation.ID)
	return nil
}

func runRM(args []string) error {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("rm requires a conversation id")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.DeleteConversation(ctx, fs.Arg(0)); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "ok")
	return nil
}

func runSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	createNew := fs.Bool("new", false, "create a conversation first and send into it")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var conversationID string
	var text string
	if *createNew {
		if fs.NArg() < 1 {
			return errors.New("send requires message text")
		}
		conversation, err := c.CreateConversation(ctx)
		if err != nil {
			return err
		}
		conversationID = conversation.ID
		text = strings.Join(fs.Args(), " ")
		fmt.Fprintln(os.Stderr, "conversation:", conversationID)
	} else {
		if fs.NArg() < 2 {
			return errors.New("send requires a conversation id and message text")
		}
		conversationID = fs.Arg(0)
		text = strings.Join(fs.Args()[1:], " ")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("message text is empty")
	}

	// The send protocol: persist the user message, then ask for the
	// reply. A failed insert never triggers a reply request.
	if _, err := c.InsertMessage(ctx, conversationID, text); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	resp, err := c.RequestReply(ctx, conversationID, text)
	if err != nil {
		return fmt.Errorf("request reply: %w", err)
	}
	fmt.Fprintln(os.Stdout, resp.Reply)
	return nil
}

func runTail(args []string) error {
	fs := flag.NewFlagSet("tail", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	last := fs.Int("n", 0, "print only the last n messages (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("tail requires a conversation id")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conversation, err := c.GetConversation(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	messages, err := c.ListMessages(ctx, conversation.ID)
	if err != nil {
		return err
	}
	if *last > 0 && len(messages) > *last {
		messages = messages[len(messages)-*last:]
	}

	fmt.Fprintf(os.Stdout, "== %s ==\n", conversation.DisplayTitle())
	for _, m := range messages {
		printMessage(m)
	}
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := c.Health(ctx)
	if err != nil {
		if isServerUnavailable(err) {
			return fmt.Errorf("backend unreachable at %s: %w", cfg.ServerURL(), err)
		}
		return err
	}
	state := "ok"
	if !health.OK {
		state = "degraded"
	}
	fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", cfg.ServerURL(), state, health.Version)
	return nil
}

func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if fs.NArg() >= 1 {
		return watchMessages(ctx, c, fs.Arg(0))
	}
	return watchConversations(ctx, c)
}

func watchConversations(ctx context.Context, c *client.Client) error {
	ch, cancel, err := c.SubscribeConversations(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot, ok := <-ch:
			if !ok {
				return errors.New("stream closed")
			}
			fmt.Fprintf(os.Stdout, "-- %d conversations --\n", len(snapshot))
			printConversations(snapshot, false)
		}
	}
}

func watchMessages(ctx context.Context, c *client.Client, conversationID string) error {
	headerCtx, cancelHeader := context.WithTimeout(ctx, 5*time.Second)
	conversation, err := c.GetConversation(headerCtx, conversationID)
	cancelHeader()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "== %s ==\n", conversation.DisplayTitle())

	ch, cancel, err := c.SubscribeMessages(ctx, conversation.ID)
	if err != nil {
		return err
	}
	defer cancel()

	// Track the last printed message so each snapshot only emits what is
	// new; snapshots always carry the full transcript.
	printed := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case snapshot, ok := <-ch:
			if !ok {
				return errors.New("stream closed")
			}
			if len(snapshot) < printed {
				printed = 0
			}
			for _, m := range snapshot[printed:] {
				printMessage(m)
			}
			printed = len(snapshot)
		}
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addr := fs.String("addr", "127.0.0.1:8787", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dataDir, err := config.DataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return err
	}
	tokenPath, err := config.TokenPath()
	if err != nil {
		return err
	}
	token, err := devserver.LoadOrCreateToken(tokenPath)
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := devserver.New(buildVersion(), nil, logger)
	return server.Run(ctx, *addr, token)
}

func printMessage(m *types.Message) {
	fmt.Fprintf(os.Stdout, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04:05"), m.Role, m.Content)
}

func printConversations(conversations []*types.Conversation, cached bool) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	header := "ID\tCREATED\tTITLE"
	if cached {
		header += "\t(cached)"
	}
	fmt.Fprintln(writer, header)
	for _, c := range conversations {
		fmt.Fprintf(writer, "%s\t%s\t%s\n", c.ID, c.CreatedAt.Local().Format("2006-01-02 15:04"), c.DisplayTitle())
	}
	_ = writer.Flush()
}

func isServerUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host")
}

func exitOnErr(label string, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision string
		var modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if revision != "" {
			if modified == "true" {
				return revision + "-dirty"
			}
			return revision
		}
	}

	exe, err := os.Executable()
	if err == nil {
		file, err := os.Open(exe)
		if err == nil {
			defer file.Close()
			hasher := sha256.New()
			if _, err := io.Copy(hasher, file); err == nil {
				sum := hasher.Sum(nil)
				return fmt.Sprintf("bin-%x", sum[:6])
			}
		}
	}

	return version
}
