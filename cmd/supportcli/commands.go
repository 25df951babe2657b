package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/profile-support/internal/auth"
	"github.com/spec-kit/profile-support/internal/config"
	"github.com/spec-kit/profile-support/internal/domain"
	"github.com/spec-kit/profile-support/internal/observability"
	"github.com/spec-kit/profile-support/internal/supportchat"
	"github.com/spec-kit/profile-support/internal/supportclient"
	"github.com/spec-kit/profile-support/internal/toast"
)

type options struct {
	endpoint string
	adminKey string
	interval time.Duration
	timeout  time.Duration
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "supportcli",
		Short:        "Read and write the support chat log",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.endpoint, "endpoint", envOr("SUPPORT_ENDPOINT_URL", "http://127.0.0.1:8080/api/support/messages"), "support-messages endpoint")
	flags.StringVar(&opts.adminKey, "admin-key", os.Getenv("ADMIN_KEY"), "post as administrator")
	flags.DurationVar(&opts.interval, "interval", supportchat.DefaultPollInterval, "poll interval for tail")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(newTailCmd(opts), newSendCmd(opts), newHashKeyCmd())
	return root
}

func newTailCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Print the log and follow new messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := observability.NewLogger(config.LoggerConfig{Level: opts.logLevel})
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			printer := newLogPrinter(cmd.OutOrStdout())
			chat := supportchat.NewChat(supportchat.Options{
				Remote:   opts.client(),
				Logger:   logger,
				Interval: opts.interval,
				OnChange: func(state supportchat.State) { printer.print(state.Messages) },
			})

			chat.Mount(ctx)
			<-ctx.Done()
			chat.Unmount()
			return nil
		},
	}
}

func newSendCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "send <text>",
		Short: "Post a message to the log",
		Args:  cobra.MatchAll(cobra.MinimumNArgs(1), nonBlankText),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := observability.NewLogger(config.LoggerConfig{Level: opts.logLevel})
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			chat := supportchat.NewChat(supportchat.Options{
				Remote:   opts.client(),
				Notifier: stderrNotifier{w: cmd.ErrOrStderr()},
				Logger:   logger,
			})
			chat.SetInput(strings.Join(args, " "))
			if err := chat.Send(cmd.Context()); err != nil {
				return err
			}

			newLogPrinter(cmd.OutOrStdout()).print(chat.State().Messages)
			return nil
		},
	}
}

// nonBlankText rejects messages the chat would silently drop.
func nonBlankText(_ *cobra.Command, args []string) error {
	if strings.TrimSpace(strings.Join(args, " ")) == "" {
		return errors.New("message text is blank")
	}
	return nil
}

func newHashKeyCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-key <admin key>",
		Short: "Print a bcrypt hash usable as ADMIN_KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashed, err := auth.HashAdminKey(args[0], cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hashed)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func (o *options) client() *supportclient.Client {
	var opts []supportclient.Option
	if o.adminKey != "" {
		opts = append(opts, supportclient.WithAdminKey(o.adminKey))
	}
	return supportclient.New(o.endpoint, o.timeout, opts...)
}

// logPrinter prints each message once, in log order.
type logPrinter struct {
	w    io.Writer
	mu   sync.Mutex
	seen map[string]struct{}
}

func newLogPrinter(w io.Writer) *logPrinter {
	return &logPrinter{w: w, seen: make(map[string]struct{})}
}

func (p *logPrinter) print(messages []domain.SupportMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, msg := range messages {
		if _, ok := p.seen[msg.ID]; ok {
			continue
		}
		p.seen[msg.ID] = struct{}{}
		fmt.Fprintf(p.w, "[%s] %-7s %s\n", supportchat.FormatTimestamp(msg.Timestamp, time.Local), msg.Sender, msg.Text)
	}
}

type stderrNotifier struct {
	w io.Writer
}

func (n stderrNotifier) Notify(t toast.Toast) {
	fmt.Fprintf(n.w, "%s: %s\n", t.Title, t.Description)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

