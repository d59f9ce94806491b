package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	authRepo "inbox-agent/internal/auth/repository"
	syncdomain "inbox-agent/internal/sync/domain"
	"inbox-agent/pkg/ai"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Register (or with --stop, cancel) the mailbox watch",
	RunE: func(cmd *cobra.Command, args []string) error {
		stopWatch, _ := cmd.Flags().GetBool("stop")
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		mailbox, err := a.mailbox(ctx)
		if err != nil {
			return err
		}
		leases := a.leases(mailbox)

		if stopWatch {
			if err := leases.Stop(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "watch stopped")
			return nil
		}

		lease, err := leases.Renew(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "watch registered: history_id=%d expires=%s\n", lease.HistoryID, lease.Expiration.Format(time.RFC3339))
		return nil
	},
}

var cursorCmd = &cobra.Command{
	Use:   "cursor",
	Short: "Print the stored sync cursor and watch expiry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		cur, err := a.cursors.Load(ctx)
		if errors.Is(err, syncdomain.ErrCursorNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "cursor not initialized; run `inbox-agent watch` first")
			return nil
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cur)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Add knowledge snippets from text files (one per paragraph) or .eml messages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if a.cfg.ChromaURL == "" && a.cfg.ChromaAPIKey == "" {
			a.logger.Warn().Msg("no CHROMA_URL configured, snippets are only kept for this process")
		}

		total := 0
		for _, path := range args {
			snippets, err := snippetsFromFile(path)
			if err != nil {
				return err
			}
			n, err := a.knowledge.Ingest(ctx, snippets, path)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}
			total += n
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ingested %d snippets\n", total)
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry [message-id]",
	Short: "Re-run one message, or every failed message with attempts left",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		mailbox, err := a.mailbox(ctx)
		if err != nil {
			return err
		}
		pipeline, err := a.pipeline(mailbox, ai.NewRuntimeSettings(a.cfg.OllamaBaseURL, a.cfg.OllamaModel), nil)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			n, err := pipeline.RetryFailed(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "retried %d messages\n", n)
			return nil
		}

		cp, err := pipeline.Retry(ctx, args[0])
		if cp != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (attempts=%d)\n", cp.MessageID, cp.Status, cp.Attempts)
		}
		return err
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := authRepo.HashPassword(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	watchCmd.Flags().Bool("stop", false, "Cancel the watch instead of renewing it")
}
