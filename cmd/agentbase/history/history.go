// Package historycmder provides the history command, which prints stored
// conversations from the terminal.
package historycmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentbase/cmd/agentbase/backend"
	migratecmder "github.com/papercomputeco/agentbase/cmd/agentbase/migrate"
	"github.com/papercomputeco/agentbase/pkg/cliui"
	"github.com/papercomputeco/agentbase/pkg/logger"
	"github.com/papercomputeco/agentbase/pkg/storage"
	"github.com/papercomputeco/agentbase/pkg/utils"
)

const historyLongDesc string = `Show stored conversations.

With a conversation id, renders that conversation as markdown. With --user,
lists the user's conversations, most recently updated first.

Examples:
  agentbase history --user 5b0c...
  agentbase history 0192f3c4-...`

const historyShortDesc string = "Show stored conversations"

type historyCommander struct {
	userID string
	raw    bool
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history [conversation-id]",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && cmder.userID == "" {
				return errors.New("pass a conversation id or --user")
			}

			cfg, configDir, err := migratecmder.ResolveConfig(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			driver, err := backend.OpenStorage(ctx, cfg.Storage, configDir, logger.Nop())
			if err != nil {
				return err
			}
			defer driver.Close()

			if len(args) == 1 {
				return cmder.showConversation(ctx, cmd.OutOrStdout(), driver, args[0])
			}
			return cmder.listConversations(ctx, cmd.OutOrStdout(), driver)
		},
	}

	cmd.Flags().StringVarP(&cmder.userID, "user", "u", "", "List this user's conversations")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print markdown without terminal styling")
	migratecmder.AddStorageFlags(cmd)

	return cmd
}

func (c *historyCommander) listConversations(ctx context.Context, w io.Writer, driver storage.Driver) error {
	convs, err := driver.ListConversations(ctx, c.userID)
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}
	if len(convs) == 0 {
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("No conversations."))
		return nil
	}

	rows := make([][]string, 0, len(convs))
	for _, conv := range convs {
		fav := ""
		if conv.IsFavorite {
			fav = "★"
		}
		rows = append(rows, []string{
			conv.ID,
			utils.Truncate(conv.Title, 48),
			fav,
			conv.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}

	fmt.Fprintln(w, cliui.Table([]string{"ID", "Title", "", "Updated"}, rows))
	return nil
}

func (c *historyCommander) showConversation(ctx context.Context, w io.Writer, driver storage.Driver, id string) error {
	conv, err := driver.GetConversation(ctx, id)
	if err != nil {
		return fmt.Errorf("loading conversation: %w", err)
	}
	if c.userID != "" && conv.UserID != c.userID {
		return fmt.Errorf("conversation %s does not belong to user %s", id, c.userID)
	}

	msgs, err := driver.ListMessages(ctx, id)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}

	md := Markdown(conv, msgs)
	if c.raw {
		_, err = io.WriteString(w, md)
		return err
	}

	rendered, err := cliui.RenderMarkdown(md)
	if err != nil {
		_, err = io.WriteString(w, md)
		return err
	}
	_, err = io.WriteString(w, rendered)
	return err
}

// Markdown renders a conversation transcript.
func Markdown(conv *storage.Conversation, msgs []*storage.Message) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", conv.Title)
	fmt.Fprintf(&b, "_%s · %d messages_\n\n", conv.CreatedAt.Local().Format("2006-01-02 15:04"), len(msgs))

	for _, msg := range msgs {
		switch msg.Role {
		case storage.RoleUser:
			b.WriteString("## You\n\n")
		case storage.RoleAssistant:
			if msg.ModelUsed != "" {
				fmt.Fprintf(&b, "## Assistant (%s)\n\n", msg.ModelUsed)
			} else {
				b.WriteString("## Assistant\n\n")
			}
		default:
			fmt.Fprintf(&b, "## %s\n\n", msg.Role)
		}
		b.WriteString(strings.TrimSpace(msg.Content))
		b.WriteString("\n\n")
	}

	return b.String()
}
