package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/debemdeboas/pagedraft/internal/auth"
	"github.com/debemdeboas/pagedraft/internal/dialog"
	"github.com/debemdeboas/pagedraft/internal/i18n"
	"github.com/debemdeboas/pagedraft/internal/model"
	"github.com/debemdeboas/pagedraft/internal/notices"
)

var errNotCreated = errors.New("page was not created")

// consoleNotifier prints notices instead of publishing them.
type consoleNotifier struct {
	out io.Writer
}

func (n consoleNotifier) CreateSuccessNotice(_ context.Context, content string, opts notices.Options) notices.Notice {
	fmt.Fprintln(n.out, successStyle.Render(content))
	return notices.Notice{ID: opts.ID, Status: notices.StatusSuccess, Content: content, Type: opts.Type}
}

func (n consoleNotifier) CreateErrorNotice(_ context.Context, content string, opts notices.Options) notices.Notice {
	fmt.Fprintln(n.out, errorStyle.Render(content))
	return notices.Notice{ID: opts.ID, Status: notices.StatusError, Content: content, Type: opts.Type}
}

func newPageCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Page operations",
	}
	cmd.AddCommand(
		newPageNewCmd(root),
		newPageListCmd(root),
	)
	return cmd
}

func newPageNewCmd(root *rootOptions) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a draft page",
		Long: `Create a draft page the same way the "Draft a new page" dialog does.

The page type's block template seeds the content. An empty title saves the
page with the "No title" slug.

Examples:
  pagedraft page new --title "About us"
  pagedraft page new --title "Sobre nós" --lang pt-BR`,
		Args: cobra.NoArgs,
		RunE: root.withApp(func(cmd *cobra.Command, args []string, e *env) error {
			ctx := auth.ContextWithUserID(cmd.Context(), model.UserID(e.secrets.AdminUserID))
			ctx = i18n.WithTag(ctx, e.lang)

			var created *model.Post
			d := dialog.New(e.app.Store, consoleNotifier{out: cmd.OutOrStdout()}, i18n.Printer(e.lang),
				dialog.OnSave(func(p *model.Post) { created = p }),
			)
			d.SubmitTitle(ctx, title)

			if created == nil {
				return errNotCreated
			}
			fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render(fmt.Sprintf("id=%s slug=%s", created.ID, created.Slug)))
			return nil
		}),
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "page title")
	return cmd
}

func newPageListCmd(root *rootOptions) *cobra.Command {
	var postType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored records of a post type",
		Args:  cobra.NoArgs,
		RunE: root.withApp(func(cmd *cobra.Command, args []string, e *env) error {
			if _, err := e.app.Types.Get(postType); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tSLUG\tTITLE")
			for _, p := range e.app.Store.ListRecords(postType) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Status, p.Slug, p.Title.Raw)
			}
			return w.Flush()
		}),
	}

	cmd.Flags().StringVar(&postType, "type", "page", "post type")
	return cmd
}
