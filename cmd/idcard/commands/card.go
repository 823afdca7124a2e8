package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"idcard/internal/adapters/requests"
	"idcard/internal/avatar"
)

func newCardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Render identity cards",
	}
	cmd.AddCommand(newCardRenderCmd(), newCardLatestCmd(), newCardHistoryCmd())
	return cmd
}

func newCardRenderCmd() *cobra.Command {
	var avatarPath, outPath string
	cmd := &cobra.Command{
		Use:     "render <id>",
		Short:   "Render a member's card to a PNG file",
		Args:    cobra.ExactArgs(1),
		Example: "  idcard card render 482913 --avatar face.png --out card.png",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				p := out(cmd)
				req := requests.RenderCardRequest{ID: args[0]}
				if avatarPath != "" {
					req.AvatarFetcher = requests.AvatarFetcher(avatar.File(avatarPath))
				}
				res := a.handler.RenderCard(cmd.Context(), req)
				if !res.OK() {
					return failed(p, res.Err)
				}
				path := outPath
				if path == "" {
					path = fmt.Sprintf("card-%s.png", args[0])
				}
				if err := os.WriteFile(path, res.Card, 0o644); err != nil {
					return p.Error("Could not write card", err.Error(), []string{"Choose a writable --out path"})
				}
				p.Success("Card written to %s", path)
				if res.CardURL != "" {
					p.Info("Archived copy: %s", res.CardURL)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&avatarPath, "avatar", "", "image file drawn in the avatar slot")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default card-<id>.png)")
	return cmd
}

func newCardLatestCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "latest <id>",
		Short: "Write a member's newest archived card without re-rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				p := out(cmd)
				res := a.handler.LatestCard(cmd.Context(), requests.LatestCardRequest{ID: args[0]})
				if !res.OK() {
					return failed(p, res.Err)
				}
				path := outPath
				if path == "" {
					path = fmt.Sprintf("card-%s.png", args[0])
				}
				if err := os.WriteFile(path, res.Card, 0o644); err != nil {
					return p.Error("Could not write card", err.Error(), []string{"Choose a writable --out path"})
				}
				p.Success("Card %s written to %s", res.Cards[0].Key, path)
				if res.CardURL != "" {
					p.Info("Archived copy: %s", res.CardURL)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default card-<id>.png)")
	return cmd
}

func newCardHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "List a member's archived cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				p := out(cmd)
				res := a.handler.CardHistory(cmd.Context(), requests.CardHistoryRequest{RequesterIsAdmin: true, ID: args[0]})
				if !res.OK() {
					return failed(p, res.Err)
				}
				p.Cards(res.Cards)
				return nil
			})
		},
	}
}
