package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/screencraft/internal/app"
	"github.com/Guilhem-Bonnet/screencraft/internal/buildinfo"
	"github.com/spf13/cobra"
)

type cliContext struct {
	server  string
	timeout time.Duration
	json    bool
}

func (c *cliContext) client() *apiClient {
	return newAPIClient(c.server, c.timeout)
}

func newRootCommand() *cobra.Command {
	ctx := &cliContext{}

	root := &cobra.Command{
		Use:           "screencraft",
		Short:         "Client CLI de screencraft-server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	server := os.Getenv("SCREENCRAFT_SERVER_URL")
	if server == "" {
		server = "http://127.0.0.1:4000"
	}
	root.PersistentFlags().StringVar(&ctx.server, "server", server, "URL du serveur")
	root.PersistentFlags().DurationVar(&ctx.timeout, "timeout", 10*time.Second, "Timeout HTTP")
	root.PersistentFlags().BoolVar(&ctx.json, "json", false, "Sortie JSON brute")

	root.AddCommand(newHealthCommand(ctx))
	root.AddCommand(newVersionCommand(ctx))
	root.AddCommand(newHomeScreensCommand(ctx))
	root.AddCommand(newSectionsCommand(ctx))
	return root
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newHealthCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Vérifie que le serveur répond",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out map[string]string
			if err := ctx.client().get(cmd.Context(), "/health", &out); err != nil {
				return err
			}
			if ctx.json {
				return writeJSON(cmd, out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out["status"])
			return nil
		},
	}
}

func newVersionCommand(ctx *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Affiche la version du client et du serveur",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var remote buildinfo.Info
			err := ctx.client().get(cmd.Context(), "/version", &remote)
			if ctx.json {
				return writeJSON(cmd, map[string]any{"client": buildinfo.Current(), "server": remote})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "client:", buildinfo.Current())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "server:", remote)
			return nil
		},
	}
}

func newHomeScreensCommand(ctx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "home-screens",
		Aliases: []string{"hs"},
		Short:   "Configurations d'écran d'accueil",
	}

	var page, limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "Liste les configurations (active en premier)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out app.Page[app.HomeScreenDTO]
			path := fmt.Sprintf("/home-screens?page=%d&limit=%d", page, limit)
			if err := ctx.client().get(cmd.Context(), path, &out); err != nil {
				return err
			}
			if ctx.json {
				return writeJSON(cmd, out)
			}
			rows := make([][]string, 0, len(out.Items))
			for _, cfg := range out.Items {
				rows = append(rows, []string{
					cfg.ID,
					activeMark(cfg.IsActive),
					strconv.Itoa(len(cfg.Sections)),
					cfg.UpdatedAt.Format(time.RFC3339),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Active", "Sections", "Updated"}, rows, 2))
			fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d (%d total)\n", out.Page, out.TotalPages, out.Total)
			return nil
		},
	}
	list.Flags().IntVar(&page, "page", 1, "Page (1..n)")
	list.Flags().IntVar(&limit, "limit", 10, "Éléments par page")

	show := func(use, short string, method string, path func(args []string) string, nargs int) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(nargs),
			RunE: func(cmd *cobra.Command, args []string) error {
				var out app.HomeScreenDTO
				if err := ctx.client().do(cmd.Context(), method, path(args), nil, &out); err != nil {
					return err
				}
				return printHomeScreen(cmd, ctx, out)
			},
		}
	}

	cmd.AddCommand(list)
	cmd.AddCommand(show("active", "Affiche la configuration active", http.MethodGet,
		func([]string) string { return "/home-screens/active" }, 0))
	cmd.AddCommand(show("get <id>", "Affiche une configuration", http.MethodGet,
		func(a []string) string { return "/home-screens/" + segment(a[0]) }, 1))
	cmd.AddCommand(show("activate <id>", "Active une configuration", http.MethodPut,
		func(a []string) string { return "/home-screens/" + segment(a[0]) + "/activate" }, 1))
	cmd.AddCommand(show("create", "Crée une configuration vide (inactive)", http.MethodPost,
		func([]string) string { return "/home-screens" }, 0))
	cmd.AddCommand(show("delete <id>", "Supprime une configuration", http.MethodDelete,
		func(a []string) string { return "/home-screens/" + segment(a[0]) }, 1))
	return cmd
}

func newSectionsCommand(ctx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sections",
		Short: "Sections d'une configuration",
	}

	mutate := func(cmd *cobra.Command, method, path string, body any) error {
		var out app.HomeScreenDTO
		if err := ctx.client().do(cmd.Context(), method, path, body, &out); err != nil {
			return err
		}
		return printHomeScreen(cmd, ctx, out)
	}
	sectionPath := func(id, name string) string {
		return "/home-screens/" + segment(id) + "/sections/" + segment(name)
	}

	var order int
	add := &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Ajoute une section (en fin de liste sans --order)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := app.SectionInput{Name: args[1]}
			if cmd.Flags().Changed("order") {
				body.Order = &order
			}
			return mutate(cmd, http.MethodPost, "/home-screens/"+segment(args[0])+"/sections", body)
		},
	}
	add.Flags().IntVar(&order, "order", 0, "Position de la section")

	reorder := &cobra.Command{
		Use:   "reorder <id> <name> <order>",
		Short: "Déplace une section",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid order %q", args[2])
			}
			return mutate(cmd, http.MethodPatch, sectionPath(args[0], args[1]), app.UpdateSectionRequest{Order: &n})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id> <name>",
		Short: "Supprime une section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, http.MethodDelete, sectionPath(args[0], args[1]), nil)
		},
	}

	addItem := &cobra.Command{
		Use:   "add-item <id> <section> <contentItemId>",
		Short: "Ajoute un contenu à une section (idempotent)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, http.MethodPost, sectionPath(args[0], args[1])+"/content",
				map[string]string{"contentItemId": args[2]})
		},
	}

	removeItem := &cobra.Command{
		Use:   "remove-item <id> <section> <contentItemId>",
		Short: "Retire un contenu d'une section",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, http.MethodDelete, sectionPath(args[0], args[1])+"/content/"+segment(args[2]), nil)
		},
	}

	cmd.AddCommand(add, reorder, remove, addItem, removeItem)
	return cmd
}

func printHomeScreen(cmd *cobra.Command, ctx *cliContext, cfg app.HomeScreenDTO) error {
	if ctx.json {
		return writeJSON(cmd, cfg)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s  active=%s  version=%d\n", cfg.ID, activeMark(cfg.IsActive), cfg.Version)
	rows := make([][]string, 0, len(cfg.Sections))
	for _, s := range cfg.Sections {
		names := make([]string, 0, len(s.Items))
		for _, it := range s.Items {
			names = append(names, it.Name)
		}
		rows = append(rows, []string{strconv.Itoa(s.Order), s.Name, strings.Join(names, ", ")})
	}
	fmt.Fprintln(w, renderTable([]string{"Order", "Section", "Items"}, rows, 0))
	return nil
}

func activeMark(active bool) string {
	if active {
		return "yes"
	}
	return "no"
}
