package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/strada-dev/strada/internal/config"
	"github.com/strada-dev/strada/pkg/router"
)

func routesCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Validate and print the served route table",
		Long: `Routes builds the same route table the serve command would host, from
strada.json and the configured redirect manifest, and prints it as a
tree. A table that fails validation exits non-zero, which makes the
command usable as a CI check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}

			routes, err := loadRoutes(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			table, err := router.NewTable(routes, router.WithMaxRedirects(cfg.MaxRedirects))
			if err != nil {
				return err
			}

			fmt.Printf("%d top-level routes (maxRedirects %d)\n", len(table.Routes()), cfg.MaxRedirects)
			printRoutes(table.Routes(), 0)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "project directory")

	return cmd
}

func printRoutes(routes []*router.Route, depth int) {
	indent := strings.Repeat("  ", depth+1)
	for _, r := range routes {
		path := "/" + r.Path
		fmt.Printf("%s%-30s %s", indent, path, describeRoute(r))
		fmt.Println()
		printRoutes(r.Children, depth+1)
	}
}

func describeRoute(r *router.Route) string {
	var parts []string
	if r.Component != "" {
		parts = append(parts, "component="+r.Component)
	}
	if r.RedirectTo != "" {
		parts = append(parts, "redirectTo="+r.RedirectTo)
	}
	if r.RedirectFunc != nil {
		parts = append(parts, "redirectTo=<func>")
	}
	if r.PathMatch != "" {
		parts = append(parts, "pathMatch="+string(r.PathMatch))
	}
	if r.Outlet != "" {
		parts = append(parts, "outlet="+r.Outlet)
	}
	if n := len(r.Guards); n > 0 {
		parts = append(parts, fmt.Sprintf("guards=%d", n))
	}
	if n := len(r.Resolve); n > 0 {
		parts = append(parts, fmt.Sprintf("resolve=%d", n))
	}
	return strings.Join(parts, " ")
}
