package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"movieshell/internal/app"
	"movieshell/internal/catalog"
	"movieshell/internal/domain"
	"movieshell/internal/paths"
)

var errCatalogInvalid = errors.New("catalog validation failed")

type catalogContext struct {
	fs      afero.Fs
	library string
}

// target resolves the catalog file from the optional argument, falling back
// to CATALOG_FILE under the library directory.
func (c *catalogContext) target(args []string) (string, app.Config) {
	cfg := app.LoadConfig()
	if c.library != "" {
		cfg.LibraryDir = c.library
	}
	if len(args) > 0 {
		return args[0], cfg
	}
	return cfg.CatalogPath(), cfg
}

func (c *catalogContext) read(path string, cfg app.Config) ([]catalog.Issue, *catalog.Table, error) {
	resolver, err := paths.NewResolver(paths.Config{
		BundledRoot: cfg.BundledDir,
		UserRoot:    cfg.LibraryDir,
		BaseURL:     cfg.PublicBaseURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("configure roots: %w", err)
	}
	issues, table, err := catalog.ReadFile(c.fs, path, catalog.ConfinedTo(resolver))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("catalog %s does not exist (run `movieshell catalog init`)", path)
	}
	return issues, table, err
}

func newCatalogCommand() *cobra.Command {
	ctx := &catalogContext{fs: afero.NewOsFs()}
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and create catalog files",
	}
	catalogCmd.PersistentFlags().StringVar(&ctx.library, "library", "", "User-content root (LIBRARY_DIR)")

	catalogCmd.AddCommand(newCatalogValidateCommand(ctx))
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogInitCommand(ctx))
	return catalogCmd
}

func newCatalogValidateCommand(ctx *catalogContext) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a catalog file and report dropped or cleaned entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, cfg := ctx.target(args)
			out := cmd.OutOrStdout()
			issues, table, err := ctx.read(path, cfg)
			if err != nil {
				fmt.Fprintf(out, "%s %s\n", color.RedString("invalid"), err)
				return errCatalogInvalid
			}
			for _, issue := range issues {
				fmt.Fprintf(out, "%s %s\n", color.YellowString("warning"), issue)
			}
			movies, series := countKinds(table.All())
			fmt.Fprintf(out, "%s %s: %d movies, %d series, %d warnings\n",
				color.GreenString("ok"), table.Source(), movies, series, len(issues))
			if strict && len(issues) > 0 {
				return errCatalogInvalid
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when any entry is dropped or cleaned")
	return cmd
}

func newCatalogListCommand(ctx *catalogContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [file]",
		Short: "List catalog entries in file order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, cfg := ctx.target(args)
			_, table, err := ctx.read(path, cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			headers := []string{"Name", "Type", "Title", "Year", "Media"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
			entries := table.All()
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, entryRow(entry))
			}
			fmt.Fprintln(out, renderTable(headers, rows, aligns, !isTerminal(out)))
			return nil
		},
	}
}

func newCatalogInitCommand(ctx *catalogContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init [file]",
		Short: "Write the sample catalog if the file does not exist",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := ctx.target(args)
			if err := catalog.WritePlaceholder(ctx.fs, path); err != nil {
				if errors.Is(err, fs.ErrExist) {
					return fmt.Errorf("catalog already exists at %s", path)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample catalog to %s\n", path)
			return nil
		},
	}
}

func entryRow(entry domain.Entry) []string {
	year := ""
	if entry.Year != 0 {
		year = strconv.Itoa(entry.Year)
	}
	media := entry.VideoPath
	if entry.Kind == domain.KindSeries {
		media = fmt.Sprintf("%d seasons, %d episodes", len(entry.Seasons), entry.EpisodeCount())
	}
	return []string{entry.Name, string(entry.Kind), entry.DisplayTitle(), year, media}
}

func countKinds(entries []domain.Entry) (movies, series int) {
	for _, entry := range entries {
		switch entry.Kind {
		case domain.KindMovie:
			movies++
		case domain.KindSeries:
			series++
		}
	}
	return movies, series
}
