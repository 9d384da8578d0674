package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/codebot/internal/backup"
	"github.com/nextlevelbuilder/codebot/internal/codes"
	"github.com/nextlevelbuilder/codebot/internal/store"
)

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect and manage the code index",
	}
	cmd.AddCommand(indexStatsCmd())
	cmd.AddCommand(indexListCmd())
	cmd.AddCommand(indexSearchCmd())
	cmd.AddCommand(indexGetCmd())
	cmd.AddCommand(indexDeleteCmd())
	cmd.AddCommand(indexExportCmd())
	cmd.AddCommand(indexImportCmd())
	return cmd
}

// withStore opens the configured store for the duration of fn.
func withStore(fn func(ctx context.Context, s store.MediaStore)) {
	cfg, _ := loadConfig()
	s := mustOpenStore(cfg)
	defer s.Close()
	fn(context.Background(), s)
}

func indexStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number of indexed codes",
		Run: func(cmd *cobra.Command, args []string) {
			withStore(func(ctx context.Context, s store.MediaStore) {
				n, err := s.Count(ctx)
				if err != nil {
					exitErr("%v", err)
				}
				fmt.Printf("Total indexed codes: %d\n", n)
			})
		},
	}
}

func indexListCmd() *cobra.Command {
	var limit, offset int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recently indexed codes",
		Run: func(cmd *cobra.Command, args []string) {
			withStore(func(ctx context.Context, s store.MediaStore) {
				entries, err := s.ListRecent(ctx, limit, offset)
				if err != nil {
					exitErr("%v", err)
				}
				printEntries(os.Stdout, entries, jsonOutput)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many entries")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func indexSearchCmd() *cobra.Command {
	var limit int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "search [pattern]",
		Short: "Find codes containing a substring",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withStore(func(ctx context.Context, s store.MediaStore) {
				entries, err := s.SearchByCode(ctx, codes.NormalizeQuery(args[0]), limit)
				if err != nil {
					exitErr("%v", err)
				}
				printEntries(os.Stdout, entries, jsonOutput)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", store.DefaultSearchLimit, "maximum results")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func indexGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [code]",
		Short: "Show the entry for a code",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withStore(func(ctx context.Context, s store.MediaStore) {
				code := codes.NormalizeQuery(args[0])
				e, err := s.Get(ctx, code)
				if errors.Is(err, store.ErrNotFound) {
					exitErr("code %s not found", code)
				}
				if err != nil {
					exitErr("%v", err)
				}
				printEntries(os.Stdout, []store.MediaEntry{*e}, false)
			})
		},
	}
}

func indexDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete [code]",
		Short: "Remove a code from the index",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			code := codes.NormalizeQuery(args[0])
			if !yes {
				ok, err := promptConfirm(fmt.Sprintf("Delete %s from the index?", code), false)
				if err != nil || !ok {
					fmt.Println("Cancelled.")
					return
				}
			}
			withStore(func(ctx context.Context, s store.MediaStore) {
				deleted, err := s.Delete(ctx, code)
				if err != nil {
					exitErr("%v", err)
				}
				if !deleted {
					exitErr("code %s not found", code)
				}
				fmt.Printf("Deleted %s\n", code)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func indexExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file|s3://bucket/key]",
		Short: "Write the index as JSON lines",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withStore(func(ctx context.Context, s store.MediaStore) {
				n, err := backup.ExportTo(ctx, s, args[0])
				if err != nil {
					exitErr("%v", err)
				}
				fmt.Printf("Exported %d entries to %s\n", n, args[0])
			})
		},
	}
}

func indexImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file|s3://bucket/key]",
		Short: "Load entries from a JSON lines export",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withStore(func(ctx context.Context, s store.MediaStore) {
				n, err := backup.ImportFrom(ctx, s, args[0])
				if err != nil {
					exitErr("%v", err)
				}
				fmt.Printf("Imported %d entries from %s\n", n, args[0])
			})
		},
	}
}

func printEntries(w io.Writer, entries []store.MediaEntry, jsonOutput bool) {
	if jsonOutput {
		if entries == nil {
			entries = []store.MediaEntry{}
		}
		data, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tMESSAGE\tINDEXED\tCAPTION")
	for _, e := range entries {
		caption := runewidth.Truncate(strings.ReplaceAll(e.Caption, "\n", " "), 40, "...")
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.Code, e.SourceMessageID, e.IndexedAt.Local().Format(time.DateTime), caption)
	}
	tw.Flush()
}
