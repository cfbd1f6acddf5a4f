package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mkim/mystory/internal/application/container"
	"github.com/mkim/mystory/internal/application/services"
	"github.com/mkim/mystory/internal/application/startup"
	"github.com/mkim/mystory/internal/infrastructure/media"
	contentrepo "github.com/mkim/mystory/internal/infrastructure/persistence/content"
	"github.com/mkim/mystory/internal/infrastructure/security"
	"github.com/mkim/mystory/pkg/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mystory",
		Short:        "Portfolio site server",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Run the web server (same as: mystory serve)
  mystory

  # Create the contact submission schema
  mystory migrate

  # Pre-generate WebP logo variants
  mystory media

  # Produce a value for ADMIN_PASSWORD_HASH
  mystory hash-password
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return startup.Initialize()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newMediaCmd())
	cmd.AddCommand(newContentCmd())
	cmd.AddCommand(newHashPasswordCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startup.Initialize()
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the contact submission schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := startup.NewLogger()
			if err != nil {
				return err
			}
			defer logger.Close()

			db, err := container.OpenDatabase(cmd.Context(), logger)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", config.DatabaseURL)
			return nil
		},
	}
}

func newMediaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "media",
		Short: "Generate WebP variants for every image the content references",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := startup.NewLogger()
			if err != nil {
				return err
			}
			defer logger.Close()

			repo, err := contentrepo.NewSiteRepository(config.ContentFile, logger)
			if err != nil {
				return err
			}
			processor := media.NewImageProcessor(config.StaticDir, config.MediaDir, config.MediaWidths, logger)
			report, err := services.NewContentService(repo, processor, logger).WarmMedia(cmd.Context())
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
}

func printReport(w io.Writer, report media.Report) error {
	fmt.Fprintf(w, "images: %d  variants written: %d  failed: %d\n", report.Images, report.Written, len(report.Failed))
	if len(report.Failed) == 0 {
		return nil
	}
	srcs := make([]string, 0, len(report.Failed))
	for src := range report.Failed {
		srcs = append(srcs, src)
	}
	sort.Strings(srcs)
	for _, src := range srcs {
		fmt.Fprintf(w, "  %s: %s\n", src, report.Failed[src])
	}
	return fmt.Errorf("%d image(s) failed", len(report.Failed))
}

func newContentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Inspect the site content file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [file]",
		Short: "Validate a content file (defaults to CONTENT_FILE)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ContentFile
			if len(args) == 1 {
				path = args[0]
			}
			logger, err := startup.NewLogger()
			if err != nil {
				return err
			}
			defer logger.Close()

			repo, err := contentrepo.NewSiteRepository(path, logger)
			if err != nil {
				return err
			}
			site := repo.Site()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d experiences, %d projects, %d images)\n",
				repo.Source(), len(site.Experiences), len(site.Projects), len(site.Images()))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "default",
		Short: "Print the built-in content file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(contentrepo.DefaultSiteYAML())
			return err
		},
	})
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH (reads stdin when no argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("password must not be empty")
			}
			hash, err := security.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
