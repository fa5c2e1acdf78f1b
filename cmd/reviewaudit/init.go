package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/reviewaudit/internal/config"
)

//go:embed templates/reviewaudit.yaml
var configTemplate embed.FS

// configTemplatePath is the template location inside configTemplate.
const configTemplatePath = "templates/reviewaudit.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new reviewaudit configuration file",
		Long: `Initialize creates a new .reviewaudit configuration file in the current directory.

The generated file includes:
- The similarity threshold
- The page layout used to find and categorize pages
- Commented examples for the categorization rules

Examples:
  # Create .reviewaudit in current directory
  reviewaudit init

  # Create config file at a specific path
  reviewaudit init -o myconfig.yaml

  # Force overwrite existing file
  reviewaudit init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if err := writeConfigTemplate(outputPath, force); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to adjust:")
	fmt.Fprintln(out, "  - The similarity threshold for near-duplicate reviews")
	fmt.Fprintln(out, "  - The glob patterns that assign pages to categories")
	fmt.Fprintln(out, "  - The expected services per category")
	fmt.Fprintln(out, "\nCrawl settings (--depth, --delay, --proxy) are passed as flags.")

	return nil
}

// writeConfigTemplate writes the embedded template to path. Without force
// the file is created exclusively, so an existing file is never replaced.
func writeConfigTemplate(path string, force bool) error {
	content, err := configTemplate.ReadFile(configTemplatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(filepath.Clean(path), flags, 0600)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", path)
	}
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	if _, err := f.Write(content); err != nil {
		_ = f.Close() //nolint:errcheck // the write error is reported
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return f.Close()
}
