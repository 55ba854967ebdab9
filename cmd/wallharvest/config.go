package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"wallharvest/pkg/config"
	"wallharvest/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage wallharvest configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (WALLHARVEST_*)
  - A .env file
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.wallharvest.yaml' in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from every source and report all problems at once.

This command checks:
  - YAML syntax
  - Required fields
  - Value types and ranges
  - Output directory accessibility`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# wallharvest configuration file
#
# Every option can also be set with a WALLHARVEST_* environment variable,
# for example WALLHARVEST_COLLECTIONS=nature,space or WALLHARVEST_OUTPUT_DIR.

# Gallery site
site:
  base_url: "https://wallpaperscraft.com"

  # Listing location of a collection. {collection} and {page} are substituted.
  listing_path: "/catalog/{collection}/ratings/page{page}"

  # Listing pages visited per collection when listing_path contains {page}
  pages: 1

  # CSS selector of wallpaper links, or of containers holding them
  link_selector: "div.wallpapers > ul > li > a"

  # Keep only links whose text is exactly this (optional)
  link_text: ""

  # "Load more" control clicked while visible, at most max_expansions times (optional)
  load_more_selector: ""
  max_expansions: 10
  expansion_wait: 3s

# Collections harvested in order
collections:
  - nature
  - space

# Mapping of discovered links to download URLs and filenames
normalize:
  # auto, slug or direct
  mode: auto
  strip_prefixes: ["/download/"]
  join_char: "_"
  extension: ".jpg"
  asset_path: "/image/"

output:
  base_directory: "./wallpapers"
  # Write every collection into base_directory instead of a subdirectory each
  merged: false

browser:
  headless: true
  # Chrome or Chromium executable, found on PATH when empty
  executable_path: ""
  navigation_timeout: 60s

download:
  max_attempts: 20
  retry_delay: 3s
  timeout: 2m
  # Ask the server for the file size before downloading
  probe_size: true

integrity:
  # Files smaller than this are treated as failed downloads
  min_file_size: 10000
  # Allowed difference from the remote size
  size_tolerance: 1000
  # Re-download files whose size differs from the remote size
  strict: false

logging:
  # debug, info, warn, error
  level: info
  # Also write JSON logs to this file (optional)
  file: ""
  no_color: false

metrics:
  # Write Prometheus metrics here after each run (optional)
  textfile: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".wallharvest.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	p := ui.NewPrinter(cmd.OutOrStdout(), noColor, false)
	p.PrintSuccess("Configuration file created: " + configPath)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "1. Edit the site settings and the collections to harvest")
	fmt.Fprintln(out, "2. Run 'wallharvest config validate' to check the configuration")
	fmt.Fprintln(out, "3. Start harvesting with 'wallharvest run'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(configFile, commandLineFlags(cmd, nil))
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, string(data))

	if err := cfg.Validate(); err != nil {
		ui.NewPrinter(out, noColor, false).PrintWarning("Configuration is not valid yet: " + err.Error())
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout(), noColor, false)

	cfg, err := config.Load(configFile, commandLineFlags(cmd, nil))
	if err != nil {
		p.PrintError("Configuration validation failed", err)
		return err
	}

	if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
		p.PrintError("Cannot create output directory", err)
		return err
	}

	p.PrintSuccess("Configuration is valid")
	p.PrintInfo("Site", cfg.Site.BaseURL)
	p.PrintInfo("Collections", fmt.Sprintf("%v", cfg.Collections))
	p.PrintInfo("Pages per collection", fmt.Sprintf("%d", cfg.PageCount()))
	p.PrintInfo("Output directory", cfg.Output.BaseDirectory)
	p.PrintInfo("Max attempts", fmt.Sprintf("%d", cfg.Download.MaxAttempts))
	p.PrintInfo("Retry delay", cfg.Download.RetryDelay.String())
	return nil
}
