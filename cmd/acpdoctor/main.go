// acpdoctor validates an ACP runtime adapter configuration file and probes
// whether the configured agent binary is reachable.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openclaw/acp-runtime/logging"
	"github.com/openclaw/acp-runtime/runtime"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "acpdoctor",
	Short: "Validate and probe an ACP runtime adapter configuration",
}

func init() {
	checkCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML or JSON config file (required)")
	_ = checkCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(schemaCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a config file and probe the configured agent binary",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New()

		data, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", configPath, err)
		}

		var raw runtime.RawConfig
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parse %s: %w", configPath, err)
		}

		cfg, err := runtime.ValidateConfig(raw)
		if err != nil {
			var verr *runtime.ValidationError
			if errors.As(err, &verr) {
				for _, issue := range verr.Issues {
					log.Error(issue.Message, "path", issue.Path)
				}
			}
			return err
		}
		log.Info("configuration valid", "command", cfg.Command)

		reg := runtime.NewRegistry(cfg, runtime.WithLogger(log))
		report := reg.Doctor(context.Background())

		if !report.OK {
			log.Error(report.Message, "code", report.Code)
			return fmt.Errorf("%s", report.Code)
		}
		log.Info(report.Message)
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the configuration file's JSON Schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := runtime.ConfigJSONSchema()
		if err != nil {
			return err
		}
		var pretty interface{}
		if err := json.Unmarshal(schema, &pretty); err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pretty)
	},
}
