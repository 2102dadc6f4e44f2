package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dealgraph/internal/config"
)

func initCmd() *cobra.Command {
	var projectName string
	var dsn string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new dealgraph project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(cmd, projectName, dsn)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&dsn, "dsn", "sqlite://dealgraph.db", "Snapshot store DSN")
	return cmd
}

func runInit(cmd *cobra.Command, projectName, dsn string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}
	if _, err := os.Stat(mappingPath); err == nil {
		return fmt.Errorf("%s already exists", mappingPath)
	}

	mapping, err := yaml.Marshal(config.DefaultMapping())
	if err != nil {
		return fmt.Errorf("encoding mapping: %w", err)
	}

	configContents := fmt.Sprintf("project: %s\nversion: 1\n\ndatabase:\n  dsn: %s\n\nneo4j:\n  uri: bolt://localhost:7687\n  username: neo4j\n  database: neo4j\n\nsources:\n  - name: crm\n    provider: native\n    paths:\n      - ./data/\n\nscoring:\n  recency_days: 90\n", projectName, dsn)
	if err := os.WriteFile(configPath, []byte(configContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	if err := os.WriteFile(mappingPath, mapping, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", mappingPath, err)
	}

	sess, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.close(cmd.Context())

	fmt.Fprintf(os.Stdout, "Initialised %s with %s and %s.\n", projectName, configPath, mappingPath)
	return nil
}
