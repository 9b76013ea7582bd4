// Package main prints the OpenAPI document for the lampd HTTP API. Routes
// are registered against stub handlers, so nothing beyond the route
// definitions is needed to produce it.
//
// Usage:
//
//	go run ./cmd/lamp-openapi > openapi.json
//	go run ./cmd/lamp-openapi --yaml -o openapi.yaml
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Lamprichauns/lamp-os/internal/http/routes"
)

var version = "dev"

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var outputFile, baseURL string
	var asYAML bool

	cmd := &cobra.Command{
		Use:          "lamp-openapi",
		Short:        "Print the OpenAPI document for the lampd HTTP API",
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := generate(baseURL, asYAML)
			if err != nil {
				return err
			}
			if outputFile == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outputFile, data, 0644); err != nil {
				return fmt.Errorf("error writing %s: %w", outputFile, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "OpenAPI document written to %s\n", outputFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Output YAML instead of JSON")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Server URL to list in the document")
	return cmd
}

// generate builds the document from the shared route table.
func generate(baseURL string, asYAML bool) ([]byte, error) {
	api := humachi.New(chi.NewRouter(), routes.NewHumaConfig(version, baseURL))
	routes.Register(api, routes.StubHandlers())
	doc := api.OpenAPI()

	if asYAML {
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("error encoding OpenAPI YAML: %w", err)
		}
		return data, nil
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error encoding OpenAPI JSON: %w", err)
	}
	return append(data, '\n'), nil
}

