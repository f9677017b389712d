package handlers

import (
	"fmt"
	"os"

	"newsbrief/internal/manifest"

	"github.com/spf13/cobra"
)

// NewValidateCmd creates the manifest validation command
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate PATH...",
		Short: "Validate brief manifests against the published schema",
		Long: `Check each manifest against the embedded JSON Schema, reject unknown major
schema versions and verify the content hash still matches the items.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateManifests(cmd, args)
		},
	}
}

func validateManifests(cmd *cobra.Command, paths []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range paths {
		if err := validateManifest(path); err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "OK   %s\n", path)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d manifests are invalid", failed, len(paths))
	}
	return nil
}

func validateManifest(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m, err := manifest.Decode(data)
	if err != nil {
		return err
	}
	ok, err := manifest.VerifyHash(m)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("content_hash does not match items")
	}
	return nil
}
