package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kfreiman/docconv/internal/mcp"
	"github.com/kfreiman/docconv/internal/server"
	"github.com/kfreiman/docconv/internal/storage"
)

// sweepCmd represents the sweep command
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove leftover workspaces and engine profiles once",
	Long: `Remove workspace and LibreOffice profile directories older than a TTL.

Directories are normally removed when their request finishes; this cleans up
after a crashed or killed server. Uses WORKSPACE_TTL when --ttl is not given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := loadLogger()
		if err != nil {
			return err
		}

		cfg, err := server.LoadConfig()
		if err != nil {
			return err
		}

		ttlFlag, _ := cmd.Flags().GetString("ttl")
		ttl, err := mcp.ParseTTL(ttlFlag)
		if err != nil {
			return err
		}
		if ttl == 0 {
			ttl = cfg.WorkspaceTTL
		}

		roots := []struct {
			root string
			kind storage.Kind
		}{
			{cfg.WorkspaceRoot, storage.KindWorkspace},
			{cfg.ProfileRoot, storage.KindProfile},
		}

		for _, r := range roots {
			m, err := storage.NewWorkspaceManager(storage.WorkspaceConfig{
				Root:       r.root,
				Kind:       r.kind,
				DefaultTTL: cfg.WorkspaceTTL,
				Logger:     logger,
			})
			if err != nil {
				return err
			}

			removed, err := m.Sweep(ctx, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: removed %d directories older than %s from %s\n", r.kind, removed, ttl, r.root)
		}

		return nil
	},
}

func init() {
	sweepCmd.Flags().String("ttl", "", "Remove directories older than this (e.g. 2h, or hours as a number)")
	rootCmd.AddCommand(sweepCmd)
}
