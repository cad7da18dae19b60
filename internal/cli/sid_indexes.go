package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"neo4jorm/infrastructure/database"
	"neo4jorm/internal/bootstrap"
)

// SidIndexesOptions 是 sid-indexes 命令的参数。
type SidIndexesOptions struct {
	*RootOptions
	Labels        []string
	RelationTypes []string
	DryRun        bool
}

// NewSidIndexesCommand 创建 sid-indexes 命令。
func NewSidIndexesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SidIndexesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "sid-indexes",
		Short:         "Create indexes on the sid property",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSidIndexes(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Labels, "label", nil, "节点标签，可重复")
	cmd.Flags().StringSliceVar(&opts.RelationTypes, "type", nil, "关系类型，可重复")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "只打印语句，不连接数据库")

	return cmd
}

func runSidIndexes(cmd *cobra.Command, opts *SidIndexesOptions) error {
	if len(opts.Labels) == 0 && len(opts.RelationTypes) == 0 {
		return errors.New("at least one --label or --type is required")
	}
	if opts.DryRun {
		queries, err := database.SidIndexStatements(opts.Labels, opts.RelationTypes)
		if err != nil {
			return err
		}
		for _, q := range queries {
			fmt.Fprintln(cmd.OutOrStdout(), q)
		}
		return nil
	}
	if opts.ConfigPath == "" {
		return errors.New("--config is required unless --dry-run is set")
	}

	ctx := cmd.Context()
	app, err := bootstrap.Init(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	defer app.Close(ctx)
	return app.EnsureSidIndexes(ctx, opts.Labels, opts.RelationTypes)
}
