package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"neo4jorm/internal/generator"
	"neo4jorm/pkg/config"
)

// GenerateOptions 是 generate 命令的参数。
type GenerateOptions struct {
	*RootOptions
	generator.Options
}

// NewGenerateCommand 创建 generate 命令。
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a library of repositories and relation managers",
		Long: `Scans the models directory and the relations directory for Go files and
writes one file declaring node types, relation types and a Library.

Relation files are named Start_TYPE_End; a start of X expands to every model.
Values from the generator section of --config are used for flags that are not set.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.DirModel, "dir-model", "models", "模型目录")
	f.StringVar(&opts.DirRelation, "dir-relation", "relations", "关系目录")
	f.StringVar(&opts.ModelsImport, "models-import", "", "模型目录的 Go 导入路径")
	f.StringVar(&opts.RelationsImport, "relations-import", "", "关系目录的 Go 导入路径")
	f.StringVar(&opts.WriteTo, "write-to", ".", "输出目录")
	f.StringVar(&opts.FileName, "file-name", "library", "输出文件名（不含 .go）")
	f.StringVar(&opts.Package, "package", "library", "生成代码的包名")
	f.BoolVar(&opts.Sid, "sid", false, "使用业务 ID（sid）版本的仓库和关系管理器")
	f.BoolVar(&opts.Scd, "scd", false, "嵌入生命周期字段")

	return cmd
}

// applyConfig 用配置文件中的值填充未在命令行显式设置的参数。
func applyConfig(cmd *cobra.Command, opts *generator.Options, cfg config.GeneratorConfig) {
	f := cmd.Flags()
	setString := func(flag string, dst *string, v string) {
		if !f.Changed(flag) && v != "" {
			*dst = v
		}
	}
	setString("dir-model", &opts.DirModel, cfg.DirModel)
	setString("dir-relation", &opts.DirRelation, cfg.DirRelation)
	setString("models-import", &opts.ModelsImport, cfg.ModelsImport)
	setString("relations-import", &opts.RelationsImport, cfg.RelationsImport)
	setString("write-to", &opts.WriteTo, cfg.WriteTo)
	setString("file-name", &opts.FileName, cfg.FileName)
	setString("package", &opts.Package, cfg.Package)
	if !f.Changed("sid") {
		opts.Sid = opts.Sid || cfg.Sid
	}
	if !f.Changed("scd") {
		opts.Scd = opts.Scd || cfg.Scd
	}
}

func runGenerate(cmd *cobra.Command, opts *GenerateOptions) error {
	if opts.ConfigPath != "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return err
		}
		applyConfig(cmd, &opts.Options, cfg.Generator)
	}

	logger := opts.Logger()
	defer logger.Sync()

	path, err := generator.Generate(opts.Options, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
