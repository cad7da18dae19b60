// Package generator 扫描模型目录和关系目录，生成带有节点类型、关系类型
// 以及 Library（每个模型一个仓库、每个关系一个关系管理器）的 Go 源文件。
package generator

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"neo4jorm/biz/dal/neo4jdal"
)

// wildcardStart 作为关系名的起点时表示“所有模型”。
const wildcardStart = "X"

var (
	ErrNothingToGenerate = errors.New("generator: no models or relations found")
	ErrInvalidName       = errors.New("generator: invalid name")
)

// Options 是一次生成的输入。
type Options struct {
	DirModel        string
	DirRelation     string
	ModelsImport    string // 模型目录对应的 Go 包导入路径
	RelationsImport string // 关系目录对应的 Go 包导入路径
	WriteTo         string
	FileName        string // 不含 .go 后缀
	Package         string
	Sid             bool // 嵌入 graph.SidData 并使用 Sid 版本的仓库/关系管理器
	Scd             bool // 嵌入 graph.ScdData
}

// Relation 是一个要生成的关系管理器。
type Relation struct {
	Source       string // 关系目录中声明的类型名，例如 X_LIKES_Post
	Name         string // 展开通配起点后的名字，例如 Person_LIKES_Post
	StartLabel   string
	EndLabel     string
	RelationType string
}

// ScanNames 返回 dir 下所有 .go 文件的文件名（去掉后缀），跳过 _ 开头的文件和测试文件。
func ScanNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("generator: read dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasPrefix(name, "_") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".go"))
	}
	return names, nil
}

// ParseRelation 解析 Start_TYPE_End 形式的关系名。
// TYPE 可以包含下划线；起点为 X 时对每个模型展开一个关系。
func ParseRelation(name string, models []string) ([]Relation, error) {
	parts := strings.Split(name, "_")
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: relation %q is not Start_TYPE_End", ErrInvalidName, name)
	}
	start, end := parts[0], parts[len(parts)-1]
	relType := strings.Join(parts[1:len(parts)-1], "_")
	for _, id := range []string{start, relType, end} {
		if !neo4jdal.ValidIdentifier(id) {
			return nil, fmt.Errorf("%w: relation %q", ErrInvalidName, name)
		}
	}

	if start != wildcardStart {
		return []Relation{{Source: name, Name: name, StartLabel: start, EndLabel: end, RelationType: name}}, nil
	}
	rels := make([]Relation, 0, len(models))
	for _, model := range models {
		expanded := model + "_" + relType + "_" + end
		rels = append(rels, Relation{Source: name, Name: expanded, StartLabel: model, EndLabel: end, RelationType: expanded})
	}
	return rels, nil
}

//go:embed library.tmpl
var libraryTemplate string

var tmpl = template.Must(template.New("library").Parse(libraryTemplate))

type templateData struct {
	Options
	Models    []string
	Sources   []string // 关系目录中的类型名，每个生成一个 _Relation 类型
	Relations []Relation
}

// Render 生成 gofmt 过的源码。
func Render(opts Options, models, relationNames []string) ([]byte, error) {
	if len(models) == 0 && len(relationNames) == 0 {
		return nil, ErrNothingToGenerate
	}
	for _, m := range models {
		if !neo4jdal.ValidIdentifier(m) {
			return nil, fmt.Errorf("%w: model %q", ErrInvalidName, m)
		}
	}
	if len(models) > 0 && opts.ModelsImport == "" {
		return nil, errors.New("generator: models import path is required")
	}
	if len(relationNames) > 0 && opts.RelationsImport == "" {
		return nil, errors.New("generator: relations import path is required")
	}

	data := templateData{Options: opts, Models: models, Sources: relationNames}
	for _, name := range relationNames {
		rels, err := ParseRelation(name, models)
		if err != nil {
			return nil, err
		}
		data.Relations = append(data.Relations, rels...)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("generator: execute template: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("generator: format output: %w", err)
	}
	return src, nil
}

// Generate 扫描目录、生成代码并写入 WriteTo/FileName.go，返回写入的路径。
func Generate(opts Options, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	models, err := ScanNames(opts.DirModel)
	if err != nil {
		return "", err
	}
	relations, err := ScanNames(opts.DirRelation)
	if err != nil {
		return "", err
	}
	logger.Debug("扫描完成", zap.Strings("models", models), zap.Strings("relations", relations))

	src, err := Render(opts, models, relations)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(opts.WriteTo, 0o755); err != nil {
		return "", fmt.Errorf("generator: create output dir: %w", err)
	}
	path := filepath.Join(opts.WriteTo, opts.FileName+".go")
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return "", fmt.Errorf("generator: write %s: %w", path, err)
	}
	logger.Info("生成完成", zap.String("path", path), zap.Int("models", len(models)), zap.Int("relations", len(relations)))
	return path, nil
}
