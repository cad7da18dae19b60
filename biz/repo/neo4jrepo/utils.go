package neo4jrepo

import (
	"fmt"
	"maps"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"neo4jorm/biz/dal/neo4jdal"
	"neo4jorm/biz/model/graph"
)

// --- 通用辅助函数 ---

// checkIdentifier 校验会被拼接进查询文本的标识符。
func checkIdentifier(kind, name string) error {
	if !neo4jdal.ValidIdentifier(name) {
		return fmt.Errorf("%w: %s %q", ErrInvalidIdentifier, kind, name)
	}
	return nil
}

// idProperty 是记录中身份字段对应的属性名，写入时剔除，读取时用内部 ID 回填。
const idProperty = "id"

func newDecoder(result any) (*mapstructure.Decoder, error) {
	return mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
		Result:           result,
	})
}

// toProperties 把记录转换为可以作为 Cypher 参数的属性 map。
// 身份字段 id 是数据库内部 ID，不作为属性写入。
func toProperties(v any) (map[string]any, error) {
	props := make(map[string]any)
	if m, ok := v.(map[string]any); ok {
		maps.Copy(props, m)
	} else {
		dec, err := newDecoder(&props)
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(v); err != nil {
			return nil, fmt.Errorf("repo: 记录转换为属性失败: %w", err)
		}
	}
	delete(props, idProperty)
	return props, nil
}

// partialProperties 复制部分更新的属性并剔除身份字段。
func partialProperties(partial map[string]any) map[string]any {
	props := maps.Clone(partial)
	if props == nil {
		props = make(map[string]any)
	}
	delete(props, idProperty)
	return props
}

// decodeProperties 把数据库属性解码为 T，并用内部 ID 回填身份字段。
func decodeProperties[T any](props map[string]any, id string) (T, error) {
	var out T
	src := maps.Clone(props)
	if src == nil {
		src = make(map[string]any)
	}
	src[idProperty] = id
	dec, err := newDecoder(&out)
	if err != nil {
		return out, err
	}
	if err := dec.Decode(src); err != nil {
		return out, fmt.Errorf("repo: 属性解码失败: %w", err)
	}
	return out, nil
}

// stringifyID 把 id() 返回的整数（或其他形式）转换为字符串。
func stringifyID(v any) string {
	switch id := v.(type) {
	case int64:
		return strconv.FormatInt(id, 10)
	case int:
		return strconv.Itoa(id)
	case string:
		return id
	case nil:
		return ""
	default:
		return fmt.Sprint(id)
	}
}

// mapRecordToNode 从记录中取出别名为 alias 的节点并映射为 T。
func mapRecordToNode[T any](record *neo4j.Record, alias string) (T, error) {
	var zero T
	raw, ok := record.Get(alias)
	if !ok {
		return zero, fmt.Errorf("repo: 无法从结果中获取节点 '%s'", alias)
	}
	node, ok := raw.(dbtype.Node)
	if !ok {
		return zero, fmt.Errorf("repo: 结果中的 '%s' 不是有效的节点类型: %T", alias, raw)
	}
	return decodeProperties[T](node.Props, strconv.FormatInt(node.Id, 10))
}

func mapRecordsToNodes[T any](records []*neo4j.Record, alias string) ([]T, error) {
	nodes := make([]T, 0, len(records))
	for _, record := range records {
		node, err := mapRecordToNode[T](record, alias)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// relationReturn 是关系查询统一的返回投影。
var relationReturn = []string{
	"type(r) AS type",
	"properties(r) AS properties",
	"id(r) AS id",
	"id(startNode) AS startNodeId",
	"id(endNode) AS endNodeId",
}

// mapRecordToRelationship 把 relationReturn 投影出的记录映射为关系记录。
func mapRecordToRelationship[T any](record *neo4j.Record) (graph.Relationship[T], error) {
	var rel graph.Relationship[T]
	values := record.AsMap()

	relType, ok := values["type"].(string)
	if !ok {
		return rel, fmt.Errorf("repo: 结果中的 'type' 不是字符串: %T", values["type"])
	}
	var props map[string]any
	if raw, exists := values["properties"]; exists && raw != nil {
		props, ok = raw.(map[string]any)
		if !ok {
			return rel, fmt.Errorf("repo: 结果中的 'properties' 不是 map: %T", raw)
		}
	}
	properties, err := decodeProperties[T](props, stringifyID(values["id"]))
	if err != nil {
		return rel, err
	}

	rel.Type = relType
	rel.Properties = properties
	rel.StartNodeID = stringifyID(values["startNodeId"])
	rel.EndNodeID = stringifyID(values["endNodeId"])
	return rel, nil
}

func mapRecordsToRelationships[T any](records []*neo4j.Record) ([]graph.Relationship[T], error) {
	rels := make([]graph.Relationship[T], 0, len(records))
	for _, record := range records {
		rel, err := mapRecordToRelationship[T](record)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, nil
}
