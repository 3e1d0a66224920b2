package types

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// 宽松解码：来自LLM驱动上游的文档不保证100%符合schema。
// 先尝试严格解码；失败时逐字段解码，类型不符的字段以零值代替，
// 这样单个坏字段不会使整个文档被拒绝。只有顶层不是JSON对象才算错误。

// DecodeCandidate 将原始JSON解码为规范化候选人文档
func DecodeCandidate(raw []byte) (*CanonicalCandidate, error) {
	var c CanonicalCandidate
	if err := json.Unmarshal(raw, &c); err == nil {
		return &c, nil
	}
	c = CanonicalCandidate{}
	if err := lenientUnmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("解码候选人文档失败: %w", err)
	}
	return &c, nil
}

// DecodeJob 将原始JSON解码为规范化岗位文档
func DecodeJob(raw []byte) (*CanonicalJob, error) {
	var j CanonicalJob
	if err := json.Unmarshal(raw, &j); err == nil {
		return &j, nil
	}
	j = CanonicalJob{}
	if err := lenientUnmarshal(raw, &j); err != nil {
		return nil, fmt.Errorf("解码岗位文档失败: %w", err)
	}
	return &j, nil
}

// lenientUnmarshal 把JSON对象逐字段解码到dst（必须是指向结构体的指针），
// 跳过所有解码失败的字段
func lenientUnmarshal(raw []byte, dst interface{}) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("文档不是JSON对象: %w", err)
	}

	v := reflect.ValueOf(dst).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := jsonFieldName(field)
		if name == "" {
			continue
		}
		rawField, ok := fields[name]
		if !ok {
			continue
		}
		// 字段解码失败时重置为零值，避免残留半解码数据
		if err := json.Unmarshal(rawField, v.Field(i).Addr().Interface()); err != nil {
			v.Field(i).Set(reflect.Zero(field.Type))
		}
	}
	return nil
}

// jsonFieldName 从结构体tag中取JSON字段名
func jsonFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return ""
	}
	for i := 0; i < len(tag); i++ {
		if tag[i] == ',' {
			return tag[:i]
		}
	}
	return tag
}
