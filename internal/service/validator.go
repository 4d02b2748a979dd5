package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tablegen-backend/internal/model"
)

// wireTable 模型输出约定的 JSON 形态
type wireTable struct {
	TableName string            `json:"tableName"`
	Columns   []model.ColumnDef `json:"columns"`
	Rows      []map[string]any  `json:"rows"`
}

// TableValidator 把提取出的 JSON 片段校验并收紧为强类型的 Table。
// 部分成功不算成功：任何一行任何一列失败，整次校验失败。
type TableValidator struct{}

func NewTableValidator() *TableValidator {
	return &TableValidator{}
}

// Validate 解析 JSON 片段并校验表结构。语法不合法是 MalformedJsonError，
// 结构或取值不符合约定是 SchemaError（带行号和列名）。
// template 只是提示词层面的表头建议，这一层不按模板做任何强制。
func (v *TableValidator) Validate(rawJsonText string, template model.TemplateType) (*model.Table, error) {
	_ = template

	dec := json.NewDecoder(bytes.NewReader([]byte(rawJsonText)))
	dec.UseNumber()

	var wire wireTable
	if err := dec.Decode(&wire); err != nil {
		return nil, &model.MalformedJsonError{RawText: rawJsonText, Cause: err}
	}

	if strings.TrimSpace(wire.TableName) == "" {
		return nil, &model.SchemaError{Row: -1, Reason: "tableName is missing or empty"}
	}
	if len(wire.Columns) == 0 {
		return nil, &model.SchemaError{Row: -1, Reason: "columns is missing or empty"}
	}

	seen := make(map[string]bool, len(wire.Columns))
	for _, col := range wire.Columns {
		if strings.TrimSpace(col.Name) == "" {
			return nil, &model.SchemaError{Row: -1, Reason: "column with empty name"}
		}
		if !model.ValidColumnType(col.Type) {
			return nil, &model.SchemaError{
				Row: -1, Column: col.Name,
				Reason: fmt.Sprintf("unknown column type %q", col.Type),
			}
		}
		if seen[col.Name] {
			return nil, &model.SchemaError{
				Row: -1, Column: col.Name,
				Reason: "duplicate column name",
			}
		}
		seen[col.Name] = true
	}

	rows := make([]model.TableRow, 0, len(wire.Rows))
	for i, raw := range wire.Rows {
		// 行的键必须恰好等于声明列集合：缺列失败，多出的未声明键同样失败
		for key := range raw {
			if !seen[key] {
				return nil, &model.SchemaError{
					Row: i, Column: key,
					Reason: "value for undeclared column",
				}
			}
		}

		row := make(model.TableRow, len(wire.Columns))
		for _, col := range wire.Columns {
			value, ok := raw[col.Name]
			if !ok {
				return nil, &model.SchemaError{
					Row: i, Column: col.Name,
					Reason: "missing value for declared column",
				}
			}

			coerced, err := coerceValue(value, col.Type)
			if err != nil {
				return nil, &model.SchemaError{
					Row: i, Column: col.Name,
					Reason: err.Error(),
				}
			}
			row[col.Name] = coerced
		}
		rows = append(rows, row)
	}

	return &model.Table{
		Name:    strings.TrimSpace(wire.TableName),
		Columns: wire.Columns,
		Rows:    rows,
	}, nil
}

// coerceValue 按列类型收紧一个松散 JSON 值，不匹配就失败而不是给默认值
func coerceValue(value any, t model.ColumnType) (any, error) {
	switch t {
	case model.ColumnNumber, model.ColumnCurrency, model.ColumnPercentage:
		// percentage 按字面数值存储，不做隐式 /100 换算
		return coerceNumber(value)
	case model.ColumnDate:
		return coerceDate(value)
	case model.ColumnBoolean:
		return coerceBoolean(value)
	case model.ColumnText, model.ColumnEmail, model.ColumnPhone:
		return coerceString(value)
	}
	return nil, fmt.Errorf("unknown column type %q", t)
}

func coerceNumber(value any) (float64, error) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v.String())
		}
		return f, nil
	case float64:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		s = strings.TrimSuffix(s, "%")
		s = strings.TrimLeft(s, "¥$€£")
		s = strings.ReplaceAll(s, ",", "")
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("value of type %T is not numeric", value)
}

// 非补零布局同样能匹配补零形式
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"2006年1月2日",
	"2006-1-2 15:04:05",
	time.RFC3339,
}

// coerceDate 解析为日历日期并归一化为 ISO 形式 YYYY-MM-DD
func coerceDate(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value of type %T is not a date", value)
	}

	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("value %q does not parse as a calendar date", s)
}

func coerceBoolean(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case json.Number:
		switch v.String() {
		case "1":
			return true, nil
		case "0":
			return false, nil
		}
		return false, fmt.Errorf("numeric value %q is not a boolean token", v.String())
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "是", "1":
			return true, nil
		case "false", "否", "0":
			return false, nil
		}
		return false, fmt.Errorf("value %q is not a boolean token", v)
	}
	return false, fmt.Errorf("value of type %T is not a boolean", value)
}

func coerceString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case json.Number:
		// 电话等字段模型偶尔会给成数字
		return v.String(), nil
	}
	return "", fmt.Errorf("value of type %T is not text", value)
}
