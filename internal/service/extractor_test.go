package service

import (
	"errors"
	"testing"

	"tablegen-backend/internal/model"
)

func TestExtractTablePayload(t *testing.T) {
	payload := `{"tableName":"t","columns":[{"name":"a","type":"text"}],"rows":[]}`

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "pure json",
			text: payload,
			want: payload,
		},
		{
			name: "prose before and after",
			text: "好的，这是您要的表格：\n" + payload + "\n希望对您有帮助！",
			want: payload,
		},
		{
			name: "markdown fenced",
			text: "```json\n" + payload + "\n```",
			want: payload,
		},
		{
			name: "nested objects",
			text: `前言 {"a":{"b":{"c":1}},"d":2} 后记`,
			want: `{"a":{"b":{"c":1}},"d":2}`,
		},
		{
			name: "braces inside string values",
			text: `x {"note":"花括号 } 在字符串里 {","n":1} y`,
			want: `{"note":"花括号 } 在字符串里 {","n":1}`,
		},
		{
			name: "escaped quotes inside strings",
			text: `{"note":"引号 \" 和 } 不算数","n":1} trailing`,
			want: `{"note":"引号 \" 和 } 不算数","n":1}`,
		},
		{
			name: "only first object is returned",
			text: `{"first":1} {"second":2}`,
			want: `{"first":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractTablePayload(tt.text)
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if got != tt.want {
				t.Fatalf("extracted span mismatch:\n got: %s\nwant: %s", got, tt.want)
			}
		})
	}
}

func TestExtractTablePayload_RawBytesPreserved(t *testing.T) {
	// 字符串值里可能带非法 UTF-8 字节，提取结果必须和原文逐字节一致
	payload := "{\"note\":\"\xff\xfe\",\"n\":1}"
	text := "模型回复：" + payload + " 完毕"

	got, err := ExtractTablePayload(text)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got != payload {
		t.Fatalf("extracted span not byte-identical:\n got: %q\nwant: %q", got, payload)
	}
}

func TestExtractTablePayload_NoJson(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "plain prose", text: "抱歉，我无法生成这个表格。"},
		{name: "unbalanced", text: `{"tableName":"t","rows":[`},
		{name: "only closing brace", text: "} nothing opened"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractTablePayload(tt.text)
			var notFound *model.NoJsonFoundError
			if !errors.As(err, &notFound) {
				t.Fatalf("expected NoJsonFoundError, got %v", err)
			}
		})
	}
}
