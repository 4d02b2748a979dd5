package service

import (
	"strings"

	"tablegen-backend/internal/model"
)

// ExtractTablePayload 从可能夹杂说明文字的模型回复里取出第一个配平的 JSON 对象。
// 从第一个 { 开始逐字节配对到对应的 }，字符串和转义内的花括号不参与配平，
// 不能用贪婪正则跨全文匹配。所有结构字符都是 ASCII，按字节扫描即可，
// 返回的是原文的切片，嵌入片段里的字节原样保留。
// 找不到配平片段返回 NoJsonFoundError。
func ExtractTablePayload(responseText string) (string, error) {
	start := strings.IndexByte(responseText, '{')
	if start < 0 {
		return "", &model.NoJsonFoundError{ResponseText: responseText}
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(responseText); i++ {
		c := responseText[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return responseText[start : i+1], nil
			}
		}
	}

	// 有 { 但直到文本结束都没配平，同样按"没找到"处理
	return "", &model.NoJsonFoundError{ResponseText: responseText}
}
