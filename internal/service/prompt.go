package service

import (
	"fmt"
	"strings"

	"tablegen-backend/internal/config"
	"tablegen-backend/internal/model"
)

// PromptBuilder 把自然语言描述（和可选模板、可选当前表）组装成聊天消息序列
type PromptBuilder struct {
	maxDescriptionLen int
	defaultRowCount   int
}

func NewPromptBuilder(cfg config.GenerationConfig) *PromptBuilder {
	return &PromptBuilder{
		maxDescriptionLen: cfg.MaxDescriptionLen,
		defaultRowCount:   cfg.DefaultRowCount,
	}
}

// Build 构建消息序列：system 规则在前，user 需求在后。
// existingTable 不为空表示"修改"请求，当前表的 JSON 会进入 system 提示，
// 让模型在现有表上编辑而不是重新发明。
func (b *PromptBuilder) Build(description string, template model.TemplateType, existingTable *model.Table) ([]model.ChatMessage, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, &model.InvalidInputError{Reason: "description is empty"}
	}
	if len([]rune(description)) > b.maxDescriptionLen {
		return nil, &model.InvalidInputError{
			Reason: fmt.Sprintf("description exceeds %d characters", b.maxDescriptionLen),
		}
	}
	if template != "" && !model.ValidTemplateType(template) {
		return nil, &model.InvalidInputError{Reason: fmt.Sprintf("unknown template type %q", template)}
	}

	system, err := b.systemPrompt(existingTable)
	if err != nil {
		return nil, err
	}

	return []model.ChatMessage{
		{Role: model.RoleSystem, Content: system},
		{Role: model.RoleUser, Content: b.userPrompt(description, template)},
	}, nil
}

// StrictRetryMessage 响应质量类失败后整链重试时追加的更严格指令
func (b *PromptBuilder) StrictRetryMessage() model.ChatMessage {
	return model.ChatMessage{
		Role: model.RoleSystem,
		Content: "上一次输出不是合法的表格 JSON。这次必须只输出一个 JSON 对象：" +
			"以 { 开始、以 } 结束，不要任何解释文字、markdown 代码块或前后缀。",
	}
}

func (b *PromptBuilder) systemPrompt(existingTable *model.Table) (string, error) {
	var sb strings.Builder

	sb.WriteString("你是表格生成助手，根据用户的自然语言描述生成结构化表格数据。\n\n")
	sb.WriteString("输出要求：\n")
	sb.WriteString("1. 只输出纯 JSON，不要任何解释文字，以 { 开始，以 } 结束。\n")
	sb.WriteString("2. JSON 结构固定为：{\"tableName\":\"表名\",\"columns\":[{\"name\":\"列名\",\"type\":\"类型\"}],\"rows\":[{\"列名\":\"值\"}]}。\n")
	sb.WriteString(fmt.Sprintf("3. 列类型只能从以下取值中选择：%s。\n", strings.Join(model.ColumnTypeNames(), "、")))
	sb.WriteString("4. 每一行必须包含所有列，不允许缺字段。\n")
	sb.WriteString("5. date 列输出 YYYY-MM-DD；boolean 列输出 true/false；percentage 列直接输出数值本身。\n")
	sb.WriteString(fmt.Sprintf("6. 用户没有明确说明行数时默认生成 %d 行，明确说了行数则以用户为准。\n", b.defaultRowCount))

	if existingTable != nil {
		wire, err := existingTable.MarshalWire()
		if err != nil {
			return "", fmt.Errorf("serialize current table: %w", err)
		}
		sb.WriteString("\n当前表格如下，请在此基础上按用户要求修改，保留未提及的内容：\n")
		sb.WriteString(wire)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func (b *PromptBuilder) userPrompt(description string, template model.TemplateType) string {
	headers := model.TemplateHeaders(template)
	if len(headers) == 0 {
		return description
	}

	names := make([]string, 0, len(headers))
	for _, h := range headers {
		names = append(names, fmt.Sprintf("%s(%s)", h.Name, h.Type))
	}

	// 模板只是表头建议，不对输出数据做变换
	return fmt.Sprintf("%s\n\n建议使用以下表头：%s", description, strings.Join(names, "、"))
}
