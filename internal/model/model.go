package model

import (
	"encoding/json"
	"time"
)

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage 聊天消息，system 消息在前，user 消息在后
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest 上游 chat-completion 请求，构建后不再修改
type CompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// DeliveryMode 响应送达方式
type DeliveryMode string

const (
	DeliveryRealStream DeliveryMode = "real-stream"
	DeliveryFakeStream DeliveryMode = "fake-stream"
	DeliveryNonStream  DeliveryMode = "non-stream"
)

// ModelRoute 模型路由结果，由请求的模型名派生，不持久化
type ModelRoute struct {
	UpstreamModel string       `json:"upstream_model"`
	DeliveryMode  DeliveryMode `json:"delivery_mode"`
}

// ColumnType 列类型（封闭枚举）
type ColumnType string

const (
	ColumnText       ColumnType = "text"
	ColumnNumber     ColumnType = "number"
	ColumnDate       ColumnType = "date"
	ColumnCurrency   ColumnType = "currency"
	ColumnPercentage ColumnType = "percentage"
	ColumnEmail      ColumnType = "email"
	ColumnPhone      ColumnType = "phone"
	ColumnBoolean    ColumnType = "boolean"
)

// ValidColumnType 判断类型是否在封闭枚举内
func ValidColumnType(t ColumnType) bool {
	switch t {
	case ColumnText, ColumnNumber, ColumnDate, ColumnCurrency,
		ColumnPercentage, ColumnEmail, ColumnPhone, ColumnBoolean:
		return true
	}
	return false
}

// ColumnTypeNames 所有合法列类型名，用于提示词中的类型词表
func ColumnTypeNames() []string {
	return []string{
		string(ColumnText), string(ColumnNumber), string(ColumnDate),
		string(ColumnCurrency), string(ColumnPercentage),
		string(ColumnEmail), string(ColumnPhone), string(ColumnBoolean),
	}
}

// ColumnDef 列定义，名称在表内唯一
type ColumnDef struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// TableRow 行数据：列名 -> 已按列类型归一化的值。
// 每行必须提供所有声明列，缺列由校验层判为失败，不做静默默认值。
type TableRow map[string]any

// Table 一次成功生成产出的表。生成后不可变，只能整表替换。
// 不变式：每行的键恰好等于列名集合，行序即展示顺序，端到端保持。
type Table struct {
	Name    string      `json:"tableName"`
	Columns []ColumnDef `json:"columns"`
	Rows    []TableRow  `json:"rows"`
}

// MarshalWire 序列化为和模型输出约定一致的 JSON 形态
func (t *Table) MarshalWire() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// AttendanceStatistics 考勤统计结果，每次表变化后整体重新计算，不做原地修改
type AttendanceStatistics struct {
	AttendanceRate    float64 `json:"attendance_rate"`
	TotalWorkDays     int     `json:"total_work_days"`
	ActualWorkDays    int     `json:"actual_work_days"`
	LateCount         int     `json:"late_count"`
	EarlyLeaveCount   int     `json:"early_leave_count"`
	AbsentCount       int     `json:"absent_count"`
	LeaveDays         float64 `json:"leave_days"`
	OvertimeHours     float64 `json:"overtime_hours"`
	TotalWorkHours    float64 `json:"total_work_hours"`
	AverageDailyHours float64 `json:"average_daily_hours"`
}

// TemplateType 模板类型（封闭枚举），只作为提示词里的表头建议，不变换输出数据
type TemplateType string

const (
	TemplateDailySimple     TemplateType = "DAILY_SIMPLE"
	TemplateDailyDetailed   TemplateType = "DAILY_DETAILED"
	TemplateWeeklySummary   TemplateType = "WEEKLY_SUMMARY"
	TemplateMonthlySummary  TemplateType = "MONTHLY_SUMMARY"
	TemplateMonthlyDetailed TemplateType = "MONTHLY_DETAILED"
	TemplateCustom          TemplateType = "CUSTOM"
)

// ValidTemplateType 判断模板类型是否在封闭枚举内
func ValidTemplateType(t TemplateType) bool {
	switch t {
	case TemplateDailySimple, TemplateDailyDetailed, TemplateWeeklySummary,
		TemplateMonthlySummary, TemplateMonthlyDetailed, TemplateCustom:
		return true
	}
	return false
}

// TemplateHeaders 各模板建议的表头集合（列名 + 类型提示），CUSTOM 不给建议
func TemplateHeaders(t TemplateType) []ColumnDef {
	switch t {
	case TemplateDailySimple:
		return []ColumnDef{
			{Name: "日期", Type: ColumnDate},
			{Name: "是否出勤", Type: ColumnBoolean},
		}
	case TemplateDailyDetailed:
		return []ColumnDef{
			{Name: "日期", Type: ColumnDate},
			{Name: "上班时间", Type: ColumnText},
			{Name: "下班时间", Type: ColumnText},
			{Name: "是否迟到", Type: ColumnBoolean},
			{Name: "是否早退", Type: ColumnBoolean},
			{Name: "工作时长", Type: ColumnNumber},
		}
	case TemplateWeeklySummary:
		return []ColumnDef{
			{Name: "周次", Type: ColumnText},
			{Name: "出勤天数", Type: ColumnNumber},
			{Name: "缺勤天数", Type: ColumnNumber},
			{Name: "出勤率", Type: ColumnPercentage},
		}
	case TemplateMonthlySummary:
		return []ColumnDef{
			{Name: "月份", Type: ColumnText},
			{Name: "应出勤天数", Type: ColumnNumber},
			{Name: "实际出勤天数", Type: ColumnNumber},
			{Name: "出勤率", Type: ColumnPercentage},
		}
	case TemplateMonthlyDetailed:
		return []ColumnDef{
			{Name: "日期", Type: ColumnDate},
			{Name: "星期", Type: ColumnText},
			{Name: "是否出勤", Type: ColumnBoolean},
			{Name: "是否迟到", Type: ColumnBoolean},
			{Name: "是否早退", Type: ColumnBoolean},
			{Name: "请假天数", Type: ColumnNumber},
			{Name: "加班小时", Type: ColumnNumber},
			{Name: "工作时长", Type: ColumnNumber},
		}
	}
	return nil
}

// Session 一个会话持有当前表、当前统计和生成历史
type Session struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Table       *Table                `json:"table,omitempty"`
	Statistics  *AttendanceStatistics `json:"statistics,omitempty"`
	Generations []GenerationRecord    `json:"generations"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// GenerationRecord 一次生成动作的记录
type GenerationRecord struct {
	Description string       `json:"description"`
	Template    TemplateType `json:"template,omitempty"`
	Model       string       `json:"model"`
	Modify      bool         `json:"modify"`
	Timestamp   time.Time    `json:"timestamp"`
}
