package service

import (
	"strings"

	"tablegen-backend/internal/model"
)

// attendanceColumns 统计引擎从表头里识别出的考勤信号列
type attendanceColumns struct {
	date     string // 日期列
	workday  string // 是否工作日
	present  string // 是否出勤（布尔）
	status   string // 出勤状态（文本）
	late     string
	early    string
	absent   string
	leave    string
	overtime string
	hours    string
}

// StatisticsEngine 从校验通过的表里推导考勤统计。
// 纯计算，无副作用，对同一张表重复执行结果一致。
type StatisticsEngine struct{}

func NewStatisticsEngine() *StatisticsEngine {
	return &StatisticsEngine{}
}

// Compute 计算考勤统计。表头里至少要能识别出日期或工作日信号，
// 否则返回 UnsupportedSchemaError，由调用方降级为"无统计数据"。
func (e *StatisticsEngine) Compute(table *model.Table) (*model.AttendanceStatistics, error) {
	if table == nil {
		return nil, &model.UnsupportedSchemaError{Reason: "table is nil"}
	}

	cols := recognizeColumns(table.Columns)
	if cols.date == "" && cols.workday == "" {
		return nil, &model.UnsupportedSchemaError{
			Reason: "no date or work-day column recognized",
		}
	}

	stats := &model.AttendanceStatistics{}

	for _, row := range table.Rows {
		scheduled := true
		if cols.workday != "" {
			if b, ok := boolValue(row[cols.workday]); ok {
				scheduled = b
			}
		}
		if !scheduled {
			continue
		}
		stats.TotalWorkDays++

		if rowPresent(row, cols) {
			stats.ActualWorkDays++
		}

		// 迟到/早退/缺勤是相互独立的计数器，一行可以同时命中多个
		if rowFlagged(row, cols.late) || statusContains(row, cols.status, "迟到", "late") {
			stats.LateCount++
		}
		if rowFlagged(row, cols.early) || statusContains(row, cols.status, "早退", "early") {
			stats.EarlyLeaveCount++
		}
		if rowFlagged(row, cols.absent) || statusContains(row, cols.status, "缺勤", "旷工", "absent") {
			stats.AbsentCount++
		}

		if cols.leave != "" {
			if f, ok := numericValue(row[cols.leave]); ok {
				stats.LeaveDays += f
			} else if b, ok := boolValue(row[cols.leave]); ok && b {
				stats.LeaveDays++
			}
		}
		if cols.overtime != "" {
			if f, ok := numericValue(row[cols.overtime]); ok {
				stats.OvertimeHours += f
			}
		}
		if cols.hours != "" {
			if f, ok := numericValue(row[cols.hours]); ok {
				stats.TotalWorkHours += f
			}
		}
	}

	// 除零必须特判，空表拿到全零统计而不是 NaN
	if stats.TotalWorkDays > 0 {
		stats.AttendanceRate = float64(stats.ActualWorkDays) / float64(stats.TotalWorkDays)
	}
	if stats.ActualWorkDays > 0 {
		stats.AverageDailyHours = stats.TotalWorkHours / float64(stats.ActualWorkDays)
	}

	return stats, nil
}

func recognizeColumns(columns []model.ColumnDef) attendanceColumns {
	var cols attendanceColumns

	for _, col := range columns {
		name := strings.ToLower(col.Name)
		switch {
		case cols.workday == "" && containsAny(name, "是否工作日", "工作日", "workday"):
			cols.workday = col.Name
		case cols.date == "" && (col.Type == model.ColumnDate || containsAny(name, "日期", "date")):
			cols.date = col.Name
		case cols.late == "" && containsAny(name, "迟到", "late"):
			cols.late = col.Name
		case cols.early == "" && containsAny(name, "早退", "early"):
			cols.early = col.Name
		case cols.absent == "" && containsAny(name, "缺勤", "旷工", "absent"):
			cols.absent = col.Name
		case cols.leave == "" && containsAny(name, "请假", "leave"):
			cols.leave = col.Name
		case cols.overtime == "" && containsAny(name, "加班", "overtime"):
			cols.overtime = col.Name
		case cols.hours == "" && containsAny(name, "工作时长", "工时", "hours"):
			cols.hours = col.Name
		case cols.present == "" && col.Type == model.ColumnBoolean && containsAny(name, "出勤", "present", "attend"):
			cols.present = col.Name
		case cols.status == "" && containsAny(name, "状态", "考勤", "status", "attendance"):
			cols.status = col.Name
		}
	}

	return cols
}

// rowPresent 判断一行是否计入实际出勤。
// 没有任何出勤信号列时按已出勤处理，由缺勤标记把行排除出去。
func rowPresent(row model.TableRow, cols attendanceColumns) bool {
	if cols.present != "" {
		if b, ok := boolValue(row[cols.present]); ok {
			return b
		}
	}
	if cols.status != "" {
		if s, ok := row[cols.status].(string); ok {
			status := strings.ToLower(strings.TrimSpace(s))
			if containsAny(status, "缺勤", "旷工", "absent", "请假", "休假") {
				return false
			}
			return true
		}
	}
	if cols.absent != "" {
		if b, ok := boolValue(row[cols.absent]); ok {
			return !b
		}
	}
	return true
}

func rowFlagged(row model.TableRow, column string) bool {
	if column == "" {
		return false
	}
	if b, ok := boolValue(row[column]); ok {
		return b
	}
	if f, ok := numericValue(row[column]); ok {
		return f > 0
	}
	return false
}

func statusContains(row model.TableRow, column string, markers ...string) bool {
	if column == "" {
		return false
	}
	s, ok := row[column].(string)
	if !ok {
		return false
	}
	return containsAny(strings.ToLower(s), markers...)
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func numericValue(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func boolValue(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}
