package rfm

// lifecycleRule 决策表中的一条规则
type lifecycleRule struct {
	name  string
	stage LifecycleStage
	match func(r, f, m int, days int64) bool
}

// lifecycleRules 有序决策表，首条命中即返回
var lifecycleRules = []lifecycleRule{
	{"champion", StageChampion, func(r, f, m int, _ int64) bool { return r >= 4 && f >= 4 && m >= 4 }},
	{"frequent-valuable", StageActive, func(_, f, m int, _ int64) bool { return f >= 4 && m >= 3 }},
	{"recent-regular", StageActive, func(r, f, _ int, _ int64) bool { return r >= 4 && f >= 2 && f <= 3 }},
	{"recent-first", StageNew, func(r, f, _ int, _ int64) bool { return r >= 4 && f <= 2 }},
	{"lapsing-regular", StageAtRisk, func(r, f, _ int, _ int64) bool { return r <= 2 && f >= 3 }},
	// 不可达：r<=2 && f>=4 已被上一条规则覆盖，保留以维持原决策表
	{"lapsing-valuable", StageAtRisk, func(r, f, m int, _ int64) bool { return r <= 2 && f >= 4 && m >= 4 }},
	{"lapsed-occasional", StageChurned, func(r, f, _ int, _ int64) bool { return r <= 2 && f <= 2 }},
	{"inactive-year", StageLost, func(_, _, _ int, days int64) bool { return days > 365 }},
}

// ClassifyLifecycle 根据 RFM 分数和距上次下单天数判定生命周期阶段
func ClassifyLifecycle(r, f, m int, daysSinceLastOrder int64) LifecycleStage {
	stage, _ := classify(r, f, m, daysSinceLastOrder)
	return stage
}

// classify 返回命中的阶段及规则序号（1 起；默认规则为 9）
func classify(r, f, m int, days int64) (LifecycleStage, int) {
	for i, rule := range lifecycleRules {
		if rule.match(r, f, m, days) {
			return rule.stage, i + 1
		}
	}
	return StageActive, len(lifecycleRules) + 1
}
