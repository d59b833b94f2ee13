package business

import (
	"context"
	"errors"
	"math"
	"time"

	"oip/rfmengine/common/entity"
	"oip/rfmengine/internal/business/rfm"
	"oip/rfmengine/pkg/errorutil"
	"oip/rfmengine/pkg/infra/mysql"
)

// RFMReader 评分查询
type RFMReader interface {
	Summary(ctx context.Context) (*mysql.RFMSummary, error)
	LifecycleCounts(ctx context.Context) (map[string]int64, error)
	Distribution(ctx context.Context) ([]mysql.DistributionRow, error)
	GetByCustomerID(ctx context.Context, customerID int64) (*entity.CustomerRFM, error)
}

// SegmentReader 分群查询
type SegmentReader interface {
	ListSegments(ctx context.Context, activeOnly bool) ([]entity.Segment, error)
	GetSegmentBySlug(ctx context.Context, slug string) (*entity.Segment, error)
	ListMembers(ctx context.Context, segmentID int64, limit, offset int) ([]entity.SegmentMember, int64, error)
}

// RunReader 批次查询
type RunReader interface {
	LatestRun(ctx context.Context) (*entity.CalculationRun, error)
}

// SegmentView 分群及统计
type SegmentView struct {
	ID              int64      `json:"id"`
	Slug            string     `json:"slug"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	SuggestedAction string     `json:"suggested_action"`
	Priority        int        `json:"priority"`
	IsActive        bool       `json:"is_active"`
	RecencyMin      *int64     `json:"recency_min"`
	RecencyMax      *int64     `json:"recency_max"`
	FrequencyMin    *int64     `json:"frequency_min"`
	FrequencyMax    *int64     `json:"frequency_max"`
	MonetaryMin     *int64     `json:"monetary_min"`
	MonetaryMax     *int64     `json:"monetary_max"`
	CustomerCount   int64      `json:"customer_count"`
	TotalRevenue    int64      `json:"total_revenue"`
	AvgOrderValue   int64      `json:"avg_order_value"`
	StatsUpdatedAt  *time.Time `json:"stats_updated_at"`
}

// CustomerRFMView 单个客户的 RFM 结果
type CustomerRFMView struct {
	CustomerID          int64     `json:"customer_id"`
	TotalOrders         int64     `json:"total_orders"`
	TotalSpentCents     int64     `json:"total_spent_cents"`
	AvgOrderCents       int64     `json:"avg_order_cents"`
	DaysSinceLastOrder  int64     `json:"days_since_last_order"`
	RecencyScore        int       `json:"recency_score"`
	FrequencyScore      int       `json:"frequency_score"`
	MonetaryScore       int       `json:"monetary_score"`
	RFMScore            string    `json:"rfm_score"`
	RecencyPercentile   float64   `json:"recency_percentile"`
	FrequencyPercentile float64   `json:"frequency_percentile"`
	MonetaryPercentile  float64   `json:"monetary_percentile"`
	LifecycleStage      string    `json:"lifecycle_stage"`
	ChurnRisk           float64   `json:"churn_risk"`
	PredictedLTV        int64     `json:"predicted_ltv"`
	CalculatedAt        time.Time `json:"calculated_at"`
}

// RunView 计算批次摘要
type RunView struct {
	RunID           string     `json:"run_id"`
	AsOf            time.Time  `json:"as_of"`
	Trigger         string     `json:"trigger"`
	Status          string     `json:"status"`
	Population      int64      `json:"population"`
	Calculated      int64      `json:"calculated"`
	Failed          int64      `json:"failed"`
	MembersAssigned int64      `json:"members_assigned"`
	Unsegmented     int64      `json:"unsegmented"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
}

// Overview 全局概览
type Overview struct {
	PopulationSize        int64            `json:"population_size"`
	AnalyzedCount         int64            `json:"analyzed_count"`
	AvgRecencyScore       float64          `json:"avg_recency_score"`
	AvgFrequencyScore     float64          `json:"avg_frequency_score"`
	AvgMonetaryScore      float64          `json:"avg_monetary_score"`
	AvgChurnRisk          float64          `json:"avg_churn_risk"`
	AvgPredictedLTV       int64            `json:"avg_predicted_ltv"`
	LifecycleDistribution map[string]int64 `json:"lifecycle_distribution"`
	Segments              []SegmentView    `json:"segments"`
	LastRun               *RunView         `json:"last_run"`
}

// MemberPage 分群成员分页
type MemberPage struct {
	Segment SegmentView       `json:"segment"`
	Total   int64             `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
	Members []CustomerRFMView `json:"members"`
}

// 分页上限
const (
	DefaultMemberLimit = 50
	MaxMemberLimit     = 500
)

// QueryService 只读查询
type QueryService struct {
	feed     CustomerFeed
	rfm      RFMReader
	segments SegmentReader
	runs     RunReader
}

// NewQueryService 创建查询服务
func NewQueryService(feed CustomerFeed, rfmReader RFMReader, segments SegmentReader, runs RunReader) *QueryService {
	return &QueryService{feed: feed, rfm: rfmReader, segments: segments, runs: runs}
}

// Overview 全局概览：人群规模、平均分、生命周期分布、启用分群及最近一次计算
func (s *QueryService) Overview(ctx context.Context) (*Overview, error) {
	population, err := s.feed.CountCustomers(ctx)
	if err != nil {
		return nil, errorutil.Retriable("failed to count customers").WithCause(err)
	}
	summary, err := s.rfm.Summary(ctx)
	if err != nil {
		return nil, errorutil.Retriable("failed to summarize scores").WithCause(err)
	}
	counts, err := s.rfm.LifecycleCounts(ctx)
	if err != nil {
		return nil, errorutil.Retriable("failed to count lifecycle stages").WithCause(err)
	}
	segments, err := s.Segments(ctx, true)
	if err != nil {
		return nil, err
	}
	lastRun, err := s.runs.LatestRun(ctx)
	if err != nil {
		return nil, errorutil.Retriable("failed to load latest run").WithCause(err)
	}

	lifecycle := make(map[string]int64, len(rfm.AllStages))
	for _, stage := range rfm.AllStages {
		lifecycle[string(stage)] = counts[string(stage)]
	}

	return &Overview{
		PopulationSize:        population,
		AnalyzedCount:         summary.Analyzed,
		AvgRecencyScore:       round2(summary.AvgRecency),
		AvgFrequencyScore:     round2(summary.AvgFrequency),
		AvgMonetaryScore:      round2(summary.AvgMonetary),
		AvgChurnRisk:          round2(summary.AvgChurnRisk),
		AvgPredictedLTV:       int64(math.Round(summary.AvgPredictedLTV)),
		LifecycleDistribution: lifecycle,
		Segments:              segments,
		LastRun:               toRunView(lastRun),
	}, nil
}

// Distribution 按 RFM 编码分组的分布
func (s *QueryService) Distribution(ctx context.Context) ([]mysql.DistributionRow, error) {
	rows, err := s.rfm.Distribution(ctx)
	if err != nil {
		return nil, errorutil.Retriable("failed to query distribution").WithCause(err)
	}
	for i := range rows {
		rows[i].AvgChurnRisk = round2(rows[i].AvgChurnRisk)
	}
	return rows, nil
}

// Customer 单个客户的 RFM 结果
func (s *QueryService) Customer(ctx context.Context, customerID int64) (*CustomerRFMView, error) {
	row, err := s.rfm.GetByCustomerID(ctx, customerID)
	if errors.Is(err, mysql.ErrCustomerRFMNotFound) {
		return nil, errorutil.NotFound("customer has no rfm score").WithCause(err)
	}
	if err != nil {
		return nil, errorutil.Retriable("failed to load customer rfm").WithCause(err)
	}
	view := toCustomerRFMView(*row)
	return &view, nil
}

// Segments 分群列表（按优先级）
func (s *QueryService) Segments(ctx context.Context, activeOnly bool) ([]SegmentView, error) {
	segments, err := s.segments.ListSegments(ctx, activeOnly)
	if err != nil {
		return nil, errorutil.Retriable("failed to list segments").WithCause(err)
	}
	views := make([]SegmentView, 0, len(segments))
	for _, seg := range segments {
		views = append(views, toSegmentView(seg))
	}
	return views, nil
}

// SegmentMembers 分群当前 generation 的成员分页
func (s *QueryService) SegmentMembers(ctx context.Context, slug string, limit, offset int) (*MemberPage, error) {
	switch {
	case limit <= 0:
		limit = DefaultMemberLimit
	case limit > MaxMemberLimit:
		limit = MaxMemberLimit
	}
	if offset < 0 {
		offset = 0
	}

	seg, err := s.segments.GetSegmentBySlug(ctx, slug)
	if errors.Is(err, mysql.ErrSegmentNotFound) {
		return nil, errorutil.NotFound("segment not found: " + slug).WithCause(err)
	}
	if err != nil {
		return nil, errorutil.Retriable("failed to load segment").WithCause(err)
	}

	members, total, err := s.segments.ListMembers(ctx, seg.ID, limit, offset)
	if err != nil {
		return nil, errorutil.Retriable("failed to list segment members").WithCause(err)
	}

	page := &MemberPage{
		Segment: toSegmentView(*seg),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		Members: make([]CustomerRFMView, 0, len(members)),
	}
	for _, m := range members {
		page.Members = append(page.Members, memberToView(m))
	}
	return page, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func toSegmentView(s entity.Segment) SegmentView {
	return SegmentView{
		ID:              s.ID,
		Slug:            s.Slug,
		Name:            s.Name,
		Description:     s.Description,
		SuggestedAction: s.SuggestedAction,
		Priority:        s.Priority,
		IsActive:        s.IsActive,
		RecencyMin:      s.RecencyMin,
		RecencyMax:      s.RecencyMax,
		FrequencyMin:    s.FrequencyMin,
		FrequencyMax:    s.FrequencyMax,
		MonetaryMin:     s.MonetaryMin,
		MonetaryMax:     s.MonetaryMax,
		CustomerCount:   s.CustomerCount,
		TotalRevenue:    s.TotalRevenue,
		AvgOrderValue:   s.AvgOrderValue,
		StatsUpdatedAt:  s.StatsUpdatedAt,
	}
}

func toCustomerRFMView(r entity.CustomerRFM) CustomerRFMView {
	return CustomerRFMView{
		CustomerID:          r.CustomerID,
		TotalOrders:         r.TotalOrders,
		TotalSpentCents:     r.TotalSpentCents,
		AvgOrderCents:       r.AvgOrderCents,
		DaysSinceLastOrder:  r.DaysSinceLastOrder,
		RecencyScore:        r.RecencyScore,
		FrequencyScore:      r.FrequencyScore,
		MonetaryScore:       r.MonetaryScore,
		RFMScore:            r.RFMScore,
		RecencyPercentile:   r.RecencyPercentile,
		FrequencyPercentile: r.FrequencyPercentile,
		MonetaryPercentile:  r.MonetaryPercentile,
		LifecycleStage:      r.LifecycleStage,
		ChurnRisk:           r.ChurnRisk,
		PredictedLTV:        r.PredictedLTV,
		CalculatedAt:        r.CalculatedAt,
	}
}

// 成员行不保存百分位
func memberToView(m entity.SegmentMember) CustomerRFMView {
	return CustomerRFMView{
		CustomerID:         m.CustomerID,
		TotalOrders:        m.TotalOrders,
		TotalSpentCents:    m.TotalSpentCents,
		AvgOrderCents:      m.AvgOrderCents,
		DaysSinceLastOrder: m.DaysSinceLastOrder,
		RecencyScore:       m.RecencyScore,
		FrequencyScore:     m.FrequencyScore,
		MonetaryScore:      m.MonetaryScore,
		RFMScore:           m.RFMScore,
		LifecycleStage:     m.LifecycleStage,
		ChurnRisk:          m.ChurnRisk,
		PredictedLTV:       m.PredictedLTV,
		CalculatedAt:       m.CalculatedAt,
	}
}

func toRunView(r *entity.CalculationRun) *RunView {
	if r == nil {
		return nil
	}
	return &RunView{
		RunID:           r.RunID,
		AsOf:            r.AsOf,
		Trigger:         r.Trigger,
		Status:          r.Status,
		Population:      r.Population,
		Calculated:      r.Calculated,
		Failed:          r.Failed,
		MembersAssigned: r.MembersAssigned,
		Unsegmented:     r.Unsegmented,
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
	}
}
