package business

import (
	"context"

	"oip/rfmengine/common/entity"
	"oip/rfmengine/internal/business/rfm"
	"oip/rfmengine/pkg/errorutil"
	"oip/rfmengine/pkg/logger"
)

// SegmentService 分群模板维护
type SegmentService struct {
	segments SegmentStore
	log      logger.Logger
}

// NewSegmentService 创建分群服务
func NewSegmentService(segments SegmentStore, log logger.Logger) *SegmentService {
	return &SegmentService{segments: segments, log: log}
}

// SeedSegments 按 slug 幂等写入默认分群模板，返回模板数量
// 已存在的分群只刷新文案，运营调整过的区间、优先级和启用状态保持不变
func (s *SegmentService) SeedSegments(ctx context.Context) (int, error) {
	templates := rfm.DefaultSegmentTemplates()
	segments := make([]entity.Segment, 0, len(templates))
	for _, t := range templates {
		segments = append(segments, templateToSegment(t))
	}

	if err := s.segments.SeedSegments(ctx, segments); err != nil {
		return 0, errorutil.Retriable("failed to seed segments").WithCause(err)
	}

	s.log.Infof(ctx, "[SegmentService] Seeded %d segment templates", len(segments))
	return len(segments), nil
}
