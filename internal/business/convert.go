package business

import (
	"oip/rfmengine/common/entity"
	"oip/rfmengine/internal/business/rfm"
	"oip/rfmengine/pkg/infra/mysql"
)

func toRFMCustomer(c entity.Customer) rfm.Customer {
	orders := make([]rfm.Order, 0, len(c.Orders))
	for _, o := range c.Orders {
		orders = append(orders, rfm.Order{
			ID:         o.ID,
			Status:     o.Status,
			TotalCents: o.TotalCents,
			PlacedAt:   o.PlacedAt,
		})
	}
	return rfm.Customer{ID: c.ID, IsStaff: c.IsStaff, Orders: orders}
}

func toCustomerRFM(s rfm.CustomerScore) entity.CustomerRFM {
	return entity.CustomerRFM{
		CustomerID:          s.CustomerID,
		TotalOrders:         s.TotalOrders,
		TotalSpentCents:     s.TotalSpentCents,
		AvgOrderCents:       s.AvgOrderCents,
		DaysSinceLastOrder:  s.DaysSinceLastOrder,
		RecencyScore:        s.RecencyScore,
		FrequencyScore:      s.FrequencyScore,
		MonetaryScore:       s.MonetaryScore,
		RFMScore:            s.RFMScore,
		RecencyPercentile:   s.RecencyPercentile,
		FrequencyPercentile: s.FrequencyPercentile,
		MonetaryPercentile:  s.MonetaryPercentile,
		LifecycleStage:      string(s.LifecycleStage),
		ChurnRisk:           s.ChurnRisk,
		PredictedLTV:        s.PredictedLTV,
		CalculatedAt:        s.CalculatedAt,
	}
}

func toSegmentMember(generation string, m rfm.Membership) entity.SegmentMember {
	return entity.SegmentMember{
		Generation:         generation,
		CustomerID:         m.CustomerID,
		SegmentID:          m.SegmentID,
		TotalOrders:        m.TotalOrders,
		TotalSpentCents:    m.TotalSpentCents,
		AvgOrderCents:      m.AvgOrderCents,
		DaysSinceLastOrder: m.DaysSinceLastOrder,
		RecencyScore:       m.RecencyScore,
		FrequencyScore:     m.FrequencyScore,
		MonetaryScore:      m.MonetaryScore,
		RFMScore:           m.RFMScore,
		LifecycleStage:     string(m.LifecycleStage),
		ChurnRisk:          m.ChurnRisk,
		PredictedLTV:       m.PredictedLTV,
		CalculatedAt:       m.CalculatedAt,
	}
}

func toSegmentRule(s entity.Segment) rfm.SegmentRule {
	return rfm.SegmentRule{
		ID:        s.ID,
		Slug:      s.Slug,
		Priority:  s.Priority,
		Recency:   rfm.Range{Min: s.RecencyMin, Max: s.RecencyMax},
		Frequency: rfm.Range{Min: s.FrequencyMin, Max: s.FrequencyMax},
		Monetary:  rfm.Range{Min: s.MonetaryMin, Max: s.MonetaryMax},
	}
}

func toSegmentRules(segments []entity.Segment) []rfm.SegmentRule {
	rules := make([]rfm.SegmentRule, 0, len(segments))
	for _, s := range segments {
		rules = append(rules, toSegmentRule(s))
	}
	return rules
}

func toStatsUpdates(stats []rfm.SegmentStats) []mysql.SegmentStatsUpdate {
	out := make([]mysql.SegmentStatsUpdate, 0, len(stats))
	for _, s := range stats {
		out = append(out, mysql.SegmentStatsUpdate{
			SegmentID:     s.SegmentID,
			CustomerCount: s.CustomerCount,
			TotalRevenue:  s.TotalRevenue,
			AvgOrderValue: s.AvgOrderValue,
		})
	}
	return out
}

func templateToSegment(t rfm.SegmentTemplate) entity.Segment {
	return entity.Segment{
		Slug:            t.Slug,
		Name:            t.Name,
		Description:     t.Description,
		SuggestedAction: t.SuggestedAction,
		Priority:        t.Priority,
		IsActive:        true,
		RecencyMin:      t.Recency.Min,
		RecencyMax:      t.Recency.Max,
		FrequencyMin:    t.Frequency.Min,
		FrequencyMax:    t.Frequency.Max,
		MonetaryMin:     t.Monetary.Min,
		MonetaryMax:     t.Monetary.Max,
	}
}
