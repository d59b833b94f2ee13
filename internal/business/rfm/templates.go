package rfm

// SegmentTemplate 内置分群模板，仅用于初始化
type SegmentTemplate struct {
	Slug            string
	Name            string
	Description     string
	SuggestedAction string
	Priority        int
	Recency         Range
	Frequency       Range
	Monetary        Range
}

func bound(v int64) *int64 { return &v }

// DefaultSegmentTemplates 六个内置分群
// 区间单位：recency 为天，frequency 为订单数，monetary 为分
func DefaultSegmentTemplates() []SegmentTemplate {
	return []SegmentTemplate{
		{
			Slug:            "champions",
			Name:            "Champions",
			Description:     "Bought recently, buy often and spend the most",
			SuggestedAction: "Reward them with early access and exclusive perks; ask for reviews",
			Priority:        1,
			Recency:         Range{Max: bound(30)},
			Frequency:       Range{Min: bound(5)},
			Monetary:        Range{Min: bound(50000)},
		},
		{
			Slug:            "loyal-customers",
			Name:            "Loyal Customers",
			Description:     "Order regularly and respond well to promotions",
			SuggestedAction: "Upsell higher value products and enroll them in the loyalty program",
			Priority:        2,
			Recency:         Range{Max: bound(90)},
			Frequency:       Range{Min: bound(3)},
			Monetary:        Range{Min: bound(20000)},
		},
		{
			Slug:            "potential-loyalists",
			Name:            "Potential Loyalists",
			Description:     "Recent customers with one or two orders",
			SuggestedAction: "Offer membership and personalized recommendations",
			Priority:        3,
			Recency:         Range{Max: bound(60)},
			Frequency:       Range{Min: bound(1), Max: bound(2)},
		},
		{
			Slug:            "at-risk",
			Name:            "At Risk",
			Description:     "Used to order repeatedly but have not come back for months",
			SuggestedAction: "Send personalized win-back emails with limited-time offers",
			Priority:        4,
			Recency:         Range{Min: bound(91), Max: bound(180)},
			Frequency:       Range{Min: bound(2)},
		},
		{
			Slug:            "hibernating",
			Name:            "Hibernating",
			Description:     "Last order was more than six months ago",
			SuggestedAction: "Recommend relevant products and run reactivation discounts",
			Priority:        5,
			Recency:         Range{Min: bound(181), Max: bound(365)},
		},
		{
			Slug:            "lost",
			Name:            "Lost",
			Description:     "No qualifying order in over a year, or never purchased",
			SuggestedAction: "Revive interest with a reach-out campaign, otherwise ignore",
			Priority:        6,
			Recency:         Range{Min: bound(366)},
		},
	}
}
