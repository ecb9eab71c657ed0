package domain

// VisibilityLevel 连锁内订单详情的可见级别
type VisibilityLevel string

const (
	VisibilityFull     VisibilityLevel = "full"
	VisibilitySummary  VisibilityLevel = "summary"
	VisibilityNoPrices VisibilityLevel = "no_prices"
)

// Valid 是否为已知级别
func (v VisibilityLevel) Valid() bool {
	switch v {
	case VisibilityFull, VisibilitySummary, VisibilityNoPrices:
		return true
	}
	return false
}

// Chain 连锁（加盟集团）
type Chain struct {
	ChainID         string          `json:"chain_id"`
	Slug            string          `json:"slug"`
	Name            string          `json:"name"`
	VisibilityLevel VisibilityLevel `json:"visibility_level"`
}

// ChainMembership 连锁成员关系；一个租户最多属于一个连锁
type ChainMembership struct {
	ChainID    string `json:"chain_id"`
	TenantSlug string `json:"tenant_slug"`
}

// ChainUser 连锁层级的用户（总部账号），决定是否能看到财务汇总
type ChainUser struct {
	UserID           string `json:"user_id"`
	ChainID          string `json:"chain_id"`
	Name             string `json:"name"`
	CanSeeFinancials bool   `json:"can_see_financials"`
}
