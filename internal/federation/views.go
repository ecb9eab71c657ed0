package federation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
	"github.com/jorgedurante-source/taller-sub000/internal/repository"
)

// DefaultPerTenantLimit 每个租户的本地结果上限；合并后不再截断
const DefaultPerTenantLimit = 100

// UnifiedOrder 带来源租户的订单行
type UnifiedOrder struct {
	TenantSlug string `json:"tenant_slug"`
	domain.OrderSummary
}

// OrdersView 统一订单视图
type OrdersView struct {
	Items  []UnifiedOrder    `json:"items"`
	Errors map[string]string `json:"errors,omitempty"`
}

// UnifiedOrders 合并全部门店的最近订单，按创建时间倒序
func (e *Engine) UnifiedOrders(ctx context.Context, chainID string, perTenantLimit int) (*OrdersView, error) {
	if perTenantLimit <= 0 {
		perTenantLimit = DefaultPerTenantLimit
	}
	results, err := QueryAllChainDbs(ctx, e, chainID, func(ctx context.Context, _ string, repo *repository.TenantRepo) ([]domain.OrderSummary, error) {
		return repo.ListRecentOrders(ctx, perTenantLimit)
	})
	if err != nil {
		return nil, err
	}

	view := &OrdersView{Items: []UnifiedOrder{}, Errors: errorsBySlug(results)}
	for _, r := range results {
		for _, o := range r.Data {
			view.Items = append(view.Items, UnifiedOrder{TenantSlug: r.Slug, OrderSummary: o})
		}
	}
	sort.SliceStable(view.Items, func(i, j int) bool {
		return view.Items[i].CreatedAt.After(view.Items[j].CreatedAt)
	})
	return view, nil
}

// UnifiedAppointment 带来源租户的预约
type UnifiedAppointment struct {
	TenantSlug string `json:"tenant_slug"`
	domain.Appointment
}

type AppointmentsView struct {
	Items  []UnifiedAppointment `json:"items"`
	Errors map[string]string    `json:"errors,omitempty"`
}

// UnifiedAppointments from 之后的全部预约，最近的在前
func (e *Engine) UnifiedAppointments(ctx context.Context, chainID string, from time.Time, perTenantLimit int) (*AppointmentsView, error) {
	if perTenantLimit <= 0 {
		perTenantLimit = DefaultPerTenantLimit
	}
	results, err := QueryAllChainDbs(ctx, e, chainID, func(ctx context.Context, _ string, repo *repository.TenantRepo) ([]domain.Appointment, error) {
		return repo.ListAppointments(ctx, from, perTenantLimit)
	})
	if err != nil {
		return nil, err
	}

	view := &AppointmentsView{Items: []UnifiedAppointment{}, Errors: errorsBySlug(results)}
	for _, r := range results {
		for _, a := range r.Data {
			view.Items = append(view.Items, UnifiedAppointment{TenantSlug: r.Slug, Appointment: a})
		}
	}
	sort.SliceStable(view.Items, func(i, j int) bool {
		return view.Items[i].ScheduledAt.Before(view.Items[j].ScheduledAt)
	})
	return view, nil
}

// DirectoryEntry 客户目录条目；同一全局 id 的副本合并为一条
type DirectoryEntry struct {
	// Key 全局 id；历史数据没有 id 时为 "<slug>:<local_id>"
	Key          string   `json:"key"`
	ID           string   `json:"id,omitempty"`
	SourceTenant string   `json:"source_tenant,omitempty"`
	Name         string   `json:"name"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Tenants      []string `json:"tenants"`
	OrderCount   int      `json:"order_count"`
}

type DirectoryView struct {
	Items  []DirectoryEntry  `json:"items"`
	Errors map[string]string `json:"errors,omitempty"`
}

// ClientDirectory 连锁客户目录（按全局 id 去重，订单数累加）
func (e *Engine) ClientDirectory(ctx context.Context, chainID string) (*DirectoryView, error) {
	results, err := QueryAllChainDbs(ctx, e, chainID, func(ctx context.Context, _ string, repo *repository.TenantRepo) ([]domain.ClientOrderCount, error) {
		return repo.ListClientsWithOrderCount(ctx)
	})
	if err != nil {
		return nil, err
	}

	entries := map[string]*DirectoryEntry{}
	order := []string{}
	for _, r := range results {
		for _, row := range r.Data {
			c := row.Client
			key := c.UUID
			if key == "" {
				key = fmt.Sprintf("%s:%d", r.Slug, c.LocalID)
			}

			entry, ok := entries[key]
			if !ok {
				entry = &DirectoryEntry{Key: key, ID: c.UUID, Tenants: []string{}}
				entries[key] = entry
				order = append(order, key)
			}
			// 优先使用数据归属租户的那一份
			if !ok || r.Slug == c.SourceTenant {
				entry.SourceTenant = c.SourceTenant
				entry.Name = c.Name
				entry.Email = c.Email
				entry.Phone = c.Phone
			}
			entry.Tenants = append(entry.Tenants, r.Slug)
			entry.OrderCount += row.OrderCount
		}
	}

	view := &DirectoryView{Items: make([]DirectoryEntry, 0, len(order)), Errors: errorsBySlug(results)}
	for _, key := range order {
		view.Items = append(view.Items, *entries[key])
	}
	sort.SliceStable(view.Items, func(i, j int) bool {
		a, b := strings.ToLower(view.Items[i].Name), strings.ToLower(view.Items[j].Name)
		if a != b {
			return a < b
		}
		return view.Items[i].Key < view.Items[j].Key
	})
	return view, nil
}

// TrackedOrder 按追踪码找到的订单（已按连锁可见级别处理）
type TrackedOrder struct {
	TenantSlug string                 `json:"tenant_slug"`
	Visibility domain.VisibilityLevel `json:"visibility_level"`
	Detail     *domain.OrderDetail    `json:"detail"`
}

// TrackOrder 逐个门店查找追踪码，找到即停止；未找到返回 nil
func (e *Engine) TrackOrder(ctx context.Context, chainID, token string) (*TrackedOrder, map[string]string, error) {
	chain, err := e.registry.GetChain(ctx, chainID)
	if err != nil {
		return nil, nil, err
	}

	match, errs, err := FirstMatch(ctx, e, chainID, func(ctx context.Context, _ string, repo *repository.TenantRepo) (*domain.OrderDetail, error) {
		return repo.FindOrderByTrackingToken(ctx, token)
	})
	if err != nil || match == nil {
		return nil, errs, err
	}

	return &TrackedOrder{
		TenantSlug: match.Slug,
		Visibility: chain.VisibilityLevel,
		Detail:     RedactOrderDetail(match.Data, chain.VisibilityLevel),
	}, errs, nil
}

// RedactOrderDetail 按可见级别返回订单详情副本
//   - full: 原样
//   - summary: 明细清空，保留订单头和历史
//   - no_prices: 保留明细描述和数量，单价、小计、总额置空
//
// 未知级别按 summary 处理
func RedactOrderDetail(d *domain.OrderDetail, level domain.VisibilityLevel) *domain.OrderDetail {
	if d == nil {
		return nil
	}
	out := *d
	out.History = append([]domain.OrderHistory{}, d.History...)

	switch level {
	case domain.VisibilityFull:
		out.Items = append([]domain.OrderItem{}, d.Items...)
	case domain.VisibilityNoPrices:
		out.Total = nil
		out.Items = make([]domain.OrderItem, len(d.Items))
		for i, it := range d.Items {
			it.UnitPrice = nil
			it.Subtotal = nil
			out.Items[i] = it
		}
	default:
		out.Items = []domain.OrderItem{}
	}
	return &out
}

// TenantReport 单个门店的报表行；Revenue 仅对有财务权限的用户返回
type TenantReport struct {
	Slug        string   `json:"slug"`
	OrderCount  int      `json:"order_count"`
	ClientCount int      `json:"client_count"`
	Revenue     *float64 `json:"revenue"`
	Error       string   `json:"error,omitempty"`
}

type ReportTotals struct {
	OrderCount  int      `json:"order_count"`
	ClientCount int      `json:"client_count"`
	Revenue     *float64 `json:"revenue"`
}

// Report 连锁汇总报表
type Report struct {
	ChainID string         `json:"chain_id"`
	Tenants []TenantReport `json:"tenants"`
	Totals  ReportTotals   `json:"totals"`
}

// ChainReport 汇总各门店的订单数、客户数；营业额只在 viewer 属于该连锁且 can_see_financials 时计算
func (e *Engine) ChainReport(ctx context.Context, chainID string, viewer domain.ChainUser) (*Report, error) {
	results, err := QueryAllChainDbs(ctx, e, chainID, func(ctx context.Context, _ string, repo *repository.TenantRepo) (*domain.TenantStats, error) {
		return repo.Stats(ctx)
	})
	if err != nil {
		return nil, err
	}

	financials := viewer.CanSeeFinancials && viewer.ChainID == chainID

	report := &Report{ChainID: chainID, Tenants: make([]TenantReport, 0, len(results))}
	var revenue float64
	for _, r := range results {
		row := TenantReport{Slug: r.Slug}
		if r.Err != nil {
			row.Error = r.Err.Error()
			report.Tenants = append(report.Tenants, row)
			continue
		}
		row.OrderCount = r.Data.OrderCount
		row.ClientCount = r.Data.ClientCount
		if financials {
			v := r.Data.Revenue
			row.Revenue = &v
			revenue += v
		}
		report.Totals.OrderCount += row.OrderCount
		report.Totals.ClientCount += row.ClientCount
		report.Tenants = append(report.Tenants, row)
	}
	if financials {
		report.Totals.Revenue = &revenue
	}
	return report, nil
}
