package config

import (
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/garage_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// TenantGuardPlugin pins every query, update and delete to the request's
// business_id whenever the model carries that column. Raw SQL is NOT
// covered; reports and aggregates must filter the tenant themselves.
// Admin and internal callers bypass explicitly via context flags.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		register func(string, func(*gorm.DB)) error
		name     string
	}{
		{cb.Query().Before("gorm:query").Register, "tenant_guard:query"},
		{cb.Row().Before("gorm:row").Register, "tenant_guard:row"},
		{cb.Update().Before("gorm:update").Register, "tenant_guard:update"},
		{cb.Delete().Before("gorm:delete").Register, "tenant_guard:delete"},
	}
	for _, h := range hooks {
		if err := h.register(h.name, guardTenantScope); err != nil {
			return err
		}
	}
	return nil
}

func guardTenantScope(db *gorm.DB) {
	if db == nil || db.Statement == nil || db.Statement.Context == nil {
		return
	}
	ctx := db.Statement.Context
	if tenantScopeBypassed(ctx) {
		return
	}
	businessId, _ := ctx.Value(appctx.ContextKeyBusinessId).(string)
	if businessId == "" {
		return
	}
	if !modelHasBusinessId(db.Statement.Schema) {
		return
	}
	// An explicit tenant filter wins; never stack a second one.
	if clauseFiltersBusinessId(db.Statement.Clauses["WHERE"]) {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: db.Statement.Table, Name: "business_id"},
				Value:  businessId,
			},
		},
	})
}

func tenantScopeBypassed(ctx context.Context) bool {
	if v, ok := ctx.Value(appctx.ContextKeySkipTenantScope).(bool); ok && v {
		return true
	}
	v, ok := ctx.Value(appctx.ContextKeyIsAdmin).(bool)
	return ok && v
}

func modelHasBusinessId(s *schema.Schema) bool {
	if s == nil {
		return false
	}
	for _, f := range s.Fields {
		if strings.EqualFold(f.DBName, "business_id") {
			return true
		}
	}
	return false
}

func clauseFiltersBusinessId(c clause.Clause) bool {
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, e := range w.Exprs {
		if expressionTouchesBusinessId(e) {
			return true
		}
	}
	return false
}

func expressionTouchesBusinessId(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return columnIsBusinessId(v.Column)
	case clause.Neq:
		return columnIsBusinessId(v.Column)
	case clause.Gt:
		return columnIsBusinessId(v.Column)
	case clause.Gte:
		return columnIsBusinessId(v.Column)
	case clause.Lt:
		return columnIsBusinessId(v.Column)
	case clause.Lte:
		return columnIsBusinessId(v.Column)
	case clause.IN:
		return columnIsBusinessId(v.Column)
	case clause.AndConditions:
		return anyExpressionTouchesBusinessId(v.Exprs)
	case clause.OrConditions:
		return anyExpressionTouchesBusinessId(v.Exprs)
	case clause.Expr:
		// best effort for raw fragments inside Where()
		return strings.Contains(strings.ToLower(v.SQL), "business_id")
	default:
		return false
	}
}

func anyExpressionTouchesBusinessId(exprs []clause.Expression) bool {
	for _, e := range exprs {
		if expressionTouchesBusinessId(e) {
			return true
		}
	}
	return false
}

func columnIsBusinessId(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, "business_id")
	case clause.Column:
		return strings.EqualFold(c.Name, "business_id")
	default:
		return false
	}
}
