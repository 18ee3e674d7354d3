package authz

import "sort"

// Permission keys exposed to clients.
const (
	PermViewLeads         = "can_view_leads"
	PermCreateLeads       = "can_create_leads"
	PermDeleteLeads       = "can_delete_leads"
	PermMoveLeadToWon     = "can_move_lead_to_won"
	PermCreateQuotations  = "can_create_quotations"
	PermApproveQuotations = "can_approve_quotations"
	PermReviseQuotations  = "can_revise_quotations"
	PermEditProjectPhases = "can_edit_project_phases"
	PermSkipProjectPhases = "can_skip_project_phases"
	PermManageStock       = "can_manage_stock"
	PermManageBilling     = "can_manage_billing"
	PermViewFinancials    = "can_view_financials"
	PermManageTeam        = "can_manage_team"
	PermManageRoles       = "can_manage_roles"
	PermTransferOwnership = "can_transfer_ownership"
	PermViewAuditLog      = "can_view_audit_log"
)

// Rule grants a permission either to holders of any of Slugs or to anyone
// whose level is at most MaxLevel. A rule with both set grants on either.
type Rule struct {
	Permission string
	Slugs      []string
	MaxLevel   *int
}

func level(n int) *int { return &n }

var policyTable = []Rule{
	{Permission: PermViewLeads, MaxLevel: level(3)},
	{Permission: PermCreateLeads, Slugs: []string{SlugSales}, MaxLevel: level(LevelManager)},
	{Permission: PermDeleteLeads, Slugs: []string{SlugOwner, SlugAdmin}},
	{Permission: PermMoveLeadToWon, Slugs: []string{SlugSales}, MaxLevel: level(LevelManager)},
	{Permission: PermCreateQuotations, Slugs: []string{SlugDesigner, SlugSales}, MaxLevel: level(LevelManager)},
	{Permission: PermApproveQuotations, MaxLevel: level(LevelManager)},
	{Permission: PermReviseQuotations, Slugs: []string{SlugDesigner}, MaxLevel: level(LevelManager)},
	{Permission: PermEditProjectPhases, Slugs: []string{SlugDesigner, SlugSiteSupervisor}, MaxLevel: level(LevelManager)},
	{Permission: PermSkipProjectPhases, MaxLevel: level(LevelManager)},
	{Permission: PermManageStock, Slugs: []string{SlugSiteSupervisor}, MaxLevel: level(LevelManager)},
	{Permission: PermManageBilling, Slugs: []string{SlugAccountant}, MaxLevel: level(LevelAdmin)},
	{Permission: PermViewFinancials, Slugs: []string{SlugAccountant}, MaxLevel: level(LevelManager)},
	{Permission: PermManageTeam, MaxLevel: level(LevelManager)},
	{Permission: PermManageRoles, MaxLevel: level(LevelAdmin)},
	{Permission: PermTransferOwnership, MaxLevel: level(LevelOwner)},
	{Permission: PermViewAuditLog, MaxLevel: level(LevelAdmin)},
}

// PolicyTable returns a copy of the static permission table.
func PolicyTable() []Rule {
	out := make([]Rule, len(policyTable))
	copy(out, policyTable)
	return out
}

// Permissions lists every permission key in table order.
func Permissions() []string {
	keys := make([]string, 0, len(policyTable))
	for _, r := range policyTable {
		keys = append(keys, r.Permission)
	}
	return keys
}

// Grants reports whether the rule allows a holder of slugs at the given level.
func (r Rule) Grants(slugs map[string]struct{}, lvl int) bool {
	if r.MaxLevel != nil && lvl <= *r.MaxLevel {
		return true
	}
	for _, s := range r.Slugs {
		if _, ok := slugs[s]; ok {
			return true
		}
	}
	return false
}

// Evaluate derives the full permission map for a role set and level.
func Evaluate(slugs []string, lvl int) map[string]bool {
	set := make(map[string]struct{}, len(slugs))
	for _, s := range slugs {
		set[s] = struct{}{}
	}
	perms := make(map[string]bool, len(policyTable))
	for _, r := range policyTable {
		perms[r.Permission] = r.Grants(set, lvl)
	}
	return perms
}

// KnownPermission reports whether key appears in the table.
func KnownPermission(key string) bool {
	i := sort.SearchStrings(sortedPermissions, key)
	return i < len(sortedPermissions) && sortedPermissions[i] == key
}

var sortedPermissions = func() []string {
	keys := Permissions()
	sort.Strings(keys)
	return keys
}()
