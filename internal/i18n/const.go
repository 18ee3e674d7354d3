package i18n

import "github.com/nicksnyder/go-i18n/v2/i18n"

// Generic request errors
var (
	ErrBadRequest     = NewErrorWithCode("ErrorBadRequest", ErrorBadRequest)
	ErrRouteNotFound  = NewErrorWithCode("ErrorRouteNotFound", ErrorNotFound)
	ErrInternalServer = NewErrorWithCode("ErrorInternalServer", ErrorInternalServer)
)

// Authorization errors
var (
	ErrorUnauthenticated        = NewErrorWithCode("ErrorUnauthenticated", ErrorUnauthorized)
	ErrorAccountNotActive       = NewErrorWithCode("ErrorAccountNotActive", ErrorForbidden)
	ErrorInsufficientAuthority  = NewErrorWithCode("ErrorInsufficientAuthority", ErrorForbidden)
	ErrorMemberNotFound         = NewErrorWithCode("ErrorMemberNotFound", ErrorNotFound)
	ErrorInvalidMemberState     = NewErrorWithCode("ErrorInvalidMemberState", ErrorBadRequest)
	ErrorSystemConfiguration    = NewErrorWithCode("ErrorSystemConfiguration", ErrorInternalServer)
	ErrorConcurrentModification = NewErrorWithCode("ErrorConcurrentModification", ErrorConflict)
	ErrorMemberExists           = NewErrorWithCode("ErrorMemberExists", ErrorConflict)
)

// Success messages
const (
	SuccessMemberInvited        = "SuccessMemberInvited"
	SuccessInvitationAccepted   = "SuccessInvitationAccepted"
	SuccessMemberReactivated    = "SuccessMemberReactivated"
	SuccessMemberDeactivated    = "SuccessMemberDeactivated"
	SuccessMemberRolesUpdated   = "SuccessMemberRolesUpdated"
	SuccessOwnershipTransferred = "SuccessOwnershipTransferred"
)

var defaultMessages = []*i18n.Message{
	{ID: "ErrorBadRequest", Other: "Invalid request: {{.Reason}}"},
	{ID: "ErrorRouteNotFound", Other: "Route not found"},
	{ID: "ErrorInternalServer", Other: "Internal server error"},
	{ID: "ErrorUnauthenticated", Other: "Authentication required"},
	{ID: "ErrorAccountNotActive", Other: "Your account is not active"},
	{ID: "ErrorInsufficientAuthority", Other: "You do not have sufficient authority for this action"},
	{ID: "ErrorMemberNotFound", Other: "Team member not found"},
	{ID: "ErrorInvalidMemberState", Other: "The member is not in a valid state for this action"},
	{ID: "ErrorSystemConfiguration", Other: "System configuration error, please contact support"},
	{ID: "ErrorConcurrentModification", Other: "The member was modified concurrently, please retry"},
	{ID: "ErrorMemberExists", Other: "A member with this email already exists"},
	{ID: SuccessMemberInvited, Other: "Invitation sent"},
	{ID: SuccessInvitationAccepted, Other: "Invitation accepted"},
	{ID: SuccessMemberReactivated, Other: "Member reactivated"},
	{ID: SuccessMemberDeactivated, Other: "Member deactivated"},
	{ID: SuccessMemberRolesUpdated, Other: "Member roles updated"},
	{ID: SuccessOwnershipTransferred, Other: "Ownership transferred"},
}
