package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Role is the set of roles an actor can hold. Unknown covers
// pre-authentication traffic such as failed logins.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
	RoleAdmin   Role = "admin"
	RoleUnknown Role = "unknown"
)

// ValidAssignableRole reports whether r can be assigned to a user account.
func ValidAssignableRole(r Role) bool {
	switch r {
	case RoleDoctor, RoleNurse, RoleAdmin:
		return true
	}
	return false
}

// ActionKind is the canonical classification of what a request did.
// It drives both audit display and anomaly rule matching.
type ActionKind string

const (
	ActionLogin              ActionKind = "LOGIN"
	ActionFailedLogin        ActionKind = "FAILED_LOGIN"
	ActionLogout             ActionKind = "LOGOUT"
	ActionRegister           ActionKind = "REGISTER"
	ActionViewProfile        ActionKind = "VIEW_PROFILE"
	ActionViewRecord         ActionKind = "VIEW_RECORD"
	ActionAddRecord          ActionKind = "ADD_RECORD"
	ActionViewPatients       ActionKind = "VIEW_PATIENTS"
	ActionViewAppointments   ActionKind = "VIEW_APPOINTMENTS"
	ActionViewUsers          ActionKind = "VIEW_USERS"
	ActionRoleChange         ActionKind = "ROLE_CHANGE"
	ActionDeleteUser         ActionKind = "DELETE_USER"
	ActionUnauthorizedAccess ActionKind = "UNAUTHORIZED_ACCESS"
	ActionChatAI             ActionKind = "CHAT_AI"
	ActionOther              ActionKind = "OTHER"
)

// Anomaly rule identifiers stored on flagged events. Severity shown to
// operators is derived from the flag reason at read time, not stored.
const (
	RuleBruteForceLogin       = "brute_force_login"
	RuleExcessiveRecordAccess = "excessive_record_access"
	RuleOffHoursAccess        = "off_hours_access"
	RuleRapidRoleChange       = "rapid_role_change"
)

// AuditEvent is an append-only record of one classified request or one
// detected violation. Events are never deleted and never rewritten;
// the only post-creation mutation is flipping Resolved on a flagged event.
type AuditEvent struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	UUID      string     `json:"uuid" gorm:"uniqueIndex"`
	ActorID   *uint      `json:"actor_id" gorm:"index:idx_actor_ts"` // nil for pre-auth failures
	ActorName string     `json:"actor_name"`
	ActorRole Role       `json:"actor_role" gorm:"default:'unknown'"`
	Action    ActionKind `json:"action" gorm:"index:idx_action_ts"`
	Endpoint  string     `json:"endpoint"` // "METHOD /path"
	SourceIP  string     `json:"source_ip" gorm:"index:idx_ip_ts"`

	// Timestamp is event creation time, not processing time.
	Timestamp time.Time `json:"timestamp" gorm:"index:idx_actor_ts;index:idx_ip_ts;index:idx_action_ts;index"`

	Flagged    bool           `json:"flagged" gorm:"index:idx_flagged_resolved"`
	FlagReason string         `json:"flag_reason"`
	RuleID     string         `json:"rule_id,omitempty"`
	Resolved   bool           `json:"resolved" gorm:"index:idx_flagged_resolved"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Severity classifies a flagged event for operator triage. It is derived
// from the flag reason at read time and never stored.
func (e *AuditEvent) Severity() string {
	reason := strings.ToLower(e.FlagReason)
	if strings.Contains(reason, "brute force") || strings.Contains(reason, "rapid") {
		return "high"
	}
	return "medium"
}
