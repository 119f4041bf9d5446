package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/aegis/internal/models"
	"github.com/Wikid82/aegis/internal/services"
)

// classificationRule maps a path fragment (and optionally a method) to a
// canonical action kind. Rules are evaluated in order; first match wins.
type classificationRule struct {
	fragment string
	method   string // empty matches any method
	extra    string // optional second fragment that must also be present
	kind     models.ActionKind
}

var classificationRules = []classificationRule{
	{fragment: "auth/login", kind: models.ActionLogin},
	{fragment: "auth/register", kind: models.ActionRegister},
	{fragment: "auth/logout", kind: models.ActionLogout},
	{fragment: "auth/profile", kind: models.ActionViewProfile},
	{fragment: "chat", kind: models.ActionChatAI},
	{fragment: "doctor/patients", kind: models.ActionViewPatients},
	{fragment: "doctor/records", method: "GET", kind: models.ActionViewRecord},
	{fragment: "doctor/records", method: "POST", kind: models.ActionAddRecord},
	{fragment: "doctor/records", method: "PUT", kind: models.ActionAddRecord},
	{fragment: "appointments", kind: models.ActionViewAppointments},
	{fragment: "admin/users", extra: "/role", kind: models.ActionRoleChange},
	{fragment: "admin/users", method: "DELETE", kind: models.ActionDeleteUser},
	{fragment: "admin/users", method: "GET", kind: models.ActionViewUsers},
}

// skippedPathFragments are never audited: health probes, metrics scrapes and
// static assets would drown the trail in noise.
var skippedPathFragments = []string{"/health", "/metrics", "/assets/"}

// ClassifyRequest maps method + path to the canonical action kind.
// Unmatched requests classify as OTHER.
func ClassifyRequest(method, path string) models.ActionKind {
	for _, rule := range classificationRules {
		if !strings.Contains(path, rule.fragment) {
			continue
		}
		if rule.extra != "" && !strings.Contains(path, rule.extra) {
			continue
		}
		if rule.method != "" && rule.method != method {
			continue
		}
		return rule.kind
	}
	return models.ActionOther
}

// AuditRequest reports whether a path qualifies for audit capture.
func AuditRequest(path string) bool {
	for _, frag := range skippedPathFragments {
		if strings.Contains(path, frag) {
			return false
		}
	}
	return true
}

// Audit classifies each qualifying request, persists exactly one audit event
// off the critical path, and then runs the anomaly rules for authenticated
// requests. The event write is fire-and-forget: the response never waits on
// it and a store outage never changes the caller-visible outcome. The
// anomaly evaluation is bounded by its own timeout before the handler chain
// proceeds.
func Audit(audit *services.AuditService, anomaly *services.AnomalyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !AuditRequest(path) {
			c.Next()
			return
		}

		kind := ClassifyRequest(c.Request.Method, path)
		endpoint := c.Request.Method + " " + path
		sourceIP := c.ClientIP()

		event := &models.AuditEvent{
			ActorName: "Anonymous",
			ActorRole: models.RoleUnknown,
			Action:    kind,
			Endpoint:  endpoint,
			SourceIP:  sourceIP,
			Metadata: services.Metadata(map[string]string{
				"user_agent": c.Request.UserAgent(),
				"method":     c.Request.Method,
			}),
		}

		id, authenticated := GetIdentity(c)
		if authenticated {
			actorID := id.UserID
			event.ActorID = &actorID
			event.ActorName = id.Name
			event.ActorRole = id.Role
		}

		audit.RecordAsync(event)

		if authenticated {
			anomaly.Evaluate(id.Actor(), kind, endpoint, sourceIP)
		}

		c.Next()
	}
}
