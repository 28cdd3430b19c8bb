package rbac

const (
	RoleTaker = "taker"
	RoleAdmin = "admin"
)

const (
	PermSessionStart  = "session:start"
	PermSessionView   = "session:view"
	PermSessionAnswer = "session:answer"
	PermSessionSubmit = "session:submit"
	PermAttemptOwn    = "attempt:view-own"
	PermAttemptAll    = "attempt:view-all"
	PermQuestionsIn   = "question:import"
	PermQuestionsList = "question:stats"
	PermTakersUpsert  = "takers:upsert"
	PermEventsRead    = "events:read"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	RoleTaker: {
		"session:*",
		PermAttemptOwn,
	},
	RoleAdmin: {
		"*",
	},
}
