package conversation

import "gorm.io/gorm"

// Scope restricts a query or sweep to a slice of the conversations table.
// It is resolved once by the caller (privileged cron vs. authenticated
// client) instead of probed per request.
type Scope struct {
	column string
	id     string
}

// ScopeAll matches every tenant. Only the privileged cron path uses it.
func ScopeAll() Scope { return Scope{} }

// ByUser scopes to one tenant's conversations.
func ByUser(userID string) Scope { return Scope{column: "user_id", id: userID} }

// ByAI scopes to a single assistant's conversations.
func ByAI(aiID string) Scope { return Scope{column: "ai_id", id: aiID} }

func (s Scope) apply(tx *gorm.DB) *gorm.DB {
	if s.column == "" {
		return tx
	}
	return tx.Where(s.column+" = ?", s.id)
}
