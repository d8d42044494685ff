package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session (JTI).
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// SessionByCodeKey returns the cache key mapping an access code to its session.
// Codes are case-sensitive, so the raw code is used as-is.
func (r *CacheKeyStruct) SessionByCodeKey(code string) string {
	return fmt.Sprintf("session:code:%s", code)
}

// ExamQuestionSetKey returns the cache key for the set of question IDs
// belonging to an exam. Used for answer membership checks.
func (r *CacheKeyStruct) ExamQuestionSetKey(examID uuid.UUID) string {
	return fmt.Sprintf("exam:%s:question_set", examID)
}

// SessionMonitorChannel returns the Redis PubSub channel carrying live
// proctoring events for a session.
func (r *CacheKeyStruct) SessionMonitorChannel(sessionID uuid.UUID) string {
	return fmt.Sprintf("session:%s:monitor", sessionID)
}

var CacheKey = NewCacheKeyStruct()
