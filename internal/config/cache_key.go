package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamPayloadKey returns the cache key for a full exam paper (definition
// plus resolved questions, correct answers included. Never sent raw to
// the candidate).
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

// CandidateResultKey returns the cache key for a candidate's persisted
// result snapshot, used by the post-exam screen on reload.
func (r *CacheKeyStruct) CandidateResultKey(examID string, userID int) string {
	return fmt.Sprintf("candidate:%d:exam:%s:result", userID, examID)
}

var CacheKey = NewCacheKeyStruct()
