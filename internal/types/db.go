package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LockScope represents the scope of a database advisory lock
type LockScope string

const (
	// LockScopeSubscriberPlan serializes ledger writes for one subscriber
	LockScopeSubscriberPlan LockScope = "subscriber_plan"
)

// DefaultLockTimeout applies when a LockRequest leaves Timeout nil
const DefaultLockTimeout = 30 * time.Second

// LockRequest describes an advisory lock acquisition.
// A nil Timeout means DefaultLockTimeout; zero or negative means fail fast.
type LockRequest struct {
	Key     string
	Timeout *time.Duration
}

func (r LockRequest) GetTimeout() time.Duration {
	if r.Timeout == nil {
		return DefaultLockTimeout
	}
	return *r.Timeout
}

// GenerateLockKey generates a lock key from a scope and parameters.
// Plan rows are keyed by subscriber id alone, so the key carries only the
// caller's params; a tenant header must not split one row across two locks.
// The key is a deterministic string that Postgres will hash internally.
func GenerateLockKey(scope LockScope, params map[string]interface{}) string {
	mergedParams := make(map[string]interface{}, len(params))
	for k, v := range params {
		mergedParams[k] = v
	}

	keys := make([]string, 0, len(mergedParams))
	for k := range mergedParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// scope:key1=value1:key2=value2
	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, mergedParams[k]))
	}

	return b.String()
}

// TableName represents a database table name
type TableName string

const (
	TableNameInstallmentPlans TableName = "installment_plans"
	TableNamePayments         TableName = "payment_records"
)
