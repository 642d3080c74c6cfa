package cache

import (
	"context"
	"time"
)

// NoopCache never stores anything
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (interface{}, bool)         { return nil, false }
func (NoopCache) Set(context.Context, string, interface{}, time.Duration) {}
func (NoopCache) Delete(context.Context, string)                          {}
func (NoopCache) DeleteByPrefix(context.Context, string)                  {}
func (NoopCache) Flush(context.Context)                                   {}
