// Package retry 提供统一的有界重试策略
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy 重试策略：最大尝试次数 + 指数退避
type Policy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
}

// DefaultPolicy 默认策略（嵌入/生成调用边界共用）
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Initial:     200 * time.Millisecond,
		Max:         5 * time.Second,
		Multiplier:  2.0,
	}
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		b.InitialInterval = p.Initial
	}
	if p.Max > 0 {
		b.MaxInterval = p.Max
	}
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	}
	return b
}

// Do 按策略执行 op，返回最后一次结果
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(attempts)),
	)
}

// DoVoid 无返回值版本
func DoVoid(ctx context.Context, p Policy, op func() error) error {
	_, err := Do(ctx, p, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

// Permanent 标记不可重试的错误（例如配额耗尽）
func Permanent(err error) error {
	return backoff.Permanent(err)
}
