package health

import (
	"context"
	"errors"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// StoreChecker reports whether the account store answers a ping.
type StoreChecker struct {
	name  string
	store pinger
}

func NewStoreChecker(driver string, store pinger) *StoreChecker {
	name := "account_store"
	if driver != "" {
		name = "account_store_" + driver
	}
	return &StoreChecker{name: name, store: store}
}

func (c *StoreChecker) Name() string { return c.name }

func (c *StoreChecker) Check(ctx context.Context) error {
	if c.store == nil {
		return errors.New("account store not configured")
	}
	return c.store.Ping(ctx)
}

// FuncChecker adapts a plain function, used for optional dependencies.
type FuncChecker struct {
	name string
	fn   func(ctx context.Context) error
}

func NewFuncChecker(name string, fn func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, fn: fn}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) error {
	if c.fn == nil {
		return nil
	}
	return c.fn(ctx)
}
