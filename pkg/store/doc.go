// Package store provides explicitly constructed observable state.
//
// A Store holds one value and an ordered registry of subscribers. There are
// no package-level stores: callers construct one per scope and decide its
// lifetime.
//
// Usage:
//
//	cart := store.New([]Item{})
//	unsubscribe := cart.Subscribe(func(items []Item) {
//	    render(items)
//	})
//	defer unsubscribe()
//
//	cart.Update(func(items []Item) []Item {
//	    return append(items, Item{ID: "sku-1"})
//	})
//
// Subscribers run synchronously, in registration order, on the goroutine
// that changed the value. A panicking subscriber is recovered and reported
// as a *PanicError; the remaining subscribers still run.
package store
