//go:build !windows

package overlay

func newPlatform() Selector { return Unavailable{} }
