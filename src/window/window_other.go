//go:build !windows && !darwin

package window

func newPlatform() Enumerator { return Unavailable{} }
