//go:build !linux

package wakelock

func newInhibitor() inhibitor {
	return nil
}
