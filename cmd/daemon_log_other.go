//go:build !windows

package cmd

import "github.com/randalarm/randalarm/pkg/logger"

func withPlatformLog(l logger.Logger) logger.Logger { return l }
