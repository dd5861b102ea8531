// Package service runs the randalarm daemon under the Windows Service
// Control Manager and installs, starts and stops that service. Everything
// but this comment is Windows only.
package service
