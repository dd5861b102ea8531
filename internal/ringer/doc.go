// Package ringer plays the alarm sound of the ring that holds the ring
// channel. Playback loops an external player command until stopped, and
// falls back to the terminal bell when no player can run.
package ringer
