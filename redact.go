package ftp

import "strings"

// redactCommandLine masks the argument of a PASS command before it is
// handed to a logger. FTP sends credentials in the clear over the control
// channel, but that's no reason to also write them to disk in a debug log.
func redactCommandLine(cmd string) string {
	fields := strings.SplitN(cmd, " ", 2)
	if len(fields) == 2 && strings.EqualFold(fields[0], "PASS") {
		return fields[0] + " ****"
	}
	return cmd
}
