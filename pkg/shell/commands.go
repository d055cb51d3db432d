// pkg/shell/commands.go
package shell

import "strings"

// Fake host identity presented to every session.
const (
	FakeUser = "admin"
	FakeHost = "honeypot"
	HomeDir  = "/home/admin"
)

// decoy outputs for the static command table
const (
	homeListing    = "Desktop  Documents  Downloads  secrets.txt"
	secretsContent = "root:toor\nadmin:admin123\n"
	unameOutput    = "Linux honeypot 5.15.0 #1 SMP Ubuntu"
	catNotFound    = "cat: No such file or directory"
)

// exitTokens are the inputs that end the shell loop.
var exitTokens = map[string]bool{
	"exit":   true,
	"logout": true,
}

// IsExitToken reports whether the input ends the shell conversation.
func IsExitToken(command string) bool {
	return exitTokens[command]
}

// Dispatch resolves a command line against the static decoy table. The
// secrets.txt honeytoken serves fabricated credentials; everything outside
// the table gets the stock not-found reply.
func Dispatch(command, cwd string) string {
	switch {
	case command == "":
		return ""
	case command == "ls":
		return homeListing
	case command == "pwd":
		return cwd
	case command == "whoami":
		return FakeUser
	case strings.HasPrefix(command, "cat"):
		if strings.Contains(command, "secrets.txt") {
			return secretsContent
		}
		return catNotFound
	case command == "uname -a":
		return unameOutput
	default:
		return command + ": command not found"
	}
}
